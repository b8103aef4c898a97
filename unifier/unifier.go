package unifier

import (
	"database/sql"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"uriage/db"
	"uriage/model"
)

// 3つの集計元テーブルを優先度順に1本のチャネル別月次系列へ統合します。
// 優先度は actual（チャネル次元つき実績） > final（過去の確定値、表記揺れあり）
// > computed（計算フォールバック）。セルごとに最上位の1ソースだけを採用し、
// ソースをまたいだ合算は行いません（置き換えカスケードであって集計ではない）。
//
// 例外は2つだけ:
//   - WEB は web_sales テーブルの当月合計が非ゼロならそちらを優先する
//   - WHOLESALE は直販卸 + OEM の2サブソースの合算（同一チャネルの内訳であり、
//     競合するソースではないため、ここだけ意図的に合算する）

// ラベル正規化の分類パターン。大文字化・トリム後に順に照合し、
// どれにも当たらなければ OTHER（未分類のまま捨てることはしない）。
var labelPatterns = []struct {
	re   *regexp.Regexp
	code string
}{
	{regexp.MustCompile(`WEB|EC|ONLINE|NET|通販|ネット|楽天|RAKUTEN|AMAZON|YAHOO|ヤフー|メルカリ|MERCARI|QOO10|BASE`), model.ChannelWeb},
	{regexp.MustCompile(`WHOLESALE|OEM|卸|問屋|法人|DEALER`), model.ChannelWholesale},
	{regexp.MustCompile(`STORE|SHOP|POS|店|直営|店舗`), model.ChannelStore},
	{regexp.MustCompile(`SHOKU|FOOD|食|飲食|レストラン|カフェ|惣菜`), model.ChannelShoku},
}

// NormalizeChannelLabel は生のチャネルラベルを正規チャネルコードへ分類します。
// 戻り値は必ず {WEB, WHOLESALE, STORE, SHOKU, OTHER} のいずれかです。
func NormalizeChannelLabel(raw string) string {
	label := strings.ToUpper(strings.TrimSpace(raw))
	if label == "" {
		return model.ChannelOther
	}
	for _, p := range labelPatterns {
		if p.re.MatchString(label) {
			return p.code
		}
	}
	return model.ChannelOther
}

// sumByChannel は1ソーステーブル分の行を正規チャネル別に合算します。
// （同一ソース内での合算はカスケードの「合算しない」原則の対象外）
func sumByChannel(rows []model.LabeledAmount) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, row := range rows {
		code := NormalizeChannelLabel(row.Label)
		totals[code] = totals[code].Add(decimal.NewFromFloat(row.Amount))
	}
	return totals
}

// pickByPriority は1セル分のカスケードです。上位ソースに行があればその値、
// なければ次のソースへ。どこにも無ければ ok=false。
func pickByPriority(code string, actual, final, computed map[string]decimal.Decimal) (decimal.Decimal, string, bool) {
	if v, ok := actual[code]; ok {
		return v, db.SourceActual, true
	}
	if v, ok := final[code]; ok {
		return v, db.SourceFinal, true
	}
	if v, ok := computed[code]; ok {
		return v, db.SourceComputed, true
	}
	return decimal.Zero, "", false
}

// Unify は指定月の統合チャネル系列を返します。正規チャネル5つ全てについて
// 1点ずつ返します（値が無いセルは金額0・ソース空欄）。
func Unify(conn *sql.DB, month string) ([]model.ChannelSeriesPoint, error) {
	actualRows, err := db.GetChannelSalesByMonth(conn, db.SourceActual, month)
	if err != nil {
		return nil, err
	}
	finalRows, err := db.GetChannelSalesByMonth(conn, db.SourceFinal, month)
	if err != nil {
		return nil, err
	}
	computedRows, err := db.GetChannelSalesByMonth(conn, db.SourceComputed, month)
	if err != nil {
		return nil, err
	}

	actual := sumByChannel(actualRows)
	final := sumByChannel(finalRows)
	computed := sumByChannel(computedRows)

	var points []model.ChannelSeriesPoint
	for _, code := range model.CanonicalChannels {
		amount, source, found := pickByPriority(code, actual, final, computed)

		switch code {
		case model.ChannelWeb:
			// WEB専用テーブルの合計が非ゼロならそちらが正
			webTotal, webFound, err := db.GetMonthlyTotal(conn, db.SourceWebSales, month)
			if err != nil {
				return nil, err
			}
			if webFound && webTotal != 0 {
				amount = decimal.NewFromFloat(webTotal)
				source = db.SourceWebSales
				found = true
			}
		case model.ChannelWholesale:
			// 直販卸とOEMの完全外部結合（欠けている側は0扱い）
			direct, directFound, err := db.GetMonthlyTotal(conn, "wholesale_sales", month)
			if err != nil {
				return nil, err
			}
			oem, oemFound, err := db.GetMonthlyTotal(conn, "oem_sales", month)
			if err != nil {
				return nil, err
			}
			if directFound || oemFound {
				amount = decimal.NewFromFloat(direct).Add(decimal.NewFromFloat(oem))
				source = db.SourceWholesale
				found = true
			}
		}

		if !found {
			amount = decimal.Zero
			source = ""
		}
		points = append(points, model.ChannelSeriesPoint{
			ChannelCode: code,
			Month:       month,
			Amount:      amount,
			SourceTable: source,
		})
	}
	return points, nil
}

// AmountFor は系列から1チャネル分の金額を取り出すヘルパーです。
func AmountFor(points []model.ChannelSeriesPoint, code string) decimal.Decimal {
	for _, p := range points {
		if p.ChannelCode == code {
			return p.Amount
		}
	}
	return decimal.Zero
}
