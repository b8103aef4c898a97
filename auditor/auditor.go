package auditor

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"uriage/db"
	"uriage/model"
	"uriage/unifier"
)

// 読み取り専用の突合診断。書き込みは一切行いません。
// 出てきた差分は「直すべきデータ」のリストであって、ここでは直しません。

// Delta は final と computed の食い違い1セル分です。
type Delta struct {
	Month       string          `json:"month"`
	ChannelCode string          `json:"channelCode"`
	Final       decimal.Decimal `json:"final"`
	Computed    decimal.Decimal `json:"computed"`
	Delta       decimal.Decimal `json:"delta"` // final - computed
}

// ZeroAnomaly は「月全体は売上があるのに特定チャネルだけ0」の月です。
// 真のゼロではなくラベル分類のバグであることが多いシグナルです。
type ZeroAnomaly struct {
	Month       string          `json:"month"`
	ChannelCode string          `json:"channelCode"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
}

// LabelVariant は正規チャネルに流れ込んでいる生ラベルの内訳1件です。
type LabelVariant struct {
	SourceTable string `json:"sourceTable"`
	RawLabel    string `json:"rawLabel"`
	ChannelCode string `json:"channelCode"`
	Count       int    `json:"count"`
}

// Deltas は指定会計年度の final − computed 差分を月×チャネルで返します。
// 差分ゼロのセルは返しません（非ゼロが追うべき欠陥）。
func Deltas(conn *sql.DB, fiscalYear int) ([]Delta, error) {
	var result []Delta
	for _, month := range unifier.FiscalMonthsOfYear(fiscalYear) {
		finalRows, err := db.GetChannelSalesByMonth(conn, db.SourceFinal, month)
		if err != nil {
			return nil, err
		}
		computedRows, err := db.GetChannelSalesByMonth(conn, db.SourceComputed, month)
		if err != nil {
			return nil, err
		}
		finalSums := sumNormalized(finalRows)
		computedSums := sumNormalized(computedRows)

		for _, code := range model.CanonicalChannels {
			f := finalSums[code]
			c := computedSums[code]
			if f.Equal(c) {
				continue
			}
			result = append(result, Delta{
				Month:       month,
				ChannelCode: code,
				Final:       f,
				Computed:    c,
				Delta:       f.Sub(c),
			})
		}
	}
	return result, nil
}

// ZeroAnomalies は統合系列ベースで「グランドトータル>0なのにチャネル0」の
// セルを返します。OTHERは対象外（0が正常なため）。
func ZeroAnomalies(conn *sql.DB, fiscalYear int) ([]ZeroAnomaly, error) {
	var result []ZeroAnomaly
	for _, month := range unifier.FiscalMonthsOfYear(fiscalYear) {
		points, err := unifier.Unify(conn, month)
		if err != nil {
			return nil, err
		}
		grand := decimal.Zero
		for _, p := range points {
			grand = grand.Add(p.Amount)
		}
		if grand.LessThanOrEqual(decimal.Zero) {
			continue
		}
		for _, p := range points {
			if p.ChannelCode == model.ChannelOther {
				continue
			}
			if p.Amount.IsZero() {
				result = append(result, ZeroAnomaly{
					Month:       month,
					ChannelCode: p.ChannelCode,
					GrandTotal:  grand,
				})
			}
		}
	}
	return result, nil
}

// LabelVariants は3つの集計元テーブルの生ラベルを正規チャネル別に列挙します。
// 発生源でのラベル揺れの手動是正に使います。
func LabelVariants(conn *sql.DB) ([]LabelVariant, error) {
	var result []LabelVariant
	for _, table := range []string{db.SourceActual, db.SourceFinal, db.SourceComputed} {
		labels, err := db.ListRawLabels(conn, table)
		if err != nil {
			return nil, err
		}
		for raw, count := range labels {
			result = append(result, LabelVariant{
				SourceTable: table,
				RawLabel:    raw,
				ChannelCode: unifier.NormalizeChannelLabel(raw),
				Count:       count,
			})
		}
	}
	return result, nil
}

func sumNormalized(rows []model.LabeledAmount) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, row := range rows {
		code := unifier.NormalizeChannelLabel(row.Label)
		totals[code] = totals[code].Add(decimal.NewFromFloat(row.Amount))
	}
	return totals
}
