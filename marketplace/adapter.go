package marketplace

import (
	"fmt"
	"strings"

	"uriage/parsers"
)

// Adapter は各モールのエクスポートファイルのレイアウト差分を1箇所に集めたものです。
// 解析・集約パイプラインは全モール共通で、違いはこの値だけです。
type Adapter struct {
	Channel     string // 台帳の列名に対応するチャネルコード
	DisplayName string
	HeaderRows  int // データ行の前のヘッダー行数
	TitleCol    int // 商品タイトルの列番号（0始まり）
	QuantityCol int // 数量の列番号（0始まり）
	MinColumns  int // この列数未満の行は不正行
	ShiftJIS    bool
}

// ParserOptions returns the parser settings for this marketplace.
func (a Adapter) ParserOptions() parsers.Options {
	return parsers.Options{
		HeaderRows: a.HeaderRows,
		MinColumns: a.MinColumns,
		ShiftJIS:   a.ShiftJIS,
	}
}

// Title extracts the listing title from a parsed row.
func (a Adapter) Title(row []string) string {
	if a.TitleCol >= len(row) {
		return ""
	}
	return row[a.TitleCol]
}

// Quantity extracts and cleans the quantity from a parsed row.
func (a Adapter) Quantity(row []string) int64 {
	if a.QuantityCol >= len(row) {
		return 0
	}
	return parsers.CleanQuantity(row[a.QuantityCol])
}

var (
	// Amazon: セラーセントラルの事業レポート（UTF-8, ヘッダー1行）
	Amazon = Adapter{
		Channel: "amazon", DisplayName: "Amazon",
		HeaderRows: 1, TitleCol: 1, QuantityCol: 9, MinColumns: 10,
	}
	// 楽天: RMSの売上CSV（Shift_JIS, 前置き7行）
	Rakuten = Adapter{
		Channel: "rakuten", DisplayName: "楽天市場",
		HeaderRows: 7, TitleCol: 1, QuantityCol: 4, MinColumns: 5, ShiftJIS: true,
	}
	// Yahoo!ショッピング: ストアクリエイターの注文CSV
	Yahoo = Adapter{
		Channel: "yahoo", DisplayName: "Yahoo!ショッピング",
		HeaderRows: 1, TitleCol: 0, QuantityCol: 3, MinColumns: 4,
	}
	// メルカリShops: 売上明細CSV
	Mercari = Adapter{
		Channel: "mercari", DisplayName: "メルカリShops",
		HeaderRows: 1, TitleCol: 2, QuantityCol: 5, MinColumns: 6,
	}
	// Qoo10: QSMの販売詳細CSV
	Qoo10 = Adapter{
		Channel: "qoo10", DisplayName: "Qoo10",
		HeaderRows: 1, TitleCol: 3, QuantityCol: 7, MinColumns: 8,
	}
)

var registry = map[string]Adapter{
	Amazon.Channel:  Amazon,
	Rakuten.Channel: Rakuten,
	Yahoo.Channel:   Yahoo,
	Mercari.Channel: Mercari,
	Qoo10.Channel:   Qoo10,
}

// ForChannel looks up the adapter for a channel code.
func ForChannel(code string) (Adapter, error) {
	a, ok := registry[code]
	if !ok {
		return Adapter{}, fmt.Errorf("unknown marketplace channel: %s (対応: %s)",
			code, strings.Join(Channels(), ", "))
	}
	return a, nil
}

// Channels returns the channel codes with import adapters.
func Channels() []string {
	return []string{"amazon", "rakuten", "yahoo", "mercari", "qoo10"}
}
