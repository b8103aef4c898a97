package model

import "github.com/shopspring/decimal"

// Product はデータベースから読み込んだ商品マスターのデータを表します。
// 取り込み実行中は読み取り専用として扱います。
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	SeriesCode  string  `json:"seriesCode"`
	ProductCode string  `json:"productCode"`
}

// MatchType classifies how a source title was resolved.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchLearned MatchType = "learned"
	MatchHigh    MatchType = "high"
	MatchMedium  MatchType = "medium"
	MatchLow     MatchType = "low"
	MatchNone    MatchType = "none"
)

// MatchResult は1タイトル分のマッチング結果です。ProductIDがnilなら未マッチ。
type MatchResult struct {
	SourceTitle string    `json:"sourceTitle"`
	Quantity    int64     `json:"quantity"`
	ProductID   *int64    `json:"productId,omitempty"`
	ProductName string    `json:"productName,omitempty"`
	MatchType   MatchType `json:"matchType"`
	Score       float64   `json:"score"`
}

// MatchedEntry is one product-level aggregate in the import preview.
// When two or more distinct source titles resolved to the same product
// in one run, IsDuplicate is set and SourceTitles lists all of them.
type MatchedEntry struct {
	ProductID    int64     `json:"productId"`
	ProductName  string    `json:"productName"`
	Quantity     int64     `json:"quantity"`
	MatchType    MatchType `json:"matchType"`
	SourceTitles []string  `json:"sourceTitles"`
	IsDuplicate  bool      `json:"isDuplicate"`
}

// UnmatchedEntry is a title nothing in the catalog could be resolved for.
type UnmatchedEntry struct {
	SourceTitle string `json:"sourceTitle"`
	Quantity    int64  `json:"quantity"`
}

// BlankTitleInfo は空欄タイトル行の件数・数量です。
type BlankTitleInfo struct {
	Count    int   `json:"count"`
	Quantity int64 `json:"quantity"`
}

// ImportSummary の数量は保存則を満たします:
// MatchedQty + UnmatchedQty + BlankQty == 取り込み対象行の数量合計。
type ImportSummary struct {
	RunID           string `json:"runId"`
	Channel         string `json:"channel"`
	TotalRows       int    `json:"totalRows"`
	MalformedRows   int    `json:"malformedRows"`
	ZeroQtyRows     int    `json:"zeroQtyRows"`
	MatchedCount    int    `json:"matchedCount"`
	MatchedQty      int64  `json:"matchedQty"`
	UnmatchedCount  int    `json:"unmatchedCount"`
	UnmatchedQty    int64  `json:"unmatchedQty"`
	BlankCount      int    `json:"blankCount"`
	BlankQty        int64  `json:"blankQty"`
	DuplicateGroups int    `json:"duplicateGroups"`
}

// ImportResult is the full response body of an import preview request.
type ImportResult struct {
	RunID          string           `json:"runId"`
	Matched        []MatchedEntry   `json:"matched"`
	Unmatched      []UnmatchedEntry `json:"unmatched"`
	BlankTitleInfo BlankTitleInfo   `json:"blankTitleInfo"`
	Summary        ImportSummary    `json:"summary"`
}

// LedgerRow is one pending upsert against monthly_sales.
type LedgerRow struct {
	ProductID   int64
	ReportMonth string
	Channel     string
	Count       int64
	Amount      decimal.Decimal
}

// 正規化後のチャネルコード。OTHER以外の4つが集計上の正式チャネルです。
const (
	ChannelWeb       = "WEB"
	ChannelWholesale = "WHOLESALE"
	ChannelStore     = "STORE"
	ChannelShoku     = "SHOKU"
	ChannelOther     = "OTHER"
)

// CanonicalChannels is the fixed reporting order, OTHER last.
var CanonicalChannels = []string{
	ChannelWeb, ChannelWholesale, ChannelStore, ChannelShoku, ChannelOther,
}

// ChannelSeriesPoint is one (channel, month) cell of the unified series.
// SourceTable names the single source the amount was taken from.
type ChannelSeriesPoint struct {
	ChannelCode string          `json:"channelCode"`
	Month       string          `json:"month"`
	Amount      decimal.Decimal `json:"amount"`
	SourceTable string          `json:"sourceTable"`
}

// LabeledAmount は集計元テーブルの生ラベル付き金額1件です。
type LabeledAmount struct {
	Month  string
	Label  string
	Amount float64
}
