package importer

import (
	"sort"
	"strings"

	"uriage/marketplace"
	"uriage/matcher"
	"uriage/model"
	"uriage/parsers"
)

// Reduction は1ファイル分の取り込みプレビューです。全ての行は
// matched / unmatched / blank のいずれかちょうど1つに入ります
// （列数不足・数量0以下の行は summary で別途数えます）。
type Reduction struct {
	Matched        []model.MatchedEntry
	Unmatched      []model.UnmatchedEntry
	BlankTitleInfo model.BlankTitleInfo
	Summary        model.ImportSummary
}

// Reduce は解析済みの全行をマッチャに通し、商品単位に集約します。
// 同一ランで複数の異なるタイトルが同じ商品に解決した場合は、数量を合算した
// 1エントリにまとめ、IsDuplicate を立てて確認画面でのレビュー対象にします。
func Reduce(table *parsers.Table, ad marketplace.Adapter, cat *matcher.Catalog, learned map[string]int64) *Reduction {
	run := matcher.NewRunState()

	red := &Reduction{}
	red.Summary.Channel = ad.Channel
	red.Summary.TotalRows = len(table.Rows) + table.MalformedRows
	red.Summary.MalformedRows = table.MalformedRows

	type group struct {
		entry  model.MatchedEntry
		scores map[model.MatchType]int
	}
	groups := make(map[int64]*group)
	var order []int64

	for _, row := range table.Rows {
		title := ad.Title(row)
		qty := ad.Quantity(row)
		if qty <= 0 {
			red.Summary.ZeroQtyRows++
			continue
		}
		if strings.TrimSpace(title) == "" {
			red.BlankTitleInfo.Count++
			red.BlankTitleInfo.Quantity += qty
			continue
		}

		result := matcher.Match(title, qty, cat, learned, run)
		if result.ProductID == nil {
			red.Unmatched = append(red.Unmatched, model.UnmatchedEntry{
				SourceTitle: title,
				Quantity:    qty,
			})
			red.Summary.UnmatchedQty += qty
			continue
		}

		g, ok := groups[*result.ProductID]
		if !ok {
			g = &group{
				entry: model.MatchedEntry{
					ProductID:   *result.ProductID,
					ProductName: result.ProductName,
					MatchType:   result.MatchType,
				},
				scores: make(map[model.MatchType]int),
			}
			groups[*result.ProductID] = g
			order = append(order, *result.ProductID)
		}
		g.entry.Quantity += qty
		g.scores[result.MatchType]++
		if !contains(g.entry.SourceTitles, title) {
			g.entry.SourceTitles = append(g.entry.SourceTitles, title)
		}
		red.Summary.MatchedQty += qty
	}

	// 重複マッチはランステートの記録と突き合わせて確定する
	duplicates := run.DuplicateProducts()
	for _, id := range order {
		g := groups[id]
		if titles, dup := duplicates[id]; dup {
			g.entry.IsDuplicate = true
			g.entry.SourceTitles = titles
			red.Summary.DuplicateGroups++
			// 複数の判定種別が混ざったグループは最弱の種別で表示する
			g.entry.MatchType = weakestMatchType(g.scores)
		}
		red.Matched = append(red.Matched, g.entry)
	}
	sort.SliceStable(red.Matched, func(i, j int) bool {
		return red.Matched[i].ProductID < red.Matched[j].ProductID
	})

	red.Summary.MatchedCount = len(red.Matched)
	red.Summary.UnmatchedCount = len(red.Unmatched)
	red.Summary.BlankCount = red.BlankTitleInfo.Count
	red.Summary.BlankQty = red.BlankTitleInfo.Quantity
	return red
}

var matchTypeStrength = []model.MatchType{
	model.MatchLow, model.MatchMedium, model.MatchHigh,
	model.MatchLearned, model.MatchExact,
}

func weakestMatchType(scores map[model.MatchType]int) model.MatchType {
	for _, mt := range matchTypeStrength {
		if scores[mt] > 0 {
			return mt
		}
	}
	return model.MatchNone
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
