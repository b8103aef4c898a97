package importer

import (
	"testing"

	"uriage/marketplace"
	"uriage/matcher"
	"uriage/model"
	"uriage/parsers"
)

// テスト用の素朴なレイアウト: 0列目タイトル, 1列目数量
var testAdapter = marketplace.Adapter{
	Channel: "amazon", DisplayName: "test",
	HeaderRows: 1, TitleCol: 0, QuantityCol: 1, MinColumns: 2,
}

func TestReduceClassification(t *testing.T) {
	// ヘッダー+3行: 完全一致 / 空欄タイトル / 未知タイトル
	table := &parsers.Table{Rows: [][]string{
		{"Widget A", "5"},
		{"", "2"},
		{"Totally Unknown Gadget", "1"},
	}}
	cat := matcher.NewCatalog([]model.Product{{ID: 1, Name: "Widget A", Price: 1200}})

	red := Reduce(table, testAdapter, cat, nil)

	if len(red.Matched) != 1 {
		t.Fatalf("got %d matched entries, want 1", len(red.Matched))
	}
	m := red.Matched[0]
	if m.ProductID != 1 || m.Quantity != 5 || m.MatchType != model.MatchExact {
		t.Errorf("unexpected matched entry: %+v", m)
	}
	if m.IsDuplicate {
		t.Error("single-title group must not be flagged as duplicate")
	}

	if red.BlankTitleInfo.Count != 1 || red.BlankTitleInfo.Quantity != 2 {
		t.Errorf("blank info = %+v, want {1 2}", red.BlankTitleInfo)
	}

	if len(red.Unmatched) != 1 {
		t.Fatalf("got %d unmatched entries, want 1", len(red.Unmatched))
	}
	if red.Unmatched[0].SourceTitle != "Totally Unknown Gadget" || red.Unmatched[0].Quantity != 1 {
		t.Errorf("unexpected unmatched entry: %+v", red.Unmatched[0])
	}
}

// 保存則: matched + unmatched + blank == 有効数量行の合計
func TestReduceQuantityConservation(t *testing.T) {
	table := &parsers.Table{
		Rows: [][]string{
			{"Widget A", "5"},
			{"", "2"},
			{"Totally Unknown Gadget", "1"},
			{"Widget A", "3"},
			{"Nope", "0"}, // 数量0は取り込み対象外
		},
		MalformedRows: 2,
	}
	cat := matcher.NewCatalog([]model.Product{{ID: 1, Name: "Widget A", Price: 1200}})

	red := Reduce(table, testAdapter, cat, nil)
	s := red.Summary

	total := s.MatchedQty + s.UnmatchedQty + s.BlankQty
	if total != 11 {
		t.Errorf("matched+unmatched+blank = %d, want 11", total)
	}
	if s.TotalRows != 7 {
		t.Errorf("TotalRows = %d, want 7", s.TotalRows)
	}
	if s.MalformedRows != 2 {
		t.Errorf("MalformedRows = %d, want 2", s.MalformedRows)
	}
	if s.ZeroQtyRows != 1 {
		t.Errorf("ZeroQtyRows = %d, want 1", s.ZeroQtyRows)
	}
	if s.MatchedCount != 1 || s.UnmatchedCount != 1 || s.BlankCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", s.MatchedCount, s.UnmatchedCount, s.BlankCount)
	}
}

// 異なる2タイトルが同一商品にfuzzy解決した場合は合算1エントリ+重複フラグ
func TestReduceDuplicateGroup(t *testing.T) {
	table := &parsers.Table{Rows: [][]string{
		{"Widget A Pack", "3"},
		{"Widget A (Set)", "2"},
	}}
	cat := matcher.NewCatalog([]model.Product{{ID: 1, Name: "Widget A", Price: 1200}})

	red := Reduce(table, testAdapter, cat, nil)

	if len(red.Matched) != 1 {
		t.Fatalf("got %d matched entries, want 1 aggregated group", len(red.Matched))
	}
	m := red.Matched[0]
	if !m.IsDuplicate {
		t.Fatal("group of two distinct titles must be flagged IsDuplicate")
	}
	if m.Quantity != 5 {
		t.Errorf("Quantity = %d, want 5", m.Quantity)
	}
	if len(m.SourceTitles) != 2 {
		t.Errorf("SourceTitles = %v, want both contributing titles", m.SourceTitles)
	}
	if red.Summary.DuplicateGroups != 1 {
		t.Errorf("DuplicateGroups = %d, want 1", red.Summary.DuplicateGroups)
	}
}

// 同じタイトルが複数行に出るだけなら重複マッチではない
func TestReduceSameTitleTwiceIsNotDuplicate(t *testing.T) {
	table := &parsers.Table{Rows: [][]string{
		{"Widget A", "5"},
		{"Widget A", "3"},
	}}
	cat := matcher.NewCatalog([]model.Product{{ID: 1, Name: "Widget A", Price: 1200}})

	red := Reduce(table, testAdapter, cat, nil)
	if len(red.Matched) != 1 {
		t.Fatalf("got %d matched entries, want 1", len(red.Matched))
	}
	if red.Matched[0].IsDuplicate {
		t.Error("repeated identical title must not be flagged as duplicate")
	}
	if red.Matched[0].Quantity != 8 {
		t.Errorf("Quantity = %d, want 8", red.Matched[0].Quantity)
	}
}

// 学習マッピングはfuzzy候補より必ず優先される
func TestReduceLearnedPrecedence(t *testing.T) {
	table := &parsers.Table{Rows: [][]string{
		{"Widget A Pack", "4"},
	}}
	cat := matcher.NewCatalog([]model.Product{
		{ID: 1, Name: "Widget A", Price: 1200},
		{ID: 3, Name: "Gadget C", Price: 800},
	})
	learned := map[string]int64{matcher.Normalize("Widget A Pack"): 3}

	red := Reduce(table, testAdapter, cat, learned)
	if len(red.Matched) != 1 {
		t.Fatalf("got %d matched entries, want 1", len(red.Matched))
	}
	if red.Matched[0].ProductID != 3 || red.Matched[0].MatchType != model.MatchLearned {
		t.Errorf("entry = %+v, want learned match to product 3", red.Matched[0])
	}
}
