package unifier

import (
	"testing"

	"github.com/shopspring/decimal"

	"uriage/db"
	"uriage/model"
)

// どんな生ラベルも必ず5コードのどれかに分類される（未分類は存在しない）
func TestNormalizeChannelLabelExhaustive(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"楽天市場", model.ChannelWeb},
		{"amazon", model.ChannelWeb},
		{"ヤフー店", model.ChannelWeb},
		{"WEB通販", model.ChannelWeb},
		{"ec sales", model.ChannelWeb},
		{"卸売", model.ChannelWholesale},
		{"OEM供給", model.ChannelWholesale},
		{"法人営業", model.ChannelWholesale},
		{"直営店", model.ChannelStore},
		{"POSレジ", model.ChannelStore},
		{"店舗販売", model.ChannelStore},
		{"飲食事業", model.ChannelShoku},
		{"食品催事", model.ChannelShoku},
		{"カフェ", model.ChannelShoku},
		{"謎のラベル", model.ChannelOther},
		{"", model.ChannelOther},
		{"  ", model.ChannelOther},
	}
	valid := map[string]bool{
		model.ChannelWeb: true, model.ChannelWholesale: true,
		model.ChannelStore: true, model.ChannelShoku: true, model.ChannelOther: true,
	}
	for _, tt := range tests {
		got := NormalizeChannelLabel(tt.raw)
		if !valid[got] {
			t.Fatalf("NormalizeChannelLabel(%q) = %q, not a canonical code", tt.raw, got)
		}
		if got != tt.want {
			t.Errorf("NormalizeChannelLabel(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// カスケード: 上位ソースに行があればその値。合算はしない。
func TestPickByPriority(t *testing.T) {
	d := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

	actual := map[string]decimal.Decimal{model.ChannelStore: d(100)}
	final := map[string]decimal.Decimal{model.ChannelStore: d(70), model.ChannelShoku: d(30)}
	computed := map[string]decimal.Decimal{model.ChannelStore: d(50), model.ChannelShoku: d(20), model.ChannelWeb: d(10)}

	tests := []struct {
		code       string
		wantAmount int64
		wantSource string
		wantFound  bool
	}{
		{model.ChannelStore, 100, db.SourceActual, true},  // actualの値であり 100+70+50 ではない
		{model.ChannelShoku, 30, db.SourceFinal, true},    // actualに無ければfinal
		{model.ChannelWeb, 10, db.SourceComputed, true},   // 最後のフォールバック
		{model.ChannelWholesale, 0, "", false},            // どこにも無い
	}
	for _, tt := range tests {
		amount, source, found := pickByPriority(tt.code, actual, final, computed)
		if found != tt.wantFound {
			t.Fatalf("pickByPriority(%s) found = %v, want %v", tt.code, found, tt.wantFound)
		}
		if !amount.Equal(decimal.NewFromInt(tt.wantAmount)) {
			t.Errorf("pickByPriority(%s) amount = %s, want %d", tt.code, amount, tt.wantAmount)
		}
		if source != tt.wantSource {
			t.Errorf("pickByPriority(%s) source = %q, want %q", tt.code, source, tt.wantSource)
		}
	}
}

func TestSumByChannelNormalizesLabels(t *testing.T) {
	rows := []model.LabeledAmount{
		{Month: "2025-01", Label: "楽天市場", Amount: 100},
		{Month: "2025-01", Label: "Amazon", Amount: 50},
		{Month: "2025-01", Label: "直営店", Amount: 30},
	}
	totals := sumByChannel(rows)
	if !totals[model.ChannelWeb].Equal(decimal.NewFromInt(150)) {
		t.Errorf("WEB total = %s, want 150", totals[model.ChannelWeb])
	}
	if !totals[model.ChannelStore].Equal(decimal.NewFromInt(30)) {
		t.Errorf("STORE total = %s, want 30", totals[model.ChannelStore])
	}
}
