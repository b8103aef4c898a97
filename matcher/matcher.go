package matcher

import (
	"strings"

	"golang.org/x/text/width"

	"uriage/model"
)

// フリーテキストのモール出品タイトルをカタログ商品へ解決します。
// 判定は3段階で、上位の段が必ず勝ちます。
//
//	exact   — 正規化後のタイトルとカタログ商品名の完全一致
//	learned — モール別の学習マッピング（手動確定。類似度に関係なく勝つ）
//	fuzzy   — トークン重複＋部分文字列のスコアリング（high/medium/low）
//
// しきい値未満は none（未マッチ）として人手レビューに回します。
const (
	HighThreshold   = 0.80
	MediumThreshold = 0.60
	LowThreshold    = 0.40
)

// Catalog is an immutable matching view over the product master.
type Catalog struct {
	products []model.Product
	byNorm   map[string]*model.Product
	byID     map[int64]*model.Product
}

// NewCatalog builds the lookup indexes used by matching.
func NewCatalog(products []model.Product) *Catalog {
	c := &Catalog{
		products: products,
		byNorm:   make(map[string]*model.Product, len(products)),
		byID:     make(map[int64]*model.Product, len(products)),
	}
	for i := range c.products {
		p := &c.products[i]
		c.byNorm[Normalize(p.Name)] = p
		c.byID[p.ID] = p
	}
	return c
}

// RunState は1リクエスト分のマッチ済み商品集合です。リクエストごとに必ず
// 作り直します。リクエスト間やモール間で共有すると、別モールの取り込みが
// 前のランの状態で抑制される事故につながります。
type RunState struct {
	titlesByProduct map[int64][]string
}

// NewRunState creates an empty per-request state.
func NewRunState() *RunState {
	return &RunState{titlesByProduct: make(map[int64][]string)}
}

// Register records that a source title resolved to a product in this run.
func (rs *RunState) Register(productID int64, sourceTitle string) {
	for _, t := range rs.titlesByProduct[productID] {
		if t == sourceTitle {
			return
		}
	}
	rs.titlesByProduct[productID] = append(rs.titlesByProduct[productID], sourceTitle)
}

// DuplicateProducts returns the products that two or more distinct source
// titles resolved to in this run, with the contributing titles.
func (rs *RunState) DuplicateProducts() map[int64][]string {
	dup := make(map[int64][]string)
	for id, titles := range rs.titlesByProduct {
		if len(titles) > 1 {
			dup[id] = titles
		}
	}
	return dup
}

// Normalize はタイトル比較用の正規化です。全角→半角の折り畳み、小文字化、
// 空白の圧縮を行います。学習マッピングのキーもこの形で保存します。
func Normalize(s string) string {
	s = width.Fold.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// Match resolves one source title to at most one catalog product.
// Pure apart from registering hits in the run-scoped state.
func Match(title string, quantity int64, cat *Catalog, learned map[string]int64, run *RunState) model.MatchResult {
	result := model.MatchResult{
		SourceTitle: title,
		Quantity:    quantity,
		MatchType:   model.MatchNone,
	}
	norm := Normalize(title)
	if norm == "" {
		return result
	}

	// Tier 1: 完全一致
	if p, ok := cat.byNorm[norm]; ok {
		result.ProductID = &p.ID
		result.ProductName = p.Name
		result.MatchType = model.MatchExact
		result.Score = 1.0
		run.Register(p.ID, title)
		return result
	}

	// Tier 2: 学習マッピング（手動確定は常に優先）
	if id, ok := learned[norm]; ok {
		if p := cat.byID[id]; p != nil {
			result.ProductID = &p.ID
			result.ProductName = p.Name
			result.MatchType = model.MatchLearned
			result.Score = 1.0
			run.Register(p.ID, title)
			return result
		}
		// マッピング先の商品がカタログから消えている場合はfuzzyに落とす
	}

	// Tier 3: 類似度スコアリング
	var best *model.Product
	var bestScore float64
	for i := range cat.products {
		p := &cat.products[i]
		score := scoreTitles(norm, Normalize(p.Name))
		if score > bestScore {
			bestScore = score
			best = p
		}
	}
	if best == nil || bestScore < LowThreshold {
		return result
	}

	result.ProductID = &best.ID
	result.ProductName = best.Name
	result.Score = bestScore
	switch {
	case bestScore >= HighThreshold:
		result.MatchType = model.MatchHigh
	case bestScore >= MediumThreshold:
		result.MatchType = model.MatchMedium
	default:
		result.MatchType = model.MatchLow
	}
	run.Register(best.ID, title)
	return result
}

// scoreTitles は正規化済みの2タイトルの類似度を0〜1で返します。
// トークンのDice係数と、片方がもう片方を含む場合の長さ比の大きい方です。
func scoreTitles(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)

	setB := make(map[string]int, len(tokensB))
	for _, t := range tokensB {
		setB[t]++
	}
	common := 0
	for _, t := range tokensA {
		if setB[t] > 0 {
			setB[t]--
			common++
		}
	}
	score := 2 * float64(common) / float64(len(tokensA)+len(tokensB))

	// 部分文字列ヒューリスティック: 「widget a」と「widget a (set)」のような
	// 包含関係はトークン重複より強いシグナルになることがある
	shorter, longer := a, b
	if len([]rune(shorter)) > len([]rune(longer)) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(longer, shorter) {
		if sub := float64(len([]rune(shorter))) / float64(len([]rune(longer))); sub > score {
			score = sub
		}
	}
	return score
}
