package importer

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"uriage/db"
	"uriage/marketplace"
	"uriage/matcher"
)

// LearnRequest は「このタイトルはこの商品」という手動確定1件です。
type LearnRequest struct {
	SourceTitle string `json:"sourceTitle"`
	ProductID   int64  `json:"productId"`
}

// LearnHandler はタイトル→商品の対応を学習マッピングに保存します。
// 保存は正規化タイトルをキーにした上書きupsertで、次回の取り込みから
// fuzzyの結果に関係なくこの対応が使われます。
func LearnHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ad, err := marketplace.ForChannel(r.PathValue("channel"))
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}

		var req LearnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		title := strings.TrimSpace(req.SourceTitle)
		if title == "" || req.ProductID == 0 {
			writeJSONError(w, "sourceTitle and productId are required", http.StatusBadRequest)
			return
		}

		// 実在しない商品への対応は保存しない
		product, err := db.GetProductByID(conn, req.ProductID)
		if err != nil {
			log.Errorf("product lookup failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if product == nil {
			writeJSONError(w, "product not found", http.StatusBadRequest)
			return
		}

		if err := db.UpsertLearnedMapping(conn, ad.Channel, matcher.Normalize(title), req.ProductID); err != nil {
			log.Errorf("learned mapping upsert failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "マッピングを学習しました: " + title + " → " + product.Name,
		})
	}
}
