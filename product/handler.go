package product

import (
	"database/sql"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"uriage/db"
	"uriage/model"
)

// ListHandler は商品マスター一覧を返します。確認画面のプルダウン用で読み取り専用。
func ListHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := db.ListProducts(conn)
		if err != nil {
			log.Errorf("product list failed: %v", err)
			http.Error(w, "Failed to get products", http.StatusInternalServerError)
			return
		}
		if products == nil {
			products = []model.Product{}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(products)
	}
}
