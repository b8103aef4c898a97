package importer

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"uriage/db"
	"uriage/marketplace"
	"uriage/model"
)

// ConfirmRequest はレビュー済みマッチリストの確定リクエストです。
type ConfirmRequest struct {
	Month   string `json:"month"`
	Results []struct {
		ProductID int64 `json:"productId"`
		Quantity  int64 `json:"quantity"`
	} `json:"results"`
}

// ConfirmHandler は確認済みのマッチ結果を月次売上台帳へ書き込みます。
// 取り込み経路はベストエフォート書き込み（1行の失敗で残りを止めない）。
// 呼び出し側は errorCount を確認して再実行するかどうかを判断します。
func ConfirmHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ad, err := marketplace.ForChannel(r.PathValue("channel"))
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		// 台帳に列の無いチャネルはアダプタがあっても確定できない
		if !db.IsLedgerChannel(ad.Channel) {
			writeJSONError(w, "no ledger columns for channel: "+ad.Channel, http.StatusBadRequest)
			return
		}

		var req ConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if !monthPattern.MatchString(req.Month) {
			writeJSONError(w, "month must be YYYY-MM", http.StatusBadRequest)
			return
		}
		if len(req.Results) == 0 {
			writeJSONError(w, "results must not be empty", http.StatusBadRequest)
			return
		}

		// 単価が分かる商品は金額 = 単価 × 数量 で台帳の金額列も更新する
		products, err := db.ListProducts(conn)
		if err != nil {
			log.Errorf("catalog load failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		priceByID := make(map[int64]float64, len(products))
		for _, p := range products {
			priceByID[p.ID] = p.Price
		}

		var rows []model.LedgerRow
		for _, res := range req.Results {
			if res.ProductID == 0 || res.Quantity <= 0 {
				continue // 未解決・数量なしのエントリは書き込み対象外
			}
			amount := decimal.NewFromFloat(priceByID[res.ProductID]).
				Mul(decimal.NewFromInt(res.Quantity))
			rows = append(rows, model.LedgerRow{
				ProductID:   res.ProductID,
				ReportMonth: req.Month,
				Channel:     ad.Channel,
				Count:       res.Quantity,
				Amount:      amount,
			})
		}

		writer := &db.BestEffortRowWriter{Conn: conn}
		outcome := writer.Write(rows)

		log.WithFields(log.Fields{
			"channel": ad.Channel,
			"month":   req.Month,
			"success": outcome.SuccessCount,
			"errors":  outcome.ErrorCount,
		}).Info("ledger confirm complete")

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(outcome)
	}
}
