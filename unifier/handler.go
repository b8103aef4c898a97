package unifier

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"uriage/db"
	"uriage/model"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func requireMonth(w http.ResponseWriter, r *http.Request) (string, bool) {
	month := r.URL.Query().Get("month")
	if !monthPattern.MatchString(month) {
		writeJSONError(w, "month must be YYYY-MM", http.StatusBadRequest)
		return "", false
	}
	return month, true
}

// SummaryHandler は当月の統合チャネル系列をJSONで返します。
func SummaryHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, ok := requireMonth(w, r)
		if !ok {
			return
		}
		points, err := Unify(conn, month)
		if err != nil {
			log.Errorf("unify failed for %s: %v", month, err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"month":  month,
			"points": points,
		})
	}
}

// summaryRow はCSV/Excelエクスポート共通の1行分です。
type summaryRow struct {
	channelCode string
	prev        decimal.Decimal
	curr        decimal.Decimal
	diff        decimal.Decimal
	diffPct     string
	ytd         decimal.Decimal
}

// buildSummaryRows は前年同月比と年度累計（8月起点）つきの行を組み立てます。
func buildSummaryRows(conn *sql.DB, month string) ([]summaryRow, error) {
	curr, err := Unify(conn, month)
	if err != nil {
		return nil, err
	}
	prevMonth, err := PrevYearMonth(month)
	if err != nil {
		return nil, err
	}
	prev, err := Unify(conn, prevMonth)
	if err != nil {
		return nil, err
	}

	months, err := FiscalMonthsThrough(month)
	if err != nil {
		return nil, err
	}
	ytd := make(map[string]decimal.Decimal)
	for _, m := range months {
		points, err := Unify(conn, m)
		if err != nil {
			return nil, err
		}
		for _, p := range points {
			ytd[p.ChannelCode] = ytd[p.ChannelCode].Add(p.Amount)
		}
	}

	var rows []summaryRow
	for _, code := range model.CanonicalChannels {
		c := AmountFor(curr, code)
		p := AmountFor(prev, code)
		diff := c.Sub(p)
		pct := ""
		if !p.IsZero() {
			pct = diff.Div(p).Mul(decimal.NewFromInt(100)).Round(1).String()
		}
		rows = append(rows, summaryRow{
			channelCode: code,
			prev:        p,
			curr:        c,
			diff:        diff,
			diffPct:     pct,
			ytd:         ytd[code],
		})
	}
	return rows, nil
}

// ExportCSVHandler は統合系列を前年比つきCSVとして出力します。
func ExportCSVHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, ok := requireMonth(w, r)
		if !ok {
			return
		}
		rows, err := buildSummaryRows(conn, month)
		if err != nil {
			log.Errorf("summary export failed for %s: %v", month, err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="channel_summary_%s.csv"`, month))

		cw := csv.NewWriter(w)
		cw.Write([]string{"channel_code", "prev", "curr", "diff", "diff_pct", "YTD"})
		for _, row := range rows {
			cw.Write([]string{
				row.channelCode,
				row.prev.String(),
				row.curr.String(),
				row.diff.String(),
				row.diffPct,
				row.ytd.String(),
			})
		}
		cw.Flush()
	}
}

// ExportXLSXHandler は統合系列をExcelブックとして出力します。
func ExportXLSXHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, ok := requireMonth(w, r)
		if !ok {
			return
		}
		rows, err := buildSummaryRows(conn, month)
		if err != nil {
			log.Errorf("summary export failed for %s: %v", month, err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		f := excelize.NewFile()
		defer f.Close()
		const sheet = "ChannelSummary"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"channel_code", "prev", "curr", "diff", "diff_pct", "YTD"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}
		for i, row := range rows {
			values := []interface{}{
				row.channelCode,
				row.prev.InexactFloat64(),
				row.curr.InexactFloat64(),
				row.diff.InexactFloat64(),
				row.diffPct,
				row.ytd.InexactFloat64(),
			}
			for j, v := range values {
				cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
				f.SetCellValue(sheet, cell, v)
			}
		}

		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="channel_summary_%s.xlsx"`, month))
		if err := f.Write(w); err != nil {
			log.Errorf("xlsx write failed: %v", err)
		}
	}
}

// SnapshotGetHandler は保存済みスナップショットを返します。ライブの
// /api/channel-summary と違い、最後に保存した時点の値をそのまま返します。
func SnapshotGetHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, ok := requireMonth(w, r)
		if !ok {
			return
		}
		points, err := db.GetUnifiedSnapshot(conn, month)
		if err != nil {
			log.Errorf("snapshot read failed for %s: %v", month, err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"month":  month,
			"points": points,
		})
	}
}

// SnapshotHandler は当月の統合系列をスナップショットテーブルへ保存します。
// 削除＋挿入の全文をトランザクションで包み、失敗時はロールバックします
// （取り込み確定と違い、部分的に書けた状態を許さない経路）。
func SnapshotHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Month string `json:"month"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if !monthPattern.MatchString(req.Month) {
			writeJSONError(w, "month must be YYYY-MM", http.StatusBadRequest)
			return
		}

		points, err := Unify(conn, req.Month)
		if err != nil {
			log.Errorf("unify failed for %s: %v", req.Month, err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		tx, err := conn.Begin()
		if err != nil {
			log.Errorf("failed to begin snapshot transaction: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		defer tx.Rollback()

		if err := db.ReplaceUnifiedSnapshotInTx(tx, req.Month, points); err != nil {
			log.Errorf("snapshot rebuild failed for %s: %v", req.Month, err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if err := tx.Commit(); err != nil {
			log.Errorf("snapshot commit failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": fmt.Sprintf("%s のスナップショットを更新しました。", req.Month),
			"points":  points,
		})
	}
}
