package auditor

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	log "github.com/sirupsen/logrus"
)

func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// year=2024 は FY2024（2024-08〜2025-07）を指します。
func requireFiscalYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2100 {
		writeJSONError(w, "year must be a fiscal year like 2024", http.StatusBadRequest)
		return 0, false
	}
	return year, true
}

// DeltasHandler は final − computed の非ゼロ差分を返します。
func DeltasHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, ok := requireFiscalYear(w, r)
		if !ok {
			return
		}
		deltas, err := Deltas(conn, year)
		if err != nil {
			log.Errorf("delta audit failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"fiscalYear": year,
			"deltas":     deltas,
		})
	}
}

// ZeroMonthsHandler はチャネル別ゼロ異常の月を返します。
func ZeroMonthsHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, ok := requireFiscalYear(w, r)
		if !ok {
			return
		}
		anomalies, err := ZeroAnomalies(conn, year)
		if err != nil {
			log.Errorf("zero anomaly audit failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"fiscalYear": year,
			"anomalies":  anomalies,
		})
	}
}

// LabelsHandler は正規チャネルごとの生ラベル内訳を返します。
func LabelsHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variants, err := LabelVariants(conn)
		if err != nil {
			log.Errorf("label audit failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		sortVariants(variants)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]interface{}{"labels": variants})
	}
}

// ReportPDFHandler は3つの診断をまとめた監査レポートPDFを出力します。
func ReportPDFHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, ok := requireFiscalYear(w, r)
		if !ok {
			return
		}

		deltas, err := Deltas(conn, year)
		if err != nil {
			log.Errorf("delta audit failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		anomalies, err := ZeroAnomalies(conn, year)
		if err != nil {
			log.Errorf("zero anomaly audit failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		variants, err := LabelVariants(conn)
		if err != nil {
			log.Errorf("label audit failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		sortVariants(variants)

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.Cell(0, 10, fmt.Sprintf("Channel Reconciliation Audit - FY%d", year))
		pdf.Ln(14)

		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, fmt.Sprintf("1. Final vs Computed deltas (%d)", len(deltas)))
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 10)
		for _, d := range deltas {
			pdf.Cell(0, 6, fmt.Sprintf("%s  %-10s final=%s computed=%s delta=%s",
				d.Month, d.ChannelCode, d.Final.String(), d.Computed.String(), d.Delta.String()))
			pdf.Ln(6)
		}
		if len(deltas) == 0 {
			pdf.Cell(0, 6, "no differences")
			pdf.Ln(6)
		}
		pdf.Ln(4)

		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, fmt.Sprintf("2. Zero-channel anomalies (%d)", len(anomalies)))
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 10)
		for _, a := range anomalies {
			pdf.Cell(0, 6, fmt.Sprintf("%s  %-10s grand total=%s",
				a.Month, a.ChannelCode, a.GrandTotal.String()))
			pdf.Ln(6)
		}
		if len(anomalies) == 0 {
			pdf.Cell(0, 6, "no anomalies")
			pdf.Ln(6)
		}
		pdf.Ln(4)

		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, fmt.Sprintf("3. Raw label variants (%d)", len(variants)))
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 10)
		for _, v := range variants {
			// 日本語ラベルは標準フォントで描画できないためコードとして出力する
			pdf.Cell(0, 6, fmt.Sprintf("%-10s <- %q x%d (%s)",
				v.ChannelCode, v.RawLabel, v.Count, v.SourceTable))
			pdf.Ln(6)
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="audit_fy%d.pdf"`, year))
		if err := pdf.Output(w); err != nil {
			log.Errorf("pdf output failed: %v", err)
		}
	}
}

func sortVariants(variants []LabelVariant) {
	sort.Slice(variants, func(i, j int) bool {
		if variants[i].ChannelCode != variants[j].ChannelCode {
			return variants[i].ChannelCode < variants[j].ChannelCode
		}
		if variants[i].SourceTable != variants[j].SourceTable {
			return variants[i].SourceTable < variants[j].SourceTable
		}
		return variants[i].RawLabel < variants[j].RawLabel
	})
}
