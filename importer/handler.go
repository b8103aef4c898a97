package importer

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"uriage/db"
	"uriage/marketplace"
	"uriage/matcher"
	"uriage/model"
	"uriage/parsers"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// UploadHandler はモール売上ファイルの取り込みプレビューを処理します。
// 解析・マッチングのみでデータベースへの書き込みは行いません。
// 確定は /confirm で行います。
func UploadHandler(conn *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ad, err := marketplace.ForChannel(r.PathValue("channel"))
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSONError(w, "File upload error: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		saleMonth := r.FormValue("saleMonth")
		if saleMonth == "" {
			saleMonth = r.FormValue("reportMonth")
		}
		if !monthPattern.MatchString(saleMonth) {
			writeJSONError(w, "saleMonth must be YYYY-MM", http.StatusBadRequest)
			return
		}

		runID := uuid.NewString()
		logger := log.WithFields(log.Fields{
			"run_id":  runID,
			"channel": ad.Channel,
			"month":   saleMonth,
		})

		// カタログと学習マッピングはランごとに必ず読み直す。
		// 直前に学習した対応を次の取り込みで確実に効かせるため。
		products, err := db.ListProducts(conn)
		if err != nil {
			logger.Errorf("catalog load failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		learned, err := db.GetLearnedMappings(conn, ad.Channel)
		if err != nil {
			logger.Errorf("learned mapping load failed: %v", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		cat := matcher.NewCatalog(products)

		// アップロードされた全ファイルを1つの表にまとめてから集約する
		merged := &parsers.Table{}
		for _, fh := range r.MultipartForm.File["file"] {
			f, err := fh.Open()
			if err != nil {
				logger.Warnf("failed to open file %s: %v", fh.Filename, err)
				continue
			}
			table, err := parsers.ParseTable(f, ad.ParserOptions())
			f.Close()
			if err != nil {
				logger.Warnf("failed to parse file %s: %v", fh.Filename, err)
				continue
			}
			merged.Rows = append(merged.Rows, table.Rows...)
			merged.MalformedRows += table.MalformedRows
		}

		red := Reduce(merged, ad, cat, learned)
		red.Summary.RunID = runID

		logger.WithFields(log.Fields{
			"total":     red.Summary.TotalRows,
			"matched":   red.Summary.MatchedCount,
			"unmatched": red.Summary.UnmatchedCount,
			"blank":     red.Summary.BlankCount,
			"dup":       red.Summary.DuplicateGroups,
		}).Info("import preview complete")

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(model.ImportResult{
			RunID:          runID,
			Matched:        nonNilMatched(red.Matched),
			Unmatched:      nonNilUnmatched(red.Unmatched),
			BlankTitleInfo: red.BlankTitleInfo,
			Summary:        red.Summary,
		})
	}
}

func nonNilMatched(v []model.MatchedEntry) []model.MatchedEntry {
	if v == nil {
		return []model.MatchedEntry{}
	}
	return v
}

func nonNilUnmatched(v []model.UnmatchedEntry) []model.UnmatchedEntry {
	if v == nil {
		return []model.UnmatchedEntry{}
	}
	return v
}
