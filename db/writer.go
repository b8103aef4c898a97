package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"uriage/model"
)

// 台帳書き込みには2つの明示的なポリシーがあります。
//
//   - BestEffortRowWriter: 1行ずつ独立にupsertし、失敗行は数えて続行する。
//     取り込み確定のように「8割成功なら残りは手直しする」運用向け。
//   - AtomicBatchWriter: 全行を1トランザクションで書き、失敗時はロールバックする。
//     統合系列スナップショットのように中途半端な状態が許されない書き込み向け。

// RowError is the per-row failure record of a best-effort write.
type RowError struct {
	ProductID int64  `json:"productId"`
	Kind      string `json:"kind"` // "constraint" or "unknown"
	Message   string `json:"message"`
}

// WriteOutcome reports partial success of a best-effort write.
type WriteOutcome struct {
	SuccessCount int        `json:"successCount"`
	ErrorCount   int        `json:"errorCount"`
	Errors       []RowError `json:"errors,omitempty"`
}

// BestEffortRowWriter writes ledger rows one by one, never aborting the batch.
type BestEffortRowWriter struct {
	Conn *sql.DB
}

// Write upserts each row independently and classifies per-row failures.
func (w *BestEffortRowWriter) Write(rows []model.LedgerRow) WriteOutcome {
	var out WriteOutcome
	for _, row := range rows {
		if err := UpsertMonthlySales(w.Conn, row); err != nil {
			out.ErrorCount++
			out.Errors = append(out.Errors, RowError{
				ProductID: row.ProductID,
				Kind:      classifyWriteError(err),
				Message:   err.Error(),
			})
			log.WithFields(log.Fields{
				"product_id": row.ProductID,
				"month":      row.ReportMonth,
				"channel":    row.Channel,
			}).Warnf("ledger upsert failed: %v", err)
			continue
		}
		out.SuccessCount++
	}
	return out
}

// AtomicBatchWriter writes all rows inside one transaction, all-or-nothing.
type AtomicBatchWriter struct {
	Conn *sql.DB
}

// Write upserts every row in one transaction and rolls back on the first error.
func (w *AtomicBatchWriter) Write(rows []model.LedgerRow) error {
	tx, err := w.Conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if err := UpsertMonthlySales(tx, row); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// classifyWriteError は行エラーを制約違反かそれ以外かに分類します。
func classifyWriteError(err error) string {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return "constraint"
	}
	return "unknown"
}
