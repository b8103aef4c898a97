package db

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"uriage/model"
)

// 集計元テーブル名。統合系列の各セルがどこから来たかの表示にも使います。
const (
	SourceActual    = "channel_sales_actual"
	SourceFinal     = "channel_sales_final"
	SourceComputed  = "channel_sales_computed"
	SourceWebSales  = "web_sales"
	SourceWholesale = "wholesale_sales+oem_sales"
)

// channelSalesTables は生ラベル付きで読めるテーブルの一覧です。
// テーブル名をSQLに埋め込むため、ここにある組み合わせ以外は受け付けません。
var channelSalesTables = map[string]string{
	SourceActual:   "channel_label",
	SourceFinal:    "channel_code",
	SourceComputed: "channel_label",
}

// GetChannelSalesByMonth は指定テーブルの当月分を生ラベルのまま返します。
func GetChannelSalesByMonth(conn DBTX, table, month string) ([]model.LabeledAmount, error) {
	labelCol, ok := channelSalesTables[table]
	if !ok {
		return nil, fmt.Errorf("unknown channel sales table: %s", table)
	}
	q := fmt.Sprintf(`SELECT month, %s, amount FROM %s WHERE month = ?`, labelCol, table)
	rows, err := conn.Query(q, month)
	if err != nil {
		return nil, fmt.Errorf("channel sales query failed (%s): %w", table, err)
	}
	defer rows.Close()

	var result []model.LabeledAmount
	for rows.Next() {
		var la model.LabeledAmount
		if err := rows.Scan(&la.Month, &la.Label, &la.Amount); err != nil {
			return nil, err
		}
		result = append(result, la)
	}
	return result, rows.Err()
}

// GetMonthlyTotal は単一金額テーブル（web_sales等）の当月合計を返します。
// found は当月の行が1行でも存在するかを示します。
func GetMonthlyTotal(conn DBTX, table, month string) (total float64, found bool, err error) {
	switch table {
	case SourceWebSales, "wholesale_sales", "oem_sales":
	default:
		return 0, false, fmt.Errorf("unknown monthly total table: %s", table)
	}
	q := fmt.Sprintf(`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM %s WHERE month = ?`, table)
	var n int
	if err := conn.QueryRow(q, month).Scan(&total, &n); err != nil {
		return 0, false, fmt.Errorf("monthly total query failed (%s): %w", table, err)
	}
	return total, n > 0, nil
}

// ListRawLabels は指定テーブルの生ラベルと出現回数を全期間分返します。
// 監査のラベル揺れ調査用です。
func ListRawLabels(conn *sql.DB, table string) (map[string]int, error) {
	labelCol, ok := channelSalesTables[table]
	if !ok {
		return nil, fmt.Errorf("unknown channel sales table: %s", table)
	}
	q := fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s GROUP BY %s`, labelCol, table, labelCol)
	rows, err := conn.Query(q)
	if err != nil {
		return nil, fmt.Errorf("raw label query failed (%s): %w", table, err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		result[label] = count
	}
	return result, rows.Err()
}

// ReplaceUnifiedSnapshotInTx は当月のスナップショット行を削除してから入れ直します。
// 必ずトランザクション内で呼び出します（全置換が中断されると系列が欠けるため）。
func ReplaceUnifiedSnapshotInTx(tx *sql.Tx, month string, points []model.ChannelSeriesPoint) error {
	if _, err := tx.Exec(`DELETE FROM unified_sales_snapshot WHERE month = ?`, month); err != nil {
		return fmt.Errorf("snapshot delete failed: %w", err)
	}
	const q = `INSERT INTO unified_sales_snapshot (month, channel_code, amount, source_table)
		VALUES (?, ?, ?, ?)`
	for _, p := range points {
		amount, _ := p.Amount.Float64()
		if _, err := tx.Exec(q, p.Month, p.ChannelCode, amount, p.SourceTable); err != nil {
			return fmt.Errorf("snapshot insert failed (%s): %w", p.ChannelCode, err)
		}
	}
	return nil
}

// GetUnifiedSnapshot は保存済みスナップショットを返します（月, チャネル順）。
func GetUnifiedSnapshot(conn *sql.DB, month string) ([]model.ChannelSeriesPoint, error) {
	rows, err := conn.Query(
		`SELECT month, channel_code, amount, source_table FROM unified_sales_snapshot
		 WHERE month = ? ORDER BY channel_code`, month)
	if err != nil {
		return nil, fmt.Errorf("snapshot query failed: %w", err)
	}
	defer rows.Close()

	var result []model.ChannelSeriesPoint
	for rows.Next() {
		var p model.ChannelSeriesPoint
		var amount float64
		if err := rows.Scan(&p.Month, &p.ChannelCode, &amount, &p.SourceTable); err != nil {
			return nil, err
		}
		p.Amount = decimal.NewFromFloat(amount)
		result = append(result, p)
	}
	return result, rows.Err()
}
