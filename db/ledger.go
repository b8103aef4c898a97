package db

import (
	"database/sql"
	"fmt"

	"uriage/model"
)

// ledgerChannels は monthly_sales が列を持つチャネルの一覧です。
// 列名をSQLに埋め込むため、ここにある値以外は受け付けません。
var ledgerChannels = map[string]bool{
	"amazon":  true,
	"rakuten": true,
	"yahoo":   true,
	"mercari": true,
	"base":    true,
	"qoo10":   true,
}

// IsLedgerChannel reports whether the ledger has columns for the channel.
func IsLedgerChannel(channel string) bool {
	return ledgerChannels[channel]
}

// UpsertMonthlySales は (product_id, report_month) をキーに、指定チャネルの
// 件数・金額列を上書きします。同月の再取り込みは加算ではなく置き換えです。
func UpsertMonthlySales(conn DBTX, row model.LedgerRow) error {
	if !IsLedgerChannel(row.Channel) {
		return fmt.Errorf("unknown ledger channel: %s", row.Channel)
	}
	q := fmt.Sprintf(`INSERT INTO monthly_sales (product_id, report_month, %[1]s_count, %[1]s_amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(product_id, report_month) DO UPDATE SET
			%[1]s_count = excluded.%[1]s_count,
			%[1]s_amount = excluded.%[1]s_amount`, row.Channel)
	amount, _ := row.Amount.Float64()
	if _, err := conn.Exec(q, row.ProductID, row.ReportMonth, row.Count, amount); err != nil {
		return fmt.Errorf("UpsertMonthlySales failed: %w", err)
	}
	return nil
}

// GetMonthlySales は指定チャネルの (件数, 金額) を返します。行が無ければ found=false。
func GetMonthlySales(conn DBTX, productID int64, reportMonth, channel string) (count int64, amount float64, found bool, err error) {
	if !IsLedgerChannel(channel) {
		return 0, 0, false, fmt.Errorf("unknown ledger channel: %s", channel)
	}
	q := fmt.Sprintf(`SELECT %[1]s_count, %[1]s_amount FROM monthly_sales
		WHERE product_id = ? AND report_month = ? LIMIT 1`, channel)
	err = conn.QueryRow(q, productID, reportMonth).Scan(&count, &amount)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("GetMonthlySales failed: %w", err)
	}
	return count, amount, true, nil
}
