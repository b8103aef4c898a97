package db

import (
	"database/sql"
	"fmt"
)

// GetLearnedMappings は指定モールの学習マッピングを正規化タイトルをキーに返します。
// キャッシュは持たず、取り込みランごとに必ず読み直します（学習直後のランに反映させるため）。
func GetLearnedMappings(conn *sql.DB, channel string) (map[string]int64, error) {
	rows, err := conn.Query(
		`SELECT source_title, product_id FROM learned_mappings WHERE channel = ?`, channel)
	if err != nil {
		return nil, fmt.Errorf("learned mapping query failed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var title string
		var productID int64
		if err := rows.Scan(&title, &productID); err != nil {
			return nil, err
		}
		result[title] = productID
	}
	return result, rows.Err()
}

// UpsertLearnedMapping はタイトル→商品の対応を登録します。
// 同じタイトルに既存の対応がある場合は上書きします（last-write-wins）。
func UpsertLearnedMapping(conn DBTX, channel, sourceTitle string, productID int64) error {
	const q = `INSERT INTO learned_mappings (channel, source_title, product_id)
		VALUES (?, ?, ?)
		ON CONFLICT(channel, source_title) DO UPDATE SET product_id = excluded.product_id`
	if _, err := conn.Exec(q, channel, sourceTitle, productID); err != nil {
		return fmt.Errorf("UpsertLearnedMapping failed: %w", err)
	}
	return nil
}
