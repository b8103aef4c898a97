package db

import (
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ApplyMigrations はデータベースのスキーマを適用します。
// アプリケーションの起動時に呼び出されます。各SQL文は `IF NOT EXISTS` を
// 使用しているため、何度実行しても安全です。
func ApplyMigrations(conn *sql.DB) error {
	migrations := []string{
		// 商品マスター（カタログ）。取り込み処理からは読み取り専用。
		`CREATE TABLE IF NOT EXISTS products (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT NOT NULL,
			price        REAL NOT NULL DEFAULT 0,
			series_code  TEXT NOT NULL DEFAULT '',
			product_code TEXT NOT NULL DEFAULT ''
		);`,

		// モール別のタイトル学習マッピング。source_titleは正規化済み。
		`CREATE TABLE IF NOT EXISTS learned_mappings (
			channel      TEXT NOT NULL,
			source_title TEXT NOT NULL,
			product_id   INTEGER NOT NULL REFERENCES products(id),
			PRIMARY KEY (channel, source_title)
		);`,

		// 月次売上台帳。(product_id, report_month) で一意、再取り込みは上書き。
		`CREATE TABLE IF NOT EXISTS monthly_sales (
			product_id     INTEGER NOT NULL REFERENCES products(id),
			report_month   TEXT NOT NULL,
			amazon_count   INTEGER NOT NULL DEFAULT 0,
			amazon_amount  REAL NOT NULL DEFAULT 0,
			rakuten_count  INTEGER NOT NULL DEFAULT 0,
			rakuten_amount REAL NOT NULL DEFAULT 0,
			yahoo_count    INTEGER NOT NULL DEFAULT 0,
			yahoo_amount   REAL NOT NULL DEFAULT 0,
			mercari_count  INTEGER NOT NULL DEFAULT 0,
			mercari_amount REAL NOT NULL DEFAULT 0,
			base_count     INTEGER NOT NULL DEFAULT 0,
			base_amount    REAL NOT NULL DEFAULT 0,
			qoo10_count    INTEGER NOT NULL DEFAULT 0,
			qoo10_amount   REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (product_id, report_month)
		);`,

		// チャネル別売上の集計元3テーブル。優先度は actual > final > computed。
		`CREATE TABLE IF NOT EXISTS channel_sales_actual (
			month         TEXT NOT NULL,
			channel_label TEXT NOT NULL,
			amount        REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS channel_sales_final (
			month        TEXT NOT NULL,
			channel_code TEXT NOT NULL,
			amount       REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS channel_sales_computed (
			month         TEXT NOT NULL,
			channel_label TEXT NOT NULL,
			amount        REAL NOT NULL DEFAULT 0
		);`,

		// WEB・卸チャネルの特例用サブソース。
		`CREATE TABLE IF NOT EXISTS web_sales (
			month  TEXT NOT NULL,
			amount REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS wholesale_sales (
			month  TEXT NOT NULL,
			amount REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS oem_sales (
			month  TEXT NOT NULL,
			amount REAL NOT NULL DEFAULT 0
		);`,

		// 統合系列のスナップショット。月単位でトランザクション再構築。
		`CREATE TABLE IF NOT EXISTS unified_sales_snapshot (
			month        TEXT NOT NULL,
			channel_code TEXT NOT NULL,
			amount       REAL NOT NULL DEFAULT 0,
			source_table TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (month, channel_code)
		);`,

		`CREATE INDEX IF NOT EXISTS idx_monthly_sales_month ON monthly_sales (report_month);`,
		`CREATE INDEX IF NOT EXISTS idx_actual_month ON channel_sales_actual (month);`,
		`CREATE INDEX IF NOT EXISTS idx_final_month ON channel_sales_final (month);`,
		`CREATE INDEX IF NOT EXISTS idx_computed_month ON channel_sales_computed (month);`,
		`CREATE INDEX IF NOT EXISTS idx_products_name ON products (name);`,
	}

	log.Info("Applying database migrations...")
	for _, migration := range migrations {
		if _, err := conn.Exec(migration); err != nil {
			return fmt.Errorf("failed to apply migration (%s): %w", migration, err)
		}
	}
	log.Info("Database migrations applied successfully.")
	return nil
}
