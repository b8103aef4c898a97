package main

import (
	"fmt"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"uriage/auditor"
	"uriage/config"
	"uriage/db"
	"uriage/importer"
	"uriage/portal"
	"uriage/product"
	"uriage/unifier"
)

var rootCmd = &cobra.Command{
	Use:   "uriage",
	Short: "モール売上の取り込み・突合サーバー",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	// 接続はここで1度だけ開き、全ハンドラへ注入する。
	// グローバルなシングルトンは作らない。
	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.ApplyMigrations(conn); err != nil {
		return err
	}

	mux := http.NewServeMux()

	// 取り込み（プレビュー → 確定 → 学習）
	mux.Handle("POST /api/import/{channel}", importer.UploadHandler(conn))
	mux.Handle("POST /api/import/{channel}/confirm", importer.ConfirmHandler(conn))
	mux.Handle("POST /api/import/{channel}/learn", importer.LearnHandler(conn))

	// カタログ読み取り
	mux.Handle("GET /api/products", product.ListHandler(conn))

	// 統合チャネル系列
	mux.Handle("GET /api/channel-summary", unifier.SummaryHandler(conn))
	mux.Handle("GET /api/channel-summary/export", unifier.ExportCSVHandler(conn))
	mux.Handle("GET /api/channel-summary/export/xlsx", unifier.ExportXLSXHandler(conn))
	mux.Handle("POST /api/channel-summary/snapshot", unifier.SnapshotHandler(conn))
	mux.Handle("GET /api/channel-summary/snapshot", unifier.SnapshotGetHandler(conn))

	// 突合監査（読み取り専用）
	mux.Handle("GET /api/audit/deltas", auditor.DeltasHandler(conn))
	mux.Handle("GET /api/audit/zero-months", auditor.ZeroMonthsHandler(conn))
	mux.Handle("GET /api/audit/labels", auditor.LabelsHandler(conn))
	mux.Handle("GET /api/audit/report.pdf", auditor.ReportPDFHandler(conn))

	// RMSポータルからの売上CSVダウンロード
	mux.Handle("POST /api/portal/rakuten/download", portal.DownloadHandler())

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Infof("サーバー起動: http://localhost%s", addr)
	return http.ListenAndServe(addr, mux)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
