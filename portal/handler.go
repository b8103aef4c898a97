package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"

	"uriage/config"
)

func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// DownloadHandler は楽天RMSにログインして当月の売上CSVをダウンロードします。
// ダウンロードしたファイルは保存先パスを返すだけで、取り込みは行いません
// （取り込みは通常のアップロード経路でプレビュー・確認を経由させるため）。
// データベースには触れないため、他のハンドラと違い接続を受け取りません。
func DownloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 1) 設定読み込み
		cfg, err := config.Load()
		if err != nil {
			writeJSONError(w, "設定ファイルの読み込みに失敗しました: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if cfg.RMSUserID == "" || cfg.RMSPassword == "" {
			writeJSONError(w, "RMSの認証情報が設定されていません。", http.StatusBadRequest)
			return
		}

		// 2) 一時プロファイルディレクトリ作成
		tempDir, err := os.MkdirTemp("", "chromedp-rms-")
		if err != nil {
			writeJSONError(w, "一時プロファイルディレクトリの作成に失敗: "+err.Error(), http.StatusInternalServerError)
			return
		}
		defer os.RemoveAll(tempDir)

		allocCtx, allocCancel := chromedp.NewExecAllocator(
			r.Context(),
			append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.UserDataDir(tempDir),
			)...,
		)
		defer allocCancel()

		ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Debugf))
		defer cancel()

		// 3) ダウンロードフォルダ準備
		downloadDir, err := filepath.Abs(filepath.Join(cfg.DownloadDir, "rakuten"))
		if err != nil {
			writeJSONError(w, "ダウンロードディレクトリの絶対パス取得に失敗: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if err := os.MkdirAll(downloadDir, 0755); err != nil {
			writeJSONError(w, "ダウンロードディレクトリの作成に失敗: "+err.Error(), http.StatusInternalServerError)
			return
		}

		filesBefore, err := os.ReadDir(downloadDir)
		if err != nil {
			writeJSONError(w, "ダウンロードディレクトリの読み取りに失敗: "+err.Error(), http.StatusInternalServerError)
			return
		}
		filesBeforeMap := make(map[string]bool, len(filesBefore))
		for _, f := range filesBefore {
			filesBeforeMap[f.Name()] = true
		}

		// 4) ログインして売上CSVのダウンロードを実行
		err = chromedp.Run(ctx,
			browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).WithDownloadPath(downloadDir),
			chromedp.Navigate(`https://glogin.rms.rakuten.co.jp/`),
			chromedp.WaitVisible(`input[name="login_id"]`),
			chromedp.SendKeys(`input[name="login_id"]`, cfg.RMSUserID),
			chromedp.SendKeys(`input[name="passwd"]`, cfg.RMSPassword),
			chromedp.Click(`input[type="submit"]`),
			chromedp.WaitVisible(`//a[contains(text(), "データ分析")]`),
			chromedp.Click(`//a[contains(text(), "データ分析")]`),
			chromedp.WaitVisible(`//a[contains(text(), "売上CSVダウンロード")]`),
			chromedp.Click(`//a[contains(text(), "売上CSVダウンロード")]`),
		)
		if err != nil {
			writeJSONError(w, "自動操作に失敗しました: "+err.Error(), http.StatusInternalServerError)
			return
		}

		// 5) ファイルダウンロード待機処理
		var newFilePath string
		timeoutFile := time.After(30 * time.Second)
	FileLoop:
		for {
			select {
			case <-timeoutFile:
				writeJSONError(w, "30秒以内にダウンロードファイルが見つかりませんでした。", http.StatusRequestTimeout)
				return
			case <-time.After(500 * time.Millisecond):
				if ctx.Err() == context.Canceled {
					writeJSONError(w, "リクエストが中断されました。", http.StatusInternalServerError)
					return
				}
				filesAfter, _ := os.ReadDir(downloadDir)
				for _, f := range filesAfter {
					if !filesBeforeMap[f.Name()] && !strings.HasSuffix(f.Name(), ".crdownload") {
						newFilePath = filepath.Join(downloadDir, f.Name())
						break FileLoop
					}
				}
			}
		}

		log.WithField("path", newFilePath).Info("portal download complete")

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]string{
			"message": fmt.Sprintf("売上CSVをダウンロードしました: %s", filepath.Base(newFilePath)),
			"path":    newFilePath,
		})
	}
}
