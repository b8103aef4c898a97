package unifier

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"uriage/db"
	"uriage/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	// :memory: は接続ごとに別DBになるため、プールを1本に固定する
	conn.SetMaxOpenConns(1)
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	return conn
}

func seedLabeled(t *testing.T, conn *sql.DB, table, month, label string, amount float64) {
	t.Helper()
	col := "channel_label"
	if table == db.SourceFinal {
		col = "channel_code"
	}
	q := fmt.Sprintf(`INSERT INTO %s (month, %s, amount) VALUES (?, ?, ?)`, table, col)
	if _, err := conn.Exec(q, month, label, amount); err != nil {
		t.Fatalf("seed %s failed: %v", table, err)
	}
}

func seedTotal(t *testing.T, conn *sql.DB, table, month string, amount float64) {
	t.Helper()
	q := fmt.Sprintf(`INSERT INTO %s (month, amount) VALUES (?, ?)`, table)
	if _, err := conn.Exec(q, month, amount); err != nil {
		t.Fatalf("seed %s failed: %v", table, err)
	}
}

func pointFor(t *testing.T, points []model.ChannelSeriesPoint, code string) model.ChannelSeriesPoint {
	t.Helper()
	for _, p := range points {
		if p.ChannelCode == code {
			return p
		}
	}
	t.Fatalf("no point for channel %s", code)
	return model.ChannelSeriesPoint{}
}

// セルごとに最上位ソースの値を採用し、ソース間で合算しない
func TestUnifyCascadePrefersActual(t *testing.T) {
	conn := openTestDB(t)
	seedLabeled(t, conn, db.SourceActual, "2025-01", "直営店", 100)
	seedLabeled(t, conn, db.SourceFinal, "2025-01", "STORE", 70)
	seedLabeled(t, conn, db.SourceComputed, "2025-01", "店舗", 50)
	seedLabeled(t, conn, db.SourceFinal, "2025-01", "SHOKU", 30)
	seedLabeled(t, conn, db.SourceComputed, "2025-01", "カフェ", 20)

	points, err := Unify(conn, "2025-01")
	if err != nil {
		t.Fatalf("Unify failed: %v", err)
	}
	if len(points) != 5 {
		t.Fatalf("got %d points, want one per canonical channel", len(points))
	}

	store := pointFor(t, points, model.ChannelStore)
	if !store.Amount.Equal(decimal.NewFromInt(100)) || store.SourceTable != db.SourceActual {
		t.Errorf("STORE = %s from %q, want 100 from actual (not 100+70+50)",
			store.Amount, store.SourceTable)
	}
	shoku := pointFor(t, points, model.ChannelShoku)
	if !shoku.Amount.Equal(decimal.NewFromInt(30)) || shoku.SourceTable != db.SourceFinal {
		t.Errorf("SHOKU = %s from %q, want 30 from final", shoku.Amount, shoku.SourceTable)
	}
}

// WEBは web_sales の当月合計が非ゼロならカスケードよりそちらを採用する
func TestUnifyWebSalesOverride(t *testing.T) {
	conn := openTestDB(t)
	seedLabeled(t, conn, db.SourceComputed, "2025-03", "楽天", 1000)
	seedTotal(t, conn, db.SourceWebSales, "2025-03", 800)

	points, err := Unify(conn, "2025-03")
	if err != nil {
		t.Fatalf("Unify failed: %v", err)
	}
	web := pointFor(t, points, model.ChannelWeb)
	if !web.Amount.Equal(decimal.NewFromInt(800)) || web.SourceTable != db.SourceWebSales {
		t.Errorf("WEB = %s from %q, want 800 from web_sales", web.Amount, web.SourceTable)
	}

	// 合計0の月は上書きせずカスケードに戻る
	seedLabeled(t, conn, db.SourceComputed, "2025-04", "AMAZON", 500)
	seedTotal(t, conn, db.SourceWebSales, "2025-04", 0)

	points, err = Unify(conn, "2025-04")
	if err != nil {
		t.Fatalf("Unify failed: %v", err)
	}
	web = pointFor(t, points, model.ChannelWeb)
	if !web.Amount.Equal(decimal.NewFromInt(500)) || web.SourceTable != db.SourceComputed {
		t.Errorf("WEB = %s from %q, want 500 from computed fallback", web.Amount, web.SourceTable)
	}
}

// 卸は直販卸+OEMの合算。片方しか無い月も0埋めで成立する（完全外部結合）
func TestUnifyWholesaleOuterJoin(t *testing.T) {
	conn := openTestDB(t)
	seedLabeled(t, conn, db.SourceActual, "2025-05", "卸売", 700)
	seedTotal(t, conn, "wholesale_sales", "2025-05", 300)
	seedTotal(t, conn, "oem_sales", "2025-05", 200)

	points, err := Unify(conn, "2025-05")
	if err != nil {
		t.Fatalf("Unify failed: %v", err)
	}
	ws := pointFor(t, points, model.ChannelWholesale)
	if !ws.Amount.Equal(decimal.NewFromInt(500)) || ws.SourceTable != db.SourceWholesale {
		t.Errorf("WHOLESALE = %s from %q, want 300+200 from sub-sources (not actual's 700)",
			ws.Amount, ws.SourceTable)
	}

	seedTotal(t, conn, "oem_sales", "2025-06", 150)
	points, err = Unify(conn, "2025-06")
	if err != nil {
		t.Fatalf("Unify failed: %v", err)
	}
	ws = pointFor(t, points, model.ChannelWholesale)
	if !ws.Amount.Equal(decimal.NewFromInt(150)) || ws.SourceTable != db.SourceWholesale {
		t.Errorf("WHOLESALE = %s from %q, want 150 with missing side as 0", ws.Amount, ws.SourceTable)
	}

	// サブソースが両方無い月はラベルカスケードにも行がなければ0
	points, err = Unify(conn, "2025-07")
	if err != nil {
		t.Fatalf("Unify failed: %v", err)
	}
	ws = pointFor(t, points, model.ChannelWholesale)
	if !ws.Amount.IsZero() || ws.SourceTable != "" {
		t.Errorf("WHOLESALE = %s from %q, want 0 with no source", ws.Amount, ws.SourceTable)
	}
}

// スナップショットは保存した系列をそのまま読み戻せる
func TestSnapshotRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	seedLabeled(t, conn, db.SourceComputed, "2025-08", "楽天", 100)
	seedLabeled(t, conn, db.SourceComputed, "2025-08", "卸売", 40)

	points, err := Unify(conn, "2025-08")
	if err != nil {
		t.Fatalf("Unify failed: %v", err)
	}

	tx, err := conn.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceUnifiedSnapshotInTx(tx, "2025-08", points); err != nil {
		t.Fatalf("snapshot replace failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetUnifiedSnapshot(conn, "2025-08")
	if err != nil {
		t.Fatalf("snapshot read failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d snapshot points, want 5", len(got))
	}
	for _, code := range model.CanonicalChannels {
		want := pointFor(t, points, code)
		have := pointFor(t, got, code)
		if !have.Amount.Equal(want.Amount) || have.SourceTable != want.SourceTable {
			t.Errorf("%s: snapshot = %s from %q, want %s from %q",
				code, have.Amount, have.SourceTable, want.Amount, want.SourceTable)
		}
	}
}
