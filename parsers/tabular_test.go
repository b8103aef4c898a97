package parsers

import (
	"reflect"
	"strings"
	"testing"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   rune
	}{
		{"comma only", "title,qty,price", ','},
		{"tab only", "title\tqty\tprice", '\t'},
		{"tab wins tie", "a,b\tc", '\t'},
		{"more commas", "a,b,c\td", ','},
		{"no delimiter at all", "title", '\t'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDelimiter(tt.header); got != tt.want {
				t.Errorf("DetectDelimiter(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestSplitLineQuoting(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delim rune
		want  []string
	}{
		{"plain", "a,b,c", ',', []string{"a", "b", "c"}},
		{"delimiter inside quotes", `"Widget, A",5`, ',', []string{"Widget, A", "5"}},
		{"doubled quote", `"say ""hi""",3`, ',', []string{`say "hi"`, "3"}},
		{"surrounding whitespace trimmed", ` a , b `, ',', []string{"a", "b"}},
		{"tab delimited", "Widget A\t5", '\t', []string{"Widget A", "5"}},
		{"empty trailing field", "a,b,", ',', []string{"a", "b", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitLine(tt.line, tt.delim); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitLine(%q) = %#v, want %#v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseTable(t *testing.T) {
	input := "title,qty\r\nWidget A,5\n,2\nshort\nWidget B,3\n"
	table, err := ParseTable(strings.NewReader(input), Options{HeaderRows: 1, MinColumns: 2})
	if err != nil {
		t.Fatalf("ParseTable returned error: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(table.Rows))
	}
	if table.MalformedRows != 1 {
		t.Errorf("MalformedRows = %d, want 1", table.MalformedRows)
	}
	if table.Rows[0][0] != "Widget A" || table.Rows[0][1] != "5" {
		t.Errorf("unexpected first row: %#v", table.Rows[0])
	}
	// 空欄タイトル行は構造的には有効なのでここでは落とさない
	if table.Rows[1][0] != "" || table.Rows[1][1] != "2" {
		t.Errorf("unexpected blank-title row: %#v", table.Rows[1])
	}
}

func TestParseTableMultipleHeaderRows(t *testing.T) {
	// 楽天形式: 前置き行が複数あるファイル
	input := "メタ情報,x\n,\n,\n集計期間,2025-01\n,\n,\nタイトル,数量\n商品A,4\n"
	table, err := ParseTable(strings.NewReader(input), Options{HeaderRows: 7, MinColumns: 2})
	if err != nil {
		t.Fatalf("ParseTable returned error: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(table.Rows))
	}
	if table.Rows[0][0] != "商品A" {
		t.Errorf("unexpected row: %#v", table.Rows[0])
	}
}

// 前置き行が区切り文字を全く含まなくても、列ヘッダー行で判定するので
// データ行が不正行として捨てられることはない
func TestParseTablePreambleWithoutDelimiter(t *testing.T) {
	input := "売上レポート\nショップ テスト店\n\n集計期間 2025-01\n\n\nタイトル,数量\n商品A,4\n商品B,2\n"
	table, err := ParseTable(strings.NewReader(input), Options{HeaderRows: 7, MinColumns: 2})
	if err != nil {
		t.Fatalf("ParseTable returned error: %v", err)
	}
	if table.MalformedRows != 0 {
		t.Errorf("MalformedRows = %d, want 0", table.MalformedRows)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d data rows (malformed=%d), want 2", len(table.Rows), table.MalformedRows)
	}
	if table.Rows[0][0] != "商品A" || table.Rows[0][1] != "4" {
		t.Errorf("unexpected first row: %#v", table.Rows[0])
	}
	if table.Rows[1][0] != "商品B" || table.Rows[1][1] != "2" {
		t.Errorf("unexpected second row: %#v", table.Rows[1])
	}
}

func TestCleanQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"5", 5},
		{"1,234", 1234},
		{" 42 ", 42},
		{"12個", 12},
		{"-5", -5},
		{"", 0},
		{"abc", 0},
		{"-", 0},
	}
	for _, tt := range tests {
		if got := CleanQuantity(tt.in); got != tt.want {
			t.Errorf("CleanQuantity(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
