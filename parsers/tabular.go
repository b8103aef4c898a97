package parsers

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Options は1ファイル分の解析設定です。値はモールアダプタから与えられます。
type Options struct {
	HeaderRows int  // データ行の前に読み飛ばすヘッダー行数
	MinColumns int  // これ未満の列数の行は不正行として数える
	ShiftJIS   bool // Shift_JISからUTF-8への変換を行うか
}

// Table はファイル全体の解析結果です。
type Table struct {
	Rows          [][]string
	MalformedRows int // 列数不足で除外した行数（致命エラーにはしない）
}

// ParseTable はCSV/TSVのテキストを行×列の文字列に解析します。
// 区切り文字は列ヘッダー行のタブ数とカンマ数の比較で1ファイルにつき1回判定します。
func ParseTable(r io.Reader, opts Options) (*Table, error) {
	if opts.ShiftJIS {
		r = transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// 判定は最後のヘッダー行（＝列ヘッダー）で行う。楽天のような前置き付き
	// ファイルの先頭行はメタ情報で、区切り文字を含まないことがある。
	detectLine := opts.HeaderRows
	if detectLine < 1 {
		detectLine = 1
	}

	var table Table
	var delim rune
	lineNo := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		lineNo++
		if lineNo == detectLine {
			delim = DetectDelimiter(line)
		}
		if lineNo <= opts.HeaderRows {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitLine(line, delim)
		if len(fields) < opts.MinColumns {
			table.MalformedRows++
			continue
		}
		table.Rows = append(table.Rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("table scan error: %w", err)
	}
	return &table, nil
}

// DetectDelimiter はヘッダー行のタブ数とカンマ数を比べて区切り文字を決めます。
// 同数の場合はタブを優先します。
func DetectDelimiter(header string) rune {
	if strings.Count(header, "\t") >= strings.Count(header, ",") {
		return '\t'
	}
	return ','
}

// splitLine は1行をフィールドに分割します。引用符内の区切り文字は文字として
// 扱い、引用符内の2連続引用符は1つの引用符として出力します。
func splitLine(line string, delim rune) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == delim && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(ch)
		}
	}
	fields = append(fields, strings.TrimSpace(field.String()))
	return fields
}

// CleanQuantity は数量文字列から桁区切りや単位などの非数字を除いて解析します。
// 解析できない・空の場合は0を返します（0以下の行は後段で取り込み対象外）。
func CleanQuantity(s string) int64 {
	var b strings.Builder
	for _, ch := range strings.TrimSpace(s) {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		} else if ch == '-' && b.Len() == 0 {
			b.WriteRune(ch)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" {
		return 0
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
