package unifier

import (
	"fmt"
	"time"
)

// 会計年度は8月1日開始。月のレンジ計算は全てこの起点から行います。
const fiscalStartMonth = time.August

const monthLayout = "2006-01"

func parseMonth(month string) (time.Time, error) {
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", month, err)
	}
	return t, nil
}

// FiscalYearStart returns the YYYY-MM the fiscal year containing month begins.
func FiscalYearStart(month string) (string, error) {
	t, err := parseMonth(month)
	if err != nil {
		return "", err
	}
	year := t.Year()
	if t.Month() < fiscalStartMonth {
		year--
	}
	return time.Date(year, fiscalStartMonth, 1, 0, 0, 0, 0, time.UTC).Format(monthLayout), nil
}

// FiscalMonthsThrough は会計年度の開始月から指定月までの月を順に返します。
func FiscalMonthsThrough(month string) ([]string, error) {
	start, err := FiscalYearStart(month)
	if err != nil {
		return nil, err
	}
	cur, _ := parseMonth(start)
	end, _ := parseMonth(month)

	var months []string
	for !cur.After(end) {
		months = append(months, cur.Format(monthLayout))
		cur = cur.AddDate(0, 1, 0)
	}
	return months, nil
}

// FiscalMonthsOfYear は「FY2024 = 2024-08〜2025-07」の12ヶ月を返します。
func FiscalMonthsOfYear(year int) []string {
	start := time.Date(year, fiscalStartMonth, 1, 0, 0, 0, 0, time.UTC)
	months := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		months = append(months, start.AddDate(0, i, 0).Format(monthLayout))
	}
	return months
}

// PrevYearMonth returns the same month one year earlier.
func PrevYearMonth(month string) (string, error) {
	t, err := parseMonth(month)
	if err != nil {
		return "", err
	}
	return t.AddDate(-1, 0, 0).Format(monthLayout), nil
}
