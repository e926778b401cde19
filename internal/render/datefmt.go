package render

import (
	"fmt"
	"time"
)

var zhWeekdays = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// longDate formats "2025-03-29" as "2025年3月29日 星期六".
func longDate(date string) (string, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("render: selected date %q: %w", date, err)
	}
	return fmt.Sprintf("%d年%d月%d日 %s", d.Year(), int(d.Month()), d.Day(), zhWeekdays[d.Weekday()]), nil
}

// shortDate turns "2025-03-29" into "03-29".
func shortDate(date string) string {
	if len(date) < 10 {
		return date
	}
	return date[5:]
}
