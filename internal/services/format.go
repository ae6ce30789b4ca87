package services

import (
	"strconv"
	"time"

	"bizdash/internal/core"
)

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func amount(m core.Money) string {
	return strconv.FormatFloat(m.Euros(), 'f', 2, 64)
}
