// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseClock разбирает время вида "HH:MM" в минуты от начала суток.
func ParseClock(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}

	hours, err := parseDigits(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	minutes, err := parseDigits(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}

	if hours > 24 || minutes > 59 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("clock value %q out of range", value)
	}

	return hours*60 + minutes, nil
}

// FormatClock возвращает минуты суток в виде строки "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

func parseDigits(s string) (int, error) {
	n := 0
	for _, ch := range s {
		if !unicode.IsDigit(ch) {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		n = n*10 + int(ch-'0')
	}
	return n, nil
}

// IsValidLicenseID проверяет формат номера торговой лицензии: PREFIX-YYYY-NNNN,
// например "TN-2023-9988". Префикс — код провинции из заглавных букв.
func IsValidLicenseID(id string) bool {
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		return false
	}

	prefix, year, serial := parts[0], parts[1], parts[2]

	if len(prefix) < 2 || len(prefix) > 3 {
		return false
	}
	for _, ch := range prefix {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}

	if len(year) != 4 {
		return false
	}
	for _, ch := range year {
		if !unicode.IsDigit(ch) {
			return false
		}
	}

	if len(serial) == 0 || len(serial) > 6 {
		return false
	}
	for _, ch := range serial {
		if !unicode.IsDigit(ch) {
			return false
		}
	}

	return true
}
