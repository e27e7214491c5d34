// Package helpers contains small formatting utilities shared by chat
// replies and webhook notifications.
package helpers

import "fmt"

// FormatCount renders an integer with thousand separators (1,024)
func FormatCount(n int) string {
	negative := n < 0
	if negative {
		n = -n
	}

	str := fmt.Sprintf("%d", n)
	length := len(str)

	if length <= 3 {
		if negative {
			return "-" + str
		}
		return str
	}

	// Build the formatted string with commas as thousand separators
	var result string
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}

	if negative {
		return "-" + result
	}
	return result
}

// FormatPercent renders a ratio (0.153) as a percentage string (15.3%)
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
