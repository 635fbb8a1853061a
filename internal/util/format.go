// Package util provides utility functions for formatting and common operations.
package util

import (
	"fmt"
	"math"
)

// FormatDuration formats seconds as HH:MM:SS.
func FormatDuration(seconds float64) string {
	if seconds < 0 || seconds != seconds { // NaN check
		return "??:??:??"
	}

	totalSecs := int64(seconds)
	hours := totalSecs / 3600
	minutes := (totalSecs % 3600) / 60
	secs := totalSecs % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// FormatSimilarity renders a similarity score as a percentage with two
// decimals. Scores can be negative for anti-correlated images.
func FormatSimilarity(similarity float64) string {
	if math.IsNaN(similarity) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", similarity*100)
}
