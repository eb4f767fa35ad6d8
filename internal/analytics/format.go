package analytics

import (
	"fmt"
	"math"
)

// FormatINR renders a rupee amount in the Indian convention:
// crores above 1e7, lakhs above 1e5, thousands above 1e3.
func FormatINR(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1e7:
		return fmt.Sprintf("₹%.2f Cr", amount/1e7)
	case abs >= 1e5:
		return fmt.Sprintf("₹%.2f L", amount/1e5)
	case abs >= 1e3:
		return fmt.Sprintf("₹%.1f K", amount/1e3)
	default:
		return fmt.Sprintf("₹%.0f", amount)
	}
}
