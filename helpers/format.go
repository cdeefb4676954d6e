package helpers

import "fmt"

// FormatPrice renders a price in correct notation (€38.99)
func FormatPrice(price float64) string {
	return fmt.Sprintf("€%.2f", price)
}
