package scanning

import (
	"regexp"
	"strconv"
	"strings"
)

// LineItem is one candidate purchase record extracted from a scanned bill
type LineItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

const (
	// maxLineItems bounds the result so OCR noise can't flood the
	// confirmation screen
	maxLineItems = 15
	// maxItemNameLen bounds free-text item names
	maxItemNameLen = 50
	// maxItemPrice rejects misread totals and barcodes
	maxItemPrice = 10000
)

var (
	// decimal with optional thousands grouping and up to two decimal digits
	numberPattern = regexp.MustCompile(`\d+(?:,\d{3})*(?:\.\d{1,2})?`)
	// quantity token: number followed by a known unit word
	quantityPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s?(kg|ml|pieces|piece|pcs|pc|pack|g|l)\b`)
	// anything that isn't a letter, digit, whitespace, or hyphen
	nameJunkPattern   = regexp.MustCompile(`[^a-zA-Z0-9\s\-]`)
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// ExtractLineItems parses raw recognized bill text into candidate purchase
// records. Each line is expected to carry an item name and a price, with the
// price as the rightmost number on the line (typical bill layout). Lines
// without a plausible name and price contribute nothing. Results are deduped
// by case-insensitive name (first occurrence wins) and capped at
// maxLineItems, in original line order.
//
// The function is pure: identical input always yields the identical
// sequence.
func ExtractLineItems(text string) []LineItem {
	items := make([]LineItem, 0, maxLineItems)
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		numbers := numberPattern.FindAllString(line, -1)
		if len(numbers) == 0 {
			continue
		}

		// Rightmost number is the price candidate. Bills list the price
		// at the end of the line; this misparses lines where a quantity
		// or unit price follows the total, which is a known accuracy
		// limitation.
		price, err := strconv.ParseFloat(strings.ReplaceAll(numbers[len(numbers)-1], ",", ""), 64)
		if err != nil {
			continue
		}

		// Quantity comes from a <number><unit> token like "2kg" or
		// "500 ml", matched before the numbers are stripped out.
		quantity := 1.0
		rest := line
		if m := quantityPattern.FindStringSubmatch(line); m != nil {
			if q, err := strconv.ParseFloat(m[1], 64); err == nil && q > 0 {
				quantity = q
				rest = strings.Replace(rest, m[0], "", 1)
			}
		}

		// Whatever is left after removing the quantity token and the
		// numbers is the item name.
		name := numberPattern.ReplaceAllString(rest, "")
		name = nameJunkPattern.ReplaceAllString(name, "")
		name = multiSpacePattern.ReplaceAllString(name, " ")
		name = strings.TrimSpace(name)

		if len(name) <= 1 || price <= 0 || price >= maxItemPrice {
			continue
		}
		if len(name) > maxItemNameLen {
			name = name[:maxItemNameLen]
		}

		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		items = append(items, LineItem{
			Name:     name,
			Price:    price,
			Quantity: quantity,
		})
		if len(items) == maxLineItems {
			break
		}
	}

	return items
}
