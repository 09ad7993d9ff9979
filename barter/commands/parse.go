package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
)

// ParseLines reads a list such as "oreo:2, tim tam" into lines. A missing
// quantity means one. Item names are returned as typed.
func ParseLines(input string) ([]trading.Line, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: nothing to offer", trading.ErrInvalidInput)
	}

	parts := strings.Split(input, ",")
	if len(parts) > config.MaxBundleLines {
		return nil, fmt.Errorf("%w: at most %d items per bundle", trading.ErrInvalidInput, config.MaxBundleLines)
	}

	lines := make([]trading.Line, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: empty entry in %q", trading.ErrInvalidInput, input)
		}

		name, qtyText, hasQty := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: missing item in %q", trading.ErrInvalidInput, part)
		}

		qty := int64(1)
		if hasQty {
			n, err := strconv.ParseInt(strings.TrimSpace(qtyText), 10, 64)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("%w: %q is not a positive quantity", trading.ErrInvalidInput, qtyText)
			}
			qty = n
		}
		lines = append(lines, trading.Line{ItemID: name, Qty: qty})
	}
	return lines, nil
}

// OfferFromLines makes a single offer for one line and a bundle otherwise.
func OfferFromLines(lines []trading.Line) trading.Offer {
	if len(lines) == 1 {
		return trading.SingleOffer{Line: lines[0]}
	}
	return trading.BundleOffer{Items: lines}
}

// lastSegment splits "oreo:2, tim" into "oreo:2, " and "tim" for
// autocompleting the entry being typed.
func lastSegment(input string) (prefix, current string) {
	i := strings.LastIndex(input, ",")
	if i < 0 {
		return "", strings.TrimSpace(input)
	}
	return input[:i+1] + " ", strings.TrimSpace(input[i+1:])
}
