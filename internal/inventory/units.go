package inventory

import (
	"fmt"
	"strings"
)

// BaseUnit is the canonical unit stock levels are stored in. Weight is grams,
// volume is milliliters, count is pieces. Recipes may be written in any
// display unit; everything converts to base before touching the ledger.
type BaseUnit string

const (
	BaseGrams       BaseUnit = "g"
	BaseMilliliters BaseUnit = "mL"
	BasePieces      BaseUnit = "pcs"
)

// ToBase converts an amount in a display unit to the base unit. piecesPerBox
// is only consulted for box conversions; zero means the item has no box
// packaging configured.
func ToBase(amount float64, unit string, piecesPerBox float64) (float64, BaseUnit, error) {
	switch normalizeUnit(unit) {
	case "g":
		return amount, BaseGrams, nil
	case "kg":
		return amount * 1000, BaseGrams, nil
	case "ml":
		return amount, BaseMilliliters, nil
	case "l":
		return amount * 1000, BaseMilliliters, nil
	case "pcs":
		return amount, BasePieces, nil
	case "box":
		if piecesPerBox <= 0 {
			return 0, "", fmt.Errorf("unit %q needs a pieces-per-box setting", unit)
		}
		return amount * piecesPerBox, BasePieces, nil
	default:
		return 0, "", fmt.Errorf("unknown unit %q", unit)
	}
}

// FromBase converts a base-unit quantity back to a display unit.
func FromBase(amount float64, unit string, piecesPerBox float64) (float64, error) {
	switch normalizeUnit(unit) {
	case "g", "ml", "pcs":
		return amount, nil
	case "kg", "l":
		return amount / 1000, nil
	case "box":
		if piecesPerBox <= 0 {
			return 0, fmt.Errorf("unit %q needs a pieces-per-box setting", unit)
		}
		return amount / piecesPerBox, nil
	default:
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
}

// BaseUnitFor reports which base unit a display unit converts into.
func BaseUnitFor(unit string) (BaseUnit, error) {
	_, base, err := ToBase(0, unit, 1)
	return base, err
}

func normalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}
