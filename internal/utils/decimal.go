package utils

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// NumericToFloat64 converts a scanned numeric to float64, treating NULL as
// zero. Money columns round-trip through this on every read.
func NumericToFloat64(value pgtype.Numeric) float64 {
	if !value.Valid {
		return 0
	}
	f, err := value.Float64Value()
	if err == nil {
		return f.Float64
	}
	text, err := value.MarshalJSON()
	if err != nil {
		return 0
	}
	var out float64
	if _, err := fmt.Sscan(string(text), &out); err != nil {
		return 0
	}
	return out
}
