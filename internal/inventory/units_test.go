package inventory

import "testing"

func TestToBase(t *testing.T) {
	tests := []struct {
		name         string
		amount       float64
		unit         string
		piecesPerBox float64
		want         float64
		wantBase     BaseUnit
		wantErr      bool
	}{
		{name: "grams pass through", amount: 250, unit: "g", want: 250, wantBase: BaseGrams},
		{name: "kilograms scale", amount: 1.5, unit: "kg", want: 1500, wantBase: BaseGrams},
		{name: "milliliters pass through", amount: 330, unit: "mL", want: 330, wantBase: BaseMilliliters},
		{name: "liters scale", amount: 2, unit: "L", want: 2000, wantBase: BaseMilliliters},
		{name: "pieces pass through", amount: 12, unit: "pcs", want: 12, wantBase: BasePieces},
		{name: "box uses pieces per box", amount: 3, unit: "box", piecesPerBox: 24, want: 72, wantBase: BasePieces},
		{name: "box without packaging fails", amount: 1, unit: "box", wantErr: true},
		{name: "unknown unit fails", amount: 1, unit: "sack", wantErr: true},
		{name: "case insensitive", amount: 1, unit: "KG", want: 1000, wantBase: BaseGrams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, base, err := ToBase(tt.amount, tt.unit, tt.piecesPerBox)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ToBase: %v", err)
			}
			if got != tt.want || base != tt.wantBase {
				t.Fatalf("ToBase = %v %s, want %v %s", got, base, tt.want, tt.wantBase)
			}
		})
	}
}

func TestFromBaseRoundTrips(t *testing.T) {
	tests := []struct {
		unit         string
		amount       float64
		piecesPerBox float64
	}{
		{unit: "kg", amount: 2.5},
		{unit: "L", amount: 0.33},
		{unit: "box", amount: 4, piecesPerBox: 12},
		{unit: "g", amount: 118},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			base, _, err := ToBase(tt.amount, tt.unit, tt.piecesPerBox)
			if err != nil {
				t.Fatalf("ToBase: %v", err)
			}
			back, err := FromBase(base, tt.unit, tt.piecesPerBox)
			if err != nil {
				t.Fatalf("FromBase: %v", err)
			}
			if diff := back - tt.amount; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("round trip %v -> %v -> %v", tt.amount, base, back)
			}
		})
	}
}

func TestBaseUnitFor(t *testing.T) {
	base, err := BaseUnitFor("box")
	if err != nil {
		t.Fatalf("BaseUnitFor: %v", err)
	}
	if base != BasePieces {
		t.Fatalf("base = %s, want pcs", base)
	}
}
