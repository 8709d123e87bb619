package units

import "testing"

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		quantity float64
		from, to Unit
		want     float64
	}{
		{"kwh to mwh", 1000, KWh, MWh, 1},
		{"mwh to kwh", 1, MWh, KWh, 1000},
		{"mcf to therm", 1, Mcf, Therm, 10},
		{"mmbtu to btu", 1, MMBTU, BTU, 1e6},
		{"same unit", 42, KWh, KWh, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.quantity, tt.from, tt.to)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Convert(%v, %v, %v) = %v, want %v", tt.quantity, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestConvertUnknownUnit(t *testing.T) {
	if _, err := Convert(1, Unit("bogus"), KWh); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}
