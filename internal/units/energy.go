// Package units provides the energy-unit conversion and calendar/date
// helpers the parser framework needs: converting volume ranges between the
// units suppliers publish in and the canonical per-service-type unit
// (kWh for electric, therm for gas), and parsing the handful of date
// encodings matrix files use (ISO strings, free-form strings, spreadsheet
// serial numbers).
package units

import "fmt"

// Unit is one of the energy units matrix files are denominated in.
// There is no ecosystem unit-conversion library in scope for this system
// (see DESIGN.md); the small, fixed table below is hand-rolled directly
// from the conversion factors the parsers actually use.
type Unit string

const (
	BTU    Unit = "BTU"
	MMBTU  Unit = "MMBTU"
	KWh    Unit = "kWh"
	MWh    Unit = "MWh"
	Therm  Unit = "therm"
	CCF    Unit = "ccf"
	Mcf    Unit = "Mcf"
)

// thermsPerUnit gives the number of therms one unit of the given Unit is
// worth. Therm is the gas-side canonical unit; kWh is the electric-side
// canonical unit. CCF and therm are treated as equal, matching supplier
// practice of using them interchangeably for natural gas volumes.
var thermsPerUnit = map[Unit]float64{
	BTU:   1e-6,
	MMBTU: 1,
	Therm: 1,
	CCF:   1,
	Mcf:   10,
}

// kWhPerUnit gives the number of kWh one unit of the given Unit is worth,
// for the electric-side units.
var kWhPerUnit = map[Unit]float64{
	KWh: 1,
	MWh: 1000,
}

// Convert converts a quantity from one unit to another. The two units must
// both be on the same side (electric kWh/MWh, or gas BTU/MMBTU/therm/ccf/
// Mcf); converting across sides is a programmer error and returns an error.
func Convert(quantity float64, from, to Unit) (float64, error) {
	if from == to {
		return quantity, nil
	}
	if fromF, ok := kWhPerUnit[from]; ok {
		toF, ok := kWhPerUnit[to]
		if !ok {
			return 0, fmt.Errorf("units: cannot convert %s to %s", from, to)
		}
		return quantity * fromF / toF, nil
	}
	if fromF, ok := thermsPerUnit[from]; ok {
		toF, ok := thermsPerUnit[to]
		if !ok {
			return 0, fmt.Errorf("units: cannot convert %s to %s", from, to)
		}
		return quantity * fromF / toF, nil
	}
	return 0, fmt.Errorf("units: unknown unit %s", from)
}

// ConvertInt is the integer-rounding convenience ExtractVolumeRange needs:
// suppliers publish volume ranges as whole numbers, and the target value
// should be too.
func ConvertInt(quantity int, from, to Unit) (int, error) {
	v, err := Convert(float64(quantity), from, to)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
