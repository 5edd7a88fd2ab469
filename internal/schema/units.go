package schema

import (
	"regexp"
	"strconv"
	"strings"

	"battdb/internal"
)

type unitTable struct {
	canonical string
	factors   map[string]float64
}

func newUnitTable(canonical string, spellings map[string]float64) unitTable {
	factors := make(map[string]float64, len(spellings))
	for spelling, factor := range spellings {
		factors[canonicalizeUnit(spelling)] = factor
	}
	return unitTable{canonical: canonical, factors: factors}
}

// Each kind owns its own table; a spelling registered for one kind never
// matches another, so a voltage unit applied to capacity stays unrecognized.
// Spellings cover the plain, slashless, pint-style and long-form notations
// seen in the corpus.
var unitTables = map[internal.PropertyKind]unitTable{
	internal.KindCapacity: newUnitTable("mA*hour/g", map[string]float64{
		"mAh/g":     1,
		"mAhg-1":    1,
		"mAh g-1":   1,
		"mA*hour/g": 1,
		"mA h/g":    1,
		"Gram^(-1.0) Hour(1.0) MilliAmpere(1.0)": 1,
		"Ah/g":  1000,
		"Ahg-1": 1000,
		"Gram^(-1.0) Hour(1.0) Ampere(1.0)": 1000,
		"Ah/kg":  1,
		"Ahkg-1": 1,
		"Kilogram^(-1.0) Hour(1.0) Ampere(1.0)": 1,
		"mAh/kg": 0.001,
	}),
	internal.KindVoltage: newUnitTable("V", map[string]float64{
		"V":             1,
		"volt":          1,
		"volts":         1,
		"Volt(1.0)":     1,
		"mV":            0.001,
		"MilliVolt(1.0)": 0.001,
		"kV":            1000,
	}),
	internal.KindCoulombicEfficiency: newUnitTable("%", map[string]float64{
		"%":            1,
		"percent":      1,
		"Percent(1.0)": 1,
		"pct":          1,
	}),
	internal.KindEnergyDensity: newUnitTable("W*hour/kg", map[string]float64{
		"Wh/kg":     1,
		"Whkg-1":    1,
		"Wh kg-1":   1,
		"W*hour/kg": 1,
		"Kilogram^(-1.0) Hour(1.0) Watt(1.0)": 1,
		"mWh/g": 1,
		"Gram^(-1.0) Hour(1.0) MilliWatt(1.0)": 1,
		"Wh/g":   1000,
		"kWh/kg": 1000,
		"mWh/kg": 0.001,
	}),
	internal.KindConductivity: newUnitTable("S/cm", map[string]float64{
		"S/cm":   1,
		"Scm-1":  1,
		"S cm-1": 1,
		"Centimeter^(-1.0) Siemens(1.0)": 1,
		"mS/cm":  0.001,
		"mScm-1": 0.001,
		"S/m":    0.01,
		"Meter^(-1.0) Siemens(1.0)": 0.01,
		"uS/cm": 1e-6,
	}),
}

// CanonicalUnit is the fixed unit every normalized value of a kind reports.
func CanonicalUnit(kind internal.PropertyKind) string {
	return unitTables[kind].canonical
}

// ConvertFactor returns the factor from a raw unit spelling to the kind's
// canonical unit. Unrecognized spellings return (0, false); the caller leaves
// the value null and records a warning rather than failing.
func ConvertFactor(kind internal.PropertyKind, rawUnit string) (float64, bool) {
	table, ok := unitTables[kind]
	if !ok {
		return 0, false
	}
	factor, ok := table.factors[canonicalizeUnit(rawUnit)]
	return factor, ok
}

var (
	unitMinus = strings.NewReplacer("−", "-", "–", "-", "—", "-")

	// Long-form unit words contracted to their symbols. Longer words come
	// first so "milliampere" never decays into "milli"+"a".
	unitWords = strings.NewReplacer(
		"milliampere", "ma",
		"ampere", "a",
		"millivolt", "mv",
		"kilovolt", "kv",
		"volt", "v",
		"milliwatt", "mw",
		"kilowatt", "kw",
		"watt", "w",
		"hours", "h",
		"hour", "h",
		"kilogram", "kg",
		"gram", "g",
		"siemens", "s",
		"centimetre", "cm",
		"centimeter", "cm",
		"metre", "m",
		"meter", "m",
		"percentage", "%",
		"percent", "%",
	)

	unitExponent = regexp.MustCompile(`\(\s*([+-]?\d+(?:\.\d+)?)\s*\)`)
	unitStrip    = strings.NewReplacer(" ", "", "\t", "", "*", "", "·", "", "^", "", ".", "")
)

// canonicalizeUnit reduces a raw unit spelling to a comparable form:
// "mA*hour/g", "mAh g−1" and "Gram^(-1.0) Hour(1.0) MilliAmpere(1.0)" all
// end up keyed the same way their registered spellings are.
func canonicalizeUnit(raw string) string {
	s := unitMinus.Replace(strings.TrimSpace(raw))
	s = strings.ToLower(s)
	s = unitWords.Replace(s)
	s = unitExponent.ReplaceAllStringFunc(s, func(match string) string {
		inner := unitExponent.FindStringSubmatch(match)[1]
		value, err := strconv.ParseFloat(inner, 64)
		if err != nil {
			return match
		}
		if value == 1 {
			return ""
		}
		return strconv.FormatFloat(value, 'g', -1, 64)
	})
	return unitStrip.Replace(s)
}
