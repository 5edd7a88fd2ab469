package internal

import "fmt"

type SourceKind string

const (
	SourceCSV       SourceKind = "csv"
	SourceXLSX      SourceKind = "xlsx"
	SourceYAML      SourceKind = "yaml"
	SourceHTMLTable SourceKind = "html_table"
)

// ParsePolicy tells the normalizer how much to trust the value types coming
// out of a source. Table cells are always text and go through the tolerant
// extractor; YAML scalars keep their decoded types.
type ParsePolicy string

const (
	PolicyTolerant ParsePolicy = "tolerant"
	PolicyStrong   ParsePolicy = "strong"
)

type RawField struct {
	Key   string
	Value any
}

// RawRecord is one row/entry as read from a source, before any field
// resolution. Field order follows source order; resolution is
// first-occurrence-wins, so order matters.
type RawRecord struct {
	Fields []RawField
}

func (r RawRecord) Len() int { return len(r.Fields) }

type PropertyKind int

const (
	KindCapacity PropertyKind = iota
	KindVoltage
	KindCoulombicEfficiency
	KindEnergyDensity
	KindConductivity
)

// Kinds returns the closed kind set in its fixed enumeration order. The
// available-properties summary and all per-kind loops follow this order.
func Kinds() []PropertyKind {
	return []PropertyKind{
		KindCapacity,
		KindVoltage,
		KindCoulombicEfficiency,
		KindEnergyDensity,
		KindConductivity,
	}
}

// Stem is the canonical attribute-name stem, e.g. "capacity" for
// capacity_raw_value / capacity_raw_unit / capacity.
func (k PropertyKind) Stem() string {
	switch k {
	case KindCapacity:
		return "capacity"
	case KindVoltage:
		return "voltage"
	case KindCoulombicEfficiency:
		return "coulombic_efficiency"
	case KindEnergyDensity:
		return "energy_density"
	case KindConductivity:
		return "conductivity"
	}
	return ""
}

// Label is the human-readable kind name used in the available-properties
// summary.
func (k PropertyKind) Label() string {
	switch k {
	case KindCapacity:
		return "Capacity"
	case KindVoltage:
		return "Voltage"
	case KindCoulombicEfficiency:
		return "Coulombic Efficiency"
	case KindEnergyDensity:
		return "Energy Density"
	case KindConductivity:
		return "Conductivity"
	}
	return ""
}

func (k PropertyKind) String() string { return k.Stem() }

// NormalizedProperty carries one quantitative property of a record. Value is
// in the kind's canonical unit; it stays nil when RawValue is nil or RawUnit
// is unrecognized.
type NormalizedProperty struct {
	RawValue *float64
	RawUnit  *string
	Value    *float64
	Unit     string
}

// CompositionTerm is one element with its stoichiometric coefficient. Count
// is nil when the coefficient is an unresolved variable token (a doping
// parameter such as "x"); Token then holds the verbatim text.
type CompositionTerm struct {
	Element string
	Count   *float64
	Token   string
}

// CompositionGroup is one structurally distinct component (host lattice,
// dopant sublattice). Term order within a group carries no meaning.
type CompositionGroup []CompositionTerm

// Composition preserves group order for display; it is not semantically
// meaningful.
type Composition []CompositionGroup

type WarningCode string

const (
	WarnUnparsedUnit         WarningCode = "unparsed_unit"
	WarnUnparsedFormula      WarningCode = "unparsed_formula"
	WarnAmbiguousAlias       WarningCode = "ambiguous_alias"
	WarnMissingRequiredField WarningCode = "missing_required_field"
)

// Warning is a non-fatal per-record data-quality note. The affected field is
// left null and the record is still emitted.
type Warning struct {
	Code   WarningCode
	Field  string
	Detail string
}

// Reference is the publication linkage of a record. DOIs are deduplicated,
// trimmed and order-preserving. Title/journal/year come straight from the
// source; enriching them from a DOI registry is the host's job.
type Reference struct {
	DOIs    []string
	Title   *string
	Journal *string
	Year    *string
}

// BatteryRecord is the normalized output unit, one per input row/entry. The
// pipeline never mutates a record after emitting it.
type BatteryRecord struct {
	MaterialName  *string
	ExtractedName *string

	Composition Composition
	FormulaHill *string
	Elements    []string

	Capacity            NormalizedProperty
	Voltage             NormalizedProperty
	CoulombicEfficiency NormalizedProperty
	EnergyDensity       NormalizedProperty
	Conductivity        NormalizedProperty

	Specifier    *string
	Tag          *string
	Info         *string
	MaterialType *string
	Correctness  *string
	WarningText  *string

	Reference           Reference
	AvailableProperties string

	Warnings []Warning

	// Extra holds input fields with no canonical home, kept so nothing is
	// dropped silently.
	Extra map[string]string
}

// Property returns the record's property slot for a kind.
func (r *BatteryRecord) Property(kind PropertyKind) *NormalizedProperty {
	switch kind {
	case KindCapacity:
		return &r.Capacity
	case KindVoltage:
		return &r.Voltage
	case KindCoulombicEfficiency:
		return &r.CoulombicEfficiency
	case KindEnergyDensity:
		return &r.EnergyDensity
	case KindConductivity:
		return &r.Conductivity
	}
	return nil
}

// StructuralError means a source payload has an unusable shape (not tabular,
// not a YAML mapping/list). It is fatal for that source: zero records.
type StructuralError struct {
	Source string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("structural error: %s", e.Reason)
	}
	return fmt.Sprintf("structural error in %s: %s", e.Source, e.Reason)
}
