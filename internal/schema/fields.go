package schema

import (
	"strings"

	"battdb/internal"
)

// Attr names of the non-property canonical attributes.
const (
	AttrMaterialName  = "material_name"
	AttrExtractedName = "extracted_name"
	AttrDOI           = "doi"
	AttrTitle         = "title"
	AttrJournal       = "journal"
	AttrDate          = "date"
	AttrSpecifier     = "specifier"
	AttrTag           = "tag"
	AttrWarning       = "warning"
	AttrCorrectness   = "correctness"
	AttrMaterialType  = "material_type"
	AttrInfo          = "info"
)

// RawValueAttr, RawUnitAttr, ValueAttr and UnitAttr name the four resolved
// fields each property kind exposes.
func RawValueAttr(k internal.PropertyKind) string { return k.Stem() + "_raw_value" }
func RawUnitAttr(k internal.PropertyKind) string  { return k.Stem() + "_raw_unit" }
func ValueAttr(k internal.PropertyKind) string    { return k.Stem() }
func UnitAttr(k internal.PropertyKind) string     { return k.Stem() + "_unit" }

type field struct {
	name    string
	aliases []string
}

// Alias tables are schema data, not inferred at run time. New spellings seen
// in the corpus get added here.
var batteryFields = buildBatteryFields()

func buildBatteryFields() []field {
	fields := []field{
		{name: AttrMaterialName, aliases: []string{"name", "material"}},
		{name: AttrExtractedName, aliases: []string{"composition"}},
		{name: AttrDOI, aliases: []string{"dois"}},
		{name: AttrTitle},
		{name: AttrJournal},
		{name: AttrDate, aliases: []string{"year", "publication_year", "publication_date"}},
		{name: AttrSpecifier},
		{name: AttrTag},
		{name: AttrWarning},
		{name: AttrCorrectness},
		{name: AttrMaterialType, aliases: []string{"type"}},
		{name: AttrInfo},
	}
	for _, kind := range internal.Kinds() {
		fields = append(fields,
			field{name: RawValueAttr(kind)},
			field{name: RawUnitAttr(kind)},
			field{name: ValueAttr(kind), aliases: []string{kind.Stem() + "_value"}},
			field{name: UnitAttr(kind)},
		)
	}
	return fields
}

var fieldIndex = buildFieldIndex(batteryFields)

func buildFieldIndex(fields []field) map[string]string {
	index := make(map[string]string, len(fields)*2)
	for _, f := range fields {
		index[NormalizeKey(f.name)] = f.name
		for _, alias := range f.aliases {
			index[NormalizeKey(alias)] = f.name
		}
	}
	return index
}

// Resolve maps an input column/key name onto the canonical attribute set.
// Matching is case-insensitive and treats underscore, space and hyphen as
// interchangeable. Unknown keys resolve to ("", false); they are kept by the
// normalizer as opaque extra metadata, never dropped.
func Resolve(key string) (string, bool) {
	canonical, ok := fieldIndex[NormalizeKey(key)]
	return canonical, ok
}

// NormalizeKey lowercases a key and collapses every run of non-alphanumeric
// characters into a single underscore.
func NormalizeKey(key string) string {
	var out strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(key)) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingSep = out.Len() > 0
			continue
		}
		if pendingSep {
			out.WriteByte('_')
			pendingSep = false
		}
		out.WriteRune(r)
	}
	return out.String()
}
