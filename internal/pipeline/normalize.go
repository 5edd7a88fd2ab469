package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"battdb/internal"
	"battdb/internal/schema"
	"battdb/internal/util"
)

// NormalizeRecord turns one raw record into exactly one BatteryRecord. Every
// step is failure-tolerant: a field that will not parse leaves its slot null
// and adds a warning, it never blocks the rest of the record.
func NormalizeRecord(raw internal.RawRecord, policy internal.ParsePolicy) internal.BatteryRecord {
	rec := internal.BatteryRecord{}

	resolved := map[string]any{}
	resolvedFrom := map[string]string{}
	for _, field := range raw.Fields {
		if isEmptyValue(field.Value) {
			continue
		}
		canonical, ok := schema.Resolve(field.Key)
		if !ok {
			if rec.Extra == nil {
				rec.Extra = map[string]string{}
			}
			if _, seen := rec.Extra[field.Key]; !seen {
				rec.Extra[field.Key] = stringify(field.Value)
			}
			continue
		}
		if first, dup := resolvedFrom[canonical]; dup {
			rec.Warnings = append(rec.Warnings, internal.Warning{
				Code:   internal.WarnAmbiguousAlias,
				Field:  canonical,
				Detail: fmt.Sprintf("%q and %q both resolve to %s, keeping %q", first, field.Key, canonical, first),
			})
			continue
		}
		resolvedFrom[canonical] = field.Key
		resolved[canonical] = field.Value
	}

	rec.MaterialName = getString(resolved, schema.AttrMaterialName)
	rec.Specifier = getString(resolved, schema.AttrSpecifier)
	rec.Tag = getString(resolved, schema.AttrTag)
	rec.Info = getString(resolved, schema.AttrInfo)
	rec.MaterialType = getString(resolved, schema.AttrMaterialType)
	rec.Correctness = getString(resolved, schema.AttrCorrectness)
	rec.WarningText = getString(resolved, schema.AttrWarning)

	if rec.MaterialName == nil {
		rec.Warnings = append(rec.Warnings, internal.Warning{
			Code:  internal.WarnMissingRequiredField,
			Field: schema.AttrMaterialName,
		})
	}

	for _, kind := range internal.Kinds() {
		prop := rec.Property(kind)
		prop.Unit = schema.CanonicalUnit(kind)

		rawValue, hasRaw := resolved[schema.RawValueAttr(kind)]
		if hasRaw {
			prop.RawValue = util.ExtractFloat(rawValue)
		}
		prop.RawUnit = getString(resolved, schema.RawUnitAttr(kind))

		if prop.RawValue == nil {
			// Some inputs arrive pre-normalized; their value passes
			// through unchanged instead of being re-derived.
			if preValue, hasPre := resolved[schema.ValueAttr(kind)]; hasPre {
				prop.Value = coerceFloat(preValue, policy)
			}
			continue
		}
		if prop.RawUnit == nil {
			// No unit came with the raw value; it is taken to already be
			// in the kind's canonical unit (factor 1).
			v := *prop.RawValue
			prop.Value = &v
			continue
		}
		factor, known := schema.ConvertFactor(kind, *prop.RawUnit)
		if !known {
			rec.Warnings = append(rec.Warnings, internal.Warning{
				Code:   internal.WarnUnparsedUnit,
				Field:  schema.RawUnitAttr(kind),
				Detail: *prop.RawUnit,
			})
			continue
		}
		prop.Value = util.FloatPtr(*prop.RawValue * factor)
	}

	if extracted, ok := resolved[schema.AttrExtractedName]; ok {
		rec.ExtractedName = util.StringPtr(stringify(extracted))
		if comp, parsed := schema.ParseComposition(extracted); parsed {
			rec.Composition = comp
			rec.FormulaHill = schema.HillFormula(comp)
			rec.Elements = schema.ElementList(comp)
		} else {
			rec.Warnings = append(rec.Warnings, internal.Warning{
				Code:  internal.WarnUnparsedFormula,
				Field: schema.AttrExtractedName,
			})
		}
	}

	rec.Reference = internal.Reference{
		DOIs:    doiList(resolved[schema.AttrDOI]),
		Title:   getString(resolved, schema.AttrTitle),
		Journal: getString(resolved, schema.AttrJournal),
		Year:    getString(resolved, schema.AttrDate),
	}
	rec.AvailableProperties = availableSummary(&rec)

	return rec
}

// NormalizeValue is NormalizeRecord for a decoded value of unknown shape.
// The one fatal condition per record: the value is not a mapping at all.
func NormalizeValue(v any, policy internal.ParsePolicy) (internal.BatteryRecord, error) {
	switch value := v.(type) {
	case internal.RawRecord:
		return NormalizeRecord(value, policy), nil
	case map[string]any:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		raw := internal.RawRecord{}
		for _, k := range keys {
			raw.Fields = append(raw.Fields, internal.RawField{Key: k, Value: value[k]})
		}
		return NormalizeRecord(raw, policy), nil
	default:
		return internal.BatteryRecord{}, &internal.StructuralError{Reason: fmt.Sprintf("record is not a mapping (%T)", v)}
	}
}

// availableSummary lists the kinds with a non-null canonical value, in the
// fixed kind order, as a natural-language conjunction.
func availableSummary(rec *internal.BatteryRecord) string {
	var labels []string
	for _, kind := range internal.Kinds() {
		if rec.Property(kind).Value != nil {
			labels = append(labels, kind.Label())
		}
	}
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
	}
}

// doiList accepts a single DOI, a semicolon/comma-delimited string or an
// explicit list; entries come back trimmed, deduplicated, order preserved.
func doiList(v any) []string {
	if v == nil {
		return nil
	}

	var parts []string
	switch value := v.(type) {
	case []any:
		for _, item := range value {
			parts = append(parts, stringify(item))
		}
	case []string:
		parts = value
	case string:
		parts = strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == ',' })
	default:
		parts = []string{stringify(v)}
	}

	seen := map[string]struct{}{}
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// coerceFloat reads a pre-normalized value. Under the strong policy only
// actual numbers (or plain numeric strings) count; under the tolerant policy
// the cell goes through the full extractor.
func coerceFloat(v any, policy internal.ParsePolicy) *float64 {
	if policy == internal.PolicyTolerant {
		return util.ExtractFloat(v)
	}
	switch value := v.(type) {
	case float64:
		return util.FloatPtr(value)
	case float32:
		return util.FloatPtr(float64(value))
	case int:
		return util.FloatPtr(float64(value))
	case int64:
		return util.FloatPtr(float64(value))
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return util.FloatPtr(parsed)
		}
		return nil
	default:
		return nil
	}
}

func getString(resolved map[string]any, attr string) *string {
	v, ok := resolved[attr]
	if !ok {
		return nil
	}
	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return nil
	}
	return &s
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func isEmptyValue(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	default:
		return false
	}
}
