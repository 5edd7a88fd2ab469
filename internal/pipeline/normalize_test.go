package pipeline

import (
	"math"
	"reflect"
	"testing"

	"battdb/internal"
)

func rawRecord(pairs ...any) internal.RawRecord {
	rec := internal.RawRecord{}
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Fields = append(rec.Fields, internal.RawField{Key: pairs[i].(string), Value: pairs[i+1]})
	}
	return rec
}

func checkFloat(t *testing.T, name string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s: got nil, want %v", name, want)
	}
	if math.Abs(*got-want) > 1e-9 {
		t.Fatalf("%s: got %v, want %v", name, *got, want)
	}
}

func TestNormalizeRecordFull(t *testing.T) {
	rec := NormalizeRecord(rawRecord(
		"Name", "Lithium manganese oxide",
		"Extracted_name", "[{'Li': '1.0', 'Mn': '2.0', 'O': '4.0'}]",
		"Capacity_Raw_value", "217 mAhg−1",
		"Capacity_Raw_unit", "Gram^(-1.0) Hour(1.0) MilliAmpere(1.0)",
		"Voltage_Raw_value", "~3.7 V (vs Li/Li+)",
		"Voltage_Raw_unit", "V",
		"DOI", "10.1016/x; 10.1016/x ,10.1039/y",
		"Journal", "J. Power Sources",
		"Publication Year", "2019",
	), internal.PolicyTolerant)

	if rec.MaterialName == nil || *rec.MaterialName != "Lithium manganese oxide" {
		t.Fatalf("material name = %v", rec.MaterialName)
	}
	checkFloat(t, "capacity raw", rec.Capacity.RawValue, 217)
	checkFloat(t, "capacity", rec.Capacity.Value, 217)
	if rec.Capacity.Unit != "mA*hour/g" {
		t.Fatalf("capacity unit = %q", rec.Capacity.Unit)
	}
	checkFloat(t, "voltage", rec.Voltage.Value, 3.7)
	if rec.CoulombicEfficiency.Value != nil {
		t.Fatalf("coulombic efficiency should be null")
	}
	if rec.FormulaHill == nil || *rec.FormulaHill != "LiMn2O4" {
		t.Fatalf("formula = %v", rec.FormulaHill)
	}
	if !reflect.DeepEqual(rec.Elements, []string{"Li", "Mn", "O"}) {
		t.Fatalf("elements = %v", rec.Elements)
	}
	if !reflect.DeepEqual(rec.Reference.DOIs, []string{"10.1016/x", "10.1039/y"}) {
		t.Fatalf("dois = %v", rec.Reference.DOIs)
	}
	if rec.Reference.Year == nil || *rec.Reference.Year != "2019" {
		t.Fatalf("year = %v", rec.Reference.Year)
	}
	if rec.AvailableProperties != "Capacity and Voltage" {
		t.Fatalf("summary = %q", rec.AvailableProperties)
	}
	if len(rec.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", rec.Warnings)
	}
}

func TestNormalizeRecordSummaryOrder(t *testing.T) {
	rec := NormalizeRecord(rawRecord(
		"Name", "x",
		"Conductivity_Raw_value", "1", "Conductivity_Raw_unit", "S/cm",
		"Voltage_Raw_value", "2", "Voltage_Raw_unit", "V",
		"Capacity_Raw_value", "3", "Capacity_Raw_unit", "mAh/g",
	), internal.PolicyTolerant)
	if rec.AvailableProperties != "Capacity, Voltage and Conductivity" {
		t.Fatalf("summary = %q", rec.AvailableProperties)
	}

	rec = NormalizeRecord(rawRecord("Name", "x"), internal.PolicyTolerant)
	if rec.AvailableProperties != "" {
		t.Fatalf("summary for empty record = %q", rec.AvailableProperties)
	}
}

func TestNormalizeRecordUnparsedUnit(t *testing.T) {
	rec := NormalizeRecord(rawRecord(
		"Name", "x",
		"Capacity_Raw_value", "150",
		"Capacity_Raw_unit", "furlongs",
	), internal.PolicyTolerant)
	checkFloat(t, "raw value", rec.Capacity.RawValue, 150)
	if rec.Capacity.Value != nil {
		t.Fatalf("value should be null for an unrecognized unit, got %v", *rec.Capacity.Value)
	}
	if len(rec.Warnings) != 1 || rec.Warnings[0].Code != internal.WarnUnparsedUnit {
		t.Fatalf("warnings = %v", rec.Warnings)
	}
	if rec.Warnings[0].Field != "capacity_raw_unit" {
		t.Fatalf("warning field = %q", rec.Warnings[0].Field)
	}
}

func TestNormalizeRecordMissingUnitAssumesCanonical(t *testing.T) {
	rec := NormalizeRecord(rawRecord(
		"Name", "x",
		"Voltage_Raw_value", "4.2",
	), internal.PolicyTolerant)
	checkFloat(t, "voltage", rec.Voltage.Value, 4.2)
	if rec.Voltage.RawUnit != nil {
		t.Fatalf("raw unit = %v", *rec.Voltage.RawUnit)
	}
}

func TestNormalizeRecordPassthrough(t *testing.T) {
	// Already-normalized inputs must survive a second pass unchanged.
	rec := NormalizeRecord(rawRecord(
		"Name", "x",
		"Capacity", 217.0,
		"Capacity_unit", "mA*hour/g",
	), internal.PolicyStrong)
	checkFloat(t, "capacity", rec.Capacity.Value, 217)
	if rec.Capacity.Unit != "mA*hour/g" {
		t.Fatalf("unit = %q", rec.Capacity.Unit)
	}
	if len(rec.Warnings) != 0 {
		t.Fatalf("warnings = %v", rec.Warnings)
	}
}

func TestNormalizeRecordStrongPolicyRejectsProse(t *testing.T) {
	rec := NormalizeRecord(rawRecord("Name", "x", "Voltage", "about 3 V"), internal.PolicyStrong)
	if rec.Voltage.Value != nil {
		t.Fatalf("strong policy parsed prose: %v", *rec.Voltage.Value)
	}
	rec = NormalizeRecord(rawRecord("Name", "x", "Voltage", "about 3 V"), internal.PolicyTolerant)
	checkFloat(t, "voltage", rec.Voltage.Value, 3)
}

func TestNormalizeRecordAmbiguousAlias(t *testing.T) {
	rec := NormalizeRecord(rawRecord(
		"Name", "first",
		"Material", "second",
	), internal.PolicyTolerant)
	if rec.MaterialName == nil || *rec.MaterialName != "first" {
		t.Fatalf("material name = %v, want first occurrence", rec.MaterialName)
	}
	if len(rec.Warnings) != 1 || rec.Warnings[0].Code != internal.WarnAmbiguousAlias {
		t.Fatalf("warnings = %v", rec.Warnings)
	}
}

func TestNormalizeRecordExtraAndMissingName(t *testing.T) {
	rec := NormalizeRecord(rawRecord(
		"Cycling_rate", "0.5C",
		"DOI", "10.1039/y",
	), internal.PolicyTolerant)
	if rec.Extra["Cycling_rate"] != "0.5C" {
		t.Fatalf("extra = %v", rec.Extra)
	}
	found := false
	for _, w := range rec.Warnings {
		if w.Code == internal.WarnMissingRequiredField && w.Field == "material_name" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing required-field warning, got %v", rec.Warnings)
	}
}

func TestNormalizeRecordAllEmptyFields(t *testing.T) {
	// A blank table row still comes through as one record; the emptiness
	// shows up as a warning, not as a dropped row.
	rec := NormalizeRecord(rawRecord("Name", "", "DOI", "", "Capacity_Raw_value", ""), internal.PolicyTolerant)
	if rec.MaterialName != nil {
		t.Fatalf("material name = %v", *rec.MaterialName)
	}
	if rec.AvailableProperties != "" {
		t.Fatalf("summary = %q", rec.AvailableProperties)
	}
	if len(rec.Warnings) != 1 || rec.Warnings[0].Code != internal.WarnMissingRequiredField {
		t.Fatalf("warnings = %v", rec.Warnings)
	}
}

func TestNormalizeRecordUnparsedFormula(t *testing.T) {
	rec := NormalizeRecord(rawRecord(
		"Name", "x",
		"Extracted_name", "spinel phase",
	), internal.PolicyTolerant)
	if rec.ExtractedName == nil || *rec.ExtractedName != "spinel phase" {
		t.Fatalf("extracted name = %v", rec.ExtractedName)
	}
	if rec.FormulaHill != nil {
		t.Fatalf("formula = %q", *rec.FormulaHill)
	}
	if len(rec.Warnings) != 1 || rec.Warnings[0].Code != internal.WarnUnparsedFormula {
		t.Fatalf("warnings = %v", rec.Warnings)
	}
}

func TestNormalizeValue(t *testing.T) {
	rec, err := NormalizeValue(map[string]any{"Name": "x", "Voltage_Raw_value": 3.7}, internal.PolicyStrong)
	if err != nil {
		t.Fatalf("NormalizeValue: %v", err)
	}
	checkFloat(t, "voltage", rec.Voltage.Value, 3.7)

	if _, err := NormalizeValue([]any{"one", "two"}, internal.PolicyStrong); err == nil {
		t.Fatal("expected a structural error for a non-mapping")
	} else if _, ok := err.(*internal.StructuralError); !ok {
		t.Fatalf("error type = %T", err)
	}
}
