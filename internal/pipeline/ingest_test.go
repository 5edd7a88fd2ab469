package pipeline

import (
	"testing"

	"battdb/internal"
)

func fieldValue(rec internal.RawRecord, key string) (any, bool) {
	for _, f := range rec.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func TestRecordsFromCSV(t *testing.T) {
	csv := "Name,DOI,Capacity_Raw_value,Capacity_Raw_unit\n" +
		"LiFePO4,10.1016/x,160 mAh/g,mAh/g\n" +
		",,,\n" +
		"LiCoO2,10.1039/y,140,mAh/g\n"
	records, err := RecordsFromCSV([]byte(csv))
	if err != nil {
		t.Fatalf("RecordsFromCSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3 (one per data row, blank row included)", len(records))
	}
	if v, _ := fieldValue(records[0], "Capacity_Raw_value"); v != "160 mAh/g" {
		t.Fatalf("cell kept verbatim, got %v", v)
	}
	if records[0].Fields[0].Key != "Name" {
		t.Fatalf("field order lost: %v", records[0].Fields[0].Key)
	}
	if v, _ := fieldValue(records[1], "Name"); v != "" {
		t.Fatalf("blank row cell = %q, want empty", v)
	}
	if v, _ := fieldValue(records[2], "Name"); v != "LiCoO2" {
		t.Fatalf("row order lost: %v", v)
	}
}

func TestRecordsFromCSVEmpty(t *testing.T) {
	if _, err := RecordsFromCSV(nil); err == nil {
		t.Fatal("expected a structural error for an empty payload")
	}
}

func TestRecordsFromYAMLMapping(t *testing.T) {
	doc := []byte("Extracted_name: \"[{'Li': '1.0'}]\"\nDOI: 10.1016/x\nVoltage_Raw_value: 3.7\n")
	records, err := RecordsFromYAML(doc)
	if err != nil {
		t.Fatalf("RecordsFromYAML: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	v, ok := fieldValue(records[0], "Voltage_Raw_value")
	if !ok {
		t.Fatal("missing Voltage_Raw_value")
	}
	if f, isFloat := v.(float64); !isFloat || f != 3.7 {
		t.Fatalf("scalar not decoded as float: %T %v", v, v)
	}
	if records[0].Fields[0].Key != "Extracted_name" {
		t.Fatalf("document key order lost: %v", records[0].Fields[0].Key)
	}
}

func TestRecordsFromYAMLList(t *testing.T) {
	doc := []byte("- Name: a\n  DOI: 10.1/a\n- Name: b\n  DOI: 10.1/b\n")
	records, err := RecordsFromYAML(doc)
	if err != nil {
		t.Fatalf("RecordsFromYAML: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if v, _ := fieldValue(records[1], "Name"); v != "b" {
		t.Fatalf("list order lost: %v", v)
	}
}

func TestRecordsFromYAMLStructural(t *testing.T) {
	for _, doc := range []string{"just a scalar\n", "- 1\n- 2\n"} {
		_, err := RecordsFromYAML([]byte(doc))
		if err == nil {
			t.Fatalf("%q: expected a structural error", doc)
		}
		if _, ok := err.(*internal.StructuralError); !ok {
			t.Fatalf("%q: error type = %T", doc, err)
		}
	}
}

func TestRecordsFromHTMLTable(t *testing.T) {
	html := `<html><body><p>intro</p><table>
		<tr><th>Name</th><th>DOI</th><th>Voltage_Raw_value</th></tr>
		<tr><td>LiFePO4</td><td>10.1016/x</td><td>3.4 V</td></tr>
	</table></body></html>`
	records, err := RecordsFromHTMLTable([]byte(html))
	if err != nil {
		t.Fatalf("RecordsFromHTMLTable: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if v, _ := fieldValue(records[0], "Voltage_Raw_value"); v != "3.4 V" {
		t.Fatalf("cell = %v", v)
	}
}

func TestRecordsFromSourcePolicy(t *testing.T) {
	_, policy, err := RecordsFromSource("a.csv", internal.SourceCSV, []byte("Name,DOI\nx,10.1/a\n"))
	if err != nil || policy != internal.PolicyTolerant {
		t.Fatalf("csv policy = %v err = %v", policy, err)
	}
	_, policy, err = RecordsFromSource("a.yaml", internal.SourceYAML, []byte("Name: x\n"))
	if err != nil || policy != internal.PolicyStrong {
		t.Fatalf("yaml policy = %v err = %v", policy, err)
	}
}
