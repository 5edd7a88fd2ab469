package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"battdb/internal/config"
	"battdb/internal/storage"
)

func TestSmokeCSVToXLSX(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "battdb.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	csv := "Name,Extracted_name,DOI,Capacity_Raw_value,Capacity_Raw_unit,Voltage_Raw_value,Voltage_Raw_unit\n" +
		"Lithium iron phosphate,\"[{'Fe': '1.0', 'Li': '1.0', 'O': '4.0', 'P': '1.0'}]\",10.1016/x,160 mAh/g,mAh/g,3.4 V,V\n" +
		"Lithium cobalt oxide,\"[{'Co': '1.0', 'Li': '1.0', 'O': '2.0'}]\",10.1039/y,140,mAh/g,3.9,V\n"
	srcPath := filepath.Join(tmp, "batteries.csv")
	if err := os.WriteFile(srcPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != "1" {
		t.Fatalf("schema version = %q", version)
	}

	cfg := config.Config{DBPath: filepath.Join(tmp, "battdb.db"), StoreBatchSize: 500}
	proc := NewProcessingService(db, cfg, nil)

	res, err := proc.IngestFile(srcPath)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Claimed {
		t.Fatalf("source not claimed: %s", res.Reason)
	}
	if res.Records != 2 {
		t.Fatalf("records = %d, want 2", res.Records)
	}

	count, err := db.CountRecords()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("stored = %d, want 2", count)
	}

	stored, err := db.ListRecords()
	if err != nil {
		t.Fatal(err)
	}
	if stored[0].FormulaHill == nil || *stored[0].FormulaHill != "FeLiO4P" {
		t.Fatalf("formula = %v", stored[0].FormulaHill)
	}
	if stored[0].Capacity.Value == nil || *stored[0].Capacity.Value != 160 {
		t.Fatalf("capacity = %v", stored[0].Capacity.Value)
	}
	if stored[1].AvailableProperties != "Capacity and Voltage" {
		t.Fatalf("summary = %q", stored[1].AvailableProperties)
	}

	out := filepath.Join(tmp, "records.xlsx")
	exported, err := proc.ExportXLSX(out)
	if err != nil {
		t.Fatal(err)
	}
	if exported != 2 {
		t.Fatalf("exported = %d, want 2", exported)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}

	// Re-ingesting the same file replaces, it does not duplicate.
	if _, err := proc.IngestFile(srcPath); err != nil {
		t.Fatal(err)
	}
	count, err = db.CountRecords()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("stored after re-ingest = %d, want 2", count)
	}
}
