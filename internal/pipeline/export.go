package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"battdb/internal"
)

// ExportRecordsToXLSX writes normalized records as a flat sheet, one column
// block of four per property kind.
func ExportRecordsToXLSX(records []internal.BatteryRecord, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"material_name", "extracted_name", "formula_hill", "elements"}
	for _, kind := range internal.Kinds() {
		stem := kind.Stem()
		headers = append(headers, stem+"_raw_value", stem+"_raw_unit", stem, stem+"_unit")
	}
	headers = append(headers,
		"specifier", "tag", "info", "material_type", "correctness", "warning",
		"doi", "title", "journal", "year", "available_properties", "warnings",
	)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range records {
		r := i + 2
		col := 0
		set := func(value any) {
			col++
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(derefString(rec.MaterialName))
		set(derefString(rec.ExtractedName))
		set(derefString(rec.FormulaHill))
		set(strings.Join(rec.Elements, ", "))
		for _, kind := range internal.Kinds() {
			prop := rec.Property(kind)
			set(derefFloat(prop.RawValue))
			set(derefString(prop.RawUnit))
			set(derefFloat(prop.Value))
			set(prop.Unit)
		}
		set(derefString(rec.Specifier))
		set(derefString(rec.Tag))
		set(derefString(rec.Info))
		set(derefString(rec.MaterialType))
		set(derefString(rec.Correctness))
		set(derefString(rec.WarningText))
		set(strings.Join(rec.Reference.DOIs, "; "))
		set(derefString(rec.Reference.Title))
		set(derefString(rec.Reference.Journal))
		set(derefString(rec.Reference.Year))
		set(rec.AvailableProperties)
		set(warningSummary(rec.Warnings))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func warningSummary(warnings []internal.Warning) string {
	parts := make([]string, 0, len(warnings))
	for _, w := range warnings {
		s := string(w.Code)
		if w.Field != "" {
			s += ":" + w.Field
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
