package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"

	"battdb/internal"
)

// RecordsFromSource reads one source payload into raw records. The source
// kind decides the adapter and the parse policy the records carry.
func RecordsFromSource(name string, kind internal.SourceKind, content []byte) ([]internal.RawRecord, internal.ParsePolicy, error) {
	switch kind {
	case internal.SourceCSV:
		recs, err := RecordsFromCSV(content)
		return recs, internal.PolicyTolerant, wrapStructural(name, err)
	case internal.SourceXLSX:
		recs, err := RecordsFromXLSX(content)
		return recs, internal.PolicyTolerant, wrapStructural(name, err)
	case internal.SourceHTMLTable:
		recs, err := RecordsFromHTMLTable(content)
		return recs, internal.PolicyTolerant, wrapStructural(name, err)
	case internal.SourceYAML:
		recs, err := RecordsFromYAML(content)
		return recs, internal.PolicyStrong, wrapStructural(name, err)
	}
	return nil, "", &internal.StructuralError{Source: name, Reason: fmt.Sprintf("unsupported source kind %q", kind)}
}

func wrapStructural(name string, err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*internal.StructuralError); ok && se.Source == "" {
		se.Source = name
		return se
	}
	return err
}

// RecordsFromCSV maps each data row onto the header 1:1 with no cell
// interpretation; values stay verbatim strings.
func RecordsFromCSV(content []byte) ([]internal.RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &internal.StructuralError{Reason: err.Error()}
	}
	if len(rows) == 0 {
		return nil, &internal.StructuralError{Reason: "empty table"}
	}
	return tableRecords(rows[0], rows[1:]), nil
}

// RecordsFromXLSX reads the first non-empty sheet as a header plus data rows.
func RecordsFromXLSX(content []byte) ([]internal.RawRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &internal.StructuralError{Reason: err.Error()}
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		return tableRecords(rows[0], rows[1:]), nil
	}
	return nil, &internal.StructuralError{Reason: "no non-empty sheet"}
}

// RecordsFromHTMLTable reads the first <table> whose first row is treated as
// the header.
func RecordsFromHTMLTable(content []byte) ([]internal.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, &internal.StructuralError{Reason: err.Error()}
	}

	var out []internal.RawRecord
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		trs := table.Find("tr")
		if trs.Length() < 2 {
			return true
		}
		header := []string{}
		trs.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			header = append(header, strings.TrimSpace(cell.Text()))
		})
		rows := [][]string{}
		trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			rows = append(rows, cells)
		})
		out = tableRecords(header, rows)
		found = true
		return false
	})
	if !found {
		return nil, &internal.StructuralError{Reason: "no table with a header and data rows"}
	}
	return out, nil
}

// tableRecords maps data rows onto the header 1:1 and positionally; even an
// all-empty row becomes one record, whose emptiness the normalizer surfaces
// as warnings.
func tableRecords(header []string, rows [][]string) []internal.RawRecord {
	out := make([]internal.RawRecord, 0, len(rows))
	for _, row := range rows {
		rec := internal.RawRecord{}
		for i, key := range header {
			if strings.TrimSpace(key) == "" || i >= len(row) {
				continue
			}
			rec.Fields = append(rec.Fields, internal.RawField{Key: key, Value: row[i]})
		}
		out = append(out, rec)
	}
	return out
}

// RecordsFromYAML accepts a single mapping (one record) or a list of mappings
// (one record each). Anything else is structural. Key order follows the
// document; scalar values keep their decoded YAML types.
func RecordsFromYAML(content []byte) ([]internal.RawRecord, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, &internal.StructuralError{Reason: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &internal.StructuralError{Reason: "empty document"}
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
		rec, err := yamlMappingRecord(root)
		if err != nil {
			return nil, err
		}
		return []internal.RawRecord{rec}, nil
	case yaml.SequenceNode:
		out := make([]internal.RawRecord, 0, len(root.Content))
		for i, item := range root.Content {
			if item.Kind != yaml.MappingNode {
				return nil, &internal.StructuralError{Reason: fmt.Sprintf("list entry %d is not a mapping", i)}
			}
			rec, err := yamlMappingRecord(item)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	default:
		return nil, &internal.StructuralError{Reason: "document is neither a mapping nor a list of mappings"}
	}
}

// headerKeys pulls the candidate field names out of a payload without a full
// ingest: the header row itself for tables (data rows do not matter for the
// claim), the first record's keys for YAML.
func headerKeys(kind internal.SourceKind, content []byte) ([]string, error) {
	switch kind {
	case internal.SourceCSV:
		reader := csv.NewReader(bytes.NewReader(content))
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		header, err := reader.Read()
		if err != nil {
			return nil, &internal.StructuralError{Reason: err.Error()}
		}
		return header, nil
	case internal.SourceXLSX:
		f, err := excelize.OpenReader(bytes.NewReader(content))
		if err != nil {
			return nil, &internal.StructuralError{Reason: err.Error()}
		}
		defer f.Close()
		for _, sheet := range f.GetSheetList() {
			rows, err := f.GetRows(sheet)
			if err != nil || len(rows) == 0 {
				continue
			}
			return rows[0], nil
		}
		return nil, &internal.StructuralError{Reason: "no non-empty sheet"}
	case internal.SourceHTMLTable:
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
		if err != nil {
			return nil, &internal.StructuralError{Reason: err.Error()}
		}
		var header []string
		doc.Find("table tr").First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			header = append(header, strings.TrimSpace(cell.Text()))
		})
		return header, nil
	case internal.SourceYAML:
		records, err := RecordsFromYAML(content)
		if err != nil || len(records) == 0 {
			return nil, err
		}
		keys := make([]string, 0, records[0].Len())
		for _, f := range records[0].Fields {
			keys = append(keys, f.Key)
		}
		return keys, nil
	}
	return nil, nil
}

func yamlMappingRecord(node *yaml.Node) (internal.RawRecord, error) {
	rec := internal.RawRecord{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		var value any
		if err := valueNode.Decode(&value); err != nil {
			return internal.RawRecord{}, &internal.StructuralError{Reason: err.Error()}
		}
		rec.Fields = append(rec.Fields, internal.RawField{Key: keyNode.Value, Value: value})
	}
	return rec, nil
}
