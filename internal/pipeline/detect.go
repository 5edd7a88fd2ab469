package pipeline

import (
	"path/filepath"
	"strings"

	"battdb/internal"
	"battdb/internal/schema"
)

type DetectResult struct {
	Claimed bool
	Kind    internal.SourceKind
	Reason  string
}

// ClaimSource decides whether a payload belongs to this pipeline. The
// extension picks the adapter; the claim itself needs both hallmark fields
// (a material name and a DOI) resolvable from the head of the payload.
// Payloads without both are left for other pipelines, never half-ingested.
func ClaimSource(filename string, content []byte) DetectResult {
	kind, ok := kindFromName(filename)
	if !ok {
		return DetectResult{Reason: "unsupported extension"}
	}

	keys, err := headerKeys(kind, content)
	if err != nil {
		return DetectResult{Kind: kind, Reason: "unreadable: " + err.Error()}
	}

	hasName, hasDOI := false, false
	for _, key := range keys {
		canonical, resolved := schema.Resolve(key)
		if !resolved {
			continue
		}
		switch canonical {
		case schema.AttrMaterialName, schema.AttrExtractedName:
			hasName = true
		case schema.AttrDOI:
			hasDOI = true
		}
	}

	switch {
	case hasName && hasDOI:
		return DetectResult{Claimed: true, Kind: kind, Reason: "hallmark fields present"}
	case hasName:
		return DetectResult{Kind: kind, Reason: "no doi field"}
	case hasDOI:
		return DetectResult{Kind: kind, Reason: "no material-name field"}
	default:
		return DetectResult{Kind: kind, Reason: "no hallmark fields"}
	}
}

func kindFromName(filename string) (internal.SourceKind, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return internal.SourceCSV, true
	case ".xlsx", ".xls":
		return internal.SourceXLSX, true
	case ".yaml", ".yml":
		return internal.SourceYAML, true
	case ".html", ".htm":
		return internal.SourceHTMLTable, true
	}
	return "", false
}

