package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"battdb/internal"
	"battdb/internal/config"
	"battdb/internal/storage"
)

type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
	log *zap.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, log *zap.Logger) *ProcessingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProcessingService{db: db, cfg: cfg, log: log}
}

type IngestResult struct {
	Path     string
	Claimed  bool
	Reason   string
	Records  int
	Warnings int
}

// IngestFile runs the full path for one payload: claim, ingest, normalize,
// store. An unclaimed file is not an error, it is simply left alone.
func (s *ProcessingService) IngestFile(path string) (IngestResult, error) {
	start := time.Now()
	content, err := os.ReadFile(path)
	if err != nil {
		return IngestResult{Path: path}, err
	}

	detect := ClaimSource(filepath.Base(path), content)
	if !detect.Claimed {
		s.log.Info("source not claimed",
			zap.String("path", path),
			zap.String("reason", detect.Reason))
		return IngestResult{Path: path, Reason: detect.Reason}, nil
	}

	rawRecords, policy, err := RecordsFromSource(filepath.Base(path), detect.Kind, content)
	if err != nil {
		return IngestResult{Path: path, Claimed: true}, err
	}

	records := make([]internal.BatteryRecord, 0, len(rawRecords))
	warnings := 0
	for _, raw := range rawRecords {
		rec := NormalizeRecord(raw, policy)
		warnings += len(rec.Warnings)
		records = append(records, rec)
	}

	sum := sha256.Sum256(content)
	sourceID, err := s.db.UpsertSource(path, detect.Kind, hex.EncodeToString(sum[:]))
	if err != nil {
		return IngestResult{Path: path, Claimed: true}, err
	}
	if err := s.db.ClearSourceRecords(sourceID); err != nil {
		return IngestResult{Path: path, Claimed: true}, err
	}
	for offset := 0; offset < len(records); offset += s.batchSize() {
		end := offset + s.batchSize()
		if end > len(records) {
			end = len(records)
		}
		if err := s.db.InsertRecords(sourceID, records[offset:end]); err != nil {
			return IngestResult{Path: path, Claimed: true}, err
		}
	}

	s.log.Info("source ingested",
		zap.String("path", path),
		zap.String("kind", string(detect.Kind)),
		zap.Int("records", len(records)),
		zap.Int("warnings", warnings),
		zap.Duration("took", time.Since(start)))

	return IngestResult{Path: path, Claimed: true, Records: len(records), Warnings: warnings}, nil
}

// IngestDir walks a directory non-recursively and ingests every claimed file,
// in name order. Structural errors fail the run only under strict ingest;
// otherwise the file is logged and skipped.
func (s *ProcessingService) IngestDir(dir string) ([]IngestResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []IngestResult
	for _, name := range names {
		res, err := s.IngestFile(filepath.Join(dir, name))
		if err != nil {
			if _, structural := err.(*internal.StructuralError); structural && !s.cfg.StrictIngest {
				s.log.Warn("source skipped", zap.String("path", res.Path), zap.Error(err))
				continue
			}
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// ExportXLSX writes every stored record to one workbook.
func (s *ProcessingService) ExportXLSX(outputPath string) (int, error) {
	records, err := s.db.ListRecords()
	if err != nil {
		return 0, err
	}
	if err := ExportRecordsToXLSX(records, outputPath); err != nil {
		return 0, err
	}
	s.log.Info("records exported",
		zap.String("path", outputPath),
		zap.Int("records", len(records)))
	return len(records), nil
}

func (s *ProcessingService) batchSize() int {
	if s.cfg.StoreBatchSize > 0 {
		return s.cfg.StoreBatchSize
	}
	return 500
}
