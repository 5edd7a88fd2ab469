package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"battdb/internal"
)

// schemaVersion is stamped into the metadata table on every Open so a later
// migration can tell what layout an existing database carries.
const schemaVersion = "1"

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := db.SetMetadata("schemaVersion", schemaVersion); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

// SchemaVersion reads the layout version stamped by Open.
func (d *DB) SchemaVersion() (string, error) {
	v, err := d.GetMetadata("schemaVersion")
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS sources (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL,
  kind TEXT NOT NULL,
  hash TEXT NOT NULL,
  recordCount INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(path)
);

CREATE TABLE IF NOT EXISTS battery_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sourceId INTEGER NOT NULL,
  materialName TEXT,
  extractedName TEXT,
  formulaHill TEXT,
  elementsJson TEXT NOT NULL,
  capacityRawValue REAL,
  capacityRawUnit TEXT,
  capacityValue REAL,
  capacityUnit TEXT NOT NULL,
  voltageRawValue REAL,
  voltageRawUnit TEXT,
  voltageValue REAL,
  voltageUnit TEXT NOT NULL,
  coulombicEfficiencyRawValue REAL,
  coulombicEfficiencyRawUnit TEXT,
  coulombicEfficiencyValue REAL,
  coulombicEfficiencyUnit TEXT NOT NULL,
  energyDensityRawValue REAL,
  energyDensityRawUnit TEXT,
  energyDensityValue REAL,
  energyDensityUnit TEXT NOT NULL,
  conductivityRawValue REAL,
  conductivityRawUnit TEXT,
  conductivityValue REAL,
  conductivityUnit TEXT NOT NULL,
  specifier TEXT,
  tag TEXT,
  info TEXT,
  materialType TEXT,
  correctness TEXT,
  warningText TEXT,
  doisJson TEXT NOT NULL,
  title TEXT,
  journal TEXT,
  year TEXT,
  availableProperties TEXT NOT NULL,
  warningsJson TEXT NOT NULL,
  extrasJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(sourceId) REFERENCES sources(id)
);
CREATE INDEX IF NOT EXISTS idx_battery_records_sourceId ON battery_records(sourceId);
CREATE INDEX IF NOT EXISTS idx_battery_records_materialName ON battery_records(materialName);
CREATE INDEX IF NOT EXISTS idx_battery_records_formulaHill ON battery_records(formulaHill);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// UpsertSource registers a source file and returns its row id. Re-ingesting
// the same path replaces its previous records.
func (d *DB) UpsertSource(path string, kind internal.SourceKind, hash string) (int64, error) {
	_, err := d.conn.Exec(`
INSERT INTO sources (path, kind, hash) VALUES (?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
  kind=excluded.kind,
  hash=excluded.hash,
  updatedAt=CURRENT_TIMESTAMP
`, path, string(kind), hash)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := d.conn.QueryRow(`SELECT id FROM sources WHERE path = ?`, path).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (d *DB) ClearSourceRecords(sourceID int64) error {
	_, err := d.conn.Exec(`DELETE FROM battery_records WHERE sourceId = ?`, sourceID)
	return err
}

func (d *DB) InsertRecords(sourceID int64, records []internal.BatteryRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO battery_records (
  sourceId, materialName, extractedName, formulaHill, elementsJson,
  capacityRawValue, capacityRawUnit, capacityValue, capacityUnit,
  voltageRawValue, voltageRawUnit, voltageValue, voltageUnit,
  coulombicEfficiencyRawValue, coulombicEfficiencyRawUnit, coulombicEfficiencyValue, coulombicEfficiencyUnit,
  energyDensityRawValue, energyDensityRawUnit, energyDensityValue, energyDensityUnit,
  conductivityRawValue, conductivityRawUnit, conductivityValue, conductivityUnit,
  specifier, tag, info, materialType, correctness, warningText,
  doisJson, title, journal, year, availableProperties, warningsJson, extrasJson
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		elementsJSON, _ := json.Marshal(rec.Elements)
		doisJSON, _ := json.Marshal(rec.Reference.DOIs)
		warningsJSON, _ := json.Marshal(rec.Warnings)
		extrasJSON, _ := json.Marshal(rec.Extra)

		if _, err := stmt.Exec(
			sourceID, rec.MaterialName, rec.ExtractedName, rec.FormulaHill, string(elementsJSON),
			rec.Capacity.RawValue, rec.Capacity.RawUnit, rec.Capacity.Value, rec.Capacity.Unit,
			rec.Voltage.RawValue, rec.Voltage.RawUnit, rec.Voltage.Value, rec.Voltage.Unit,
			rec.CoulombicEfficiency.RawValue, rec.CoulombicEfficiency.RawUnit, rec.CoulombicEfficiency.Value, rec.CoulombicEfficiency.Unit,
			rec.EnergyDensity.RawValue, rec.EnergyDensity.RawUnit, rec.EnergyDensity.Value, rec.EnergyDensity.Unit,
			rec.Conductivity.RawValue, rec.Conductivity.RawUnit, rec.Conductivity.Value, rec.Conductivity.Unit,
			rec.Specifier, rec.Tag, rec.Info, rec.MaterialType, rec.Correctness, rec.WarningText,
			string(doisJSON), rec.Reference.Title, rec.Reference.Journal, rec.Reference.Year,
			rec.AvailableProperties, string(warningsJSON), string(extrasJSON),
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
UPDATE sources SET recordCount = (SELECT COUNT(*) FROM battery_records WHERE sourceId = ?), updatedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, sourceID, sourceID); err != nil {
		return err
	}

	return tx.Commit()
}

const recordColumns = `
  materialName, extractedName, formulaHill, elementsJson,
  capacityRawValue, capacityRawUnit, capacityValue, capacityUnit,
  voltageRawValue, voltageRawUnit, voltageValue, voltageUnit,
  coulombicEfficiencyRawValue, coulombicEfficiencyRawUnit, coulombicEfficiencyValue, coulombicEfficiencyUnit,
  energyDensityRawValue, energyDensityRawUnit, energyDensityValue, energyDensityUnit,
  conductivityRawValue, conductivityRawUnit, conductivityValue, conductivityUnit,
  specifier, tag, info, materialType, correctness, warningText,
  doisJson, title, journal, year, availableProperties, warningsJson, extrasJson
`

func (d *DB) ListRecords() ([]internal.BatteryRecord, error) {
	rows, err := d.conn.Query(`SELECT` + recordColumns + `FROM battery_records ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.BatteryRecord
	for rows.Next() {
		var rec internal.BatteryRecord
		var elementsJSON, doisJSON, warningsJSON, extrasJSON string
		if err := rows.Scan(
			&rec.MaterialName, &rec.ExtractedName, &rec.FormulaHill, &elementsJSON,
			&rec.Capacity.RawValue, &rec.Capacity.RawUnit, &rec.Capacity.Value, &rec.Capacity.Unit,
			&rec.Voltage.RawValue, &rec.Voltage.RawUnit, &rec.Voltage.Value, &rec.Voltage.Unit,
			&rec.CoulombicEfficiency.RawValue, &rec.CoulombicEfficiency.RawUnit, &rec.CoulombicEfficiency.Value, &rec.CoulombicEfficiency.Unit,
			&rec.EnergyDensity.RawValue, &rec.EnergyDensity.RawUnit, &rec.EnergyDensity.Value, &rec.EnergyDensity.Unit,
			&rec.Conductivity.RawValue, &rec.Conductivity.RawUnit, &rec.Conductivity.Value, &rec.Conductivity.Unit,
			&rec.Specifier, &rec.Tag, &rec.Info, &rec.MaterialType, &rec.Correctness, &rec.WarningText,
			&doisJSON, &rec.Reference.Title, &rec.Reference.Journal, &rec.Reference.Year,
			&rec.AvailableProperties, &warningsJSON, &extrasJSON,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(elementsJSON), &rec.Elements)
		_ = json.Unmarshal([]byte(doisJSON), &rec.Reference.DOIs)
		_ = json.Unmarshal([]byte(warningsJSON), &rec.Warnings)
		_ = json.Unmarshal([]byte(extrasJSON), &rec.Extra)
		out = append(out, rec)
	}

	return out, rows.Err()
}

func (d *DB) CountRecords() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM battery_records`).Scan(&n)
	return n, err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
