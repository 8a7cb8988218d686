package indexer

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/codanna-go/codanna/internal/parsing"
	"github.com/codanna-go/codanna/internal/symbol"
)

// files.bin is a SQLite database rather than a bespoke binary format:
// one row per indexed file, with that file's symbols gob-encoded into a
// blob column. Names/module paths/fingerprints are not stored directly;
// SaveFiles resolves them through the interner at write time and
// LoadFiles re-derives them the same way Commit does, so interner.bin
// and files.bin must always be loaded together. SaveFiles rewrites every
// row on each call; it does not update only the files that changed.
const filesSchema = `
CREATE TABLE IF NOT EXISTS files (
	id           INTEGER PRIMARY KEY,
	path         TEXT NOT NULL,
	content_hash BLOB NOT NULL,
	language_id  TEXT NOT NULL,
	module_path  TEXT NOT NULL,
	degraded     INTEGER NOT NULL,
	symbols      BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

// SaveFiles writes the table's files and symbols to path
// (<index>/files.bin), along with the highest FileId issued so a
// resumed Pipeline can keep allocating fresh ones above it. The whole
// write happens in one transaction so a reader never observes a
// partially-written table.
func (t *SymbolTable) SaveFiles(path string, highWaterFileID uint32) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// SQLite refuses to open cleanly over a file left by some other
	// format; start from scratch so a stale pre-SQLite files.bin can't
	// confuse the driver.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale files.bin: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open files.bin: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(filesSchema); err != nil {
		return fmt.Errorf("create files.bin schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin files.bin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO files (id, path, content_hash, language_id, module_path, degraded, symbols)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare files insert: %w", err)
	}
	defer stmt.Close()

	for _, fr := range t.files {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(t.byFile[fr.ID]); err != nil {
			return fmt.Errorf("encode symbols for %s: %w", fr.Path, err)
		}
		degraded := 0
		if fr.Degraded {
			degraded = 1
		}
		if _, err := stmt.Exec(uint32(fr.ID), fr.Path, fr.ContentHash[:], string(fr.LanguageID), fr.ModulePath, degraded, buf.Bytes()); err != nil {
			return fmt.Errorf("insert file row for %s: %w", fr.Path, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('high_water_id', ?)`, highWaterFileID); err != nil {
		return fmt.Errorf("insert high_water_id: %w", err)
	}

	return tx.Commit()
}

// LoadFiles reads files.bin written by SaveFiles and rebuilds a
// SymbolTable against interner, resolving names/module paths/fingerprints
// the same way Commit does. A missing file returns an empty table and
// highWaterFileID 0 — the first index run in a new directory.
func LoadFiles(path string, interner *symbol.Interner) (table *SymbolTable, highWaterFileID uint32, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return NewSymbolTable(), 0, nil
		}
		return nil, 0, fmt.Errorf("stat files.bin: %w", statErr)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, 0, fmt.Errorf("open files.bin: %w", err)
	}
	defer db.Close()

	table = NewSymbolTable()

	rows, err := db.Query(`SELECT id, path, content_hash, language_id, module_path, degraded, symbols FROM files`)
	if err != nil {
		return nil, 0, fmt.Errorf("query files.bin: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          uint32
			relPath     string
			contentHash []byte
			languageID  string
			modulePath  string
			degraded    int
			symBlob     []byte
		)
		if err := rows.Scan(&id, &relPath, &contentHash, &languageID, &modulePath, &degraded, &symBlob); err != nil {
			return nil, 0, fmt.Errorf("scan file row: %w", err)
		}

		var syms []symbol.Symbol
		if err := gob.NewDecoder(bytes.NewReader(symBlob)).Decode(&syms); err != nil {
			return nil, 0, fmt.Errorf("decode symbols for %s: %w", relPath, err)
		}

		var fr FileRecord
		fr.ID = symbol.FileID(id)
		fr.Path = relPath
		copy(fr.ContentHash[:], contentHash)
		fr.LanguageID = parsing.LanguageID(languageID)
		fr.ModulePath = modulePath
		fr.Degraded = degraded != 0

		table.commitLoaded(interner, fr.ID, fr, syms)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate files.bin rows: %w", err)
	}

	var highWater sql.NullInt64
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'high_water_id'`).Scan(&highWater); err != nil && err != sql.ErrNoRows {
		return nil, 0, fmt.Errorf("read high_water_id: %w", err)
	}
	if highWater.Valid {
		highWaterFileID = uint32(highWater.Int64)
	}

	return table, highWaterFileID, nil
}

// commitLoaded re-derives the name/module-path/fingerprint maps Commit
// would have built live, so a table rebuilt from files.bin behaves
// identically to one built by a continuous run.
func (t *SymbolTable) commitLoaded(interner *symbol.Interner, fileID symbol.FileID, fr FileRecord, syms []symbol.Symbol) {
	names := make(map[symbol.ID]string, len(syms))
	modulePaths := make(map[symbol.ID]string, len(syms))
	fingerprints := make(map[symbol.ID]symbol.Fingerprint, len(syms))
	for _, s := range syms {
		name, _ := interner.Resolve(s.Name)
		sig, _ := interner.Resolve(s.Signature)
		modulePath, _ := interner.Resolve(s.ModulePath)
		names[s.ID] = name
		modulePaths[s.ID] = modulePath
		fingerprints[s.ID] = symbol.ComputeFingerprint(name, s.Kind, normalizeSignature(sig), modulePath)
	}
	t.commit(fileID, fr, syms, names, modulePaths, fingerprints)
}
