package coordinator

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codanna-go/codanna/internal/symbol"
)

// undoRecord is the crash-recovery record written before Phase 2 begins
//. It names exactly what was staged so Recover can
// roll it back without needing to inspect the staged bytes themselves.
type undoRecord struct {
	Segments       []uint32
	StagedSymbols  []symbol.ID
	TombstonedIDs  []symbol.ID
}

// undoLog persists undoRecord to a single file under the index
// directory, using a write-temp-then-rename pattern for atomicity: a reader
// either sees the complete previous record or the complete new one, never a
// partial write.
type undoLog struct {
	path string
}

func newUndoLog(indexDir string) *undoLog {
	return &undoLog{path: filepath.Join(indexDir, "undo.log")}
}

// Write records rec as the currently in-flight commit. Called once per
// commit, after Phase 1 staging and before Phase 2 begins.
func (u *undoLog) Write(rec undoRecord) error {
	tmp := u.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create undo log: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(rec); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode undo log: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsync undo log: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close undo log: %w", err)
	}
	return os.Rename(tmp, u.path)
}

// Truncate removes the undo log once a commit completes successfully
//. A missing file is not an error — Truncate is
// idempotent so repeated calls (or a call with nothing staged) are safe.
func (u *undoLog) Truncate() error {
	if err := os.Remove(u.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("truncate undo log: %w", err)
	}
	return nil
}

// Read returns the pending record and true if a prior run crashed
// mid-commit. A missing file means the
// last generation committed cleanly.
func (u *undoLog) Read() (undoRecord, bool, error) {
	f, err := os.Open(u.path)
	if err != nil {
		if os.IsNotExist(err) {
			return undoRecord{}, false, nil
		}
		return undoRecord{}, false, fmt.Errorf("open undo log: %w", err)
	}
	defer f.Close()

	var rec undoRecord
	if err := gob.NewDecoder(f).Decode(&rec); err != nil {
		// A corrupt undo log means the crash happened mid-write of the
		// log itself; treat it the same as "nothing committed" since the
		// underlying staged bytes are, at worst, orphaned and will be
		// garbage-collected at the next segment merge.
		return undoRecord{}, false, nil
	}
	return rec, true, nil
}
