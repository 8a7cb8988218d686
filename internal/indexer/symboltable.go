package indexer

import (
	"sync"

	"github.com/codanna-go/codanna/internal/symbol"
)

// SymbolTable is a workspace-wide, concurrency-safe view of known
// symbols. It implements lang.SymbolLookup so per-file ResolutionContexts
// can resolve cross-file references (imports, calls into other files),
// and it doubles as the prior-generation snapshot the pipeline diffs
// FileDeltas against.
type SymbolTable struct {
	mu           sync.RWMutex
	byName       map[string][]symbol.ID
	byModulePath map[string]symbol.ID
	byFile       map[symbol.FileID][]symbol.Symbol
	fingerprints map[symbol.Fingerprint]symbol.ID
	files        map[string]FileRecord
}

// NewSymbolTable creates an empty table — the starting point for a
// from-scratch index.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName:       make(map[string][]symbol.ID),
		byModulePath: make(map[string]symbol.ID),
		byFile:       make(map[symbol.FileID][]symbol.Symbol),
		fingerprints: make(map[symbol.Fingerprint]symbol.ID),
		files:        make(map[string]FileRecord),
	}
}

// LookupByName implements lang.SymbolLookup.
func (t *SymbolTable) LookupByName(name string) []symbol.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]symbol.ID(nil), t.byName[name]...)
}

// LookupByModulePath implements lang.SymbolLookup.
func (t *SymbolTable) LookupByModulePath(qualified string) (symbol.ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byModulePath[qualified]
	return id, ok
}

// FileByPath returns the previously recorded FileRecord for path, used
// to decide whether a file's content actually changed.
func (t *SymbolTable) FileByPath(path string) (FileRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fr, ok := t.files[path]
	return fr, ok
}

// SymbolsForFile returns the previous generation's symbols for fileID,
// used as the "old" side of fingerprint diffing.
func (t *SymbolTable) SymbolsForFile(fileID symbol.FileID) []symbol.Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]symbol.Symbol(nil), t.byFile[fileID]...)
}

// FingerprintOwner returns the SymbolId previously assigned to
// fingerprint fp, if any — the mechanism that keeps SymbolIds stable
// across a whitespace-only or doc-comment-only edit.
func (t *SymbolTable) FingerprintOwner(fp symbol.Fingerprint) (symbol.ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.fingerprints[fp]
	return id, ok
}

// AllNames returns every interned name with at least one symbol,
// unordered. FindSymbol's fuzzy fallback scores a query against this list
// once the exact LookupByName misses.
func (t *SymbolTable) AllNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	return names
}

// HighestSymbolID returns the largest SymbolId the table has recorded
// across every file, or 0 for an empty table. A resumed process seeds
// its symbol.Counter from this value (via symbol.NewCounterFrom) so ids
// for genuinely new symbols never collide with ones loaded from disk.
func (t *SymbolTable) HighestSymbolID() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var max uint32
	for _, syms := range t.byFile {
		for _, s := range syms {
			if uint32(s.ID) > max {
				max = uint32(s.ID)
			}
		}
	}
	return max
}

// Commit folds one file's delta into the table after the coordinator has
// durably published it: the prior generation's view
// of that file is replaced with d's Added+Modified+Unchanged symbols,
// resolving names, module paths, and fingerprints through interner so
// later runs can diff against them and cross-file references can
// resolve. Unchanged symbols carry no text/vector work but still need
// to survive this replacement, or the next generation's diff would see
// them as Removed. Callers drive this once per FileDelta immediately
// after coordinator.Commit succeeds for the batch containing it.
func (t *SymbolTable) Commit(interner *symbol.Interner, d FileDelta) {
	all := append(append(append([]symbol.Symbol{}, d.Added...), d.Modified...), d.Unchanged...)
	names := make(map[symbol.ID]string, len(all))
	modulePaths := make(map[symbol.ID]string, len(all))
	fingerprints := make(map[symbol.ID]symbol.Fingerprint, len(all))
	for _, s := range all {
		name, _ := interner.Resolve(s.Name)
		sig, _ := interner.Resolve(s.Signature)
		modulePath, _ := interner.Resolve(s.ModulePath)
		names[s.ID] = name
		modulePaths[s.ID] = modulePath
		fingerprints[s.ID] = symbol.ComputeFingerprint(name, s.Kind, normalizeSignature(sig), modulePath)
	}
	t.commit(d.File.ID, d.File, all, names, modulePaths, fingerprints)
}

// commit folds one file's symbols into the table. SymbolTable stores no
// string data itself, only ids, so callers resolve names/module paths
// through the shared interner and pass the results in.
func (t *SymbolTable) commit(fileID symbol.FileID, fr FileRecord, syms []symbol.Symbol, names map[symbol.ID]string, modulePaths map[symbol.ID]string, fingerprints map[symbol.ID]symbol.Fingerprint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.files[fr.Path] = fr
	t.byFile[fileID] = syms

	for _, s := range syms {
		name := names[s.ID]
		if name != "" {
			t.byName[name] = appendUnique(t.byName[name], s.ID)
		}
		if mp := modulePaths[s.ID]; mp != "" {
			t.byModulePath[mp] = s.ID
		}
		if fp, ok := fingerprints[s.ID]; ok {
			t.fingerprints[fp] = s.ID
		}
	}
}

func appendUnique(ids []symbol.ID, id symbol.ID) []symbol.ID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
