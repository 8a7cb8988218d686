// Package graph persists the relationship graph extracted by
// internal/indexer and answers the traversal operations — Calls, Callers,
// Dependencies — plus the Implements lookup used for interface matching.
// It keeps the same "edges keyed by SymbolId, traversal via a visited
// set" shape standardbeagle-lci's graph_propagator.go uses for label
// propagation, scaled down to plain reachability queries.
//
// Store plugs into internal/coordinator's two-phase commit the same way
// internal/textindex.Writer and internal/vectorindex.Store do: relationships
// are staged with a generation's symbols and only become visible to
// queries once PublishStaged runs.
package graph

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/codanna-go/codanna/internal/symbol"
)

// Edge is one directed, resolved relationship, stored without its From
// endpoint since that is the map key it lives under.
type Edge struct {
	Other  symbol.ID
	Kind   symbol.RelationKind
	FileID symbol.FileID
	Range  symbol.Range
}

// Store is an in-memory relationship graph with a flat-file persistence
// layer. Reads are lock-free-adjacent (RWMutex, reads dominate), the same
// shared-resource policy the interner uses.
type Store struct {
	mu   sync.RWMutex
	path string // empty disables persistence; used by tests

	forward map[symbol.ID][]Edge // From -> outgoing edges
	reverse map[symbol.ID][]Edge // To -> incoming edges

	// unresolved holds relationships whose target name never resolved to
	// a SymbolId.
	// Keyed by From so a later generation that defines the missing symbol
	// could in principle re-resolve them; this store does not attempt
	// that itself.
	unresolved map[symbol.ID][]symbol.Relationship

	stagedRels    []symbol.Relationship
	stagedRemoved []symbol.ID
}

type persistedGraph struct {
	Forward    map[symbol.ID][]Edge
	Unresolved map[symbol.ID][]symbol.Relationship
}

// Open loads a persisted graph from <dir>/graph.bin, or starts empty if
// the file does not exist yet. dir == "" keeps the store in-memory only.
func Open(dir string) (*Store, error) {
	s := &Store{
		forward:    make(map[symbol.ID][]Edge),
		reverse:    make(map[symbol.ID][]Edge),
		unresolved: make(map[symbol.ID][]symbol.Relationship),
	}
	if dir == "" {
		return s, nil
	}
	s.path = filepath.Join(dir, "graph.bin")

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("open relationship graph: %w", err)
	}
	defer f.Close()

	var persisted persistedGraph
	if err := gob.NewDecoder(f).Decode(&persisted); err != nil {
		return nil, fmt.Errorf("decode relationship graph: %w", err)
	}
	s.adopt(persisted)
	return s, nil
}

func (s *Store) adopt(p persistedGraph) {
	if p.Forward != nil {
		s.forward = p.Forward
	}
	if p.Unresolved != nil {
		s.unresolved = p.Unresolved
	}
	s.reverse = make(map[symbol.ID][]Edge, len(s.forward))
	for from, edges := range s.forward {
		for _, e := range edges {
			s.reverse[e.Other] = append(s.reverse[e.Other], Edge{Other: from, Kind: e.Kind, FileID: e.FileID, Range: e.Range})
		}
	}
}

// StageRelationships buffers rels and removed for the next PublishStaged
// call. removed names symbols dropped by this
// generation (indexer.FileDelta.Removed); any edge touching one of them
// is pruned at publish time.
func (s *Store) StageRelationships(_ context.Context, rels []symbol.Relationship, removed []symbol.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stagedRels = append(s.stagedRels, rels...)
	s.stagedRemoved = append(s.stagedRemoved, removed...)
	return nil
}

// PublishStaged merges staged relationships into the graph, prunes edges
// touching removed symbols, and persists the result.
func (s *Store) PublishStaged(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stagedRemoved) > 0 {
		removed := make(map[symbol.ID]bool, len(s.stagedRemoved))
		for _, id := range s.stagedRemoved {
			removed[id] = true
		}
		s.pruneLocked(removed)
	}

	for _, r := range s.stagedRels {
		s.addLocked(r)
	}

	s.stagedRels = nil
	s.stagedRemoved = nil

	return s.persistLocked()
}

// DiscardStaged drops buffered relationships without touching the
// published graph.
func (s *Store) DiscardStaged(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stagedRels = nil
	s.stagedRemoved = nil
	return nil
}

func (s *Store) addLocked(r symbol.Relationship) {
	if !r.Resolved() {
		s.unresolved[r.From] = append(s.unresolved[r.From], r)
		return
	}
	s.forward[r.From] = append(s.forward[r.From], Edge{Other: r.To, Kind: r.Kind, FileID: r.FileID, Range: r.Range})
	s.reverse[r.To] = append(s.reverse[r.To], Edge{Other: r.From, Kind: r.Kind, FileID: r.FileID, Range: r.Range})
}

func (s *Store) pruneLocked(removed map[symbol.ID]bool) {
	for from, edges := range s.forward {
		if removed[from] {
			delete(s.forward, from)
			continue
		}
		s.forward[from] = pruneEdges(edges, removed)
	}
	for to, edges := range s.reverse {
		if removed[to] {
			delete(s.reverse, to)
			continue
		}
		s.reverse[to] = pruneEdges(edges, removed)
	}
	for from := range s.unresolved {
		if removed[from] {
			delete(s.unresolved, from)
		}
	}
}

func pruneEdges(edges []Edge, removed map[symbol.ID]bool) []Edge {
	kept := edges[:0]
	for _, e := range edges {
		if !removed[e.Other] {
			kept = append(kept, e)
		}
	}
	return kept
}

// persistLocked rewrites graph.bin using the write-temp-then-rename
// pattern internal/coordinator's undo log also uses, so a reader never
// observes a partial file.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create relationship graph: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(persistedGraph{Forward: s.forward, Unresolved: s.unresolved}); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode relationship graph: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsync relationship graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close relationship graph: %w", err)
	}
	return os.Rename(tmp, s.path)
}
