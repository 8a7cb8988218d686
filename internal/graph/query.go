package graph

import "github.com/codanna-go/codanna/internal/symbol"

// Calls returns the direct callees of id.
func (s *Store) Calls(id symbol.ID) []symbol.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return idsOfKind(s.forward[id], symbol.RelCalls)
}

// Callers returns the direct callers of id.
func (s *Store) Callers(id symbol.ID) []symbol.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return idsOfKind(s.reverse[id], symbol.RelCalls)
}

// Implementations returns the symbols that implement interface/trait id.
func (s *Store) Implementations(id symbol.ID) []symbol.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return idsOfKind(s.reverse[id], symbol.RelImplements)
}

// Dependencies returns the transitive closure of Uses/Imports edges
// reachable from id.
// Traversal is cycle-safe via a visited set, by convention's "cycles in
// call/inheritance graphs ... traversal uses a visited set". id itself is
// never included in the result.
func (s *Store) Dependencies(id symbol.ID) []symbol.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := map[symbol.ID]bool{id: true}
	queue := []symbol.ID{id}
	var out []symbol.ID

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range s.forward[cur] {
			if e.Kind != symbol.RelUses && e.Kind != symbol.RelImports {
				continue
			}
			if visited[e.Other] {
				continue
			}
			visited[e.Other] = true
			out = append(out, e.Other)
			queue = append(queue, e.Other)
		}
	}
	return out
}

// OutgoingRaw returns a copy of the full resolved outgoing edges for id,
// including file/range provenance, for callers that need more than a
// bare symbol id (internal/mcpserver's Calls/Dependencies responses).
func (s *Store) OutgoingRaw(id symbol.ID) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, len(s.forward[id]))
	copy(out, s.forward[id])
	return out
}

// IncomingRaw returns a copy of the full resolved incoming edges for id.
func (s *Store) IncomingRaw(id symbol.ID) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, len(s.reverse[id]))
	copy(out, s.reverse[id])
	return out
}

// Unresolved returns the relationships from id whose target name never
// resolved to a symbol. Dangling references are reported as data, not as errors.
func (s *Store) Unresolved(id symbol.ID) []symbol.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]symbol.Relationship, len(s.unresolved[id]))
	copy(out, s.unresolved[id])
	return out
}

// Stats reports the total resolved edge count and unresolved relationship
// count across the whole graph.
func (s *Store) Stats() (edges, unresolved int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, es := range s.forward {
		edges += len(es)
	}
	for _, us := range s.unresolved {
		unresolved += len(us)
	}
	return edges, unresolved
}

func idsOfKind(edges []Edge, kind symbol.RelationKind) []symbol.ID {
	var out []symbol.ID
	for _, e := range edges {
		if e.Kind == kind {
			out = append(out, e.Other)
		}
	}
	return out
}
