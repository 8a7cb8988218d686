// Package engine assembles the on-disk index layout and the
// components that read and write it -- internal/indexer,
// internal/coordinator, internal/textindex, internal/vectorindex,
// internal/graph, internal/search -- behind a small set of operations:
// Index, Search, FindSymbol, Calls, Callers, Dependencies. cmd/codanna
// and internal/mcpserver both depend on this package instead of wiring
// those components themselves, so every index operation flows through
// one entry point regardless of which caller drives it.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
	"github.com/hbollon/go-edlib"

	"github.com/codanna-go/codanna/internal/config"
	"github.com/codanna-go/codanna/internal/coordinator"
	"github.com/codanna-go/codanna/internal/embed"
	cerrors "github.com/codanna-go/codanna/internal/errors"
	"github.com/codanna-go/codanna/internal/graph"
	"github.com/codanna-go/codanna/internal/indexer"
	"github.com/codanna-go/codanna/internal/parsing"
	"github.com/codanna-go/codanna/internal/search"
	"github.com/codanna-go/codanna/internal/symbol"
	"github.com/codanna-go/codanna/internal/textindex"
	"github.com/codanna-go/codanna/internal/vectorindex"
)

// Engine owns one open index directory end to end: the symbol table,
// interner, counters, and every durable store a generation is published
// to or read from.
type Engine struct {
	dir  string
	cfg  *config.Config
	meta Meta
	lock *flock.Flock

	interner  *symbol.Interner
	symCtr    *symbol.Counter
	fileIDHWM uint32
	table     *indexer.SymbolTable

	text    *textindex.Writer
	reader  *textindex.Reader
	vectors *vectorindex.Store
	graph   *graph.Store

	coord    *coordinator.Coordinator
	search   *search.Engine
	embedder embed.Embedder
}

// Open loads (or initializes) the index directory at dir according to
// cfg, wiring every component and recovering from any interrupted
// commit.
func Open(ctx context.Context, dir string, cfg *config.Config) (eng *Engine, err error) {
	if err := os.MkdirAll(filepath.Join(dir, "vectors"), 0o755); err != nil {
		return nil, cerrors.IOError(fmt.Sprintf("create index directory %s", dir), err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, cerrors.IOError("acquire index lock", err)
	}
	if !locked {
		return nil, cerrors.InternalError("open index", fmt.Errorf("index at %s is already open by another process", dir))
	}
	// Release the lock if anything below fails; on success it transfers
	// to the returned Engine and is released by Close.
	defer func() {
		if err != nil {
			lock.Unlock()
		}
	}()

	meta, err := loadMeta(filepath.Join(dir, "meta.json"))
	if err != nil {
		return nil, err
	}

	interner, err := symbol.LoadInternerFile(filepath.Join(dir, "interner.bin"))
	if err != nil {
		return nil, cerrors.IOError("load interner.bin", err)
	}

	table, fileHWM, err := indexer.LoadFiles(filepath.Join(dir, "files.bin"), interner)
	if err != nil {
		return nil, cerrors.IOError("load files.bin", err)
	}

	symCtr := symbol.NewCounterFrom(table.HighestSymbolID())

	text, err := textindex.Open(filepath.Join(dir, "text"), interner)
	if err != nil {
		return nil, cerrors.StorageError("open text index", err)
	}
	reader := textindex.NewReader(text.IndexHandle())

	dim := cfg.Vector.Dimension
	if dim <= 0 {
		dim = cfg.Embeddings.Dimensions
	}
	if dim <= 0 {
		dim = 768
	}
	meta.VectorDim = dim

	var vectors *vectorindex.Store
	if cfg.Vector.Enabled {
		vectors, err = vectorindex.Open(vectorindex.Config{
			Dir:                     filepath.Join(dir, "vectors"),
			Dimensions:              dim,
			MinVectorsForClustering: cfg.Vector.ClusterBatchThreshold,
			TopClusters:             cfg.Vector.TopKClusters,
		})
		if err != nil {
			return nil, cerrors.StorageError("open vector index", err)
		}
	}

	graphStore, err := graph.Open(dir)
	if err != nil {
		return nil, cerrors.StorageError("open relationship graph", err)
	}

	var embedder embed.Embedder
	if cfg.Vector.Enabled {
		embedder, err = embed.NewEmbedder(ctx, embed.ParseProvider(cfg.Embeddings.Provider), cfg.Embeddings.Model)
		if err != nil {
			return nil, cerrors.NetworkError("create embedder", err)
		}
	}

	strategy := search.StrategyRRF
	if cfg.Fusion.Strategy == "linear" {
		strategy = search.StrategyLinearBlend
	}
	meta.FusionStrategy = strategy

	var searchEmbedder search.Embedder
	var vectorSearcher search.VectorSearcher
	if embedder != nil {
		searchEmbedder = embedder
	}
	if vectors != nil {
		vectorSearcher = vectors
	}

	searchCfg := search.DefaultConfig()
	searchCfg.Strategy = strategy
	searchCfg.LinearBM25Weight = cfg.Fusion.Weights.BM25
	searchCfg.LinearVecWeight = cfg.Fusion.Weights.Vector
	searchEngine, err := search.New(reader, vectorSearcher, searchEmbedder, searchCfg)
	if err != nil {
		return nil, cerrors.InternalError("create search engine", err)
	}

	var coordGraph coordinator.RelationshipStore
	if graphStore != nil {
		coordGraph = graphStore
	}
	var coordEmbedder coordinator.Embedder
	if embedder != nil {
		coordEmbedder = embedder
	}
	coord := coordinator.New(coordinator.Config{
		IndexDir:                       dir,
		Text:                           text,
		Vectors:                        vectorStoreOrNil(vectors),
		Graph:                          coordGraph,
		Embedder:                       coordEmbedder,
		Interner:                       interner,
		VectorSourceIncludesDocComment: true,
	})
	if err := coord.Recover(ctx); err != nil {
		return nil, cerrors.StorageError("recover interrupted commit", err)
	}

	e := &Engine{
		dir:       dir,
		cfg:       cfg,
		meta:      meta,
		lock:      lock,
		interner:  interner,
		symCtr:    symCtr,
		fileIDHWM: fileHWM,
		table:     table,
		text:      text,
		reader:    reader,
		vectors:   vectors,
		graph:     graphStore,
		coord:     coord,
		search:    searchEngine,
		embedder:  embedder,
	}
	return e, nil
}

// vectorStoreOrNil adapts a possibly-nil *vectorindex.Store to a
// possibly-nil coordinator.VectorStore: passing a typed nil pointer
// directly would produce a non-nil interface, breaking the coordinator's
// "len(appends) > 0" guard semantics when vectors are disabled.
func vectorStoreOrNil(v *vectorindex.Store) coordinator.VectorStore {
	if v == nil {
		return noopVectorStore{}
	}
	return v
}

// noopVectorStore satisfies coordinator.VectorStore when vector.enabled
// is false: every call is a cheap no-op so the coordinator's commit path
// needs no special-casing for the disabled case.
type noopVectorStore struct{}

func (noopVectorStore) StageAppend(context.Context, []coordinator.VectorAppend) error { return nil }
func (noopVectorStore) Tombstone(context.Context, []symbol.ID) error                  { return nil }
func (noopVectorStore) PublishStaged(context.Context) error                          { return nil }
func (noopVectorStore) DiscardStaged(context.Context) error                          { return nil }

// Close persists every in-memory index and releases underlying handles.
func (e *Engine) Close() error {
	if err := e.interner.Save(filepath.Join(e.dir, "interner.bin")); err != nil {
		return cerrors.IOError("save interner.bin", err)
	}
	if err := e.table.SaveFiles(filepath.Join(e.dir, "files.bin"), e.fileIDHWM); err != nil {
		return cerrors.IOError("save files.bin", err)
	}
	if err := saveMeta(filepath.Join(e.dir, "meta.json"), e.meta); err != nil {
		return err
	}
	if err := e.text.Close(); err != nil {
		return cerrors.StorageError("close text index", err)
	}
	if e.vectors != nil {
		if err := e.vectors.Close(); err != nil {
			return cerrors.StorageError("close vector index", err)
		}
	}
	if err := e.lock.Unlock(); err != nil {
		return cerrors.IOError("release index lock", err)
	}
	return nil
}

// Generation returns the last published generation number.
func (e *Engine) Generation() uint64 {
	return e.meta.Generation
}

// Index runs the indexing pipeline over root and commits every produced
// delta.
func (e *Engine) Index(ctx context.Context, root string, opts IndexOptions) (*indexer.Stats, coordinator.Generation, error) {
	pipelineOpts := indexer.Options{
		RootDir:                   root,
		IgnorePatterns:            e.cfg.Workspace.Ignore,
		Workers:                   e.cfg.Performance.IndexWorkers,
		IncludeDocCommentInVector: true,
	}
	if opts.Language != "" {
		pipelineOpts.EnabledLanguages = map[parsing.LanguageID]bool{parsing.LanguageID(opts.Language): true}
	}

	// --force discards the prior generation's view so every
	// file is treated as new regardless of its recorded content hash.
	prior := e.table
	if opts.Force {
		prior = indexer.NewSymbolTable()
	}
	p := indexer.New(prior, e.interner, e.symCtr)
	p.ResumeFileIDs(e.fileIDHWM)

	deltas, stats, err := p.Run(ctx, pipelineOpts)
	if err != nil {
		return stats, coordinator.Generation{}, cerrors.New(cerrors.ErrCodeIndexFailed, fmt.Sprintf("index %s", root), err)
	}
	e.fileIDHWM = p.FileIDHighWater()

	gen, err := e.coord.Commit(ctx, deltas)
	if err != nil {
		return stats, gen, cerrors.Wrap(cerrors.ErrCodeCommitFailed, err)
	}
	for _, d := range deltas {
		e.table.Commit(e.interner, d)
	}
	e.meta.Generation = gen.Number
	return stats, gen, nil
}

// IndexOptions configures one Index call.
type IndexOptions struct {
	Force    bool
	Language string
}

// Search runs a hybrid query.
func (e *Engine) Search(ctx context.Context, query string, k int, filters search.Filters) (search.Result, error) {
	if e.search == nil {
		return search.Result{}, cerrors.ValidationError("search engine not initialized", nil)
	}
	return e.search.Search(ctx, query, k, filters)
}

// FindSymbol resolves name to its symbol(s), falling back to
// Jaro-Winkler fuzzy matching over every known name when there is no
// exact match.
func (e *Engine) FindSymbol(ctx context.Context, name string, kind string, limit int) ([]textindex.Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	ids := e.table.LookupByName(name)
	if len(ids) == 0 {
		ids = e.fuzzyLookup(name, limit)
	}

	hits := make([]textindex.Hit, 0, len(ids))
	for _, id := range ids {
		hit, ok, err := e.reader.ByID(ctx, id)
		if err != nil {
			return nil, cerrors.StorageError("resolve symbol hit", err)
		}
		if !ok {
			continue
		}
		if kind != "" && hit.Kind != kind {
			continue
		}
		hits = append(hits, hit)
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// fuzzyLookup scores every known name against query with Jaro-Winkler
// similarity and returns the ids belonging to the best matches, most
// similar first.
func (e *Engine) fuzzyLookup(query string, limit int) []symbol.ID {
	const threshold = 0.80

	type scored struct {
		name  string
		score float32
	}
	var candidates []scored
	for _, name := range e.table.AllNames() {
		score, err := edlib.StringsSimilarity(query, name, edlib.JaroWinkler)
		if err != nil || score < threshold {
			continue
		}
		candidates = append(candidates, scored{name: name, score: score})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var ids []symbol.ID
	for _, c := range candidates {
		ids = append(ids, e.table.LookupByName(c.name)...)
		if len(ids) >= limit {
			break
		}
	}
	return ids
}

// Calls returns the symbols id calls.
func (e *Engine) Calls(ctx context.Context, id symbol.ID) ([]textindex.Hit, error) {
	return e.materializeAll(ctx, e.graph.Calls(id))
}

// Callers returns the symbols that call id.
func (e *Engine) Callers(ctx context.Context, id symbol.ID) ([]textindex.Hit, error) {
	return e.materializeAll(ctx, e.graph.Callers(id))
}

// Dependencies returns id's transitive uses-closure.
func (e *Engine) Dependencies(ctx context.Context, id symbol.ID) ([]textindex.Hit, error) {
	return e.materializeAll(ctx, e.graph.Dependencies(id))
}

func (e *Engine) materializeAll(ctx context.Context, ids []symbol.ID) ([]textindex.Hit, error) {
	hits := make([]textindex.Hit, 0, len(ids))
	for _, id := range ids {
		hit, ok, err := e.reader.ByID(ctx, id)
		if err != nil {
			return nil, cerrors.StorageError("resolve graph hit", err)
		}
		if ok {
			hits = append(hits, hit)
		}
	}
	return hits, nil
}
