package indexer

import (
	"context"
	"crypto/sha256"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/codanna-go/codanna/internal/lang"
	"github.com/codanna-go/codanna/internal/parsing"
	"github.com/codanna-go/codanna/internal/scanner"
	"github.com/codanna-go/codanna/internal/symbol"
)

// Options configures one indexing run.
type Options struct {
	RootDir string
	// EnabledLanguages restricts indexing to this set; empty means all
	// registered languages.
	EnabledLanguages map[parsing.LanguageID]bool
	// IgnorePatterns are workspace.ignore glob patterns,
	// matched with doublestar in addition to .gitignore rules.
	IgnorePatterns []string
	Workers        int
	// IncludeDocCommentInVector controls whether doc comments feed the
	// embedding source text. Pipeline does not read it and FileDelta
	// does not carry it; the coordinator takes this setting from its own
	// Config.
	IncludeDocCommentInVector bool
}

// Pipeline drives the per-file walk -> hash -> parse -> resolve ->
// delta sequence. One Pipeline is built per indexing run; it
// creates a fresh parser for each file (tree-sitter parsers are not safe
// for concurrent use) and shares a lock-free-reserving symbol id counter.
type Pipeline struct {
	parseRegistry *parsing.Registry
	langRegistry  *lang.Registry
	interner      *symbol.Interner
	counter       *symbol.Counter
	fileIDs       atomic.Uint32
	prior         *SymbolTable
}

// New creates a Pipeline. prior is the workspace-wide symbol table from
// the last committed generation (pass NewSymbolTable() for a fresh
// index); interner and counter are typically resumed from persisted
// state via symbol.NewCounterFrom so ids stay stable across restarts.
func New(prior *SymbolTable, interner *symbol.Interner, counter *symbol.Counter) *Pipeline {
	return &Pipeline{
		parseRegistry: parsing.NewRegistry(),
		langRegistry:  lang.NewRegistry(),
		interner:      interner,
		counter:       counter,
		prior:         prior,
	}
}

// ResumeFileIDs seeds the file id counter from a previously persisted
// high-water mark (files.bin), so a restarted process keeps assigning
// fresh FileIDs above every id already on disk instead of reusing them.
func (p *Pipeline) ResumeFileIDs(highWater uint32) {
	p.fileIDs.Store(highWater)
}

// FileIDHighWater returns the largest FileID this Pipeline has handed
// out, for persisting alongside files.bin after a run completes.
func (p *Pipeline) FileIDHighWater() uint32 {
	return p.fileIDs.Load()
}

// Run walks opts.RootDir and produces one FileDelta per changed file.
// Unchanged files (content-hash match) are skipped by convention step 2.
func (p *Pipeline) Run(ctx context.Context, opts Options) ([]FileDelta, *Stats, error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, nil, err
	}

	scanOpts := &scanner.ScanOptions{
		RootDir:          opts.RootDir,
		ExcludePatterns:  opts.IgnorePatterns,
		RespectGitignore: true,
		Workers:          opts.Workers,
	}
	results, err := sc.Scan(ctx, scanOpts)
	if err != nil {
		return nil, nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	var (
		mu     sync.Mutex
		deltas []FileDelta
		stats  Stats
	)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)

	for res := range results {
		res := res
		if res.Error != nil {
			mu.Lock()
			stats.Errors = append(stats.Errors, FileError{Path: "", Err: res.Error})
			mu.Unlock()
			continue
		}
		stats.FilesWalked++

		langID, ok := p.languageFor(res.File.Path, opts.EnabledLanguages)
		if !ok {
			stats.FilesSkipped++
			continue
		}

		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()

			delta, changed, ferr := p.processFile(gctx, res.File.AbsPath, res.File.Path, langID)
			mu.Lock()
			defer mu.Unlock()
			if ferr != nil {
				stats.Errors = append(stats.Errors, FileError{Path: res.File.Path, Err: ferr})
				return nil // per-file errors are non-fatal
			}
			if !changed {
				stats.FilesUnchanged++
				return nil
			}
			stats.FilesIndexed++
			stats.SymbolsTotal += len(delta.Added) + len(delta.Modified)
			deltas = append(deltas, delta)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &stats, err
	}
	return deltas, &stats, nil
}

func (p *Pipeline) languageFor(path string, enabled map[parsing.LanguageID]bool) (parsing.LanguageID, bool) {
	ext := extOf(path)
	langID, ok := p.parseRegistry.ByExtension(ext)
	if !ok {
		return "", false
	}
	if len(enabled) > 0 && !enabled[langID] {
		return "", false
	}
	return langID, true
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}

// processFile hashes, parses, resolves, and diffs one file. Returns
// changed=false when the content hash matches the prior generation's
// record (no work done).
func (p *Pipeline) processFile(ctx context.Context, absPath, relPath string, langID parsing.LanguageID) (FileDelta, bool, error) {
	hash, source, err := hashFile(absPath)
	if err != nil {
		return FileDelta{}, false, err
	}

	prior, hadPrior := p.prior.FileByPath(relPath)
	if hadPrior && prior.ContentHash == hash {
		return FileDelta{}, false, nil
	}

	// A known file keeps its FileID across generations; only genuinely new files get a fresh one.
	fileID := prior.ID
	if !hadPrior {
		fileID = symbol.FileID(p.fileIDs.Add(1))
	}

	behavior, ok := p.langRegistry.For(langID)
	if !ok {
		return FileDelta{}, false, nil
	}
	modulePath := behavior.FilePathToModulePath(relPath)

	parser := parsing.NewParser(p.parseRegistry)
	defer parser.Close()

	tree, perr := parser.ParseSource(ctx, relPath, source, langID)
	degraded := p.parseRegistry.Degraded(langID)
	if perr != nil && !degraded {
		// A syntax error still yields a best-effort tree in most cases;
		// only bail out entirely when there is no tree to extract from.
		if tree == nil {
			return FileDelta{}, false, perr
		}
	}
	if degraded && tree == nil {
		tree = &parsing.Tree{Source: source, Language: string(langID)}
	}

	extractor, ok := parsing.ExtractorFor(langID)
	if !ok {
		return FileDelta{}, false, nil
	}

	reservation, err := p.counter.Reserve()
	if err != nil {
		return FileDelta{}, false, err
	}

	syms, err := extractor.Parse(tree, fileID, reservation, p.interner)
	if err != nil {
		return FileDelta{}, false, err
	}

	for i := range syms {
		syms[i].ModulePath, _ = p.interner.Intern(modulePath)
	}

	imports := extractor.FindImports(tree, fileID)

	rc := lang.NewResolutionContext(behavior, p.prior)
	for _, s := range syms {
		name, _ := p.interner.Resolve(s.Name)
		rc.AddSymbol(name, s.ID, -1)
	}
	for _, imp := range imports {
		rc.AddImport(lang.ImportBinding{LocalName: imp.Alias, ImportedPath: imp.Path, Origin: fileID, IsGlob: imp.IsGlob})
	}

	relationships := p.resolveRelationships(rc, extractor, tree, syms, fileID)

	delta := p.buildDelta(relPath, fileID, hash, langID, degraded, syms, relationships, imports)
	return delta, true, nil
}

func (p *Pipeline) resolveRelationships(rc *lang.ResolutionContext, ex parsing.Extractor, tree *parsing.Tree, syms []symbol.Symbol, fileID symbol.FileID) []symbol.Relationship {
	nameByID := map[string]symbol.ID{}
	for _, s := range syms {
		n, _ := p.interner.Resolve(s.Name)
		nameByID[n] = s.ID
	}
	lookup := func(name string) symbol.ID {
		if id, ok := nameByID[name]; ok {
			return id
		}
		return symbol.NoSymbol
	}

	var out []symbol.Relationship
	for _, c := range ex.FindCalls(tree) {
		out = append(out, rc.ResolveRelationship(lookup(c.Caller), c.Callee, symbol.RelCalls, fileID, c.Range))
	}
	for _, impl := range ex.FindImplementations(tree) {
		out = append(out, rc.ResolveRelationship(lookup(impl.Implementer), impl.Interface, symbol.RelImplements, fileID, impl.Range))
	}
	for _, u := range ex.FindUses(tree) {
		out = append(out, rc.ResolveRelationship(lookup(u.User), u.Used, symbol.RelUses, fileID, u.Range))
	}
	for _, d := range ex.FindDefines(tree) {
		out = append(out, rc.ResolveRelationship(lookup(d.Container), d.Defined, symbol.RelDefines, fileID, d.Range))
	}
	return out
}

// symbolIdentity is name+kind+module_path, without the signature: two
// symbols sharing an identity are "the same symbol" across generations
// even when their signature changed, which is what separates a genuine
// edit (Modified) from a symbol that simply no longer exists (Removed).
type symbolIdentity struct {
	name       string
	kind       symbol.Kind
	modulePath string
}

// buildDelta diffs newly-extracted symbols against the prior
// generation's symbols for this file. A symbol whose full fingerprint
// (identity plus normalized signature) matches a prior symbol exactly
// is untouched: it reuses the prior SymbolId and lands only in
// Unchanged, not in Added or Modified, so a whitespace-only or
// comment-only edit writes nothing downstream. A symbol whose identity
// matches but fingerprint differs is a genuine edit: it reuses the
// prior SymbolId and lands in Modified so the text/vector records get
// re-staged. An identity with no prior match is Added; a prior
// identity with no match in the new set is Removed.
func (p *Pipeline) buildDelta(relPath string, fileID symbol.FileID, hash ContentHash, langID parsing.LanguageID, degraded bool, syms []symbol.Symbol, rels []symbol.Relationship, imports []symbol.Import) FileDelta {
	prevSyms := p.prior.SymbolsForFile(fileID)
	prevByFingerprint := map[symbol.Fingerprint]symbol.Symbol{}
	prevByIdentity := map[symbolIdentity]symbol.Symbol{}
	for _, s := range prevSyms {
		name, _ := p.interner.Resolve(s.Name)
		sig, _ := p.interner.Resolve(s.Signature)
		modulePath, _ := p.interner.Resolve(s.ModulePath)
		fp := symbol.ComputeFingerprint(name, s.Kind, normalizeSignature(sig), modulePath)
		prevByFingerprint[fp] = s
		prevByIdentity[symbolIdentity{name: name, kind: s.Kind, modulePath: modulePath}] = s
	}

	seenIdentity := map[symbolIdentity]bool{}
	var added, modified, unchanged []symbol.Symbol
	for i, s := range syms {
		name, _ := p.interner.Resolve(s.Name)
		sig, _ := p.interner.Resolve(s.Signature)
		modulePath, _ := p.interner.Resolve(s.ModulePath)
		fp := symbol.ComputeFingerprint(name, s.Kind, normalizeSignature(sig), modulePath)
		identity := symbolIdentity{name: name, kind: s.Kind, modulePath: modulePath}
		seenIdentity[identity] = true

		if prev, ok := prevByFingerprint[fp]; ok {
			syms[i].ID = prev.ID // stable id reuse, nothing changed
			unchanged = append(unchanged, syms[i])
			continue
		}
		if prev, ok := prevByIdentity[identity]; ok {
			syms[i].ID = prev.ID // stable id reuse, signature changed
			modified = append(modified, syms[i])
			continue
		}
		added = append(added, s)
	}

	var removed []symbol.ID
	for identity, prev := range prevByIdentity {
		if !seenIdentity[identity] {
			removed = append(removed, prev.ID)
		}
	}

	return FileDelta{
		File: FileRecord{
			ID:          fileID,
			Path:        relPath,
			ContentHash: hash,
			LanguageID:  langID,
			Degraded:    degraded,
		},
		Added:         added,
		Modified:      modified,
		Unchanged:     unchanged,
		Removed:       removed,
		Relationships: rels,
		Imports:       imports,
	}
}

func normalizeSignature(sig string) string {
	fields := strings.Fields(sig)
	return strings.Join(fields, " ")
}

func hashFile(path string) (ContentHash, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return ContentHash{}, nil, err
	}
	defer f.Close()

	h := sha256.New()
	source, err := io.ReadAll(io.TeeReader(f, h))
	if err != nil {
		return ContentHash{}, nil, err
	}

	var hash ContentHash
	copy(hash[:], h.Sum(nil))
	return hash, source, nil
}
