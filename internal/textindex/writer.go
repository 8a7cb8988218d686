package textindex

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/codanna-go/codanna/internal/coordinator"
	"github.com/codanna-go/codanna/internal/indexer"
	"github.com/codanna-go/codanna/internal/symbol"
)

// Writer implements coordinator.TextWriter against a single bleve.Index.
// It batches AddDocument/DeleteTerm calls and flushes them as one bleve
// batch on Commit, mirroring BleveBM25Index.Index/Delete batching in
// internal/store/bm25.go but keyed by symbol id instead of a
// caller-supplied string id, and carrying the full symbol schema instead
// of a single "content" field.
type Writer struct {
	mu       sync.Mutex
	index    bleve.Index
	interner *symbol.Interner
	batch    *bleve.Batch
}

// Open creates or opens a bleve index at dir. An empty dir creates an
// in-memory index, used by tests.
func Open(dir string, interner *symbol.Interner) (*Writer, error) {
	im, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("build index mapping: %w", err)
	}

	var idx bleve.Index
	if dir == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		idx, err = bleve.Open(dir)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(dir, im)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open text index: %w", err)
	}

	w := &Writer{index: idx, interner: interner}
	w.batch = idx.NewBatch()
	return w, nil
}

func docID(id symbol.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// AddDocument stages sym for indexing. Staged writes are not visible to
// Reader until Commit flushes the batch.
func (w *Writer) AddDocument(_ context.Context, sym symbol.Symbol, file indexer.FileRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	name, _ := w.interner.Resolve(sym.Name)
	doc, _ := w.interner.Resolve(sym.DocComment)
	sig, _ := w.interner.Resolve(sym.Signature)

	d := document{
		Name:       name,
		DocComment: doc,
		Signature:  sig,
		FilePath:   file.Path,
		Language:   string(file.LanguageID),
		SymbolID:   uint64(sym.ID),
		Kind:       sym.Kind.String(),
		ClusterID:  uint64(sym.ClusterID),
	}
	return w.batch.Index(docID(sym.ID), d)
}

// DeleteTerm stages the removal of id's document.
func (w *Writer) DeleteTerm(_ context.Context, id symbol.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batch.Delete(docID(id))
	return nil
}

// Commit flushes the staged batch and returns the resulting opstamp
//. bleve has no native opstamp concept, so this
// tracks it as a local monotonic counter of successful batches, which is
// all the coordinator needs it for (ordering, not replay).
func (w *Writer) Commit(_ context.Context) (coordinator.Opstamp, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.batch.Size() == 0 {
		return 0, nil
	}
	if err := w.index.Batch(w.batch); err != nil {
		return 0, fmt.Errorf("commit text batch: %w", err)
	}
	w.batch = w.index.NewBatch()

	count, err := w.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count after commit: %w", err)
	}
	return coordinator.Opstamp(count), nil
}

var _ coordinator.TextWriter = (*Writer)(nil)

// IndexHandle returns the underlying bleve.Index so a Reader can be
// built against the same live index a Writer is committing to.
func (w *Writer) IndexHandle() bleve.Index {
	return w.index
}

// Close releases the underlying bleve index.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index.Close()
}
