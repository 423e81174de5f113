package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// titleBoost weights title matches over body matches.
const titleBoost = 2.0

// RecordIndex is an in-memory BM25 index over evidence records.
type RecordIndex struct {
	mu      sync.RWMutex
	index   bleve.Index
	records map[string]*evidence.Record
	closed  bool
}

// recordDocument is the document structure for bleve indexing.
type recordDocument struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// BM25Hit is one scored match.
type BM25Hit struct {
	Record *evidence.Record
	Score  float64
}

// NewRecordIndex creates an empty memory-only index using English
// analysis (stop words and stemming).
func NewRecordIndex() (*RecordIndex, error) {
	idx, err := bleve.NewMemOnly(newRecordMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &RecordIndex{
		index:   idx,
		records: make(map[string]*evidence.Record),
	}, nil
}

func newRecordMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName
	return indexMapping
}

// Index adds records. Records with an existing ID replace the old entry.
func (r *RecordIndex) Index(ctx context.Context, records []*evidence.Record) error {
	if len(records) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("index is closed")
	}

	batch := r.index.NewBatch()
	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := recordDocument{Title: rec.Title, Body: rec.Abstract + " " + rec.Recommendation}
		if err := batch.Index(rec.ID, doc); err != nil {
			return fmt.Errorf("failed to index record %s: %w", rec.ID, err)
		}
		r.records[rec.ID] = rec
	}

	if err := r.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search returns up to limit records matching query, best first.
func (r *RecordIndex) Search(ctx context.Context, query string, limit int) ([]BM25Hit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []BM25Hit{}, nil
	}

	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	titleQuery.SetBoost(titleBoost)

	bodyQuery := bleve.NewMatchQuery(query)
	bodyQuery.SetField("body")

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(titleQuery, bodyQuery))
	req.Size = limit

	result, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]BM25Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		rec, ok := r.records[hit.ID]
		if !ok {
			continue
		}
		hits = append(hits, BM25Hit{Record: rec, Score: hit.Score})
	}
	return hits, nil
}

// Len returns the number of indexed records.
func (r *RecordIndex) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Close closes the index.
func (r *RecordIndex) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.index.Close()
}
