package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/store"
)

// corpusFile is the on-disk layout of a local corpus.
type corpusFile struct {
	Records []evidence.Record `yaml:"records"`
}

// LocalCorpus serves records from a YAML file through an in-memory BM25
// index. It needs no network and backs the offline mode.
type LocalCorpus struct {
	name    string
	index   *store.RecordIndex
	skipped int
}

// LoadCorpus reads and indexes the corpus at path. Records without an ID or
// title are skipped and counted.
func LoadCorpus(ctx context.Context, name, path string) (*LocalCorpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, fmt.Sprintf("corpus %s not found", path), err).
				WithSuggestion("Check the path of the local source or EVIDENCEMCP_LOCAL_CORPUS")
		}
		return nil, errors.New(errors.ErrCodeCorpusInvalid, fmt.Sprintf("reading corpus %s", path), err)
	}

	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.New(errors.ErrCodeCorpusInvalid, fmt.Sprintf("parsing corpus %s", path), err)
	}

	records := make([]*evidence.Record, 0, len(file.Records))
	for i := range file.Records {
		records = append(records, &file.Records[i])
	}
	return NewLocalCorpus(ctx, name, records)
}

// NewLocalCorpus indexes records in memory. Records are copied; a missing
// Source is filled with name.
func NewLocalCorpus(ctx context.Context, name string, records []*evidence.Record) (*LocalCorpus, error) {
	idx, err := store.NewRecordIndex()
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreFailed, "creating corpus index", err)
	}

	c := &LocalCorpus{name: name, index: idx}
	valid := make([]*evidence.Record, 0, len(records))
	for _, r := range records {
		if r == nil || strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Title) == "" {
			c.skipped++
			continue
		}
		rec := *r
		if rec.Source == "" {
			rec.Source = name
		}
		valid = append(valid, &rec)
	}

	if err := idx.Index(ctx, valid); err != nil {
		_ = idx.Close()
		return nil, errors.New(errors.ErrCodeStoreFailed, "indexing corpus", err)
	}
	return c, nil
}

// Query implements Querier with BM25 ranking.
func (c *LocalCorpus) Query(ctx context.Context, text string, limit int) ([]*evidence.Record, error) {
	return c.search(ctx, text, limit, "")
}

// WithTypeFilter returns a querier that only yields records carrying tag.
func (c *LocalCorpus) WithTypeFilter(tag string) Querier {
	if tag == "" {
		return c
	}
	return QuerierFunc(func(ctx context.Context, text string, limit int) ([]*evidence.Record, error) {
		return c.search(ctx, text, limit, tag)
	})
}

func (c *LocalCorpus) search(ctx context.Context, text string, limit int, tag string) ([]*evidence.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	searchLimit := limit
	if tag != "" {
		searchLimit = c.index.Len()
	}

	hits, err := c.index.Search(ctx, text, searchLimit)
	if err != nil {
		return nil, errors.SourceError(c.name, err)
	}

	records := make([]*evidence.Record, 0, min(limit, len(hits)))
	for _, h := range hits {
		if tag != "" && !h.Record.HasType(tag) {
			continue
		}
		records = append(records, h.Record)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

// Len returns the number of indexed records.
func (c *LocalCorpus) Len() int { return c.index.Len() }

// Skipped returns how many records were rejected at load time.
func (c *LocalCorpus) Skipped() int { return c.skipped }

// Close releases the index.
func (c *LocalCorpus) Close() error { return c.index.Close() }
