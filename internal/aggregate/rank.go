package aggregate

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/metrics"
	"github.com/Aman-CERP/evidencemcp/internal/search"
)

type recordList = search.NamedList[*evidence.Record]

// rankCategory fuses each source's variant lists, fuses the sources of
// category, reranks when the list is long enough and truncates.
func (a *Aggregator) rankCategory(ctx context.Context, query string, category evidence.Category, f *fetched) []evidence.ScoredRecord {
	var lists []recordList
	for i, src := range f.sources {
		if src.Category != category {
			continue
		}
		perVariant := make([]recordList, len(f.calls[i]))
		for j, c := range f.calls[i] {
			perVariant[j] = recordList{Name: fmt.Sprintf("%s#%d", src.Name, j), Items: c.records}
		}
		merged := search.FuseMultiple(perVariant, evidence.Key, a.opts.RRFConstant)
		lists = append(lists, recordList{Name: src.Name, Items: search.Items(merged)})
	}
	if len(lists) == 0 {
		return []evidence.ScoredRecord{}
	}

	metrics.ObserveFusion(len(lists))
	fused := search.FuseMultiple(lists, evidence.Key, a.opts.RRFConstant)
	scored := a.rerank(ctx, query, category, fused)

	if a.opts.MaxPerCategory > 0 && len(scored) > a.opts.MaxPerCategory {
		scored = scored[:a.opts.MaxPerCategory]
	}
	return scored
}

// rerank applies semantic reranking when enabled and the category holds at
// least its threshold of records. Otherwise the fused order stands.
func (a *Aggregator) rerank(ctx context.Context, query string, category evidence.Category, fused []search.RankedResult[*evidence.Record]) []evidence.ScoredRecord {
	threshold := a.opts.Rerank.Thresholds.For(category)
	if !a.opts.Rerank.Enabled || len(fused) == 0 || len(fused) < threshold {
		metrics.IncRerank(string(category), "skipped")
		return fromFused(fused)
	}

	sources := make(map[string][]string, len(fused))
	for _, r := range fused {
		sources[evidence.Key(r.Item)] = r.Sources
	}
	records := search.Items(fused)
	opts := search.RerankOptions{
		TopK:             a.opts.Rerank.TopK,
		MinSimilarity:    a.opts.Rerank.MinSimilarity,
		SkipIfFewResults: threshold,
		UseCache:         true,
	}
	reranker := a.semanticReranker()
	metrics.IncRerank(string(category), "applied")

	if a.opts.Rerank.SentenceLevel {
		matches := search.RerankRecordsBySentence(ctx, reranker, query, records, opts)
		out := make([]evidence.ScoredRecord, len(matches))
		for i, m := range matches {
			out[i] = evidence.ScoredRecord{
				Record:       m.Record,
				Score:        m.Score,
				Sources:      sources[evidence.Key(m.Record)],
				BestSentence: m.BestSentence,
			}
		}
		return out
	}

	ranked := search.Rerank(ctx, reranker, query, records, recordText, opts)
	out := make([]evidence.ScoredRecord, len(ranked))
	for i, r := range ranked {
		out[i] = evidence.ScoredRecord{Record: r.Item, Score: r.Score, Sources: sources[evidence.Key(r.Item)]}
	}
	return out
}

func fromFused(fused []search.RankedResult[*evidence.Record]) []evidence.ScoredRecord {
	out := make([]evidence.ScoredRecord, len(fused))
	for i, r := range fused {
		out[i] = evidence.ScoredRecord{Record: r.Item, Score: r.Score, Sources: r.Sources}
	}
	return out
}

// recordText is what a record is embedded as for whole-record reranking.
func recordText(r *evidence.Record) string {
	body := strings.TrimSpace(r.Body())
	if body == "" {
		return r.Title
	}
	return r.Title + ". " + body
}
