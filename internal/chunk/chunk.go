package chunk

import (
	"slices"
	"strconv"
	"strings"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

const idSeparator = ":S:"

// CreateChunks returns one chunk per sentence of the record body, numbered
// from 0. With context, Before and After hold the neighbouring sentences.
// A record with a title but no body yields a single title chunk so it can
// still be cited.
func CreateChunks(record *evidence.Record, withContext bool) []evidence.Chunk {
	if record == nil {
		return nil
	}
	sentences := SplitSentences(record.Body())
	if len(sentences) == 0 {
		title := strings.TrimSpace(record.Title)
		if title == "" {
			return nil
		}
		sentences = []string{title}
	}

	citation := evidence.Citation{
		ID:        record.ID,
		Title:     record.Title,
		Authors:   slices.Clone(record.Authors),
		Source:    record.Source,
		Published: record.Published,
	}

	chunks := make([]evidence.Chunk, len(sentences))
	for i, s := range sentences {
		c := evidence.Chunk{
			ID:       evidence.ChunkID(record.ID, i),
			SourceID: record.ID,
			Index:    i,
			Text:     s,
			Citation: citation,
		}
		if withContext {
			if i > 0 {
				c.Before = sentences[i-1]
			}
			if i < len(sentences)-1 {
				c.After = sentences[i+1]
			}
		}
		chunks[i] = c
	}
	return chunks
}

// BuildCorpus chunks every record once, in order. Records sharing an
// identity key contribute only their first occurrence.
func BuildCorpus(records []*evidence.Record, withContext bool) []evidence.Chunk {
	corpus := []evidence.Chunk{}
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if r == nil || r.ID == "" {
			continue
		}
		key := evidence.Key(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		corpus = append(corpus, CreateChunks(r, withContext)...)
	}
	return corpus
}

// Reconstruct joins chunk texts in index order with single spaces.
// The input slice is not modified.
func Reconstruct(chunks []evidence.Chunk) string {
	sorted := slices.Clone(chunks)
	slices.SortStableFunc(sorted, func(a, b evidence.Chunk) int {
		return a.Index - b.Index
	})

	texts := make([]string, len(sorted))
	for i, c := range sorted {
		texts[i] = c.Text
	}
	return strings.Join(texts, " ")
}

// ParseID splits a chunk ID into its source ID and sentence index.
func ParseID(id string) (sourceID string, index int, ok bool) {
	pos := strings.LastIndex(id, idSeparator)
	if pos <= 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(id[pos+len(idSeparator):])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return id[:pos], index, true
}
