package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// Set is the built source list plus the resources it owns.
type Set struct {
	Sources []Source
	corpora map[string]*LocalCorpus
}

// Close releases local corpus indexes.
func (s *Set) Close() error {
	var firstErr error
	for _, c := range s.corpora {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build creates a Source for every enabled entry in cfg. Local sources
// pointing at the same file share one index. A nil client means
// DefaultHTTPClient.
func Build(ctx context.Context, cfg *config.Config, client *http.Client, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = DefaultHTTPClient()
	}

	set := &Set{corpora: make(map[string]*LocalCorpus)}
	for _, sc := range cfg.EnabledSources() {
		category, err := evidence.ParseCategory(sc.Category)
		if err != nil {
			_ = set.Close()
			return nil, errors.ConfigError(fmt.Sprintf("source %s", sc.Name), err)
		}

		q, err := set.querier(ctx, sc, client, logger)
		if err != nil {
			_ = set.Close()
			return nil, err
		}

		set.Sources = append(set.Sources, Source{
			Name:     sc.Name,
			Category: category,
			Expand:   sc.Expand,
			Timeout:  config.Duration(sc.Timeout, 0),
			Querier:  q,
		})
		logger.Debug("source_registered",
			slog.String("source", sc.Name),
			slog.String("kind", sc.Kind),
			slog.String("category", string(category)))
	}
	return set, nil
}

func (s *Set) querier(ctx context.Context, sc config.SourceConfig, client *http.Client, logger *slog.Logger) (Querier, error) {
	switch sc.Kind {
	case config.KindOpenAlex:
		return &OpenAlex{Client: client, BaseURL: sc.BaseURL, Filter: sc.Filter, Name: sc.Name}, nil
	case config.KindEuropePMC:
		return &EuropePMC{Client: client, BaseURL: sc.BaseURL, Filter: sc.Filter, Name: sc.Name}, nil
	case config.KindClinicalTrials:
		return &ClinicalTrials{Client: client, BaseURL: sc.BaseURL, Filter: sc.Filter, Name: sc.Name}, nil
	case config.KindLocal:
		corpus, ok := s.corpora[sc.Path]
		if !ok {
			start := time.Now()
			var err error
			corpus, err = LoadCorpus(ctx, sc.Name, sc.Path)
			if err != nil {
				return nil, err
			}
			s.corpora[sc.Path] = corpus
			logger.Info("corpus_loaded",
				slog.String("source", sc.Name),
				slog.String("path", sc.Path),
				slog.Int("records", corpus.Len()),
				slog.Int("skipped", corpus.Skipped()),
				slog.Duration("elapsed", time.Since(start)))
		}
		return corpus.WithTypeFilter(sc.Filter), nil
	default:
		return nil, errors.ConfigError(fmt.Sprintf("source %s: unknown kind %q", sc.Name, sc.Kind), nil)
	}
}
