package source

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// OpenAlexBaseURL is the OpenAlex Works search endpoint.
const OpenAlexBaseURL = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex Works API.
type OpenAlex struct {
	Client  *http.Client
	BaseURL string
	// Filter is passed through as the OpenAlex filter parameter,
	// e.g. "type:review".
	Filter string
	// Mailto opts into the polite pool.
	Mailto string
	// Name is stamped on returned records.
	Name string
}

// Query implements Querier.
func (o *OpenAlex) Query(ctx context.Context, text string, limit int) ([]*evidence.Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []*evidence.Record{}, nil
	}

	params := url.Values{
		"search":   {text},
		"per_page": {strconv.Itoa(clampLimit(limit, 20, 200))},
	}
	if o.Filter != "" {
		params.Set("filter", o.Filter)
	}
	if o.Mailto != "" {
		params.Set("mailto", o.Mailto)
	}

	base := o.BaseURL
	if base == "" {
		base = OpenAlexBaseURL
	}
	client := o.Client
	if client == nil {
		client = DefaultHTTPClient()
	}

	var resp openAlexResponse
	if err := getJSON(ctx, client, o.name(), base+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	records := make([]*evidence.Record, 0, len(resp.Results))
	for _, work := range resp.Results {
		if rec := o.toRecord(work); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (o *OpenAlex) name() string {
	if o.Name != "" {
		return o.Name
	}
	return "openalex"
}

func (o *OpenAlex) toRecord(work openAlexWork) *evidence.Record {
	id := strings.TrimPrefix(work.DOI, "https://doi.org/")
	if id == "" {
		id = strings.TrimPrefix(work.ID, "https://openalex.org/")
	}
	if id == "" || strings.TrimSpace(work.Title) == "" {
		return nil
	}

	rec := &evidence.Record{
		ID:       id,
		Title:    work.Title,
		Abstract: reconstructAbstract(work.AbstractInvertedIndex),
		Source:   o.name(),
		URL:      work.ID,
	}
	if work.DOI != "" {
		rec.URL = work.DOI
	}
	for _, a := range work.Authorships {
		if a.Author.DisplayName != "" {
			rec.Authors = append(rec.Authors, a.Author.DisplayName)
		}
	}
	if work.PublicationDate != "" {
		rec.Published = parseDate(work.PublicationDate)
	} else if work.PublicationYear > 0 {
		rec.Published = parseDate(strconv.Itoa(work.PublicationYear))
	}
	if work.PrimaryLocation.Source.DisplayName != "" {
		rec.Organization = work.PrimaryLocation.Source.DisplayName
	}
	rec.Types = openAlexTypes(work.Type, work.Title)
	return rec
}

// openAlexTypes maps the OpenAlex work type. OpenAlex files systematic
// reviews and trials under review/article, so the title is consulted too.
func openAlexTypes(workType, title string) []string {
	var types []string
	switch strings.ToLower(workType) {
	case "review":
		types = appendType(types, evidence.TypeReview)
	case "article", "":
		types = appendType(types, evidence.TypeArticle)
	default:
		types = appendType(types, strings.ToLower(workType))
	}

	lower := strings.ToLower(title)
	if strings.Contains(lower, "systematic review") {
		types = appendType(types, evidence.TypeSystematicReview)
	}
	if strings.Contains(lower, "meta-analysis") || strings.Contains(lower, "meta analysis") {
		types = appendType(types, evidence.TypeMetaAnalysis)
	}
	if strings.Contains(lower, "randomized controlled trial") || strings.Contains(lower, "randomised controlled trial") {
		types = appendType(types, evidence.TypeRCT)
	}
	if strings.Contains(lower, "guideline") {
		types = appendType(types, evidence.TypeGuideline)
	}
	return types
}

// reconstructAbstract rebuilds plain text from an abstract_inverted_index,
// which maps each word to the positions it occupies.
func reconstructAbstract(inverted map[string][]int) string {
	if len(inverted) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range inverted {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].pos != pairs[j].pos {
			return pairs[i].pos < pairs[j].pos
		}
		return pairs[i].word < pairs[j].word
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string                  `json:"id"`
	DOI                   string                  `json:"doi"`
	Title                 string                  `json:"title"`
	Type                  string                  `json:"type"`
	PublicationDate       string                  `json:"publication_date"`
	PublicationYear       int                     `json:"publication_year"`
	Authorships           []openAlexAuthorship    `json:"authorships"`
	AbstractInvertedIndex map[string][]int        `json:"abstract_inverted_index"`
	PrimaryLocation       openAlexPrimaryLocation `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexPrimaryLocation struct {
	Source struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}
