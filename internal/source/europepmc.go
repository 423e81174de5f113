package source

import (
	"context"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// EuropePMCBaseURL is the Europe PMC REST search endpoint.
const EuropePMCBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// EuropePMC queries the Europe PMC search API. Filter is ANDed onto the
// query, which is how the guideline and review sources narrow the index
// to one publication type.
type EuropePMC struct {
	Client  *http.Client
	BaseURL string
	Filter  string
	Name    string
}

// Query implements Querier.
func (e *EuropePMC) Query(ctx context.Context, text string, limit int) ([]*evidence.Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []*evidence.Record{}, nil
	}

	q := text
	if e.Filter != "" {
		q = "(" + text + ") AND (" + e.Filter + ")"
	}
	params := url.Values{
		"query":      {q},
		"format":     {"json"},
		"resultType": {"core"},
		"pageSize":   {strconv.Itoa(clampLimit(limit, 25, 1000))},
	}

	base := e.BaseURL
	if base == "" {
		base = EuropePMCBaseURL
	}
	client := e.Client
	if client == nil {
		client = DefaultHTTPClient()
	}

	var resp europePMCResponse
	if err := getJSON(ctx, client, e.name(), base+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	records := make([]*evidence.Record, 0, len(resp.ResultList.Result))
	for _, r := range resp.ResultList.Result {
		if rec := e.toRecord(r); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (e *EuropePMC) name() string {
	if e.Name != "" {
		return e.Name
	}
	return "europepmc"
}

func (e *EuropePMC) toRecord(r europePMCResult) *evidence.Record {
	id := firstNonEmpty(r.PMID, r.PMCID, r.DOI, r.ID)
	title := cleanMarkup(r.Title)
	if id == "" || title == "" {
		return nil
	}

	rec := &evidence.Record{
		ID:           id,
		Title:        title,
		Abstract:     cleanMarkup(r.AbstractText),
		Source:       e.name(),
		Organization: r.JournalInfo.Journal.Title,
		Types:        europePMCTypes(r.PubTypeList.PubType),
	}
	if rec.Organization == "" {
		rec.Organization = r.JournalTitle
	}

	for _, a := range r.AuthorList.Author {
		if a.FullName != "" {
			rec.Authors = append(rec.Authors, a.FullName)
		}
	}
	if len(rec.Authors) == 0 && r.AuthorString != "" {
		for _, a := range strings.Split(strings.TrimSuffix(r.AuthorString, "."), ",") {
			if a = strings.TrimSpace(a); a != "" {
				rec.Authors = append(rec.Authors, a)
			}
		}
	}

	if r.FirstPublicationDate != "" {
		rec.Published = parseDate(r.FirstPublicationDate)
	} else if r.PubYear != "" {
		rec.Published = parseDate(r.PubYear)
	}

	switch {
	case r.PMID != "":
		rec.URL = "https://europepmc.org/article/MED/" + r.PMID
	case r.PMCID != "":
		rec.URL = "https://europepmc.org/article/PMC/" + r.PMCID
	case r.DOI != "":
		rec.URL = "https://doi.org/" + r.DOI
	}
	return rec
}

// europePMCTypes normalizes Europe PMC publication types onto the record
// type tags. Unknown types are kept lowercased.
func europePMCTypes(pubTypes []string) []string {
	types := make([]string, 0, len(pubTypes))
	for _, pt := range pubTypes {
		lower := strings.ToLower(strings.TrimSpace(pt))
		switch {
		case lower == "":
			continue
		case strings.Contains(lower, "systematic review"):
			types = appendType(types, evidence.TypeSystematicReview)
		case strings.Contains(lower, "meta-analysis"):
			types = appendType(types, evidence.TypeMetaAnalysis)
		case strings.Contains(lower, "guideline"):
			types = appendType(types, evidence.TypeGuideline)
		case strings.Contains(lower, "randomized controlled trial"):
			types = appendType(types, evidence.TypeRCT)
		case strings.Contains(lower, "clinical trial"):
			types = appendType(types, evidence.TypeClinicalTrial)
		case lower == "review" || lower == "review-article":
			types = appendType(types, evidence.TypeReview)
		case lower == "journal article" || lower == "research-article":
			types = appendType(types, evidence.TypeArticle)
		default:
			types = appendType(types, lower)
		}
	}
	return types
}

// cleanMarkup strips inline HTML such as <i> and <sup> from titles and
// abstracts.
func cleanMarkup(s string) string {
	s = htmlTag.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type europePMCResponse struct {
	HitCount   int `json:"hitCount"`
	ResultList struct {
		Result []europePMCResult `json:"result"`
	} `json:"resultList"`
}

type europePMCResult struct {
	ID                   string `json:"id"`
	PMID                 string `json:"pmid"`
	PMCID                string `json:"pmcid"`
	DOI                  string `json:"doi"`
	Title                string `json:"title"`
	AbstractText         string `json:"abstractText"`
	AuthorString         string `json:"authorString"`
	JournalTitle         string `json:"journalTitle"`
	PubYear              string `json:"pubYear"`
	FirstPublicationDate string `json:"firstPublicationDate"`
	AuthorList           struct {
		Author []struct {
			FullName string `json:"fullName"`
		} `json:"author"`
	} `json:"authorList"`
	JournalInfo struct {
		Journal struct {
			Title string `json:"title"`
		} `json:"journal"`
	} `json:"journalInfo"`
	PubTypeList struct {
		PubType []string `json:"pubType"`
	} `json:"pubTypeList"`
}
