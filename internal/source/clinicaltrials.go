package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// ClinicalTrialsBaseURL is the ClinicalTrials.gov v2 studies endpoint.
const ClinicalTrialsBaseURL = "https://clinicaltrials.gov/api/v2/studies"

// ClinicalTrials queries ClinicalTrials.gov. Filter, when set, is sent as
// filter.overallStatus (e.g. "COMPLETED").
type ClinicalTrials struct {
	Client  *http.Client
	BaseURL string
	Filter  string
	Name    string
}

// Query implements Querier.
func (c *ClinicalTrials) Query(ctx context.Context, text string, limit int) ([]*evidence.Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []*evidence.Record{}, nil
	}

	params := url.Values{
		"query.term": {text},
		"pageSize":   {strconv.Itoa(clampLimit(limit, 20, 1000))},
		"format":     {"json"},
	}
	if c.Filter != "" {
		params.Set("filter.overallStatus", c.Filter)
	}

	base := c.BaseURL
	if base == "" {
		base = ClinicalTrialsBaseURL
	}
	client := c.Client
	if client == nil {
		client = DefaultHTTPClient()
	}

	var resp ctStudiesResponse
	if err := getJSON(ctx, client, c.name(), base+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	records := make([]*evidence.Record, 0, len(resp.Studies))
	for _, s := range resp.Studies {
		if rec := c.toRecord(s); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (c *ClinicalTrials) name() string {
	if c.Name != "" {
		return c.Name
	}
	return "clinicaltrials"
}

func (c *ClinicalTrials) toRecord(s ctStudy) *evidence.Record {
	p := s.ProtocolSection
	id := strings.TrimSpace(p.Identification.NCTID)
	title := firstNonEmpty(p.Identification.BriefTitle, p.Identification.OfficialTitle)
	if id == "" || title == "" {
		return nil
	}

	rec := &evidence.Record{
		ID:           id,
		Title:        title,
		Abstract:     strings.Join(strings.Fields(p.Description.BriefSummary), " "),
		Source:       c.name(),
		Organization: p.Sponsor.LeadSponsor.Name,
		HasResults:   s.HasResults,
		URL:          "https://clinicaltrials.gov/study/" + id,
		Types:        []string{evidence.TypeClinicalTrial},
	}
	if strings.EqualFold(p.Design.DesignInfo.Allocation, "RANDOMIZED") {
		rec.Types = appendType(rec.Types, evidence.TypeRCT)
	}

	date := firstNonEmpty(p.Status.ResultsFirstPostDate.Date, p.Status.CompletionDate.Date, p.Status.StartDate.Date)
	rec.Published = parseDate(date)

	for _, o := range p.ContactsLocations.OverallOfficials {
		if o.Name != "" {
			rec.Authors = append(rec.Authors, o.Name)
		}
	}
	return rec
}

type ctStudiesResponse struct {
	Studies       []ctStudy `json:"studies"`
	NextPageToken string    `json:"nextPageToken"`
}

type ctStudy struct {
	ProtocolSection ctProtocol `json:"protocolSection"`
	HasResults      bool       `json:"hasResults"`
}

type ctDate struct {
	Date string `json:"date"`
}

type ctProtocol struct {
	Identification struct {
		NCTID         string `json:"nctId"`
		BriefTitle    string `json:"briefTitle"`
		OfficialTitle string `json:"officialTitle"`
	} `json:"identificationModule"`
	Status struct {
		StartDate            ctDate `json:"startDateStruct"`
		CompletionDate       ctDate `json:"completionDateStruct"`
		ResultsFirstPostDate ctDate `json:"resultsFirstPostDateStruct"`
	} `json:"statusModule"`
	Sponsor struct {
		LeadSponsor struct {
			Name string `json:"name"`
		} `json:"leadSponsor"`
	} `json:"sponsorCollaboratorsModule"`
	Description struct {
		BriefSummary string `json:"briefSummary"`
	} `json:"descriptionModule"`
	Design struct {
		DesignInfo struct {
			Allocation string `json:"allocation"`
		} `json:"designInfo"`
	} `json:"designModule"`
	ContactsLocations struct {
		OverallOfficials []struct {
			Name string `json:"name"`
		} `json:"overallOfficials"`
	} `json:"contactsLocationsModule"`
}
