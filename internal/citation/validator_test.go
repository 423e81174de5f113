package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/evidencemcp/internal/chunk"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

func corpus() []evidence.Chunk {
	return chunk.BuildCorpus([]*evidence.Record{
		{ID: "123", Abstract: "Statins lower LDL. They reduce events."},
		{ID: "NCT01234567", Abstract: "A randomized trial."},
		{ID: "10.1000/xyz.1", Abstract: "A DOI-identified article."},
	}, false)
}

func TestValidate_ValidAndInvalid(t *testing.T) {
	// Given: a corpus holding 123
	c := corpus()

	// When: validating text citing 123 and 999
	res := Validate("Statins help [123]. Another claim [999].", c)

	// Then: one valid, one invalid
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Valid)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, "999", res.Invalid[0].ID)
	assert.Equal(t, -1, res.Invalid[0].Index)
	assert.Equal(t, ReasonNotFound, res.Invalid[0].Reason)
	assert.InDelta(t, 0.5, res.Precision, 1e-9)
}

func TestValidate_OnlyValid(t *testing.T) {
	res := Validate("Statins help [123].", corpus())

	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 1, res.Valid)
	assert.Empty(t, res.Invalid)
	assert.Equal(t, 1.0, res.Precision)
}

func TestValidate_NoCitations(t *testing.T) {
	res := Validate("No citations here. See [the guideline] for details.", corpus())

	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 1.0, res.Precision)
	assert.NotNil(t, res.Invalid)
}

func TestValidate_ChunkSpecific(t *testing.T) {
	res := Validate("LDL falls [123:S:0] and events drop [123:S:1] but not [123:S:7].", corpus())

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Valid)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, 7, res.Invalid[0].Index)
	assert.Equal(t, "sentence 7 not found for identifier 123", res.Invalid[0].Reason)
}

func TestValidate_GroupsPrefixesAndDuplicates(t *testing.T) {
	text := "Evidence [PMID: 123; NCT01234567, doi:10.1000/xyz.1]. Repeated [123] [pmid:123]."

	res := Validate(text, corpus())

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Valid)
	assert.Equal(t, 1.0, res.Precision)
}

func TestValidate_TitleOnlyRecord(t *testing.T) {
	// Given: a corpus built from a record without an abstract
	c := chunk.BuildCorpus([]*evidence.Record{{ID: "456", Title: "Aspirin cohort"}}, false)

	// When: citing it by id and by its first sentence
	res := Validate("Cohort data agree [456] and [456:S:0].", c)

	// Then: both resolve
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Valid)
	assert.Empty(t, res.Invalid)
}

func TestValidate_EmptyCorpus(t *testing.T) {
	res := Validate("Claim [123].", nil)

	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 0, res.Valid)
	assert.Equal(t, 0.0, res.Precision)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Marker
	}{
		{"single", "[123]", []Marker{{Raw: "123", ID: "123", Index: -1}}},
		{"prose ignored", "[see above] [note]", nil},
		{"chunk", "[W2741809807:S:3]", []Marker{{Raw: "W2741809807:S:3", ID: "W2741809807", Index: 3}}},
		{"prefixed", "[PMID: 42]", []Marker{{Raw: "PMID: 42", ID: "42", Index: -1}}},
		{"case-insensitive duplicates", "[nct1] [NCT1]", []Marker{{Raw: "nct1", ID: "nct1", Index: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}
