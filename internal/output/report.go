package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

var categoryTitles = map[evidence.Category]string{
	evidence.CategoryLiterature:          "Literature",
	evidence.CategorySystematicReviews:   "Systematic Reviews",
	evidence.CategoryGoldStandardReviews: "Gold-Standard Reviews",
	evidence.CategoryGuidelines:          "Guidelines",
	evidence.CategoryClinicalTrials:      "Clinical Trials",
}

// CategoryTitle returns the display name of a category.
func CategoryTitle(c evidence.Category) string {
	if t, ok := categoryTitles[c]; ok {
		return t
	}
	return string(c)
}

// FormatPackage renders an evidence package as markdown.
func FormatPackage(pkg *evidence.Package) string {
	if pkg == nil {
		return "No evidence package.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Evidence for \"%s\"\n\n", pkg.Query)
	fmt.Fprintf(&sb, "**Sufficiency:** %d/100 (%s)\n", pkg.Sufficiency.Score, pkg.Sufficiency.Level)
	if pkg.RequestID != "" {
		fmt.Fprintf(&sb, "**Request:** `%s`\n", pkg.RequestID)
	}
	if len(pkg.Variants) > 1 {
		fmt.Fprintf(&sb, "**Variants:** %s\n", strings.Join(pkg.Variants[1:], "; "))
	}
	sb.WriteString("\n")

	total := 0
	for _, c := range evidence.Categories {
		list := pkg.Collection(c)
		if len(list) == 0 {
			continue
		}
		total += len(list)
		fmt.Fprintf(&sb, "### %s (%d)\n\n", CategoryTitle(c), len(list))
		for i, sr := range list {
			formatRecord(&sb, i+1, sr)
		}
	}
	if total == 0 {
		sb.WriteString("No evidence found.\n\n")
	}

	if len(pkg.Sufficiency.Reasoning) > 0 {
		sb.WriteString("### Assessment\n\n")
		for _, r := range pkg.Sufficiency.Reasoning {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
		sb.WriteString("\n")
	}

	if len(pkg.Conflicts) > 0 {
		sb.WriteString("### Conflicts\n\n")
		for _, c := range pkg.Conflicts {
			fmt.Fprintf(&sb, "- **%s**: %s\n", c.Topic, c.Description)
		}
		sb.WriteString("\n")
	}

	if len(pkg.SourceErrors) > 0 {
		sb.WriteString("### Unavailable Sources\n\n")
		names := make([]string, 0, len(pkg.SourceErrors))
		for name := range pkg.SourceErrors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "- `%s`: %s\n", name, pkg.SourceErrors[name])
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatRecord(sb *strings.Builder, n int, sr evidence.ScoredRecord) {
	r := sr.Record
	if r == nil {
		return
	}
	fmt.Fprintf(sb, "%d. **%s** [%s]", n, r.Title, r.ID)
	if !r.Published.IsZero() {
		fmt.Fprintf(sb, " (%d)", r.Published.Year())
	}
	sb.WriteString("\n")

	var meta []string
	if r.Organization != "" {
		meta = append(meta, r.Organization)
	}
	if len(r.Types) > 0 {
		meta = append(meta, strings.Join(r.Types, ", "))
	}
	meta = append(meta, fmt.Sprintf("score %.4f", sr.Score))
	if len(sr.Sources) > 0 {
		meta = append(meta, "via "+strings.Join(sr.Sources, ", "))
	}
	fmt.Fprintf(sb, "   %s\n", strings.Join(meta, " | "))

	if sr.BestSentence != "" {
		fmt.Fprintf(sb, "   > %s\n", sr.BestSentence)
	}
	if r.URL != "" {
		fmt.Fprintf(sb, "   %s\n", r.URL)
	}
	sb.WriteString("\n")
}

// FormatValidation renders a citation validation result as markdown.
func FormatValidation(res evidence.CitationValidationResult) string {
	var sb strings.Builder
	sb.WriteString("## Citation Check\n\n")
	if res.Total == 0 {
		sb.WriteString("No citations found.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "**Valid:** %d/%d (precision %.2f)\n\n", res.Valid, res.Total, res.Precision)
	if len(res.Invalid) == 0 {
		sb.WriteString("All citations resolve against the evidence corpus.\n")
		return sb.String()
	}

	sb.WriteString("### Unresolved\n\n")
	for _, inv := range res.Invalid {
		fmt.Fprintf(&sb, "- `%s`: %s\n", inv.Citation, inv.Reason)
	}
	return sb.String()
}
