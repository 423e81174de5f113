package conflict

import "regexp"

// Polarity is the stance of a recommendation statement.
type Polarity int

const (
	Neutral Polarity = iota
	Positive
	Negative
)

func (p Polarity) String() string {
	switch p {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "neutral"
	}
}

// Marker assigns a polarity to statements matching Pattern.
type Marker struct {
	Pattern  *regexp.Regexp
	Polarity Polarity
}

func marker(expr string, p Polarity) Marker {
	return Marker{Pattern: regexp.MustCompile(`(?i)\b(?:` + expr + `)\b`), Polarity: p}
}

// DefaultMarkers is checked in order and the first match wins, so the
// negations come before the affirmations they contain ("not recommended"
// before "recommended").
var DefaultMarkers = []Marker{
	marker(`not\s+(?:be\s+)?recommended|recommends?\s+against|recommendation\s+against|advises?\s+against`, Negative),
	marker(`should\s+not|must\s+not|do\s+not|does\s+not|did\s+not|cannot\s+be\s+recommended`, Negative),
	marker(`avoid(?:ed)?|discontinue[ds]?|contraindicated|not\s+be\s+used|against\s+the\s+use`, Negative),
	marker(`no\s+(?:significant\s+)?(?:benefit|effect|difference|evidence)|not\s+effective|ineffective|insufficient\s+evidence|harmful|increased\s+harm`, Negative),

	marker(`recommends?|recommended|recommendation\s+for|is\s+indicated|should\s+be\s+(?:offered|used|considered|given)|should\s+receive|offer`, Positive),
	marker(`effective|beneficial|reduce[ds]?|improve[ds]?|significant\s+benefit|supports?|favou?rs?`, Positive),
}

// Topic groups keywords that name the same intervention or subject.
type Topic struct {
	Name     string
	Keywords []string
}

// DefaultTopics is matched in full: a statement carries every topic whose
// keywords it mentions.
var DefaultTopics = []Topic{
	{"aspirin", []string{"aspirin", "acetylsalicylic acid"}},
	{"statins", []string{"statin", "statins", "atorvastatin", "rosuvastatin", "simvastatin", "pravastatin"}},
	{"anticoagulation", []string{"anticoagulant", "anticoagulants", "anticoagulation", "warfarin", "apixaban", "rivaroxaban", "dabigatran"}},
	{"blood pressure", []string{"blood pressure", "antihypertensive", "hypertension"}},
	{"antibiotics", []string{"antibiotic", "antibiotics", "amoxicillin", "antimicrobial"}},
	{"vitamin d", []string{"vitamin d", "cholecalciferol"}},
	{"omega-3", []string{"omega-3", "fish oil"}},
	{"hormone therapy", []string{"hormone therapy", "hormone replacement", "estrogen"}},
	{"metformin", []string{"metformin"}},
	{"insulin", []string{"insulin"}},
	{"opioids", []string{"opioid", "opioids", "morphine", "oxycodone"}},
	{"antidepressants", []string{"antidepressant", "antidepressants", "ssri", "ssris"}},
	{"vaccination", []string{"vaccine", "vaccines", "vaccination", "immunization"}},
	{"screening", []string{"screening", "mammography", "colonoscopy"}},
	{"exercise", []string{"exercise", "physical activity"}},
	{"diet", []string{"diet", "dietary", "sodium restriction"}},
	{"smoking cessation", []string{"smoking cessation", "nicotine replacement", "varenicline"}},
}

// stopWords are never used as fallback topics.
var stopWords = map[string]bool{
	"about": true, "above": true, "adults": true, "after": true, "against": true,
	"among": true, "based": true, "before": true, "being": true, "benefit": true,
	"between": true, "clinical": true, "could": true, "during": true,
	"effect": true, "effective": true, "effects": true, "evidence": true,
	"guideline": true, "guidelines": true, "other": true, "outcomes": true,
	"patient": true, "patients": true, "people": true, "quality": true,
	"recommend": true, "recommendation": true, "recommendations": true,
	"recommended": true, "recommends": true, "reduce": true, "reduced": true,
	"reduces": true, "review": true, "reviews": true, "should": true,
	"studies": true, "study": true, "their": true, "there": true, "these": true,
	"those": true, "treatment": true, "trial": true, "trials": true,
	"under": true, "using": true, "where": true, "which": true, "while": true,
	"would": true, "years": true,
	"avoid": true, "beneficial": true, "considered": true,
	"contraindicated": true, "discontinue": true, "improve": true,
	"improved": true, "improves": true, "ineffective": true,
	"insufficient": true, "offered": true, "significant": true,
	"supports": true,
}
