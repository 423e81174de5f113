package search

// SynonymEntry maps a clinical term to alternative phrasings. Matching is
// whole-word and case-insensitive.
type SynonymEntry struct {
	Term     string
	Synonyms []string
}

// MedicalSynonyms bridges lay and clinical vocabulary. Order matters:
// variants are generated in table order and the variant cap keeps the
// earliest ones.
var MedicalSynonyms = []SynonymEntry{
	// Cardiovascular
	{Term: "heart attack", Synonyms: []string{"myocardial infarction"}},
	{Term: "myocardial infarction", Synonyms: []string{"heart attack"}},
	{Term: "high blood pressure", Synonyms: []string{"hypertension"}},
	{Term: "hypertension", Synonyms: []string{"high blood pressure"}},
	{Term: "stroke", Synonyms: []string{"cerebrovascular accident"}},
	{Term: "heart failure", Synonyms: []string{"cardiac failure"}},
	{Term: "afib", Synonyms: []string{"atrial fibrillation"}},
	{Term: "atrial fibrillation", Synonyms: []string{"AF"}},
	{Term: "high cholesterol", Synonyms: []string{"hypercholesterolemia", "dyslipidemia"}},
	{Term: "blood thinner", Synonyms: []string{"anticoagulant"}},
	{Term: "blood thinners", Synonyms: []string{"anticoagulants"}},

	// Drugs
	{Term: "statin", Synonyms: []string{"HMG-CoA reductase inhibitor"}},
	{Term: "statins", Synonyms: []string{"HMG-CoA reductase inhibitors"}},
	{Term: "aspirin", Synonyms: []string{"acetylsalicylic acid"}},
	{Term: "tylenol", Synonyms: []string{"paracetamol", "acetaminophen"}},
	{Term: "acetaminophen", Synonyms: []string{"paracetamol"}},
	{Term: "paracetamol", Synonyms: []string{"acetaminophen"}},
	{Term: "antibiotics", Synonyms: []string{"antibacterial agents"}},

	// Metabolic and renal
	{Term: "diabetes", Synonyms: []string{"diabetes mellitus"}},
	{Term: "type 2 diabetes", Synonyms: []string{"T2DM"}},
	{Term: "obesity", Synonyms: []string{"overweight"}},
	{Term: "kidney disease", Synonyms: []string{"renal disease"}},
	{Term: "kidney failure", Synonyms: []string{"renal failure"}},

	// Respiratory and infectious
	{Term: "copd", Synonyms: []string{"chronic obstructive pulmonary disease"}},
	{Term: "flu", Synonyms: []string{"influenza"}},
	{Term: "covid", Synonyms: []string{"COVID-19", "SARS-CoV-2"}},
	{Term: "covid-19", Synonyms: []string{"SARS-CoV-2"}},
	{Term: "pneumonia", Synonyms: []string{"lower respiratory tract infection"}},

	// Oncology
	{Term: "cancer", Synonyms: []string{"neoplasm", "malignancy"}},
	{Term: "breast cancer", Synonyms: []string{"breast neoplasm"}},

	// Mental health and neurology
	{Term: "depression", Synonyms: []string{"major depressive disorder"}},
	{Term: "anxiety", Synonyms: []string{"anxiety disorder"}},
	{Term: "dementia", Synonyms: []string{"cognitive impairment"}},
	{Term: "migraine", Synonyms: []string{"headache disorder"}},

	// Outcomes
	{Term: "death", Synonyms: []string{"mortality"}},
	{Term: "mortality", Synonyms: []string{"death"}},
	{Term: "side effects", Synonyms: []string{"adverse events"}},
}
