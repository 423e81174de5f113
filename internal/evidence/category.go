package evidence

import "fmt"

// Category is a class of evidence. Every source feeds exactly one category.
type Category string

const (
	CategoryLiterature          Category = "literature"
	CategorySystematicReviews   Category = "systematic_reviews"
	CategoryGoldStandardReviews Category = "gold_standard_reviews"
	CategoryGuidelines          Category = "guidelines"
	CategoryClinicalTrials      Category = "clinical_trials"
)

// Categories lists every category in package order.
var Categories = []Category{
	CategoryLiterature,
	CategorySystematicReviews,
	CategoryGoldStandardReviews,
	CategoryGuidelines,
	CategoryClinicalTrials,
}

// ParseCategory validates a category name from configuration.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown evidence category %q", s)
}
