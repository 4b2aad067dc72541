package models

// BusinessCategory is the fixed set of business types a profile can declare.
type BusinessCategory string

const (
	CategoryRestaurant  BusinessCategory = "restaurant"
	CategoryDelivery    BusinessCategory = "delivery"
	CategoryCafe        BusinessCategory = "cafe"
	CategoryMarketplace BusinessCategory = "marketplace"
	CategoryService     BusinessCategory = "service"
	CategoryHotel       BusinessCategory = "hotel"
	CategoryOther       BusinessCategory = "other"
)

// categoryLabels maps categories to the human wording used inside prompts.
var categoryLabels = map[BusinessCategory]string{
	CategoryRestaurant:  "restaurant",
	CategoryDelivery:    "delivery service",
	CategoryCafe:        "cafe",
	CategoryMarketplace: "marketplace seller",
	CategoryService:     "service company",
	CategoryHotel:       "hotel",
	CategoryOther:       "business",
}

// Label returns the prompt wording for the category, falling back to "business".
func (c BusinessCategory) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return "business"
}

// Valid reports whether the category is one of the known values.
func (c BusinessCategory) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ToneSettings are three independent 0-100 sliders. Each is interpreted
// into its own instruction fragment; there is no cross-field invariant.
type ToneSettings struct {
	Formality int `json:"formality"` // 0 casual .. 100 formal
	Empathy   int `json:"empathy"`   // 0 reserved .. 100 warm
	Brevity   int `json:"brevity"`   // 0 verbose .. 100 terse
}

// RuleSet gates what a generated reply is allowed to contain. A reply that
// violates a false rule is a correctness defect, not a style issue.
type RuleSet struct {
	CanApologize         bool `json:"canApologize"`
	CanOfferPromo        bool `json:"canOfferPromo"`
	CanOfferCompensation bool `json:"canOfferCompensation"`
	CanOfferCallback     bool `json:"canOfferCallback"`
}

// BusinessProfile describes the business a review was left for. It is
// immutable for the duration of one generation call and owned by the caller.
type BusinessProfile struct {
	ID            string           `json:"id,omitempty"`
	Name          string           `json:"name"`
	Category      BusinessCategory `json:"category"`
	Description   string           `json:"description,omitempty"`
	Specialties   string           `json:"specialties,omitempty"`
	KnownIssues   []string         `json:"knownIssues,omitempty"`
	Strengths     []string         `json:"strengths,omitempty"`
	Tone          ToneSettings     `json:"tone"`
	Rules         RuleSet          `json:"rules"`
	OwnerRules    string           `json:"ownerRules,omitempty"`
	OwnerEmail    string           `json:"ownerEmail,omitempty"`
	NotifyByEmail bool             `json:"notifyByEmail,omitempty"`
}
