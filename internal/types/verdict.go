package types

// Recommendation is the action suggested by the rule validator.
type Recommendation string

const (
	RecommendationExecute Recommendation = "execute"
	RecommendationReview  Recommendation = "review"
	RecommendationReject  Recommendation = "reject"
)

// RuleVerdict is the outcome of running the full rule battery against a
// candidate opportunity. It is derived state: attached transiently to an
// opportunity for observability, never stored long-term.
type RuleVerdict struct {
	Passed bool `json:"passed" yaml:"passed"`
	// FailedRules lists "Category: Name" for every failed rule.
	FailedRules []string `json:"failed_rules" yaml:"failed_rules"`
	// Score is the priority-weighted share of passed rules, 0..100.
	Score          float64        `json:"score" yaml:"score"`
	Recommendation Recommendation `json:"recommendation" yaml:"recommendation"`
}
