package rules

import (
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"github.com/rxtech-lab/argo-arbitrage/internal/types"
	"go.uber.org/zap"
)

// Recommendation thresholds.
const (
	executeScoreFloor = 80.0
	rejectScoreFloor  = 60.0
)

// criticalCategories force a reject when any of their rules fail,
// regardless of the overall score.
var criticalCategories = map[Category]bool{
	CategoryRiskReward: true,
	CategoryDailyRisk:  true,
}

// Validator runs the rule battery against a candidate and produces a
// weighted verdict.
type Validator struct {
	rules  []Rule
	logger *logger.Logger
}

// NewValidator creates a Validator with the default rule battery.
func NewValidator(log *logger.Logger) *Validator {
	return NewValidatorWithRules(defaultRules(), log)
}

// NewValidatorWithRules creates a Validator with an explicit rule set.
func NewValidatorWithRules(rules []Rule, log *logger.Logger) *Validator {
	return &Validator{
		rules:  rules,
		logger: log,
	}
}

// Validate runs every rule and derives the verdict. A rule that panics
// counts as failed; validation continues with the remaining rules.
func (v *Validator) Validate(c Candidate, ctx MarketContext) types.RuleVerdict {
	var (
		totalWeight  int
		passedWeight int
		failed       []string
		criticalFail bool
	)

	for _, rule := range v.rules {
		totalWeight += int(rule.Priority)

		if v.run(rule, c, ctx) {
			passedWeight += int(rule.Priority)

			continue
		}

		failed = append(failed, rule.Label())

		if criticalCategories[rule.Category] {
			criticalFail = true
		}
	}

	score := 0.0
	if totalWeight > 0 {
		score = float64(passedWeight) / float64(totalWeight) * 100
	}

	verdict := types.RuleVerdict{
		Passed:         len(failed) == 0,
		FailedRules:    failed,
		Score:          score,
		Recommendation: recommend(score, failed, criticalFail),
	}

	v.logger.Debug("rule validation complete",
		zap.String("opportunity_id", c.Opportunity.ID),
		zap.Float64("score", score),
		zap.Int("failed_rules", len(failed)),
		zap.String("recommendation", string(verdict.Recommendation)),
	)

	return verdict
}

// run evaluates a single rule, converting a panic into a failure.
func (v *Validator) run(rule Rule, c Candidate, ctx MarketContext) (passed bool) {
	defer func() {
		if r := recover(); r != nil {
			passed = false

			v.logger.Warn("rule check panicked, counting as failed",
				zap.String("rule", rule.Label()),
				zap.Any("panic", r),
			)
		}
	}()

	return rule.Check(c, ctx)
}

func recommend(score float64, failed []string, criticalFail bool) types.Recommendation {
	switch {
	case score >= executeScoreFloor && len(failed) == 0:
		return types.RecommendationExecute
	case score < rejectScoreFloor || criticalFail:
		return types.RecommendationReject
	default:
		return types.RecommendationReview
	}
}

// RuleInfo describes one rule for the catalog endpoint.
type RuleInfo struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Priority Priority `json:"priority"`
}

// RulesByCategory returns the battery grouped by category, in battery order.
func (v *Validator) RulesByCategory() map[Category][]RuleInfo {
	grouped := make(map[Category][]RuleInfo)

	for _, rule := range v.rules {
		grouped[rule.Category] = append(grouped[rule.Category], RuleInfo{
			Name:     rule.Name,
			Category: rule.Category,
			Priority: rule.Priority,
		})
	}

	return grouped
}
