package intelligence

import (
	"fmt"
	"strings"

	"github.com/digital-fte/fte/pkg/models"
)

// Complexity factor weights. Weights sum to 1.0.
var complexityWeights = map[string]float64{
	"step_count":            0.25,
	"external_dependencies": 0.20,
	"data_transformation":   0.15,
	"conditional_logic":     0.15,
	"error_handling":        0.15,
	"integration_count":     0.10,
}

// Risk factor weights. Weights sum to 1.0.
var riskWeights = map[string]float64{
	"financial_impact": 0.30,
	"external_comms":   0.25,
	"irreversible":     0.20,
	"data_sensitivity": 0.15,
	"system_access":    0.10,
}

// maxEstimatedSteps caps step estimation.
const maxEstimatedSteps = 20

// generativeVerbs in the intent add estimated steps.
var generativeVerbs = []string{"generate", "create", "build", "analyze"}

// transformWords in the intent raise the data_transformation factor.
var transformWords = []string{"transform", "process", "analyze", "calculate", "aggregate", "generate"}

// conditionalWords in the intent raise the conditional_logic factor.
var conditionalWords = []string{"if ", "when", "unless", "depending", "based on", "only if"}

// irreversibleKeywords mark actions that cannot be undone once taken.
// Plain "send" is deliberately absent: sending a routine message is treated
// as low-stakes, while broadcast and destructive verbs are not.
var irreversibleKeywords = []string{
	"delete", "remove", "post", "publish", "pay",
	"transfer", "drop", "destroy", "cancel",
}

// sensitiveKeywords mark requests that touch credentials or private data.
var sensitiveKeywords = []string{
	"password", "secret", "credential", "token", "key",
	"ssn", "social security", "credit card", "private", "confidential",
}

// broadcastKeywords mark outward-facing communication (public posts and
// social networks). Used for the external_comms factor and the approval
// policy's external-communication predicate.
var broadcastKeywords = []string{"post", "tweet", "publish", "share", "linkedin", "facebook"}

// complexDomains add fixed steps to the estimate.
var complexDomains = map[models.Domain]bool{
	models.DomainCode:       true,
	models.DomainAutomation: true,
	models.DomainERP:        true,
}

// defaultAutoApproveMaxAmount applies when no policy threshold is
// configured.
const defaultAutoApproveMaxAmount = 100

// Scorer computes complexity and risk scores for an analysed request.
// Both methods are pure functions of the analysis plus the injected policy
// rules: no hidden state, fully deterministic.
type Scorer interface {
	ScoreComplexity(analysis models.TaskAnalysis) models.ComplexityScore
	ScoreRisk(analysis models.TaskAnalysis) models.RiskScore
}

type scorer struct {
	policy models.PolicyRules
}

// NewScorer creates a Scorer with the given handbook policy rules.
func NewScorer(policy models.PolicyRules) Scorer {
	if policy.AutoApproveMaxAmount <= 0 {
		policy.AutoApproveMaxAmount = defaultAutoApproveMaxAmount
	}
	return &scorer{policy: policy}
}

// ScoreComplexity computes the weighted complexity score, step estimate,
// and coarse duration bucket for an analysis.
func (s *scorer) ScoreComplexity(analysis models.TaskAnalysis) models.ComplexityScore {
	factors := make(map[string]float64, len(complexityWeights))
	intent := strings.ToLower(analysis.Intent)

	steps := estimateSteps(analysis)
	factors["step_count"] = min(float64(steps)/10, 1.0)

	apiDeps := apiResources(analysis.RequiredResources)
	factors["external_dependencies"] = min(float64(len(apiDeps))/3, 1.0)

	factors["data_transformation"] = 0.2
	if containsAny(intent, transformWords) {
		factors["data_transformation"] = 0.7
	}

	factors["conditional_logic"] = 0.1
	if containsAny(intent, conditionalWords) {
		factors["conditional_logic"] = 0.6
	}

	factors["error_handling"] = min(float64(len(analysis.Ambiguities))/5, 1.0)
	factors["integration_count"] = min(float64(len(analysis.RequiredResources))/5, 1.0)

	overall := weightedSum(factors, complexityWeights)

	return models.ComplexityScore{
		Overall:        overall,
		Factors:        factors,
		Reasoning:      complexityReasoning(factors, steps),
		EstimatedSteps: steps,
		EstimatedTime:  estimateTime(steps, overall),
	}
}

// ScoreRisk computes the weighted risk score and the approval decision.
// Missing analysis fields default to the cautious side: an amount entity
// that failed to parse still carries a nonzero financial floor, because the
// absence of a parsed amount is itself a risk signal.
func (s *scorer) ScoreRisk(analysis models.TaskAnalysis) models.RiskScore {
	factors := make(map[string]float64, len(riskWeights))
	intent := strings.ToLower(analysis.Intent)

	amount, hasAmount := amountOrDefault(analysis)
	factors["financial_impact"] = 0.0
	if hasAmount || analysis.Domain == models.DomainPayment {
		factors["financial_impact"] = moneyRisk(amount)
	}

	external := isExternalCommunication(analysis)
	factors["external_comms"] = 0.2
	if external {
		factors["external_comms"] = 0.8
	}

	irreversible := containsAny(intent, irreversibleKeywords)
	factors["irreversible"] = 0.3
	if irreversible {
		factors["irreversible"] = 0.9
	}

	factors["data_sensitivity"] = 0.1
	if containsAny(intent, sensitiveKeywords) {
		factors["data_sensitivity"] = 0.95
	}

	factors["system_access"] = 0.2
	if hasPrivilegedResource(analysis.RequiredResources) {
		factors["system_access"] = 0.8
	}

	overall := weightedSum(factors, riskWeights)
	requiresApproval := s.requiresApproval(analysis, overall, external)

	return models.RiskScore{
		Overall:          overall,
		Factors:          factors,
		Reasoning:        riskReasoning(factors, requiresApproval),
		Reversible:       !irreversible,
		RequiresApproval: requiresApproval,
	}
}

// requiresApproval evaluates the handbook policy as an OR of five
// independent predicates; any single true predicate forces approval
// regardless of the blended overall score.
func (s *scorer) requiresApproval(analysis models.TaskAnalysis, overall float64, external bool) bool {
	if overall >= 0.7 {
		return true
	}
	if amount, ok := analysis.Entities.Amount(); ok && amount > s.policy.AutoApproveMaxAmount {
		return true
	}
	if external {
		return true
	}
	if containsAny(strings.ToLower(analysis.Intent), []string{"password", "secret", "credential", "private"}) {
		return true
	}
	if hasPrivilegedResource(analysis.RequiredResources) {
		return true
	}
	return false
}

// estimateSteps estimates how many steps the task needs: base 1, one per
// resource and constraint, two extra per external API resource, three for
// inherently complex domains, two for generative verbs. Capped at 20.
func estimateSteps(analysis models.TaskAnalysis) int {
	steps := 1
	steps += len(analysis.RequiredResources)
	steps += len(analysis.Constraints)
	steps += 2 * len(apiResources(analysis.RequiredResources))
	if complexDomains[analysis.Domain] {
		steps += 3
	}
	if containsAny(strings.ToLower(analysis.Intent), generativeVerbs) {
		steps += 2
	}
	return min(steps, maxEstimatedSteps)
}

// estimateTime buckets steps x 30s x (1+complexity) into a coarse label.
func estimateTime(steps int, complexity float64) string {
	seconds := float64(steps) * 30 * (1 + complexity)
	switch {
	case seconds < 60:
		return "< 1 minute"
	case seconds < 180:
		return "1-3 minutes"
	case seconds < 600:
		return "5-10 minutes"
	case seconds < 1800:
		return "10-30 minutes"
	default:
		return "30+ minutes"
	}
}

// moneyRisk bands the financial factor by amount. The nonzero floor for a
// present-but-unparsed amount is intentional.
func moneyRisk(amount float64) float64 {
	switch {
	case amount == 0:
		return 0.3
	case amount < 100:
		return 0.5
	case amount < 500:
		return 0.7
	default:
		return min(0.9+amount/10000, 1.0)
	}
}

// amountOrDefault returns the parsed amount and whether any amount entity
// was present at all.
func amountOrDefault(analysis models.TaskAnalysis) (float64, bool) {
	if analysis.Entities == nil {
		return 0, false
	}
	v, ok := analysis.Entities.Get("amount")
	if !ok {
		return 0, false
	}
	if f, isFloat := v.(float64); isFloat {
		return f, true
	}
	// Present but unparsed: keep the risk floor.
	return 0, true
}

// isExternalCommunication reports whether the request broadcasts outside
// the operator's own accounts (public posts, social networks).
func isExternalCommunication(analysis models.TaskAnalysis) bool {
	return containsAny(strings.ToLower(analysis.Intent), broadcastKeywords)
}

// apiResources filters the resource list down to external API
// dependencies.
func apiResources(resources []string) []string {
	var apis []string
	for _, r := range resources {
		if strings.Contains(strings.ToLower(r), "api") {
			apis = append(apis, r)
		}
	}
	return apis
}

// hasPrivilegedResource reports whether any required resource implies
// admin, root, or system-level access.
func hasPrivilegedResource(resources []string) bool {
	for _, r := range resources {
		if strings.Contains(r, "admin") || strings.Contains(r, "root") || strings.Contains(r, "system") {
			return true
		}
	}
	return false
}

// weightedSum blends factor scores by their weights.
func weightedSum(factors, weights map[string]float64) float64 {
	total := 0.0
	for name, weight := range weights {
		total += factors[name] * weight
	}
	return total
}

// complexityReasoning produces the human-readable explanation lines for a
// complexity score.
func complexityReasoning(factors map[string]float64, steps int) []string {
	var reasoning []string
	switch {
	case steps <= 2:
		reasoning = append(reasoning, fmt.Sprintf("Simple task with only %d step(s)", steps))
	case steps <= 5:
		reasoning = append(reasoning, fmt.Sprintf("Moderate complexity with %d steps", steps))
	default:
		reasoning = append(reasoning, fmt.Sprintf("Complex task requiring %d steps", steps))
	}
	for _, name := range factorOrder(complexityWeights) {
		if factors[name] >= 0.6 {
			reasoning = append(reasoning, fmt.Sprintf("High %s (%.1f)", factorTitle(name), factors[name]))
		}
	}
	return reasoning
}

// riskReasoning produces the human-readable explanation lines for a risk
// score.
func riskReasoning(factors map[string]float64, requiresApproval bool) []string {
	var reasoning []string

	var high []string
	for _, name := range factorOrder(riskWeights) {
		if factors[name] >= 0.7 {
			high = append(high, fmt.Sprintf("%s (%.1f)", factorTitle(name), factors[name]))
		}
	}
	if len(high) > 0 {
		reasoning = append(reasoning, "High risk factors: "+strings.Join(high, ", "))
	} else {
		reasoning = append(reasoning, "Low overall risk")
	}

	if requiresApproval {
		reasoning = append(reasoning, "Requires user approval per company policy")
	}
	if factors["financial_impact"] > 0 {
		reasoning = append(reasoning, "Involves financial transaction")
	}
	if factors["irreversible"] >= 0.7 {
		reasoning = append(reasoning, "Action is irreversible")
	}
	if factors["external_comms"] >= 0.7 {
		reasoning = append(reasoning, "Involves external communication")
	}

	return reasoning
}

// factorOrder returns factor names ordered by descending weight so
// reasoning output is deterministic.
func factorOrder(weights map[string]float64) []string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0; j-- {
			wi, wj := weights[names[j]], weights[names[j-1]]
			if wi > wj || (wi == wj && names[j] < names[j-1]) {
				names[j], names[j-1] = names[j-1], names[j]
			}
		}
	}
	return names
}

// factorTitle converts a factor name like "external_comms" to "External
// Comms" for display.
func factorTitle(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// containsAny reports whether text contains any of the given substrings.
func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
