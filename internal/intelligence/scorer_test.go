package intelligence

import (
	"strings"
	"testing"

	"github.com/digital-fte/fte/pkg/models"
)

func TestMoneyRisk_Banding(t *testing.T) {
	tests := []struct {
		amount float64
		want   float64
	}{
		{0, 0.3},
		{50, 0.5},
		{99.99, 0.5},
		{100, 0.7},
		{499, 0.7},
		{500, 0.95},
		{750, 0.975},
		{1000, 1.0},
		{50000, 1.0},
	}

	for _, tt := range tests {
		if got := moneyRisk(tt.amount); got != tt.want {
			t.Errorf("moneyRisk(%v) = %v, want %v", tt.amount, got, tt.want)
		}
	}
}

func TestEstimateTime_Buckets(t *testing.T) {
	tests := []struct {
		steps      int
		complexity float64
		want       string
	}{
		{1, 0.0, "< 1 minute"},
		{4, 0.23, "1-3 minutes"},
		{10, 0.5, "5-10 minutes"},
		{20, 1.0, "10-30 minutes"},
		{40, 1.0, "30+ minutes"},
	}

	for _, tt := range tests {
		if got := estimateTime(tt.steps, tt.complexity); got != tt.want {
			t.Errorf("estimateTime(%d, %v) = %q, want %q", tt.steps, tt.complexity, got, tt.want)
		}
	}
}

func TestEstimateSteps(t *testing.T) {
	tests := []struct {
		name     string
		analysis models.TaskAnalysis
		want     int
	}{
		{
			name:     "bare task",
			analysis: models.TaskAnalysis{Intent: "Water the plants.", Domain: models.DomainGeneral},
			want:     1,
		},
		{
			name: "email with one api resource",
			analysis: models.TaskAnalysis{
				Intent:            "Send email to john@x.com saying thanks.",
				Domain:            models.DomainEmail,
				RequiredResources: []string{"gmail_api"},
			},
			want: 4,
		},
		{
			name: "generative verb in complex domain",
			analysis: models.TaskAnalysis{
				Intent: "Build a script to clean the exports.",
				Domain: models.DomainCode,
			},
			want: 6,
		},
		{
			name: "cap at twenty",
			analysis: models.TaskAnalysis{
				Intent: "Generate everything.",
				Domain: models.DomainERP,
				RequiredResources: []string{
					"a_api", "b_api", "c_api", "d_api", "e_api", "f_api", "g_api",
				},
				Constraints: []string{"c1", "c2", "c3"},
			},
			want: maxEstimatedSteps,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimateSteps(tt.analysis); got != tt.want {
				t.Errorf("estimateSteps = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreComplexity_RoutineEmail(t *testing.T) {
	scorer := NewScorer(models.PolicyRules{})
	analysis := NewAnalyzerAt(fixedClock).Analyze("Send email to john@x.com saying thanks")

	score := scorer.ScoreComplexity(analysis)

	if score.EstimatedSteps != 4 {
		t.Errorf("expected 4 steps, got %d", score.EstimatedSteps)
	}
	if score.Overall >= 0.3 {
		t.Errorf("expected complexity below 0.3, got %v", score.Overall)
	}
	if score.EstimatedTime != "1-3 minutes" {
		t.Errorf("expected 1-3 minutes, got %q", score.EstimatedTime)
	}
	if len(score.Reasoning) == 0 || score.Reasoning[0] != "Moderate complexity with 4 steps" {
		t.Errorf("unexpected reasoning: %v", score.Reasoning)
	}
}

func TestScoreRisk_RoutineEmail(t *testing.T) {
	scorer := NewScorer(models.PolicyRules{})
	analysis := NewAnalyzerAt(fixedClock).Analyze("Send email to john@x.com saying thanks")

	score := scorer.ScoreRisk(analysis)

	if score.Overall >= 0.3 {
		t.Errorf("expected risk below 0.3, got %v", score.Overall)
	}
	if score.Factors["financial_impact"] != 0 {
		t.Errorf("expected zero financial impact, got %v", score.Factors["financial_impact"])
	}
	if score.RequiresApproval {
		t.Error("routine email should not require approval")
	}
	if !score.Reversible {
		t.Error("sending a routine message should be treated as reversible")
	}
}

func TestScoreRisk_VendorPayment(t *testing.T) {
	scorer := NewScorer(models.PolicyRules{AutoApproveMaxAmount: 100})
	analysis := NewAnalyzerAt(fixedClock).Analyze("Pay $750 to vendor by Friday")

	score := scorer.ScoreRisk(analysis)

	if score.Factors["financial_impact"] < 0.9 {
		t.Errorf("expected financial impact >= 0.9, got %v", score.Factors["financial_impact"])
	}
	if !score.RequiresApproval {
		t.Error("a $750 payment must require approval")
	}
	if score.Reversible {
		t.Error("a payment is not reversible")
	}
	if !containsLine(score.Reasoning, "Involves financial transaction") {
		t.Errorf("expected financial reasoning line, got %v", score.Reasoning)
	}
}

func TestScoreRisk_PaymentDomainWithoutAmount(t *testing.T) {
	scorer := NewScorer(models.PolicyRules{})
	analysis := models.TaskAnalysis{
		Intent:   "Sort out the payment.",
		Domain:   models.DomainPayment,
		Entities: models.NewEntitySet(),
	}

	score := scorer.ScoreRisk(analysis)

	// Payment domain with no parsed amount keeps the risk floor.
	if score.Factors["financial_impact"] != 0.3 {
		t.Errorf("expected financial floor 0.3, got %v", score.Factors["financial_impact"])
	}
}

func TestRequiresApproval_Predicates(t *testing.T) {
	scorer := NewScorer(models.PolicyRules{AutoApproveMaxAmount: 100}).(*scorer)

	amountEntities := models.NewEntitySet()
	amountEntities.Set("amount", 150.0)

	tests := []struct {
		name     string
		analysis models.TaskAnalysis
		overall  float64
		external bool
		want     bool
	}{
		{
			name:     "high overall risk",
			analysis: models.TaskAnalysis{Entities: models.NewEntitySet()},
			overall:  0.7,
			want:     true,
		},
		{
			name:     "amount above threshold",
			analysis: models.TaskAnalysis{Entities: amountEntities},
			overall:  0.2,
			want:     true,
		},
		{
			name:     "external communication",
			analysis: models.TaskAnalysis{Entities: models.NewEntitySet()},
			overall:  0.2,
			external: true,
			want:     true,
		},
		{
			name: "sensitive intent",
			analysis: models.TaskAnalysis{
				Intent:   "Rotate the password for the admin account.",
				Entities: models.NewEntitySet(),
			},
			overall: 0.2,
			want:    true,
		},
		{
			name: "privileged resource",
			analysis: models.TaskAnalysis{
				Entities:          models.NewEntitySet(),
				RequiredResources: []string{"system_admin"},
			},
			overall: 0.2,
			want:    true,
		},
		{
			name:     "nothing triggers",
			analysis: models.TaskAnalysis{Intent: "Reply to the thread.", Entities: models.NewEntitySet()},
			overall:  0.2,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.requiresApproval(tt.analysis, tt.overall, tt.external)
			if got != tt.want {
				t.Errorf("requiresApproval = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsExternalCommunication(t *testing.T) {
	tests := []struct {
		intent string
		want   bool
	}{
		{"Post the announcement on linkedin.", true},
		{"Publish the release notes.", true},
		{"Share the deck with the team.", true},
		{"Send email to john@x.com saying thanks.", false},
		{"Reply to the thread.", false},
	}

	for _, tt := range tests {
		analysis := models.TaskAnalysis{Intent: tt.intent, Entities: models.NewEntitySet()}
		if got := isExternalCommunication(analysis); got != tt.want {
			t.Errorf("isExternalCommunication(%q) = %v, want %v", tt.intent, got, tt.want)
		}
	}
}

func TestFactorOrder_DescendingWeight(t *testing.T) {
	got := factorOrder(riskWeights)
	want := []string{"financial_impact", "external_comms", "irreversible", "data_sensitivity", "system_access"}

	if len(got) != len(want) {
		t.Fatalf("expected %d factors, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("factorOrder[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func containsLine(lines []string, want string) bool {
	for _, line := range lines {
		if strings.Contains(line, want) {
			return true
		}
	}
	return false
}
