package intelligence

import (
	"strings"
	"testing"
	"time"

	"github.com/digital-fte/fte/pkg/models"
)

// fixedNow is a Monday, used wherever relative date resolution matters.
var fixedNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestExtractIntent(t *testing.T) {
	tests := []struct {
		request string
		want    string
	}{
		{"please can you send the report", "Send the report."},
		{"I need a summary of last week", "A summary of last week."},
		{"pay the invoice!", "Pay the invoice!"},
		{"Schedule a meeting", "Schedule a meeting."},
		{"", ""},
	}

	for _, tt := range tests {
		if got := extractIntent(tt.request); got != tt.want {
			t.Errorf("extractIntent(%q) = %q, want %q", tt.request, got, tt.want)
		}
	}
}

func TestClassifyDomain(t *testing.T) {
	tests := []struct {
		request string
		want    models.Domain
	}{
		{"Send email to john@x.com saying thanks", models.DomainEmail},
		{"Schedule a meeting with the team", models.DomainCalendar},
		{"Pay $750 to vendor by Friday", models.DomainPayment},
		{"Research competitors and find pricing", models.DomainResearch},
		{"Post an update on linkedin", models.DomainSocial},
		{"Play my focus playlist on spotify", models.DomainMusic},
		{"Water the plants", models.DomainGeneral},
	}

	for _, tt := range tests {
		if got := classifyDomain(tt.request); got != tt.want {
			t.Errorf("classifyDomain(%q) = %s, want %s", tt.request, got, tt.want)
		}
	}
}

func TestClassifyDomain_TieBreaksToFirstDeclared(t *testing.T) {
	// One email keyword and one calendar keyword; email is declared first.
	if got := classifyDomain("send a meeting invite"); got != models.DomainEmail {
		t.Errorf("expected tie to break to email, got %s", got)
	}
}

func TestExtractEntities_Recipients(t *testing.T) {
	a := NewAnalyzerAt(fixedClock)
	analysis := a.Analyze("Send email to john@x.com and jane@y.org")

	v, ok := analysis.Entities.Get("recipients")
	if !ok {
		t.Fatal("expected recipients entity")
	}
	recipients := v.([]string)
	if len(recipients) != 2 || recipients[0] != "john@x.com" || recipients[1] != "jane@y.org" {
		t.Errorf("unexpected recipients: %v", recipients)
	}
}

func TestExtractEntities_AmountWithThousandsSeparator(t *testing.T) {
	a := NewAnalyzerAt(fixedClock)
	analysis := a.Analyze("Transfer $1,250.50 to the supplier account")

	amount, ok := analysis.Entities.Amount()
	if !ok {
		t.Fatal("expected amount entity")
	}
	if amount != 1250.50 {
		t.Errorf("expected 1250.50, got %v", amount)
	}
}

func TestExtractEntities_RelativeDates(t *testing.T) {
	a := NewAnalyzerAt(fixedClock)

	tests := []struct {
		request string
		want    string
	}{
		{"Finish the report today", "2025-06-02"},
		{"Remind me tomorrow", "2025-06-03"},
		{"Deliver it by Friday", "2025-06-06"},
		// A weekday naming today resolves to next week.
		{"Schedule the review for Monday", "2025-06-09"},
	}

	for _, tt := range tests {
		analysis := a.Analyze(tt.request)
		v, ok := analysis.Entities.Get("date")
		if !ok {
			t.Errorf("Analyze(%q): expected date entity", tt.request)
			continue
		}
		if v.(string) != tt.want {
			t.Errorf("Analyze(%q) date = %v, want %s", tt.request, v, tt.want)
		}
	}
}

func TestExtractEntities_ClockTime(t *testing.T) {
	a := NewAnalyzerAt(fixedClock)
	analysis := a.Analyze("Call the office before 14:30")

	v, ok := analysis.Entities.Get("date")
	if !ok {
		t.Fatal("expected date entity for clock time")
	}
	if v.(string) != "14:30" {
		t.Errorf("expected 14:30, got %v", v)
	}
}

func TestExtractConstraints(t *testing.T) {
	constraints := extractConstraints("Pay the invoice by Friday, it must include the PO number")

	var hasDeadline, hasMust bool
	for _, c := range constraints {
		if strings.HasPrefix(c, "Time constraint: by Friday") {
			hasDeadline = true
		}
		if strings.HasPrefix(c, "Must: include the PO number") {
			hasMust = true
		}
	}
	if !hasDeadline {
		t.Errorf("expected deadline constraint, got %v", constraints)
	}
	if !hasMust {
		t.Errorf("expected must constraint, got %v", constraints)
	}
}

func TestDetermineResources(t *testing.T) {
	withRecipients := models.NewEntitySet()
	withRecipients.Set("recipients", []string{"a@b.com"})

	withAmount := models.NewEntitySet()
	withAmount.Set("amount", 50.0)

	tests := []struct {
		name     string
		domain   models.Domain
		entities *models.EntitySet
		want     []string
	}{
		{"email domain covers recipients", models.DomainEmail, withRecipients, []string{"gmail_api"}},
		{"recipients outside email add mail service", models.DomainGeneral, withRecipients, []string{"email_service"}},
		{"amount outside payment adds verification", models.DomainGeneral, withAmount, []string{"payment_verification"}},
		{"payment domain covers amount", models.DomainPayment, withAmount, []string{"payment_processor", "stripe_api"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := determineResources(tt.domain, tt.entities)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("resources[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestIdentifyAmbiguities(t *testing.T) {
	a := NewAnalyzerAt(fixedClock)

	analysis := a.Analyze("send it")
	if len(analysis.Ambiguities) != 2 {
		t.Fatalf("expected 2 ambiguities, got %d: %v", len(analysis.Ambiguities), analysis.Ambiguities)
	}
	if !strings.Contains(analysis.Ambiguities[0], "Vague reference: 'it'") {
		t.Errorf("unexpected first ambiguity: %s", analysis.Ambiguities[0])
	}
	if analysis.Ambiguities[1] != "No recipient specified - send to whom?" {
		t.Errorf("unexpected second ambiguity: %s", analysis.Ambiguities[1])
	}
}

func TestIdentifyAmbiguities_PaymentWithoutDetails(t *testing.T) {
	a := NewAnalyzerAt(fixedClock)
	analysis := a.Analyze("Make the payment")

	var missingAmount, missingPayee bool
	for _, amb := range analysis.Ambiguities {
		if amb == "No amount specified - how much?" {
			missingAmount = true
		}
		if amb == "No payee specified - pay whom?" {
			missingPayee = true
		}
	}
	if !missingAmount || !missingPayee {
		t.Errorf("expected amount and payee ambiguities, got %v", analysis.Ambiguities)
	}
}

func TestAnalysisConfidence(t *testing.T) {
	a := NewAnalyzerAt(fixedClock)

	// No ambiguities, one entity: 1.0 - 0.1 = 0.9.
	clean := a.Analyze("Send email to john@x.com saying thanks")
	if diff := clean.Confidence - 0.9; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected confidence 0.9, got %v", clean.Confidence)
	}

	// Heavily ambiguous requests bottom out at the floor.
	vague := a.Analyze("pay that thing for it and this stuff")
	if vague.Confidence != minConfidence {
		t.Errorf("expected confidence floor %v, got %v", minConfidence, vague.Confidence)
	}
}

func TestAnalyze_NeverFails(t *testing.T) {
	a := NewAnalyzerAt(fixedClock)
	for _, request := range []string{"", "   ", "?!", strings.Repeat("x", 10000)} {
		analysis := a.Analyze(request)
		if analysis.Confidence < minConfidence || analysis.Confidence > 1.0 {
			t.Errorf("Analyze(%q) confidence %v out of range", request, analysis.Confidence)
		}
	}
}
