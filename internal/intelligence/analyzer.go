// Package intelligence contains the agentic decision stack: request
// analysis, complexity/risk scoring, and the approach decision engine.
package intelligence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/digital-fte/fte/pkg/models"
)

// minConfidence is the floor applied to every confidence calculation.
const minConfidence = 0.1

// domainKeywords maps each domain to its classification keywords.
// Declaration order is the tie-break: when two domains score equally,
// the first-declared one wins.
var domainKeywords = []struct {
	domain   models.Domain
	keywords []string
}{
	{models.DomainEmail, []string{"email", "send", "reply", "forward", "inbox", "mail"}},
	{models.DomainCalendar, []string{"meeting", "schedule", "calendar", "appointment", "event"}},
	{models.DomainSocial, []string{"post", "tweet", "linkedin", "facebook", "instagram", "social"}},
	{models.DomainFile, []string{"file", "folder", "document", "download", "upload"}},
	{models.DomainCode, []string{"code", "script", "program", "function", "debug", "git"}},
	{models.DomainAutomation, []string{"automate", "workflow", "batch", "script", "routine"}},
	{models.DomainResearch, []string{"research", "find", "search", "google", "investigate"}},
	{models.DomainMobile, []string{"phone", "mobile", "android", "ios", "notification", "sms"}},
	{models.DomainDesktop, []string{"laptop", "desktop", "window", "application", "screenshot"}},
	{models.DomainMusic, []string{"music", "spotify", "play", "playlist", "song", "podcast"}},
	{models.DomainPayment, []string{"pay", "payment", "invoice", "transaction", "money", "transfer"}},
	{models.DomainERP, []string{"odoo", "crm", "sales", "order", "customer", "erp"}},
}

// domainResources maps each domain to the resource identifiers it needs.
var domainResources = map[models.Domain][]string{
	models.DomainEmail:    {"gmail_api"},
	models.DomainCalendar: {"google_calendar_api"},
	models.DomainSocial:   {"linkedin_api", "twitter_api", "facebook_api"},
	models.DomainMusic:    {"spotify_api"},
	models.DomainPayment:  {"payment_processor", "stripe_api"},
	models.DomainERP:      {"odoo_api"},
	models.DomainMobile:   {"mobile_bridge", "android_adb"},
	models.DomainDesktop:  {"desktop_bridge", "automation_tools"},
}

// fillerWords are stripped from the request when deriving the intent.
var fillerWords = []string{"please", "can you", "could you", "would you", "i need", "i want"}

// vagueTerms flag pronoun references that need clarification.
var vagueTerms = []string{"that", "it", "this", "those", "thing", "stuff"}

var (
	emailPattern    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	relativeDayPat  = regexp.MustCompile(`(?i)\b(today|tomorrow|tonight)\b`)
	weekdayPat      = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	clockTimePat    = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}\s*(?:am|pm)?)\b`)
	moneyPattern    = regexp.MustCompile(`\$\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`)
	urlPattern      = regexp.MustCompile(`https?://[^\s]+`)
	hashtagPattern  = regexp.MustCompile(`#\w+`)
	unixPathPattern = regexp.MustCompile(`(/(?:[^/\s]+/)*[^/\s]+)`)
	winPathPattern  = regexp.MustCompile(`([A-Za-z]:\\(?:[^\\/:*?"<>|\r\n]+\\)*[^\\/:*?"<>|\r\n]*)`)
	mustPattern     = regexp.MustCompile(`(?i)must\s+([^.!?]+)`)
)

// deadlinePatterns flag time constraints in the request text.
var deadlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)by\s+(today|tomorrow|friday|monday|tuesday|wednesday|thursday|saturday|sunday)`),
	regexp.MustCompile(`(?i)before\s+(\d{1,2}:\d{2})`),
	regexp.MustCompile(`(?i)within\s+(\d+)\s+(hour|day|week)`),
	regexp.MustCompile(`(?i)urgent`),
	regexp.MustCompile(`(?i)asap`),
	regexp.MustCompile(`(?i)immediately`),
}

// Analyzer turns a free-text request into a structured TaskAnalysis.
type Analyzer interface {
	// Analyze never fails: on total extraction failure it returns a
	// general-domain analysis with confidence at the floor.
	Analyze(request string) models.TaskAnalysis
}

// analyzer implements Analyzer with a fixed pipeline of pattern matchers.
type analyzer struct {
	now func() time.Time
}

// NewAnalyzer creates an Analyzer using the wall clock for relative date
// resolution.
func NewAnalyzer() Analyzer {
	return &analyzer{now: time.Now}
}

// NewAnalyzerAt creates an Analyzer with an injected clock. Used by tests
// that assert on resolved relative dates.
func NewAnalyzerAt(now func() time.Time) Analyzer {
	return &analyzer{now: now}
}

// Analyze extracts intent, domain, entities, constraints, resources, and
// ambiguities from the request and derives an overall confidence.
func (a *analyzer) Analyze(request string) models.TaskAnalysis {
	request = strings.TrimSpace(request)

	intent := extractIntent(request)
	domain := classifyDomain(request)
	entities := a.extractEntities(request, domain)
	constraints := extractConstraints(request)
	resources := determineResources(domain, entities)
	ambiguities := identifyAmbiguities(request, entities)

	return models.TaskAnalysis{
		Intent:            intent,
		Domain:            domain,
		Entities:          entities,
		Constraints:       constraints,
		RequiredResources: resources,
		Ambiguities:       ambiguities,
		Confidence:        analysisConfidence(entities, ambiguities),
	}
}

// extractIntent normalizes the request into one imperative sentence:
// filler words removed, first letter capitalized, terminal punctuation
// ensured.
func extractIntent(request string) string {
	intent := request
	for _, filler := range fillerWords {
		pat := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(filler) + `\b`)
		intent = pat.ReplaceAllString(intent, "")
	}
	intent = strings.Join(strings.Fields(intent), " ")
	if intent == "" {
		return ""
	}
	intent = strings.ToUpper(intent[:1]) + intent[1:]
	if !strings.HasSuffix(intent, ".") && !strings.HasSuffix(intent, "!") && !strings.HasSuffix(intent, "?") {
		intent += "."
	}
	return intent
}

// classifyDomain counts keyword hits per domain and returns the highest
// scorer. Ties break toward the first-declared domain; no hits at all
// classify as general.
func classifyDomain(request string) models.Domain {
	lower := strings.ToLower(request)

	best := models.DomainGeneral
	bestScore := 0
	for _, dk := range domainKeywords {
		score := 0
		for _, kw := range dk.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = dk.domain
			bestScore = score
		}
	}
	return best
}

// extractEntities runs the matcher pipeline. Each matcher owns its entity
// keys; EntitySet.Set refuses overwrites, so pipeline order is the only
// thing that decides which matcher claims a key.
func (a *analyzer) extractEntities(request string, domain models.Domain) *models.EntitySet {
	entities := models.NewEntitySet()

	if emails := emailPattern.FindAllString(request, -1); len(emails) > 0 {
		entities.Set("recipients", emails)
	}

	a.extractDate(request, entities)

	if m := moneyPattern.FindStringSubmatch(request); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if amount, err := strconv.ParseFloat(raw, 64); err == nil {
			entities.Set("amount", amount)
		}
	}

	if urls := urlPattern.FindAllString(request, -1); len(urls) > 0 {
		entities.Set("urls", urls)
	}

	if domain == models.DomainSocial {
		if tags := hashtagPattern.FindAllString(request, -1); len(tags) > 0 {
			entities.Set("hashtags", tags)
		}
	}

	if domain == models.DomainFile {
		if files := winPathPattern.FindAllString(request, -1); len(files) > 0 {
			entities.Set("files", files)
		} else if files := unixPathPattern.FindAllString(request, -1); len(files) > 0 {
			entities.Set("files", files)
		}
	}

	return entities
}

// extractDate resolves the first relative day, weekday, or clock time in
// the request to a concrete value under the "date" key.
func (a *analyzer) extractDate(request string, entities *models.EntitySet) {
	if m := relativeDayPat.FindString(request); m != "" {
		entities.Set("date", a.resolveRelativeDay(m))
		return
	}
	if m := weekdayPat.FindString(request); m != "" {
		entities.Set("date", a.resolveWeekday(m))
		return
	}
	if m := clockTimePat.FindString(request); m != "" {
		entities.Set("date", strings.TrimSpace(m))
	}
}

// resolveRelativeDay maps today/tonight/tomorrow to an ISO date.
func (a *analyzer) resolveRelativeDay(day string) string {
	now := a.now()
	if strings.EqualFold(day, "tomorrow") {
		now = now.AddDate(0, 0, 1)
	}
	return now.Format("2006-01-02")
}

// resolveWeekday maps a weekday name to the date of its next occurrence.
// A weekday matching today resolves to next week, not today.
func (a *analyzer) resolveWeekday(day string) string {
	weekdays := map[string]time.Weekday{
		"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
		"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
		"sunday": time.Sunday,
	}
	target, ok := weekdays[strings.ToLower(day)]
	if !ok {
		return a.now().Format("2006-01-02")
	}

	now := a.now()
	ahead := int(target) - int(now.Weekday())
	if ahead <= 0 {
		ahead += 7
	}
	return now.AddDate(0, 0, ahead).Format("2006-01-02")
}

// extractConstraints collects deadline phrases and "must ..." obligations.
func extractConstraints(request string) []string {
	var constraints []string

	for _, pat := range deadlinePatterns {
		if m := pat.FindString(request); m != "" {
			constraints = append(constraints, fmt.Sprintf("Time constraint: %s", m))
		}
	}

	for _, m := range mustPattern.FindAllStringSubmatch(request, -1) {
		constraints = append(constraints, fmt.Sprintf("Must: %s", strings.TrimSpace(m[1])))
	}

	return constraints
}

// determineResources maps the domain to its required resource identifiers
// and adds entity-driven extras.
func determineResources(domain models.Domain, entities *models.EntitySet) []string {
	var resources []string
	resources = append(resources, domainResources[domain]...)

	joined := strings.Join(resources, " ")
	if entities.Has("recipients") && !strings.Contains(joined, "gmail") {
		resources = append(resources, "email_service")
	}
	if entities.Has("amount") && !strings.Contains(joined, "payment") {
		resources = append(resources, "payment_verification")
	}

	return resources
}

// identifyAmbiguities flags vague pronoun references and known-incomplete
// request patterns (send with no recipient, schedule with no date, pay with
// no amount or payee).
func identifyAmbiguities(request string, entities *models.EntitySet) []string {
	var ambiguities []string
	lower := strings.ToLower(request)

	for _, term := range vagueTerms {
		pat := regexp.MustCompile(`(?i)\b` + term + `\b`)
		if pat.MatchString(request) {
			ambiguities = append(ambiguities, fmt.Sprintf("Vague reference: '%s' - what specifically?", term))
		}
	}

	if strings.Contains(lower, "send") && !entities.Has("recipients") {
		ambiguities = append(ambiguities, "No recipient specified - send to whom?")
	}

	if strings.Contains(lower, "schedule") || strings.Contains(lower, "meeting") {
		if !entities.Has("date") {
			ambiguities = append(ambiguities, "No date specified - when should it be scheduled?")
		}
	}

	if strings.Contains(lower, "payment") || strings.Contains(lower, "pay") {
		if !entities.Has("amount") {
			ambiguities = append(ambiguities, "No amount specified - how much?")
		}
		if !entities.Has("recipients") {
			ambiguities = append(ambiguities, "No payee specified - pay whom?")
		}
	}

	return ambiguities
}

// analysisConfidence derives the analysis confidence: each ambiguity costs
// 0.15, fewer than two entities costs another 0.1, floored at 0.1.
func analysisConfidence(entities *models.EntitySet, ambiguities []string) float64 {
	confidence := 1.0
	confidence -= float64(len(ambiguities)) * 0.15
	if entities.Len() < 2 {
		confidence -= 0.1
	}
	return max(confidence, minConfidence)
}
