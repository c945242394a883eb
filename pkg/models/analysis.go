package models

// Domain classifies a request into one of the automation areas the system
// knows how to handle. Declaration order matters: domain classification
// breaks keyword-vote ties in favour of the first-declared domain.
type Domain string

const (
	DomainEmail      Domain = "email"
	DomainCalendar   Domain = "calendar"
	DomainSocial     Domain = "social"
	DomainFile       Domain = "file"
	DomainCode       Domain = "code"
	DomainAutomation Domain = "automation"
	DomainResearch   Domain = "research"
	DomainMobile     Domain = "mobile"
	DomainDesktop    Domain = "desktop"
	DomainMusic      Domain = "music"
	DomainPayment    Domain = "payment"
	DomainERP        Domain = "erp"
	DomainGeneral    Domain = "general"
)

// Entity is a single extracted value tagged with the type of thing it is
// (e.g. "recipients", "amount", "date").
type Entity struct {
	Key   string
	Value any
}

// EntitySet is an insertion-ordered collection of extracted entities keyed
// by entity type. Matchers run as a fixed pipeline, and a later matcher may
// never overwrite a key set by an earlier one, so Set ignores duplicates.
type EntitySet struct {
	entries []Entity
	index   map[string]int
}

// NewEntitySet returns an empty EntitySet.
func NewEntitySet() *EntitySet {
	return &EntitySet{index: make(map[string]int)}
}

// Set records a value under key. If the key is already present the call is
// a no-op and Set returns false.
func (s *EntitySet) Set(key string, value any) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, exists := s.index[key]; exists {
		return false
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, Entity{Key: key, Value: value})
	return true
}

// Get returns the value stored under key.
func (s *EntitySet) Get(key string) (any, bool) {
	if s == nil || s.index == nil {
		return nil, false
	}
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.entries[i].Value, true
}

// Has reports whether key is present.
func (s *EntitySet) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Amount returns the parsed money amount, or 0 and false if none was
// extracted.
func (s *EntitySet) Amount() (float64, bool) {
	v, ok := s.Get("amount")
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Len returns the number of entities.
func (s *EntitySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Keys returns the entity keys in insertion order.
func (s *EntitySet) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns the entities in insertion order.
func (s *EntitySet) Entries() []Entity {
	if s == nil {
		return nil
	}
	out := make([]Entity, len(s.entries))
	copy(out, s.entries)
	return out
}

// TaskAnalysis is the structured form of a free-text request. It is created
// once per request and never mutated afterwards.
type TaskAnalysis struct {
	Intent            string
	Domain            Domain
	Entities          *EntitySet
	Constraints       []string
	RequiredResources []string
	Ambiguities       []string
	SimilarPastTasks  []string
	Confidence        float64
}

// ComplexityScore is the weighted-factor complexity assessment of an
// analysed request. Immutable once produced.
type ComplexityScore struct {
	Overall        float64
	Factors        map[string]float64
	Reasoning      []string
	EstimatedSteps int
	EstimatedTime  string
}

// RiskScore is the weighted-factor risk assessment of an analysed request.
// Immutable once produced.
type RiskScore struct {
	Overall          float64
	Factors          map[string]float64
	Reasoning        []string
	Reversible       bool
	RequiresApproval bool
}

// Approach is the decision engine's verdict on how a request should be
// handled.
type Approach string

const (
	// ExecuteDirectly: simple and safe, just do it.
	ExecuteDirectly Approach = "direct"
	// SpecDriven: complex or risky, produce a detailed plan first.
	SpecDriven Approach = "spec"
	// ClarificationNeeded: too ambiguous, ask the user.
	ClarificationNeeded Approach = "clarify"
	// ProactiveSuggest: anticipated work, offer to help.
	ProactiveSuggest Approach = "suggest"
)

// AgenticDecision is the final, audit-ready output of the decision engine.
// It is produced once per request and never mutated.
type AgenticDecision struct {
	Approach             Approach
	Confidence           float64
	Reasoning            []string
	Complexity           ComplexityScore
	Risk                 RiskScore
	RecommendedNextSteps []string
	ApprovalRequired     bool
	EstimatedDuration    string
}
