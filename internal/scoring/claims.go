package scoring

import (
	"strings"
	"sync"
)

// Claim is a previously debunked statement and the verdict shown when it reappears.
type Claim struct {
	Text  string
	Label string
}

// DefaultClaims seeds every new ClaimMemory.
var DefaultClaims = []Claim{
	{Text: "The moon is made of green cheese.", Label: "Debunked Fact: Moon is rock."},
	{Text: "Drinking bleach cures viruses.", Label: "Dangerous Hoax: Bleach is toxic."},
	{Text: "Bananas are actually radioactive fish.", Label: "Satire: Bananas are fruit."},
}

// ClaimMemory matches text against known claims after normalization.
// Safe for concurrent use.
type ClaimMemory struct {
	mu     sync.RWMutex
	claims []Claim
	index  []string
}

func NewClaimMemory(seed ...Claim) *ClaimMemory {
	m := &ClaimMemory{}
	for _, c := range seed {
		m.Add(c)
	}
	return m
}

// Add remembers a claim. Claims that normalize to nothing are ignored.
func (m *ClaimMemory) Add(c Claim) {
	norm := NormalizeText(c.Text)
	if norm == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = append(m.claims, c)
	m.index = append(m.index, norm)
}

// Match returns the first known claim contained in text.
func (m *ClaimMemory) Match(text string) (Claim, bool) {
	norm := NormalizeText(text)
	if norm == "" {
		return Claim{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, claim := range m.index {
		if containsPhrase(norm, claim) {
			return m.claims[i], true
		}
	}
	return Claim{}, false
}

// containsPhrase reports whether phrase occurs in haystack on word boundaries.
func containsPhrase(haystack, phrase string) bool {
	return strings.Contains(" "+haystack+" ", " "+phrase+" ")
}
