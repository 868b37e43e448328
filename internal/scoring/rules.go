package scoring

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/kiranshivaraju/inocula/pkg/models"
)

var sensationalKeywords = []string{"shocking", "secret", "revealed", "miracle", "doctors hate"}

var untrustedDomains = []string{"yourforwarded.news", "healthynews4u.info", "secretenergy.blogspot.com"}

const (
	keywordPenalty     = 20
	domainPenalty      = 50
	punctuationPenalty = 15
	capsPenalty        = 15
	knownClaimCeiling  = 10
)

// UncertainReason is appended when the score lands in the caution band, where
// the heuristics alone cannot tell credible from manipulative text.
const UncertainReason = "Score is uncertain. Verify with a deeper analysis before relying on it."

// RulesScorer rates text with fixed heuristics and a memory of known claims.
// It never calls out to a network service.
type RulesScorer struct {
	claims *ClaimMemory
}

// NewRulesScorer returns a RulesScorer seeded with the default known claims.
func NewRulesScorer() *RulesScorer {
	return &RulesScorer{claims: NewClaimMemory(DefaultClaims...)}
}

// NewRulesScorerWithClaims returns a RulesScorer backed by the given claim memory.
func NewRulesScorerWithClaims(claims *ClaimMemory) *RulesScorer {
	return &RulesScorer{claims: claims}
}

func (s *RulesScorer) Name() string { return "rules" }

func (s *RulesScorer) Score(ctx context.Context, text string) (models.Result, error) {
	if err := ctx.Err(); err != nil {
		return models.Result{}, err
	}
	res := s.Evaluate(text)
	res.Explanation = Explain(res.Score, signalReasons(res.Reasons))
	return res, nil
}

// Evaluate applies the heuristics and returns a clamped score with its reasons.
// The explanation is left empty.
func (s *RulesScorer) Evaluate(text string) models.Result {
	score := models.MaxScore
	reasons := []string{}
	lower := strings.ToLower(text)

	for _, kw := range sensationalKeywords {
		if strings.Contains(lower, kw) {
			score -= keywordPenalty
			reasons = append(reasons, fmt.Sprintf("Contains sensational keyword: '%s'", kw))
		}
	}

	for _, domain := range untrustedDomains {
		if strings.Contains(lower, domain) {
			score -= domainPenalty
			reasons = append(reasons, fmt.Sprintf("Mentions an untrusted source: '%s'", domain))
		}
	}

	if strings.Count(text, "!") > 2 {
		score -= punctuationPenalty
		reasons = append(reasons, "Contains excessive exclamation marks.")
	}

	if caps := shoutedWords(text); len(caps) > 1 {
		score -= capsPenalty
		reasons = append(reasons, "Contains excessive capitalization: "+strings.Join(caps, ", "))
	}

	if s.claims != nil {
		if claim, ok := s.claims.Match(text); ok {
			reasons = append(reasons, "Matches a known claim: "+claim.Label)
			score = min(score, knownClaimCeiling)
		}
	}

	res := models.Result{Score: score, Reasons: reasons}.Clamped()
	if res.Score >= 40 && res.Score <= 70 {
		res.Reasons = append(res.Reasons, UncertainReason)
	}
	return res
}

// signalReasons drops UncertainReason so explanations count only detected signals.
func signalReasons(reasons []string) []string {
	if n := len(reasons); n > 0 && reasons[n-1] == UncertainReason {
		return reasons[:n-1]
	}
	return reasons
}

// shoutedWords returns the whitespace-separated words longer than two
// characters whose cased letters are all upper case.
func shoutedWords(text string) []string {
	var out []string
	for _, word := range strings.Fields(text) {
		if len([]rune(word)) <= 2 {
			continue
		}
		cased := false
		upper := true
		for _, r := range word {
			if unicode.IsLower(r) {
				upper = false
				break
			}
			if unicode.IsUpper(r) {
				cased = true
			}
		}
		if cased && upper {
			out = append(out, word)
		}
	}
	return out
}
