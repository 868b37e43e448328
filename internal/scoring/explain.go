package scoring

import "fmt"

// FallbackExplanation is used when no explanation could be produced.
const FallbackExplanation = "Analysis complete. Please refer to the specific factors detected below."

// Explain renders a one-sentence explanation for a score. Scores above 70 read
// as reassuring, 40 to 70 start with "Caution:" and anything lower starts with "High Risk:".
func Explain(score int, reasons []string) string {
	n := len(reasons)
	switch {
	case score > 70 && n == 0:
		return "This content appears credible; no manipulation signals were detected."
	case score > 70:
		return fmt.Sprintf("This content appears mostly credible, though %s noted.", count(n, "minor signal was", "minor signals were"))
	case score >= 40:
		return fmt.Sprintf("Caution: this content shows %s, so verify it with a trusted source before sharing.", count(n, "warning sign", "warning signs"))
	default:
		return fmt.Sprintf("High Risk: this content shows %s of manipulation and should not be shared without independent verification.", count(n, "strong sign", "strong signs"))
	}
}

// BandPrefix returns the prefix an explanation for score must start with, if any.
func BandPrefix(score int) string {
	switch {
	case score > 70:
		return ""
	case score >= 40:
		return "Caution:"
	default:
		return "High Risk:"
	}
}

func count(n int, one, many string) string {
	switch n {
	case 0:
		return many
	case 1:
		return "1 " + one
	default:
		return fmt.Sprintf("%d %s", n, many)
	}
}
