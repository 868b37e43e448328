package moderation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kiranshivaraju/inocula/pkg/models"
)

// DefaultSafetyAddress receives escalation notices unless another address is given.
const DefaultSafetyAddress = "safety@platform.com"

const subjectPreviewRunes = 30

// Notice is a pre-filled message asking a platform to review content.
// Composing one never changes the record's moderation status.
type Notice struct {
	To      string
	Subject string
	Body    string
}

// ComposeEscalation builds the notice for rec. An empty comment reads as N/A
// and an empty to uses DefaultSafetyAddress.
func ComposeEscalation(rec *models.AnalysisRecord, comment, to string) Notice {
	if to == "" {
		to = DefaultSafetyAddress
	}
	if strings.TrimSpace(comment) == "" {
		comment = "N/A"
	}

	preview := []rune(rec.RequestText)
	if len(preview) > subjectPreviewRunes {
		preview = preview[:subjectPreviewRunes]
	}

	var b strings.Builder
	b.WriteString("Hello Platform Safety Team,\n\n")
	b.WriteString("We are escalating the following content for review based on our analysis:\n\n")
	fmt.Fprintf(&b, "Content snippet: %q\n", rec.RequestText)
	fmt.Fprintf(&b, "Detected Credibility Score: %d/100\n", rec.Result.Score)
	fmt.Fprintf(&b, "Key Reasons: %s\n\n", strings.Join(rec.Result.Reasons, ", "))
	fmt.Fprintf(&b, "User Comment: %s\n\n", comment)
	b.WriteString("Please investigate this content for potential violation of your terms of service.\n\n")
	b.WriteString("Thank you,\nProject Inocula Moderation Team\n")

	return Notice{
		To:      to,
		Subject: fmt.Sprintf("Misinformation Report: %s...", string(preview)),
		Body:    b.String(),
	}
}

// MailtoURL renders the notice as a mailto: link.
func (n Notice) MailtoURL() string {
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", n.To, escapeComponent(n.Subject), escapeComponent(n.Body))
}

// escapeComponent percent-encodes s with spaces as %20, which mail clients
// expect in place of the form encoding's "+".
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
