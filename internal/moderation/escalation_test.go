package moderation_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/kiranshivaraju/inocula/internal/moderation"
	"github.com/kiranshivaraju/inocula/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func escalationRecord() *models.AnalysisRecord {
	return &models.AnalysisRecord{
		RequestText: "SHOCKING secret revealed about the city water supply!!!",
		Result: models.Result{
			Score:   25,
			Reasons: []string{"Contains sensational keyword: 'shocking'", "Contains excessive exclamation marks."},
		},
		Status: models.StatusSubmitted,
	}
}

func TestComposeEscalation(t *testing.T) {
	n := moderation.ComposeEscalation(escalationRecord(), "misleading", "")

	assert.Equal(t, moderation.DefaultSafetyAddress, n.To)
	assert.Equal(t, "Misinformation Report: SHOCKING secret revealed about...", n.Subject)
	assert.Contains(t, n.Body, `Content snippet: "SHOCKING secret revealed about the city water supply!!!"`)
	assert.Contains(t, n.Body, "Detected Credibility Score: 25/100")
	assert.Contains(t, n.Body, "Key Reasons: Contains sensational keyword: 'shocking', Contains excessive exclamation marks.")
	assert.Contains(t, n.Body, "User Comment: misleading")
	assert.True(t, strings.HasSuffix(n.Body, "Project Inocula Moderation Team\n"))
}

func TestComposeEscalation_Defaults(t *testing.T) {
	rec := escalationRecord()
	rec.RequestText = "Short"

	n := moderation.ComposeEscalation(rec, "  ", "trust@example.org")

	assert.Equal(t, "trust@example.org", n.To)
	assert.Equal(t, "Misinformation Report: Short...", n.Subject)
	assert.Contains(t, n.Body, "User Comment: N/A")
}

func TestComposeEscalation_SubjectCountsRunes(t *testing.T) {
	rec := escalationRecord()
	rec.RequestText = strings.Repeat("ü", 40)

	n := moderation.ComposeEscalation(rec, "", "")

	assert.Equal(t, "Misinformation Report: "+strings.Repeat("ü", 30)+"...", n.Subject)
}

func TestComposeEscalation_DoesNotChangeStatus(t *testing.T) {
	rec := escalationRecord()
	moderation.ComposeEscalation(rec, "misleading", "")
	assert.Equal(t, models.StatusSubmitted, rec.Status)
}

func TestNotice_MailtoURL(t *testing.T) {
	n := moderation.ComposeEscalation(escalationRecord(), "misleading & false", "")
	link := n.MailtoURL()

	require.True(t, strings.HasPrefix(link, "mailto:safety@platform.com?"))
	assert.NotContains(t, link, "+")
	assert.NotContains(t, link, " ")

	u, err := url.Parse(link)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, n.Subject, q.Get("subject"))
	assert.Equal(t, n.Body, q.Get("body"))
}
