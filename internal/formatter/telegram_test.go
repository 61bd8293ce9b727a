package formatter

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/mixelka/mailhook/pkg/models"
)

func TestFormatAlert(t *testing.T) {
	f := NewTelegramFormatter()

	text := f.FormatAlert(models.Alert{
		Severity:  models.AlertCritical,
		Component: "subscription",
		Title:     "Subscription lifecycle terminated",
		Detail:    "failed to renew subscription <sub-1>: status 403 & more",
		Time:      time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC),
	})

	assert.True(t, strings.HasPrefix(text, "🚨 <b>Subscription lifecycle terminated</b>\n"))
	assert.Contains(t, text, "<b>Component:</b> subscription\n")
	assert.Contains(t, text, "<b>Time:</b> 04.03.2025 08:00:00 UTC\n")
	assert.Contains(t, text, "<pre>failed to renew subscription &lt;sub-1&gt;: status 403 &amp; more</pre>")
}

func TestFormatAlertTruncatesDetail(t *testing.T) {
	f := NewTelegramFormatter()

	text := f.FormatAlert(models.Alert{
		Severity: models.AlertWarning,
		Title:    "Notification processing failed",
		Detail:   strings.Repeat("é", 10000),
	})

	assert.True(t, strings.HasPrefix(text, "⚠️"))
	assert.Contains(t, text, "... (truncated)")
	assert.Less(t, utf8.RuneCountInString(text), 4100)
}
