package formatter

import (
	"fmt"
	"strings"

	"github.com/mixelka/mailhook/pkg/models"
)

// TelegramFormatter formats operator alerts for Telegram
type TelegramFormatter struct {
	maxLength int
}

// NewTelegramFormatter creates a new Telegram formatter
func NewTelegramFormatter() *TelegramFormatter {
	return &TelegramFormatter{
		maxLength: 4000, // Leave room for markup
	}
}

// FormatAlert formats an alert as Telegram HTML
func (f *TelegramFormatter) FormatAlert(alert models.Alert) string {
	var sb strings.Builder

	icon := "⚠️"
	if alert.Severity == models.AlertCritical {
		icon = "🚨"
	}

	// Header
	sb.WriteString(fmt.Sprintf("%s <b>%s</b>\n", icon, f.escapeHTML(alert.Title)))
	sb.WriteString(fmt.Sprintf("<b>Component:</b> %s\n", f.escapeHTML(alert.Component)))
	sb.WriteString(fmt.Sprintf("<b>Severity:</b> %s\n", alert.Severity))
	if !alert.Time.IsZero() {
		sb.WriteString(fmt.Sprintf("<b>Time:</b> %s\n", alert.Time.UTC().Format("02.01.2006 15:04:05 UTC")))
	}

	// Detail
	if alert.Detail != "" {
		sb.WriteString("\n")
		detail := f.truncate(alert.Detail, f.maxLength-sb.Len()-50)
		sb.WriteString(fmt.Sprintf("<pre>%s</pre>", f.escapeHTML(detail)))
	}

	return sb.String()
}

// escapeHTML escapes HTML special characters for Telegram
func (f *TelegramFormatter) escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// truncate truncates text to maxLen characters
func (f *TelegramFormatter) truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 100
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "\n... (truncated)"
}
