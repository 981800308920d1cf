package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// escapeHTML escapes every user-controlled string before it reaches a template.
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// EmailContent is the data an email template renders.
type EmailContent struct {
	RecipientName    string
	NotificationType string
	Title            string
	Message          string
	Details          []byte
	DashboardURL     string
}

type taskLine struct {
	Title string
	Note  string
}

type emailDetails struct {
	Text      string
	Scheduled []taskLine
	Failed    []taskLine
}

type emailTheme struct {
	subject string
	accent  string
	button  string
}

var emailThemes = map[string]emailTheme{
	TypeAutoSchedulingCompleted: {subject: "✅ Auto-Scheduling Completed", accent: "#2563eb", button: "View Dashboard"},
	TypeAutoSchedulingError:     {subject: "⚠️ Auto-Scheduling Issues Detected", accent: "#dc2626", button: "Review Tasks"},
	TypeWeatherConflict:         {subject: "🌦️ Weather Affected Task Scheduling", accent: "#f59e0b", button: "View Dashboard"},
	TypeCalendarConflict:        {subject: "📅 Calendar Conflicts Detected", accent: "#7c3aed", button: "Review Schedule"},
}

const (
	fallbackSubject = "Auto-Scheduling Update"
	mutedStyle      = "color: #6b7280;"
	listStyle       = "list-style: none; padding: 0;"
	itemStyle       = "padding: 8px 0; border-bottom: 1px solid #e5e7eb;"
)

// RenderEmail returns the subject and HTML body for a notification.
func RenderEmail(ctx context.Context, content EmailContent) (string, string, error) {
	theme, known := emailThemes[content.NotificationType]
	if !known {
		theme = emailTheme{subject: content.Title, accent: "#2563eb", button: "View Dashboard"}
		if strings.TrimSpace(theme.subject) == "" {
			theme.subject = fallbackSubject
		}
	}

	details := parseEmailDetails(content.Details)
	body := emailLayout(theme, content, emailSections(content, details))

	var sb strings.Builder
	if err := body.Render(ensureContext(ctx), &sb); err != nil {
		return "", "", fmt.Errorf("render %s email: %w", content.NotificationType, err)
	}
	return theme.subject, sb.String(), nil
}

func emailSections(content EmailContent, details emailDetails) []templ.Component {
	switch content.NotificationType {
	case TypeAutoSchedulingCompleted:
		return []templ.Component{
			paragraph("Your auto-scheduling has been completed successfully!", ""),
			taskList(fmt.Sprintf("✅ Successfully Scheduled Tasks (%d)", len(details.Scheduled)), "#059669", "Scheduled for: ", details.Scheduled),
			taskList(fmt.Sprintf("❌ Failed to Schedule (%d)", len(details.Failed)), "#dc2626", "Reason: ", details.Failed),
			paragraph("You can review and adjust your auto-scheduling preferences anytime in your dashboard.", mutedStyle+" font-size: 14px;"),
		}
	case TypeAutoSchedulingError:
		return []templ.Component{
			paragraph("We encountered some issues while auto-scheduling your tasks:", ""),
			callout(firstNonEmpty(details.Text, content.Message), "#fef2f2", "#fecaca", "#dc2626"),
			taskList("Tasks That Couldn't Be Scheduled", "#dc2626", "Reason: ", details.Failed),
			paragraph("You can manually schedule these tasks or adjust your preferences to resolve the issues.", mutedStyle+" font-size: 14px;"),
		}
	case TypeWeatherConflict:
		return []templ.Component{
			paragraph("Weather conditions affected the scheduling of some of your outdoor tasks:", ""),
			callout(firstNonEmpty(details.Text, content.Message), "#fffbeb", "#fed7aa", "#92400e"),
			paragraph("These tasks will be automatically rescheduled when weather conditions improve.", ""),
		}
	case TypeCalendarConflict:
		return []templ.Component{
			paragraph("Calendar conflicts were detected while scheduling your tasks:", ""),
			callout(firstNonEmpty(details.Text, content.Message), "#f3f4f6", "#d1d5db", "#374151"),
			paragraph("Some tasks were scheduled in alternative time slots to avoid conflicts.", ""),
		}
	default:
		return []templ.Component{
			paragraph(content.Message, ""),
			paragraph(details.Text, mutedStyle),
		}
	}
}

func emailLayout(theme emailTheme, content EmailContent, sections []templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;"><h2 style="color: %s;">Hello %s,</h2>`,
			theme.accent, escapeHTML(content.RecipientName)); err != nil {
			return err
		}
		for _, section := range sections {
			if err := section.Render(ctx, w); err != nil {
				return err
			}
		}
		if content.DashboardURL != "" {
			if _, err := fmt.Fprintf(w,
				`<p style="margin-top: 20px;"><a href="%s" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">%s</a></p>`,
				escapeHTML(content.DashboardURL), theme.button); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</div>")
		return err
	})
}

func paragraph(text, style string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		if style == "" {
			_, err := fmt.Fprintf(w, "<p>%s</p>", escapeHTML(text))
			return err
		}
		_, err := fmt.Fprintf(w, `<p style="%s">%s</p>`, style, escapeHTML(text))
		return err
	})
}

func callout(text, background, border, color string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		_, err := fmt.Fprintf(w,
			`<div style="background-color: %s; border: 1px solid %s; padding: 16px; border-radius: 6px; margin: 16px 0;"><p style="margin: 0; color: %s;"><strong>%s</strong></p></div>`,
			background, border, color, escapeHTML(text))
		return err
	})
}

func taskList(heading, color, notePrefix string, tasks []taskLine) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(tasks) == 0 {
			return nil
		}
		if _, err := fmt.Fprintf(w, `<h3 style="color: %s;">%s</h3><ul style="%s">`, color, escapeHTML(heading), listStyle); err != nil {
			return err
		}
		for _, task := range tasks {
			if _, err := fmt.Fprintf(w, `<li style="%s"><strong>%s</strong><br><small style="%s">%s%s</small></li>`,
				itemStyle, escapeHTML(task.Title), mutedStyle, notePrefix, escapeHTML(task.Note)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>")
		return err
	})
}

// parseEmailDetails extracts the fields templates know about. A JSON string
// becomes the detail text; objects may carry task lists and a text field.
func parseEmailDetails(raw []byte) emailDetails {
	if len(raw) == 0 {
		return emailDetails{}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return emailDetails{Text: string(raw)}
	}

	switch v := decoded.(type) {
	case string:
		return emailDetails{Text: v}
	case map[string]any:
		return emailDetails{
			Text:      firstNonEmpty(stringField(v, "text"), stringField(v, "message"), stringField(v, "reason")),
			Scheduled: taskLines(firstPresent(v, "scheduledTasks", "scheduled_tasks"), "scheduled_time", formatScheduledTime),
			Failed:    taskLines(firstPresent(v, "failedTasks", "failed_tasks"), "reason", nil),
		}
	case nil:
		return emailDetails{}
	default:
		return emailDetails{Text: string(raw)}
	}
}

func taskLines(value any, noteKey string, format func(string) string) []taskLine {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	lines := make([]taskLine, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		note := stringField(obj, noteKey)
		if format != nil {
			note = format(note)
		}
		lines = append(lines, taskLine{Title: stringField(obj, "task_title"), Note: note})
	}
	return lines
}

func formatScheduledTime(value string) string {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	}
	return value
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			return v
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
