package notifications

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeHTML(t *testing.T) {
	require.Equal(t, "&lt;a href=&quot;x&quot;&gt;&amp;&#x27;&lt;&#x2F;a&gt;", escapeHTML(`<a href="x">&'</a>`))
	require.Equal(t, "plain", escapeHTML("plain"))
}

func TestRenderEmailSubjects(t *testing.T) {
	cases := map[string]string{
		TypeAutoSchedulingCompleted: "✅ Auto-Scheduling Completed",
		TypeAutoSchedulingError:     "⚠️ Auto-Scheduling Issues Detected",
		TypeWeatherConflict:         "🌦️ Weather Affected Task Scheduling",
		TypeCalendarConflict:        "📅 Calendar Conflicts Detected",
	}
	for notificationType, want := range cases {
		subject, body, err := RenderEmail(context.Background(), EmailContent{
			RecipientName:    "Ada",
			NotificationType: notificationType,
			Title:            "ignored",
		})
		require.NoError(t, err)
		require.Equal(t, want, subject, notificationType)
		require.True(t, strings.HasPrefix(body, "<div"), notificationType)
		require.Contains(t, body, "Hello Ada,")
	}
}

func TestRenderEmailFallbackSubject(t *testing.T) {
	subject, body, err := RenderEmail(context.Background(), EmailContent{
		RecipientName:    "there",
		NotificationType: "digest",
		Title:            "Weekly digest",
		Message:          "Nothing new",
	})
	require.NoError(t, err)
	require.Equal(t, "Weekly digest", subject)
	require.Contains(t, body, "<p>Nothing new</p>")

	subject, _, err = RenderEmail(context.Background(), EmailContent{NotificationType: "digest"})
	require.NoError(t, err)
	require.Equal(t, "Auto-Scheduling Update", subject)
}

func TestRenderEmailEscapesUserContent(t *testing.T) {
	_, body, err := RenderEmail(context.Background(), EmailContent{
		RecipientName:    `<script>alert("x")</script>`,
		NotificationType: TypeCalendarConflict,
		Details:          []byte(`"<b>clash</b>"`),
	})
	require.NoError(t, err)
	require.NotContains(t, body, "<script>")
	require.NotContains(t, body, "<b>clash")
	require.Contains(t, body, "&lt;script&gt;")
	require.Contains(t, body, "&lt;b&gt;clash&lt;&#x2F;b&gt;")
}

func TestRenderEmailTaskLists(t *testing.T) {
	details := []byte(`{
		"scheduledTasks": [{"task_title": "Mow lawn", "scheduled_time": "2026-03-02T15:30:00Z"}],
		"failed_tasks": [{"task_title": "Paint fence", "reason": "No free slot"}]
	}`)
	_, body, err := RenderEmail(context.Background(), EmailContent{
		RecipientName:    "Ada",
		NotificationType: TypeAutoSchedulingCompleted,
		Details:          details,
		DashboardURL:     "https://app.example.com/dashboard",
	})
	require.NoError(t, err)
	require.Contains(t, body, "Successfully Scheduled Tasks (1)")
	require.Contains(t, body, "<strong>Mow lawn</strong>")
	require.Contains(t, body, "Scheduled for: Mon, 02 Mar 2026 15:30 UTC")
	require.Contains(t, body, "Failed to Schedule (1)")
	require.Contains(t, body, "Reason: No free slot")
	require.Contains(t, body, ">View Dashboard</a>")
}

func TestRenderEmailErrorCallout(t *testing.T) {
	_, body, err := RenderEmail(context.Background(), EmailContent{
		RecipientName:    "Ada",
		NotificationType: TypeAutoSchedulingError,
		Message:          "Calendar sync failed",
		DashboardURL:     "https://app.example.com/dashboard",
	})
	require.NoError(t, err)
	require.Contains(t, body, "<strong>Calendar sync failed</strong>")
	require.Contains(t, body, ">Review Tasks</a>")
	require.NotContains(t, body, "Tasks That Couldn")
}

func TestRenderEmailWithoutDashboardOmitsButton(t *testing.T) {
	_, body, err := RenderEmail(context.Background(), EmailContent{NotificationType: TypeWeatherConflict})
	require.NoError(t, err)
	require.NotContains(t, body, "<a ")
}

func TestParseEmailDetails(t *testing.T) {
	require.Equal(t, emailDetails{}, parseEmailDetails(nil))
	require.Equal(t, emailDetails{Text: "plain"}, parseEmailDetails([]byte(`"plain"`)))
	require.Equal(t, emailDetails{Text: "not json"}, parseEmailDetails([]byte(`not json`)))
	require.Equal(t, emailDetails{Text: "because"}, parseEmailDetails([]byte(`{"reason":"because"}`)))
	require.Equal(t, emailDetails{Text: "42"}, parseEmailDetails([]byte(`42`)))
}
