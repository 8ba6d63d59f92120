// Package notify renders reminder and preview messages and delivers them over Telegram.
package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/meltforce/fitcoach/internal/models"
	"github.com/meltforce/fitcoach/internal/plantext"
)

// Tier is the urgency of a task reminder, chosen by time of day alone.
type Tier int

const (
	TierGentle Tier = iota
	TierModerate
	TierUrgent
	TierCritical
)

// TierForHour maps a local hour to its urgency tier:
// before 12 gentle, 12-14 moderate, 15-17 urgent, 18 and later critical.
func TierForHour(hour int) Tier {
	switch {
	case hour < 12:
		return TierGentle
	case hour < 15:
		return TierModerate
	case hour < 18:
		return TierUrgent
	default:
		return TierCritical
	}
}

func (t Tier) String() string {
	switch t {
	case TierGentle:
		return "gentle"
	case TierModerate:
		return "moderate"
	case TierUrgent:
		return "urgent"
	case TierCritical:
		return "critical"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

func (t Tier) emoji() string {
	switch t {
	case TierGentle:
		return "💪"
	case TierModerate:
		return "⚡"
	case TierUrgent:
		return "🔥"
	case TierCritical:
		return "🚨"
	}
	return "📋"
}

func (t Tier) headline() string {
	switch t {
	case TierGentle:
		return "Good morning! Time to get things done."
	case TierModerate:
		return "Hey! Don't forget about your tasks today."
	case TierUrgent:
		return "Time is running out! Complete your tasks now!"
	case TierCritical:
		return "⚠️ URGENT: Complete your tasks before the day ends!"
	}
	return "Reminder about your daily tasks."
}

// RenderReminder builds the HTML reminder listing every incomplete task.
func RenderReminder(tasks []models.Task, hour int) string {
	tier := TierForHour(hour)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>Daily Tasks Reminder</b>\n\n%s\n\n", tier.emoji(), tier.headline())

	plural := "s"
	if len(tasks) == 1 {
		plural = ""
	}
	fmt.Fprintf(&b, "You have %d task%s to complete:", len(tasks), plural)
	for _, t := range tasks {
		b.WriteString("\n• ")
		b.WriteString(html.EscapeString(t.Title))
	}
	return b.String()
}

// RenderPreview builds the HTML preview of the next workout of a plan.
func RenderPreview(planName string, day plantext.DaySection) string {
	lines := make([]string, len(day.Exercises))
	for i, ex := range day.Exercises {
		lines[i] = "  " + html.EscapeString(ex)
	}
	return fmt.Sprintf("💪 <b>%s</b>\n\n<b>%s</b>\n\n%s\n\n🔥 Let's crush it!",
		html.EscapeString(planName), html.EscapeString(day.Label), strings.Join(lines, "\n"))
}
