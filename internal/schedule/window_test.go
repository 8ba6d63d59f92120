package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meltforce/fitcoach/internal/models"
)

func intp(v int) *int { return &v }

func TestReminderHours(t *testing.T) {
	tests := []struct {
		start int
		want  []int
	}{
		{9, []int{9, 11, 13, 14, 15, 16, 17, 18, 19, 20}},
		{0, []int{0, 2, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}},
		{16, []int{16, 18, 20}},
		{17, []int{17, 19, 20}},
		{18, []int{18, 20}},
		{19, []int{19, 20}},
		{20, []int{20}},
		{21, []int{21}},
		{23, []int{23}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReminderHours(tt.start), "start %d", tt.start)
	}
}

func TestReminderHoursIncreasingWithinWindow(t *testing.T) {
	for start := 0; start <= LastReminderHour; start++ {
		hours := ReminderHours(start)
		assert.Equal(t, start, hours[0])
		assert.Equal(t, LastReminderHour, hours[len(hours)-1], "start %d", start)
		for i := 1; i < len(hours); i++ {
			assert.Less(t, hours[i-1], hours[i], "start %d", start)
			assert.LessOrEqual(t, hours[i], LastReminderHour)
		}
	}
}

func TestInWindow(t *testing.T) {
	assert.False(t, InWindow(9, 8))
	assert.True(t, InWindow(9, 9))
	assert.True(t, InWindow(9, 20))
	assert.False(t, InWindow(9, 21))
	assert.False(t, InWindow(21, 21))
}

func TestEvaluateReminder(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 30, 0, time.UTC)
	ago := func(d time.Duration) *time.Time { t := now.Add(-d); return &t }

	tests := []struct {
		name   string
		cfg    models.ReminderConfig
		now    time.Time
		due    bool
		reason string
	}{
		{"default start in schedule", models.ReminderConfig{}, now, true, ""},
		{"before start", models.ReminderConfig{StartHour: intp(15)}, now, false, ReasonOutsideWindow},
		{"after last hour", models.ReminderConfig{}, now.Add(7 * time.Hour), false, ReasonOutsideWindow},
		{"hour not scheduled", models.ReminderConfig{}, now.Add(-2 * time.Hour), false, ReasonNotScheduled},
		{"sent 30 minutes ago", models.ReminderConfig{LastReminderSentAt: ago(30 * time.Minute)}, now, false, ReasonRecentlySent},
		{"sent 56 minutes ago", models.ReminderConfig{LastReminderSentAt: ago(56 * time.Minute)}, now, true, ""},
		{"sent exactly 55 minutes ago", models.ReminderConfig{LastReminderSentAt: ago(55 * time.Minute)}, now, true, ""},
		{"late start hour", models.ReminderConfig{StartHour: intp(21)}, now.Add(7 * time.Hour), false, ReasonOutsideWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := EvaluateReminder(tt.cfg, tt.now)
			assert.Equal(t, tt.due, d.Due)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.now.Hour(), d.Hour)
		})
	}
}

func TestStartHourDefault(t *testing.T) {
	assert.Equal(t, DefaultStartHour, StartHour(models.ReminderConfig{}))
	assert.Equal(t, 7, StartHour(models.ReminderConfig{StartHour: intp(7)}))
}
