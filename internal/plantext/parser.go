// Package plantext reads and edits the free-form workout plan text produced by the assistant.
//
// Plan text is organized in day sections:
//
//	Day 1 - Push Focus:
//	- Bench Press - 4x8-10 @ 60kg | 90s | 2min
//	- Overhead Press - 3x10 @ 35kg | 60s | 90s
//
//	Day 2 - Legs:
//	- Squat - 5x5 @ 100kg | 2min | 3min
//
// Nothing here returns an error: upstream text is not under our control, so unrecognized
// lines are skipped and edits that do not apply leave the text untouched.
package plantext

import (
	"regexp"
	"strings"
)

var (
	// dayHeaderRe matches "Day 1 - Push:", "Day 3: Squat 5x5", "Monday - Upper:", "Leg Day".
	// Group 1 is the label (text before the first colon), group 2 the rest of the line.
	dayHeaderRe = regexp.MustCompile(`(?i)^(day\s+\d+[^:]*?|\w*day\b[^:]*?|[^:]*?\bday)\s*(?::\s*(.*))?$`)

	// exerciseRe matches "- Bench Press - 4x10 @ 50kg | 60s | 90s".
	exerciseRe = regexp.MustCompile(`^-\s*(.+)$`)

	// headerDecorRe strips markdown heading marks and bold markers around a header.
	headerDecorRe = regexp.MustCompile(`^#+\s*|^\*\*|\*\*$|^__|__$`)
)

// DaySection is one day of a plan: its header label and exercise lines in source order.
type DaySection struct {
	Label     string   `json:"day"`
	Exercises []string `json:"exercises"`
}

// Model is a parsed plan. It is a derived view; the plan text stays the source of truth.
type Model struct {
	Days []DaySection `json:"days"`
}

// Parse returns up to maxDays non-empty day sections from text, in source order.
// maxDays <= 0 returns every section.
//
// A blank line closes the open section if it already has exercises. A header line always
// closes the open section and starts a new one. Exercise lines before the first header and
// lines of any other shape are dropped. Sections without exercises are never returned.
func Parse(text string, maxDays int) []DaySection {
	var days []DaySection
	var current *DaySection

	full := func() bool {
		return maxDays > 0 && len(days) >= maxDays
	}

	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)

		// Blank line = section boundary
		if line == "" {
			if current != nil && len(current.Exercises) > 0 {
				days = append(days, *current)
				current = nil
				if full() {
					return days
				}
			}
			continue
		}

		if m := exerciseRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				current.Exercises = append(current.Exercises, strings.TrimSpace(m[1]))
			}
			continue
		}

		if label, rest, ok := matchDayHeader(line); ok {
			if current != nil && len(current.Exercises) > 0 {
				days = append(days, *current)
				if full() {
					return days
				}
			}
			current = &DaySection{Label: label}
			if rest != "" {
				current.Exercises = append(current.Exercises, rest)
			}
			continue
		}

		// Unknown line: intro text, notes, tips. Skip.
	}

	if current != nil && len(current.Exercises) > 0 && !full() {
		days = append(days, *current)
	}
	return days
}

// ParseModel parses every day section of text.
func ParseModel(text string) Model {
	return Model{Days: Parse(text, 0)}
}

// NextWorkout returns the first day section of the plan, used for the preview notification.
func NextWorkout(text string) (DaySection, bool) {
	days := Parse(text, 1)
	if len(days) == 0 {
		return DaySection{}, false
	}
	return days[0], true
}

// matchDayHeader splits a header line into its label and trailing text.
func matchDayHeader(line string) (label, rest string, ok bool) {
	cleaned := strings.TrimSpace(headerDecorRe.ReplaceAllString(line, ""))
	m := dayHeaderRe.FindStringSubmatch(cleaned)
	if m == nil {
		return "", "", false
	}
	label = strings.TrimSpace(m[1])
	if label == "" {
		return "", "", false
	}
	rest = strings.TrimSpace(strings.Trim(m[2], "*_"))
	return label, rest, true
}
