package plantext

import (
	"regexp"
	"strings"
)

// weightLineRe builds the matcher for one exercise's prescription line:
//
//	<name> - <sets>x<reps> @ <weight> | <rest between sets> | <rest before next>
//
// The name must open the line, after optional indentation and a list marker ("-", "*",
// "1." or "1)"), so "Bench Press" never touches "Incline Bench Press".
// Group 1 is everything up to the weight, group 2 the weight, group 3 the pipe and the
// remainder of the line. The weight stops before any whitespace preceding the pipe so the
// original spacing survives a rewrite.
func weightLineRe(exerciseName string) *regexp.Regexp {
	return regexp.MustCompile(
		`(?m)(^[ \t]*(?:[-*][ \t]*|\d+[.)][ \t]*)?` + regexp.QuoteMeta(exerciseName) + `[ \t]*-[ \t]*\d+x[\d-]+[ \t]*@[ \t]*)` +
			`([^|\n]+?)` +
			`([ \t]*\|[^\n]*)`)
}

// RewriteWeight replaces the prescribed weight of every line for exerciseName and leaves all
// other bytes of planText as they were. The name is matched literally. When the exercise does
// not appear in the expected shape, or newWeight is not a valid weight, planText is returned
// unchanged. Surrounding whitespace of newWeight is dropped, since the line keeps its own
// spacing around the weight; this keeps the rewrite idempotent.
func RewriteWeight(planText, exerciseName, newWeight string) string {
	newWeight = strings.TrimSpace(newWeight)
	if exerciseName == "" || !ValidWeight(newWeight) {
		return planText
	}
	tmpl := "${1}" + strings.ReplaceAll(newWeight, "$", "$$") + "${3}"
	return weightLineRe(exerciseName).ReplaceAllString(planText, tmpl)
}

// ContainsExercise reports whether planText has at least one rewritable line for exerciseName.
func ContainsExercise(planText, exerciseName string) bool {
	if exerciseName == "" {
		return false
	}
	return weightLineRe(exerciseName).MatchString(planText)
}

// ValidWeight reports whether w can be written into a prescription line. A pipe or a line
// break would change the line's structure.
func ValidWeight(w string) bool {
	return strings.TrimSpace(w) != "" && !strings.ContainsAny(w, "|\r\n")
}
