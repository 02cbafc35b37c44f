package cmd

import "strings"

// classifyTaskCategory infers the task category from the title using keyword heuristics.
// Health is checked before study, study before work. Defaults to "personal".
func classifyTaskCategory(title string) string {
	lower := strings.ToLower(title)

	healthKeywords := []string{
		"gym", "workout", "run ", "running", "yoga", "stretch",
		"meditat", "doctor", "dentist", "walk", "exercise", "sleep",
	}
	for _, kw := range healthKeywords {
		if strings.Contains(lower, kw) {
			return "health"
		}
	}
	// "run" at end of string
	if strings.HasSuffix(lower, " run") || lower == "run" {
		return "health"
	}

	studyKeywords := []string{
		"study", "studying", "read ", "reading", "learn", "course",
		"lecture", "homework", "exam", "revise", "revision", "chapter", "thesis",
	}
	for _, kw := range studyKeywords {
		if strings.Contains(lower, kw) {
			return "study"
		}
	}

	workKeywords := []string{
		"meeting", "report", "review", "deploy", "client", "email",
		"presentation", "proposal", "deadline", "invoice", "standup", "refactor", "bug",
	}
	for _, kw := range workKeywords {
		if strings.Contains(lower, kw) {
			return "work"
		}
	}

	return "personal"
}

// classifyTaskPriority infers the task priority from the title using keyword heuristics.
// Urgent keywords are checked first, then high, then low. Defaults to "medium".
func classifyTaskPriority(title string) string {
	lower := strings.ToLower(title)

	urgentKeywords := []string{"urgent", "asap", "today", "right now", "emergency"}
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return "urgent"
		}
	}

	highKeywords := []string{"important", "deadline", "critical", "due ", "blocker"}
	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			return "high"
		}
	}

	lowKeywords := []string{"someday", "maybe", "nice to have", "eventually", "low priority"}
	for _, kw := range lowKeywords {
		if strings.Contains(lower, kw) {
			return "low"
		}
	}

	return "medium"
}
