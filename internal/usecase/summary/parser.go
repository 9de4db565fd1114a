package summary

import (
	"strings"
	"unicode"

	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
)

type section int

const (
	sectionNone section = iota
	sectionSummary
	sectionActionItems
	sectionKeyDecisions
	sectionTopics
)

var sectionHeaders = []struct {
	name    string
	section section
}{
	{"SUMMARY", sectionSummary},
	{"ACTION ITEMS", sectionActionItems},
	{"KEY DECISIONS", sectionKeyDecisions},
	{"TOPICS", sectionTopics},
}

// ParseSummary extracts the sectioned summary format requested by
// BuildSummaryPrompt. Headers may carry markdown decoration; list items may
// use -, *, • or numbered bullets. Missing sections yield empty lists and
// the summary placeholder.
func ParseSummary(content string) *entities.SummaryResponse {
	var (
		summaryLines []string
		actionItems  []string
		decisions    []string
		topics       []string
		current      = sectionNone
	)

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}

		if sec, rest, ok := parseHeader(line); ok {
			current = sec
			if rest == "" {
				continue
			}
			line = rest
		}

		switch current {
		case sectionSummary:
			summaryLines = append(summaryLines, line)
		case sectionActionItems:
			if item, ok := bulletItem(line); ok {
				actionItems = append(actionItems, item)
			}
		case sectionKeyDecisions:
			if item, ok := bulletItem(line); ok {
				decisions = append(decisions, item)
			}
		case sectionTopics:
			if item, ok := bulletItem(line); ok {
				topics = append(topics, item)
			}
		}
	}

	return entities.NewSummaryResponse(
		strings.TrimSpace(strings.Join(summaryLines, " ")),
		actionItems,
		decisions,
		topics,
	)
}

// parseHeader recognizes "SUMMARY:", "## Summary", "**Key Decisions:**" and
// similar. rest is any text following the header on the same line.
func parseHeader(line string) (section, string, bool) {
	trimmed := strings.TrimLeft(line, "#*_ ")

	for _, h := range sectionHeaders {
		if len(trimmed) < len(h.name) || !strings.EqualFold(trimmed[:len(h.name)], h.name) {
			continue
		}
		rest := trimmed[len(h.name):]
		rest = strings.TrimLeft(rest, "*_ ")
		switch {
		case rest == "":
			return h.section, "", true
		case strings.HasPrefix(rest, ":"):
			return h.section, strings.TrimSpace(strings.Trim(rest[1:], "*_ ")), true
		}
	}
	return sectionNone, "", false
}

// bulletItem strips a list marker. Lines without one are not items.
func bulletItem(line string) (string, bool) {
	if strings.HasPrefix(line, "**") {
		return "", false
	}
	for _, marker := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, marker) {
			item := strings.TrimSpace(strings.TrimPrefix(line, marker))
			return item, item != ""
		}
	}

	digits := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsDigit(r) })
	if digits > 0 && (line[digits] == '.' || line[digits] == ')') {
		item := strings.TrimSpace(line[digits+1:])
		return item, item != ""
	}
	return "", false
}
