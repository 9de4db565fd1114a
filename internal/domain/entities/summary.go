package entities

// SummaryPlaceholder is used when no summary text could be parsed.
const SummaryPlaceholder = "Summary not available."

// SummaryResponse is the structured synthesis of a meeting.
type SummaryResponse struct {
	Summary      string   `json:"summary"`
	ActionItems  []string `json:"action_items"`
	KeyDecisions []string `json:"key_decisions"`
	Topics       []string `json:"topics"`
}

// NewSummaryResponse normalizes nil lists to empty ones and applies the
// placeholder summary.
func NewSummaryResponse(summary string, actionItems, keyDecisions, topics []string) *SummaryResponse {
	if summary == "" {
		summary = SummaryPlaceholder
	}
	return &SummaryResponse{
		Summary:      summary,
		ActionItems:  nonNil(actionItems),
		KeyDecisions: nonNil(keyDecisions),
		Topics:       nonNil(topics),
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
