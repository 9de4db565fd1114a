package summary

import (
	"fmt"
	"strings"

	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
)

const (
	summarySystemPrompt = "You are an expert meeting analyst. Your task is to analyze " +
		"meeting transcripts and provide clear, actionable summaries. " +
		"The transcript may contain multiple languages including Cantonese and English."

	answerSystemPrompt = "You are a helpful assistant that answers questions about " +
		"meeting transcripts. Base your answers strictly on the provided context. " +
		"If the answer is not in the context, say so. " +
		"The transcript may contain Cantonese and English."
)

// BuildSummaryPrompt renders the user prompt for meeting summarization.
// Speakers are listed in the order given.
func BuildSummaryPrompt(transcript string, speakers []string, turns map[string]int, durationSeconds float64) string {
	speakerList := make([]string, 0, len(speakers))
	for _, s := range speakers {
		speakerList = append(speakerList, fmt.Sprintf("%s (%d turns)", s, turns[s]))
	}

	var sb strings.Builder
	sb.WriteString("Please analyze the following meeting transcript and provide:\n\n")
	sb.WriteString("1. **Summary**: A concise 1-2 paragraph overview of the meeting\n")
	sb.WriteString("2. **Action Items**: A bulleted list of specific action items and who should do them\n")
	sb.WriteString("3. **Key Decisions**: A bulleted list of important decisions made\n")
	sb.WriteString("4. **Topics**: Main topics or themes discussed\n\n")
	sb.WriteString("**Meeting Info:**\n")
	fmt.Fprintf(&sb, "- Duration: %.1f minutes\n", durationSeconds/60)
	fmt.Fprintf(&sb, "- Speakers: %s\n\n", strings.Join(speakerList, ", "))
	sb.WriteString("**Transcript:**\n")
	sb.WriteString(transcript)
	sb.WriteString("\n\n**Format your response as:**\n\n")
	sb.WriteString("SUMMARY:\n[Your summary here]\n\n")
	sb.WriteString("ACTION ITEMS:\n- [Action item 1]\n- [Action item 2]\n...\n\n")
	sb.WriteString("KEY DECISIONS:\n- [Decision 1]\n- [Decision 2]\n...\n\n")
	sb.WriteString("TOPICS:\n- [Topic 1]\n- [Topic 2]\n...\n")
	return sb.String()
}

// BuildAnswerPrompt renders the user prompt for question answering.
func BuildAnswerPrompt(contextText, question string) string {
	var sb strings.Builder
	sb.WriteString("Based on the following meeting transcript context, please answer the question.\n\n")
	sb.WriteString("**Context:**\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\n**Question:**\n")
	sb.WriteString(question)
	sb.WriteString("\n\n**Instructions:**\n")
	sb.WriteString("- Answer based only on the provided context\n")
	sb.WriteString("- If the answer is not in the context, clearly state that\n")
	sb.WriteString("- Be concise and specific\n")
	sb.WriteString("- Include relevant timestamps or speaker names if applicable\n\n")
	sb.WriteString("**Answer:**")
	return sb.String()
}

// BuildContext joins retrieved chunks into the QA context block.
func BuildContext(chunks []entities.TranscriptChunk) string {
	lines := make([]string, len(chunks))
	for i, c := range chunks {
		lines[i] = c.ContextString()
	}
	return strings.Join(lines, "\n\n")
}
