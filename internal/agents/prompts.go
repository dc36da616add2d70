package agents

import (
	"strings"

	_ "embed"
)

//go:embed prompts/chat_system.md
var chatSystemTemplate string

//go:embed prompts/screening.md
var screeningTemplate string

//go:embed prompts/interview_system.md
var interviewSystemTemplate string

//go:embed prompts/interview_turn.md
var interviewTurnTemplate string

//go:embed prompts/interview_feedback.md
var interviewFeedbackTemplate string

// renderTemplate substitutes {{KEY}} placeholders in the template.
func renderTemplate(template string, values map[string]string) string {
	out := template
	for key, value := range values {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return strings.TrimSpace(out)
}
