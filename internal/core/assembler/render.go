package assembler

import "strings"

// Section headers Render emits. The pruner charges these during packing
// so the rendered block stays inside the token budget.
const (
	sectionFacts        = "Known Facts"
	sectionInsights     = "Insights"
	sectionConversation = "Recent Conversation"
	sectionKnowledge    = "Related Knowledge"
	sectionTemporal     = "Temporal Context"
)

// Render produces the prompt-ready text block. Section order is fixed
// (facts, insights, conversation, knowledge, temporal) and empty sections
// are omitted, so the same input always renders the same output.
func Render(a AssembledContext) string {
	var b strings.Builder

	section := func(header string, items []Item) {
		if len(items) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## ")
		b.WriteString(header)
		b.WriteString("\n")
		for _, item := range items {
			b.WriteString("- ")
			b.WriteString(strings.TrimSpace(item.Content))
			b.WriteString("\n")
		}
	}

	section(sectionFacts, a.Facts)
	section(sectionInsights, a.Insights)
	section(sectionConversation, a.Conversation)

	knowledge := make([]Item, 0, len(a.Graph)+len(a.CrossApp))
	knowledge = append(knowledge, a.Graph...)
	knowledge = append(knowledge, a.CrossApp...)
	section(sectionKnowledge, knowledge)

	section(sectionTemporal, a.Temporal)

	return b.String()
}
