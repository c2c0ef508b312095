package tasks

import "strings"

const promptTemplate = `You are an AI assistant that generates realistic development task workflows. Generate a set of tasks that would occur during {{prompt}}.
Each task should have:
- A descriptive title
- Multiple task items showing the progression
- Some items should be plain text, others should reference files
- Use realistic file names and appropriate file types
- Status should progress from pending to in_progress to completed
For file items, use these icon types: 'react', 'typescript', 'javascript', 'css', 'html', 'json', 'markdown'
Generate 3-4 tasks total, with 4-6 items each.`

// BuildPrompt embeds the user's description in the generation instruction.
func BuildPrompt(prompt string) string {
	return strings.Replace(promptTemplate, "{{prompt}}", strings.TrimSpace(prompt), 1)
}
