package planner

import (
	"strings"
)

// SystemPrompt fixes the output contract for every strategy
const SystemPrompt = `You turn messy free-form notes into a task plan for an issue tracker.
Respond with ONLY valid JSON, no markdown and no commentary.
Valid priorities: Highest, High, Medium, Low, Lowest.
Normalize every date to the format YYYY-MM-DD.`

const userPromptTemplate = `Convert the following text into a list of tasks with subtasks.

Return a JSON object of this exact shape:
{
  "tasks": [
    {
      "title": "short imperative summary",
      "description": "details, may be empty",
      "labels": ["lowercase-label"],
      "priority": "Medium",
      "due_date": "YYYY-MM-DD or null",
      "assignee": "name or email, or null",
      "subtasks": [
        {
          "title": "short imperative summary",
          "description": "details, may be empty",
          "due_date": "YYYY-MM-DD or null",
          "assignee": "name or email, or null"
        }
      ]
    }
  ]
}

Rules:
- One task per distinct piece of work; put smaller steps of that work in subtasks.
- Use at most 10 labels per task, without spaces.
- Default the priority to Medium when the text does not state one.
- Read ambiguous numeric dates as day/month/year.
- Ignore a line starting with "Epic:"; it names the epic the tasks belong to.

TEXT:
"""
{{brief}}
"""`

// BuildUserPrompt embeds the brief in the user instruction
func BuildUserPrompt(brief string) string {
	return strings.Replace(userPromptTemplate, "{{brief}}", strings.TrimSpace(brief), 1)
}

// CombinedPrompt joins both instructions for single-prompt completion APIs
func CombinedPrompt(systemPrompt, userPrompt string) string {
	return systemPrompt + "\n\n" + userPrompt
}
