package service

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
)

const synonymSystemPrompt = "You are a helpful assistant that generates similar names. " +
	"Return exactly 25 names, separated by commas."

func synonymPrompt(title string) string {
	return fmt.Sprintf("Generate exactly %d commonly used synonyms or closely related meaningful names in English for '%s', separated by commas.",
		SynonymCount, title)
}

const extractSystemPrompt = `You are a text analyzer. Extract the software modules and their submodules from the input text.
Return a JSON object with exactly this structure and nothing else:
{
  "projectName": "string",
  "modules": [
    {
      "name": "string",
      "submodules": [
        {"title": "string", "description": "string", "category": "string"}
      ]
    }
  ]
}
"category" is a short lower-case tag such as "auth", "ui", "payments" or "reporting".
Do not wrap the response in quotes or add escape characters.`

func estimatePrompt(moduleName, title string, maxHours float64) string {
	return fmt.Sprintf(`As an experienced developer, estimate the development hours required for a "%s" feature within the "%s" module.
Important constraints:
- Maximum hours allowed: %s hours
- Estimate should be reasonable and practical

Return only an array with a single object in this structure:
[
  {
    "moduleName": %q,
    "title": %q,
    "duration": number (development hours for this feature)
  }
]`, title, moduleName, strconv.FormatFloat(maxHours, 'f', -1, 64), moduleName, title)
}

const correctionSystemPrompt = `You are an AI assistant that helps modify project estimate fields.
Always respond with JSON in the format:
{ "suggestions": { "fieldName": newValue }, "explanation": "reason for changes" }
Known fields are "name", "description", "duration" (days) and "budget".`

func correctionPrompt(currentFields map[string]any, message string) string {
	fields, _ := json.Marshal(currentFields)
	return fmt.Sprintf("Current fields: %s\nUser request: %s\nPlease suggest appropriate changes.", fields, message)
}

func chatPrompt(ctx ProjectContext, suggestions []domain.Suggestion) string {
	current, _ := json.MarshalIndent(suggestions, "", "  ")
	return fmt.Sprintf(`As an AI project planning assistant, please review and provide corrections for the following project module suggestions.

Project Context:
Name: %s
Description: %s
Total Duration: %s hours

User Message:
%s

Current Suggestions:
%s

Please:
1. Address the user's specific request/question
2. Review the module structure and durations
3. Suggest any missing crucial modules
4. Correct any unrealistic durations
5. Ensure modules are properly organized
6. Return both an explanation and the corrected suggestions

Provide your response in the following JSON format:
{
  "explanation": "Your detailed explanation here",
  "updatedSuggestions": [{"moduleName": "string", "title": "string", "duration": number, "exists": boolean}]
}
Important: Do not modify the 'exists' property of existing suggestions. For any new suggestions you add, set 'exists' to false.`,
		ctx.Name, ctx.Description, strconv.FormatFloat(ctx.Duration, 'f', -1, 64), ctx.UserMessage, current)
}

const planSystemPrompt = "You are a software project planner. Answer in plain text."

func planPrompt(text string) string {
	return fmt.Sprintf("Look at the following project brief and use it to create the key features of the application. "+
		"For each feature, create phases, a budget and a timeline.\n\n%s", text)
}
