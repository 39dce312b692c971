package chapter_cleanup

// CleanupSchema is the JSON schema for a cleaned chapter.
var CleanupSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "chapter_cleanup",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
				"content": map[string]any{
					"type":        "string",
					"description": "The corrected chapter text, paragraphs separated by blank lines",
				},
				"flag": map[string]any{
					"type":        "boolean",
					"description": "True when the chapter needs a human review",
				},
			},
			"required":             []string{"title", "content", "flag"},
			"additionalProperties": false,
		},
	},
}

// Result is the cleaned chapter returned by the model.
type Result struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Flag    bool   `json:"flag"`
}
