package chapter_titles

// ExtractionSchema is the JSON schema for chapter title extraction output.
var ExtractionSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "chapter_titles",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"titles": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Chapter titles exactly as written in the manuscript, in reading order",
				},
			},
			"required":             []string{"titles"},
			"additionalProperties": false,
		},
	},
}

// Result represents the parsed result from title extraction.
type Result struct {
	Titles []string `json:"titles"`
}
