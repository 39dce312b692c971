package evaluate

// EvaluationSchema is the JSON schema for an extraction score.
var EvaluationSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "extraction_evaluation",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"score": map[string]any{
					"type":        "number",
					"description": "Overall extraction quality from 1 (unusable) to 10 (perfect)",
				},
				"summary": map[string]any{
					"type":        "string",
					"description": "Short explanation of the score",
				},
			},
			"required":             []string{"score", "summary"},
			"additionalProperties": false,
		},
	},
}

// Result is the evaluation returned by the model.
type Result struct {
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}
