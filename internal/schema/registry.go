// Package schema holds the DefraDB collection definitions used by the defra
// job store and the LLM call sink.
package schema

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed schemas/*.graphql
var schemaFS embed.FS

// Schema represents a DefraDB collection schema.
type Schema struct {
	Name string // Collection name, e.g. "Job"
	SDL  string // GraphQL SDL definition
}

// names lists collections in the order they are applied.
var names = []string{"Job", "Part", "LLMCall"}

// All returns every schema with its SDL loaded.
func All() ([]Schema, error) {
	schemas := make([]Schema, 0, len(names))
	for _, name := range names {
		s, err := Get(name)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, *s)
	}
	return schemas, nil
}

// Get returns a single schema by collection name.
func Get(name string) (*Schema, error) {
	known := false
	for _, n := range names {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("schema not found: %s", name)
	}

	content, err := schemaFS.ReadFile("schemas/" + strings.ToLower(name) + ".graphql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
	}
	return &Schema{Name: name, SDL: string(content)}, nil
}
