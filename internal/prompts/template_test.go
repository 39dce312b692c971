package prompts

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "plain text", nil},
		{"single", "Hello {{.Name}}", []string{"Name"}},
		{"sorted and deduped", "{{.B}} {{ .A }} {{.B}}", []string{"A", "B"}},
		{"nested", "{{.Job.ID}}", []string{"Job.ID"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractVariables(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractVariables() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashText(t *testing.T) {
	if HashText("a") == HashText("b") {
		t.Error("different text should hash differently")
	}
	if len(HashText("a")) != 64 {
		t.Errorf("expected hex sha256, got %q", HashText("a"))
	}
}

func TestRender(t *testing.T) {
	got, err := Render("Title: {{.Title}}", struct{ Title string }{"Prologue"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "Title: Prologue" {
		t.Errorf("Render() = %q", got)
	}

	if _, err := Render("{{.Missing}}", struct{ Title string }{"x"}); err == nil {
		t.Error("expected error for unknown field")
	}
	if _, err := Render("{{.Missing}}", map[string]string{}); err == nil {
		t.Error("expected error for missing map key")
	}
	if _, err := Render("{{", nil); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}
