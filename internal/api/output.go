package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OutputFormat is how CLI commands render responses.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// outputFormat is set by the root command's --output flag. YAML keeps
// multi-line chapter text readable as block scalars.
var outputFormat = OutputFormatYAML

// SetOutputFormat selects the format used by Output.
func SetOutputFormat(format string) error {
	switch f := OutputFormat(format); f {
	case OutputFormatJSON, OutputFormatYAML:
		outputFormat = f
		return nil
	default:
		return fmt.Errorf("unknown output format %q: want yaml or json", format)
	}
}

// Output writes data to stdout in the selected format.
func Output(data any) error {
	return OutputTo(os.Stdout, outputFormat, data)
}

// OutputTo writes data to w in format.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
