package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OutputFormat is the format of structured CLI output.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// globalOutputFormat is set by the root command's --output flag. Empty means
// the command picks: a table for listings, YAML for everything else.
var globalOutputFormat OutputFormat

// SetOutputFormat sets the global output format.
func SetOutputFormat(format string) error {
	switch OutputFormat(format) {
	case "", OutputFormatYAML, OutputFormatJSON:
		globalOutputFormat = OutputFormat(format)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", format)
	}
}

// GetOutputFormat returns the current global output format.
func GetOutputFormat() OutputFormat {
	if globalOutputFormat == "" {
		return OutputFormatYAML
	}
	return globalOutputFormat
}

// IsStructuredOutput reports whether yaml or json output was asked for
// explicitly. Listing commands print tables otherwise.
func IsStructuredOutput() bool {
	return globalOutputFormat != ""
}

// Output writes data to stdout in the configured format.
func Output(data any) error {
	return OutputTo(os.Stdout, GetOutputFormat(), data)
}

// OutputTo writes data to the given writer in the specified format.
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
