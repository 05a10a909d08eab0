// Package reporting renders scenario outcomes for humans and CI.
package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

// Reporter defines the interface for writing scenario outcomes to an output.
type Reporter interface {
	// Write processes a single outcome.
	Write(outcome *schemas.ScenarioOutcome) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a new reporter based on the specified format and output path. An empty path
// or "stdout" writes to standard output. format is case-insensitive.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	format = strings.ToLower(format)
	switch format {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		path, err := homedir.Expand(outputPath)
		if err != nil {
			return nil, fmt.Errorf("could not resolve output path '%s': %w", outputPath, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory for %s: %w", path, err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
		}
		writer = f
	}

	if format == "json" {
		return NewJSONReporter(writer, toolVersion), nil
	}
	return NewTextReporter(writer, isStdOut), nil
}
