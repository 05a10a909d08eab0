// Package evidence writes screenshots of the page under test to disk.
package evidence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/failure"
)

// Capturer takes screenshots and writes them as PNG files. Every failure it returns is a
// CaptureFailure; callers record it and carry on.
type Capturer struct {
	logger    *zap.Logger
	outputDir string
	fullPage  bool
}

// NewCapturer creates a capturer. Relative artifact paths are resolved against outputDir.
func NewCapturer(logger *zap.Logger, outputDir string, fullPage bool) *Capturer {
	return &Capturer{
		logger:    logger.Named("evidence"),
		outputDir: outputDir,
		fullPage:  fullPage,
	}
}

// Resolve returns the absolute-or-output-relative path an artifact would be written to.
func (c *Capturer) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty artifact path")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("could not expand artifact path '%s': %w", path, err)
	}
	if !filepath.IsAbs(expanded) && c.outputDir != "" {
		dir, err := homedir.Expand(c.outputDir)
		if err != nil {
			return "", fmt.Errorf("could not expand output directory '%s': %w", c.outputDir, err)
		}
		expanded = filepath.Join(dir, expanded)
	}
	return filepath.Clean(expanded), nil
}

// Capture screenshots page and writes it to path, overwriting any existing file.
func (c *Capturer) Capture(ctx context.Context, page schemas.Page, path string, state schemas.CaptureState) (schemas.EvidenceArtifact, error) {
	fullPath, err := c.Resolve(path)
	if err != nil {
		return schemas.EvidenceArtifact{}, failure.Wrap(failure.Capture, "capture", path, err)
	}

	buf, err := page.Screenshot(ctx, c.fullPage)
	if err != nil {
		return schemas.EvidenceArtifact{}, failure.Wrap(failure.Capture, "capture", fullPath, err)
	}
	capturedAt := time.Now()

	// Ensure the parent directory exists.
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return schemas.EvidenceArtifact{}, failure.Wrap(failure.Capture, "capture", fullPath,
			fmt.Errorf("failed to create directory %s: %w", dir, err))
	}
	if err := os.WriteFile(fullPath, buf, 0644); err != nil {
		return schemas.EvidenceArtifact{}, failure.Wrap(failure.Capture, "capture", fullPath,
			fmt.Errorf("failed to write file: %w", err))
	}

	artifact := schemas.EvidenceArtifact{
		Path:       fullPath,
		State:      state,
		CapturedAt: capturedAt,
		Bytes:      len(buf),
	}
	c.logger.Info("Screenshot taken successfully.",
		zap.String("path", fullPath),
		zap.String("state", string(state)),
		zap.Int("bytes", len(buf)))
	return artifact, nil
}
