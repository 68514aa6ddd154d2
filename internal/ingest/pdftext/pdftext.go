// Package pdftext extracts plain text from PDF policy files by
// shelling out to pdftotext (poppler). PDFs cannot carry a YAML
// frontmatter block, so their metadata ships in a sidecar file parsed
// by the frontmatter package.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands through os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor converts PDF files to plain text.
type Extractor struct {
	runner CommandRunner
}

// New creates an extractor using the system pdftotext binary.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform hints for installing pdftotext.
func InstallInstructions() string {
	return "pdftotext is part of poppler: `brew install poppler` (macOS) or `apt install poppler-utils` (Debian/Ubuntu)"
}

// Extract runs pdftotext on the file at path and returns its text.
// Page breaks become blank lines so downstream splitting treats pages
// as paragraph boundaries.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed for %s: %w", path, err)
	}

	text := strings.ReplaceAll(string(out), "\f", "\n\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no extractable text in %s", path)
	}
	return text, nil
}
