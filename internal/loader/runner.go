package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs found on PATH.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrToolNotFound, name, InstallInstructions(name))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stderr.Len() > 0 {
			return nil, fmt.Errorf("%s failed: %s", name, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// InstallInstructions returns a hint for installing one of the extraction tools.
func InstallInstructions(tool string) string {
	switch tool {
	case pdfTool:
		return "install poppler: brew install poppler / apt install poppler-utils"
	case ocrTool:
		return "install tesseract: brew install tesseract / apt install tesseract-ocr"
	default:
		return "install " + tool + " and make sure it is on PATH"
	}
}

// CheckAvailable reports which extraction tools are missing from PATH.
func CheckAvailable() []string {
	return missingTools(exec.LookPath)
}

func missingTools(lookPath func(string) (string, error)) []string {
	var missing []string
	for _, tool := range []string{pdfTool, ocrTool} {
		if _, err := lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}
