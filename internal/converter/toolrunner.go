package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/tplbuild/internal/errors"
	"git.home.luguber.info/inful/tplbuild/internal/logfields"
)

// runTool executes an external tool and captures its combined output. On a
// non-zero exit the output is attached to the returned conversion error so
// the tool's diagnostics survive aggregation.
func runTool(ctx context.Context, tool string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if ctx.Err() != nil {
			return output, errors.Wrap(ctx.Err(), errors.CategoryConversion, errors.SeverityError,
				fmt.Sprintf("%s interrupted", tool)).WithContext("tool", tool)
		}
		// The tool ran and failed; a retry may help under transient load.
		be := errors.WrapRetryable(err, errors.CategoryConversion, errors.SeverityError,
			fmt.Sprintf("%s failed", tool)).WithContext("tool", tool)
		if output != "" {
			be = be.WithContext("output", output)
		}
		return output, be
	}
	return output, nil
}

// toolAvailable probes a tool with its version flag. Absence is a normal
// condition, logged at debug level.
func toolAvailable(ctx context.Context, tool string) bool {
	if _, err := exec.LookPath(tool); err != nil {
		slog.Debug("tool not found in PATH", logfields.Tool(tool))
		return false
	}
	cmd := exec.CommandContext(ctx, tool, "--version")
	if err := cmd.Run(); err != nil {
		slog.Debug("tool version probe failed", logfields.Tool(tool), logfields.Error(err))
		return false
	}
	return true
}

// gemInstalled checks for a ruby gem via `gem list -i`.
func gemInstalled(ctx context.Context, name string) bool {
	cmd := exec.CommandContext(ctx, "gem", "list", "-i", name)
	if err := cmd.Run(); err != nil {
		slog.Debug("gem not installed", logfields.Tool(name), logfields.Error(err))
		return false
	}
	return true
}
