package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"

	goversion "github.com/hashicorp/go-version"
)

const minCLIVersion = "2.50.0"

var (
	// ErrCLIMissing means the Azure CLI is absent and cannot be installed by
	// the wizard; the operator must install it and re-run.
	ErrCLIMissing = errors.New("azure cli not found on PATH")
	// ErrCLIRestartNeeded means the CLI exists on disk but not on this
	// process's PATH, typically right after installation: a new shell fixes it.
	ErrCLIRestartNeeded = errors.New("azure cli installed but not on PATH, restart your shell and re-run")
	ErrCLIOutdated      = errors.New("azure cli version is too old")
)

// CheckEnvironment verifies the required client tooling before any remote
// call is attempted. Failures here are fatal to the run.
func CheckEnvironment(ctx context.Context) error {
	if _, err := exec.LookPath("az"); err != nil {
		if cliInstalledOffPath() {
			return ErrCLIRestartNeeded
		}
		return fmt.Errorf("%w: install it from https://learn.microsoft.com/cli/azure/install-azure-cli", ErrCLIMissing)
	}

	out, err := exec.CommandContext(ctx, "az", "version", "--output", "json").Output()
	if err != nil {
		return fmt.Errorf("failed to query azure cli version: %w", err)
	}
	var report struct {
		CLI string `json:"azure-cli"`
	}
	if err := json.Unmarshal(out, &report); err != nil {
		return fmt.Errorf("failed to parse azure cli version output: %w", err)
	}

	current, err := goversion.NewVersion(report.CLI)
	if err != nil {
		return fmt.Errorf("failed to parse azure cli version %q: %w", report.CLI, err)
	}
	minimum := goversion.Must(goversion.NewVersion(minCLIVersion))
	if current.LessThan(minimum) {
		return fmt.Errorf("%w: found %s, need at least %s", ErrCLIOutdated, report.CLI, minCLIVersion)
	}
	return nil
}

func cliInstalledOffPath() bool {
	candidates := []string{"/usr/bin/az", "/usr/local/bin/az", "/opt/az/bin/az"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, path.Join(home, ".local/bin/az"))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
