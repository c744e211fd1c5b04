package wizard

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/justinrixx/retryhttp"

	"github.com/pawops/paw-wizard/internal/azure"
	"github.com/pawops/paw-wizard/internal/message"
)

const resolveBudget = 5

var (
	storageNameRegex = regexp.MustCompile(`^[a-z0-9]{3,24}$`)
	vmNameCleaner    = regexp.MustCompile(`[^a-zA-Z0-9-]`)
)

// resolveStorageAccountName validates the name against platform naming rules
// and checks availability. A taken name gets a random 3-digit suffix and one
// availability re-check per attempt, without re-prompting.
func resolveStorageAccountName(ctx context.Context, rm azure.ResourceManager, p Prompter, initial string) (string, error) {
	name := initial
	for attempt := 0; attempt < resolveBudget; attempt++ {
		if name == "" || !storageNameRegex.MatchString(name) {
			if name != "" {
				message.Warning("Storage account names must be 3-24 lowercase letters and digits")
			}
			var err error
			name, err = p.Input("Storage account name", "")
			if err != nil {
				return "", err
			}
			continue
		}

		available, err := rm.StorageNameAvailable(ctx, name)
		if err != nil {
			return "", err
		}
		if available {
			return name, nil
		}

		suffixed := suffixStorageName(name)
		message.Info("Storage account name %s is taken, trying %s", name, suffixed)
		available, err = rm.StorageNameAvailable(ctx, suffixed)
		if err != nil {
			return "", err
		}
		if available {
			return suffixed, nil
		}
		name = ""
	}
	return "", fmt.Errorf("could not find an available storage account name: %w", message.ErrBudgetExhausted)
}

func suffixStorageName(name string) string {
	if len(name) > 21 {
		name = name[:21]
	}
	return fmt.Sprintf("%s%03d", name, rand.Intn(1000))
}

// deriveVMName derives the session-host VM name from the naming prefix and the
// user's name. Collisions between users with the same name are handled by the
// existence short-circuit, not here.
func deriveVMName(prefix, firstName, lastName string) string {
	name := vmNameCleaner.ReplaceAllString(prefix+firstName+lastName, "")
	if len(name) > 15 {
		// Windows computer-name limit.
		name = name[:15]
	}
	return name
}

// selectTemplate picks an infrastructure template file from dir. A single
// heuristic match is offered for confirmation; zero or multiple matches, or a
// declined suggestion, fall back to a manual pick from the full listing.
func selectTemplate(dir, heuristic string, p Prompter) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list template directory %s: %w", dir, err)
	}

	var all, matches []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		all = append(all, entry.Name())
		if strings.Contains(strings.ToLower(entry.Name()), strings.ToLower(heuristic)) {
			matches = append(matches, entry.Name())
		}
	}
	if len(all) == 0 {
		return "", fmt.Errorf("no infrastructure templates found in %s", dir)
	}

	if len(matches) == 1 {
		use, err := p.Confirm(fmt.Sprintf("Use template %s?", matches[0]))
		if err != nil {
			return "", err
		}
		if use {
			return path.Join(dir, matches[0]), nil
		}
	}

	options := all
	if len(matches) > 1 {
		options = matches
	}
	idx, err := p.Select("Select an infrastructure template", options)
	if err != nil {
		return "", err
	}
	return path.Join(dir, options[idx]), nil
}

// SelectHostTemplate picks the session-host infrastructure template.
func SelectHostTemplate(dir string, p Prompter) (string, error) {
	return selectTemplate(dir, "host", p)
}

// PromptAdminCredentials collects the local administrator account for new
// session hosts. The password is masked and entered twice.
func PromptAdminCredentials(p Prompter) (string, string, error) {
	user, err := p.Input("Local administrator account name", "pawadmin")
	if err != nil {
		return "", "", err
	}
	password, err := p.Password("Local administrator password")
	if err != nil {
		return "", "", err
	}
	return user, password, nil
}

// probePrepScript checks the post-provision script URL is reachable before any
// VM deployment references it. Reads are retried; the probe has no side
// effects.
func probePrepScript(ctx context.Context, url string) error {
	client := &http.Client{
		Transport: retryhttp.New(),
		Timeout:   30 * time.Second,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("invalid prep-script URL %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("prep-script URL %s is not reachable: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("prep-script URL %s returned status %d", url, resp.StatusCode)
	}
	return nil
}
