package settings

import (
	"errors"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v2"
)

const configFileName = ".paw-wizard/config.yaml"

// Credential sources for the session-host local administrator account.
const (
	CredentialsPrompt = "prompt"
	CredentialsFile   = "file"
)

// Device tagging scopes. The resource-group scope tags every directory device
// whose display name starts with the resource group name; the batch scope only
// tags devices backing this run's session hosts.
const (
	TagScopeResourceGroup = "resource-group"
	TagScopeBatch         = "batch"
)

// Settings captures the variant points of the workflow so one parameterized
// code path serves all deployment flavors.
type Settings struct {
	CredentialSource string   `yaml:"credentialSource"`
	AdminUser        string   `yaml:"adminUser"`
	AdminPassword    string   `yaml:"adminPassword"`
	TagScope         string   `yaml:"tagScope"`
	TagValue         string   `yaml:"tagValue"`
	PrepScriptURL    string   `yaml:"prepScriptUrl"`
	ShutdownTime     string   `yaml:"shutdownTime"`
	ShutdownTimeZone string   `yaml:"shutdownTimeZone"`
	TemplateDir      string   `yaml:"templateDir"`
	DNSServers       []string `yaml:"dnsServers"`
}

func defaults() *Settings {
	return &Settings{
		CredentialSource: CredentialsPrompt,
		TagScope:         TagScopeResourceGroup,
		TagValue:         "PAW",
		ShutdownTime:     "1900",
		ShutdownTimeZone: "W. Europe Standard Time",
		TemplateDir:      "templates",
	}
}

// Load reads the optional config file; absence is not an error.
func Load() (*Settings, error) {
	dirname, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return loadFrom(path.Join(dirname, configFileName))
}

func loadFrom(filename string) (*Settings, error) {
	s := defaults()

	configFile, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(configFile, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	if s.CredentialSource != CredentialsPrompt && s.CredentialSource != CredentialsFile {
		return nil, fmt.Errorf("invalid credentialSource %q", s.CredentialSource)
	}
	if s.TagScope != TagScopeResourceGroup && s.TagScope != TagScopeBatch {
		return nil, fmt.Errorf("invalid tagScope %q", s.TagScope)
	}
	return s, nil
}
