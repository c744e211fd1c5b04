package cmd

import (
	"context"
	"fmt"

	"github.com/pawops/paw-wizard/internal/azure"
	"github.com/pawops/paw-wizard/internal/logfile"
	"github.com/pawops/paw-wizard/internal/message"
	"github.com/pawops/paw-wizard/internal/session"
	"github.com/pawops/paw-wizard/internal/settings"
	"github.com/pawops/paw-wizard/internal/wizard"
)

const maxHostsPerRun = 4

// provisionHosts wires the session-host batch workflow from a resolved record.
func provisionHosts(ctx context.Context, auth *azure.Authenticator, cfg *settings.Settings, rec *session.Record) error {
	logger, closeLog, err := logfile.Open("session-host")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closeLog()

	factory := azure.NewFactory(auth)
	rm, err := factory.ResourceManager(rec.SubscriptionID)
	if err != nil {
		return err
	}
	dir, err := factory.Directory()
	if err != nil {
		return err
	}
	avd, err := factory.Desktop(rec.SubscriptionID)
	if err != nil {
		return err
	}

	prompt := wizard.NewConsolePrompter()
	requests, err := collectHostRequests(prompt)
	if err != nil {
		return err
	}

	poolCfg, err := buildPoolConfig(prompt, cfg, rec)
	if err != nil {
		return err
	}

	manager := &wizard.HostManager{RM: rm, Dir: dir, AVD: avd, Prompt: prompt, Log: logger}
	results, err := manager.ProvisionHosts(ctx, requests, poolCfg)
	for _, result := range results {
		switch {
		case result.Err != nil:
			message.Error("%s (%s): failed", result.VMName, result.UPN)
		case result.Skipped:
			message.Info("%s (%s): already existed, configuration refreshed", result.VMName, result.UPN)
		default:
			message.Success("%s (%s): provisioned and assigned", result.VMName, result.UPN)
		}
	}
	return err
}

func collectHostRequests(prompt wizard.Prompter) ([]wizard.HostRequest, error) {
	idx, err := prompt.Select("How many session hosts?", []string{"1", "2", "3", "4"})
	if err != nil {
		return nil, err
	}
	count := idx + 1
	if count > maxHostsPerRun {
		count = maxHostsPerRun
	}

	requests := make([]wizard.HostRequest, 0, count)
	for i := 0; i < count; i++ {
		message.Info("User %d of %d", i+1, count)
		first, err := prompt.Input("First name", "")
		if err != nil {
			return nil, err
		}
		last, err := prompt.Input("Last name", "")
		if err != nil {
			return nil, err
		}
		upn, err := prompt.Input("User principal name", "")
		if err != nil {
			return nil, err
		}
		requests = append(requests, wizard.HostRequest{FirstName: first, LastName: last, UPN: upn})
	}
	return requests, nil
}

func buildPoolConfig(prompt wizard.Prompter, cfg *settings.Settings, rec *session.Record) (wizard.PoolConfig, error) {
	poolCfg := wizard.PoolConfig{
		SubscriptionID:   rec.SubscriptionID,
		ResourceGroup:    rec.ResourceGroup,
		Region:           rec.Region,
		HostPool:         rec.HostPool,
		NamingPrefix:     rec.NamingPrefix,
		VirtualNetwork:   rec.VirtualNetwork,
		Subnet:           rec.Subnet,
		DNSServers:       cfg.DNSServers,
		PrepScriptURL:    cfg.PrepScriptURL,
		StandardGroup:    rec.StandardGroup,
		ElevatedGroup:    rec.ElevatedGroup,
		ShutdownTime:     cfg.ShutdownTime,
		ShutdownTimeZone: cfg.ShutdownTimeZone,
		TagScope:         cfg.TagScope,
		TagValue:         cfg.TagValue,
	}

	templatePath, err := wizard.SelectHostTemplate(cfg.TemplateDir, prompt)
	if err != nil {
		return poolCfg, err
	}
	poolCfg.TemplatePath = templatePath

	if cfg.CredentialSource == settings.CredentialsFile && cfg.AdminUser != "" && cfg.AdminPassword != "" {
		message.Debug("Using administrator credentials from config file")
		poolCfg.AdminUser = cfg.AdminUser
		poolCfg.AdminPassword = cfg.AdminPassword
		return poolCfg, nil
	}

	poolCfg.AdminUser, poolCfg.AdminPassword, err = wizard.PromptAdminCredentials(prompt)
	return poolCfg, err
}
