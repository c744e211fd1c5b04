package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pawops/paw-wizard/internal/azure"
	"github.com/pawops/paw-wizard/internal/logfile"
	"github.com/pawops/paw-wizard/internal/message"
	"github.com/pawops/paw-wizard/internal/settings"
	"github.com/pawops/paw-wizard/internal/wizard"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the core workstation infrastructure",
	Long:  `It walks through subscription, resource group, directory group and parameter selection, deploys the core infrastructure template and configures RBAC and conditional access.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeploy(cmd.Context())
	},
}

func runDeploy(ctx context.Context) error {
	cfg, err := settings.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	logger, closeLog, err := logfile.Open("core")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closeLog()

	auth := azure.NewAuthenticator()
	deployer := &wizard.Deployer{
		Auth:     auth,
		Clients:  azure.NewFactory(auth),
		Prompt:   wizard.NewConsolePrompter(),
		Settings: cfg,
		Log:      logger,
	}

	wantHosts, err := deployer.Run(ctx)
	if err != nil {
		logger.Errorf("core workflow failed: %v", err)
		return err
	}
	if !wantHosts {
		return nil
	}

	message.Info("Continuing with session host provisioning")
	return provisionHosts(ctx, auth, cfg, deployer.Record())
}

func init() {
	rootCmd.AddCommand(deployCmd)
}
