package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pawops/paw-wizard/internal/azure"
	"github.com/pawops/paw-wizard/internal/message"
	"github.com/pawops/paw-wizard/internal/session"
	"github.com/pawops/paw-wizard/internal/settings"
	"github.com/pawops/paw-wizard/internal/wizard"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Provision personal session hosts into an existing deployment",
	Long:  `It reads the configuration persisted by a previous deployment and provisions one personal session host per requested user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHosts(cmd.Context())
	},
}

func runHosts(ctx context.Context) error {
	cfg, err := settings.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	rec, err := session.Load()
	if err != nil {
		return err
	}
	if rec == nil || rec.HostPool == "" {
		return errors.New("no deployment configuration found, run a full deployment first")
	}
	message.Info("Using deployment %s in resource group %s", rec.HostPool, rec.ResourceGroup)

	if err := wizard.CheckEnvironment(ctx); err != nil {
		return err
	}
	auth := azure.NewAuthenticator()
	if err := auth.EnsureLogin(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	return provisionHosts(ctx, auth, cfg, rec)
}

func init() {
	rootCmd.AddCommand(hostsCmd)
}
