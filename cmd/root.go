package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pawops/paw-wizard/internal/message"
)

var silentMode bool
var verboseMode bool
var noEmoji bool
var noColor bool

var rootCmd = &cobra.Command{
	Use:           "paw-wizard",
	Short:         "Provision a privileged access workstation environment on Azure Virtual Desktop",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		message.SetSilentMode(silentMode)
		message.SetVerboseMode(verboseMode)
		message.SetEmojiMode(!noEmoji)
		message.SetColorMode(!noColor)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare invocation: top-level menu.
		for {
			choice, err := message.SelectIndex("What do you want to do?", []string{
				"Full deployment",
				"Session hosts only",
				"Exit",
			})
			if err != nil {
				return err
			}
			switch choice {
			case 0:
				if err := runDeploy(cmd.Context()); err != nil {
					return err
				}
			case 1:
				if err := runHosts(cmd.Context()); err != nil {
					return err
				}
			default:
				return nil
			}
		}
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		message.Error("failed to execute command: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&silentMode, "silent", false, "silent mode (hides everything except prompt/failure messages)")
	rootCmd.PersistentFlags().BoolVar(&verboseMode, "verbose", false, "verbose output (show everything, overrides silent mode)")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emojis")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colors and emojis")
}
