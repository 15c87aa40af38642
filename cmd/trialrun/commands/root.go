package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trialrun",
	Short: "trialrun - Psychophysics experiment runner",
	Long: `trialrun runs two behavioural paradigms and records one CSV row per trial:

  ihtt  Interhemispheric transmission time: simple reaction time to a
        lateralised circle, comparing crossed and uncrossed responses.
  dmts  Delayed match-to-sample with circle diameters at seven delays.

Trial orders are randomised with a constrained generator; sessions can be
mirrored to Redis and followed live with 'trialrun watch'.`,
	Version: version,
	// Show help instead of silently succeeding without a subcommand
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
