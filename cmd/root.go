// Package cmd implements the command-line interface for the hothouse
// applicant rating pipeline.
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/hothouse/hothouse/internal/app"
)

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "hothouse",
		Short: "Applicant ingestion and rating pipeline",
		Long: `Hothouse pulls job applications from the applicant tracking system,
converts resumes and cover letters to page images, and rates each
candidate against the job description.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				os.Setenv("APP_DEBUG", "true")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(apiCommand())
	rootCmd.AddCommand(downloadCommand())
	rootCmd.AddCommand(rateCommand())
	rootCmd.AddCommand(listCommand())
}

// configPath resolves the config file, preferring the flag and falling
// back to ./config.yml when one exists.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat("config.yml"); err == nil {
		return "config.yml"
	}
	return ""
}

// withApp wires the shared dependencies for one command invocation.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := app.New(configPath())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(cmd.Context(), a)
}
