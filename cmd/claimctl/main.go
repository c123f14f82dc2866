package main

import (
	"fmt"
	"os"

	"claim-pipeline-be/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "claimctl",
	Short: "Claim pipeline CLI",
	Long: `claimctl runs claims through the processing pipeline locally and talks to
the services around it.

  run           process a claim file (JSON or YAML) or the demo claim in-process
  submit        publish CLAIM_SUBMITTED for a claim id on the message bus
  upload-xray   store x-ray images for a claim in the object store

Settings come from the same environment (.env) as the API server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(uploadXRayCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
