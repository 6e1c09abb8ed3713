// Package main is the research job service binary: HTTP API, queue worker and migrations.
//
// @title Research Job Service API
// @version 1.0
// @description Asynchronous multi-topic research jobs: submit, poll, fetch the report.
// @BasePath /
// @securityDefinitions.apikey OwnerHeader
// @in header
// @name X-Owner-ID
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "researchd",
	Short: "Research job service",
	Long: `researchd accepts multi-topic research jobs, runs them in the background and
serves their status and reports. Configuration comes from the environment or a .env file.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
