// Package main provides the entry point for the maturity interpretation agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "interp_agent",
	Short: "Maturity Interpretation Agent",
	Long:  "Turns maturity diagnostic results into an evidence-cited narrative report and a capacity-bounded action plan, asking the user bounded clarifying questions along the way.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
