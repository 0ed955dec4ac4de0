package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tweetapp",
		Short: "Micro-post client toolkit",
		Long: `tweetapp is the client engine behind a micro-post feed.

It ships the optimistic update engine, the session layer and an
in-memory backend simulator, plus this CLI:

  • mock-server  run the simulated backend over HTTP
  • demo         walk a scripted session against the simulator
  • version      print build information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		mockServerCmd(),
		demoCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
