package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lanssh",
	Short: "Discover SSH hosts on the local network",
	Long: `lanssh finds SSH-reachable machines on your network segment by
combining Bonjour/DNS-SD browsing with a bounded TCP sweep of the local
subnet, and presents them as a live picker.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
