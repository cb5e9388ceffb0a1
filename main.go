package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "minecraft-relay",
	Short: "Minecraft server presence and chat relay",
	Long: `minecraft-relay watches a Minecraft server log and reports players
joining and leaving, and new chat lines, to Discord or the console.

Messages sent from Discord are relayed back into the game over RCON
and/or a datapack function file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (default $CONFIG_PATH or /etc/minecraft-relay/config.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "minecraft-relay %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
