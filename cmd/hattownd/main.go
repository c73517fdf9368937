// hattownd is the server for hattown's interactable areas: hat shops and
// trading posts that players join, trade in, and buy packs from.
//
// Usage:
//
//	hattownd serve             - Start the websocket server
//	hattownd history           - Show recently completed sessions
//	hattownd areas             - List the configured areas
//
// Global flags:
//
//	--config <path>  - Path to world config (default: embedded world)
//	--db <path>      - Session history database (default: ~/.hattown/history.db)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfigPath string
	flagDBPath     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hattownd",
	Short: "hattownd - server for hat shops and trading posts",
	Long: `hattownd hosts the interactable areas of a hattown world: hat shops
where players buy packs with weighted drops, and trading posts where two
players swap hats one offer at a time.

Available commands:
  serve    - Start the websocket server
  history  - Show recently completed sessions
  areas    - List the configured areas

Examples:
  hattownd serve
  hattownd serve --addr :9000 --profile-url http://localhost:8081
  hattownd history --player alice
  hattownd areas`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to world config YAML (empty = search order + embedded default)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.hattown/history.db", "Path to session history database")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(areasCmd)
}
