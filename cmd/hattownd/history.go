package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/hattown/internal/storage"
)

var (
	flagHistoryPlayer string
	flagHistoryArea   string
	flagHistoryLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently completed sessions",
	Long: `Display recently completed sessions from the history database.

Examples:
  hattownd history
  hattownd history --player alice
  hattownd history --area trading-post --limit 50`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagHistoryPlayer, "player", "", "Only sessions involving this player")
	historyCmd.Flags().StringVar(&flagHistoryArea, "area", "", "Only sessions from this area")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Maximum number of sessions to show")
}

func runHistory(_ *cobra.Command, _ []string) {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	var records []storage.SessionRecord
	switch {
	case flagHistoryPlayer != "":
		records, err = store.PlayerSessions(flagHistoryPlayer, flagHistoryLimit)
	case flagHistoryArea != "":
		records, err = store.AreaSessions(flagHistoryArea, flagHistoryLimit)
	default:
		records, err = store.RecentSessions(flagHistoryLimit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving sessions: %v\n", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Println("No completed sessions recorded yet.")
		return
	}

	fmt.Printf("  %-10s  %-14s  %-10s  %-20s  %s\n", "Kind", "Area", "Activity", "Players", "Date")
	fmt.Printf("  %-10s  %-14s  %-10s  %-20s  %s\n", "----", "----", "--------", "-------", "----")
	for _, rec := range records {
		players := rec.Player1
		if rec.Player2 != "" {
			players += " & " + rec.Player2
		}
		activity := fmt.Sprintf("%d offers", rec.Offers)
		if rec.Kind == "PURCHASE" {
			activity = fmt.Sprintf("%d buys", rec.Purchases)
		}
		fmt.Printf("  %-10s  %-14s  %-10s  %-20s  %s\n",
			rec.Kind, rec.AreaID, activity, players, rec.CreatedAt.Format("2006-01-02 15:04"))
	}
}
