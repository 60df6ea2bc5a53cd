package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/decodey/internal/platform/tui"
)

var flagLimit int

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the public leaderboard",
	Long: `Display the public leaderboard in an interactive table.

Examples:
  decodey leaderboard
  decodey leaderboard --limit 50`,
	Run: runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().IntVar(&flagLimit, "limit", 20, "Number of entries to fetch")
}

func runLeaderboard(_ *cobra.Command, _ []string) {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := a.client.Leaderboard(ctx, flagLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching leaderboard: %v\n", err)
		os.Exit(1)
	}

	width, height := 80, 24
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	if err := tui.RunLeaderboard(entries, a.auth.Username(), width, height); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
