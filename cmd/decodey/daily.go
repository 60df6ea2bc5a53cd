package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/decodey/internal/platform/tui"
	"github.com/vovakirdan/decodey/internal/session"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Play today's daily challenge",
	Long: `Play today's daily challenge.

Everyone gets the same quote each day. Logged-in players can complete it
once per UTC day; playing it replaces any other game in progress.

Examples:
  decodey daily`,
	Run: runDaily,
}

func runDaily(_ *cobra.Command, _ []string) {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	opts := session.InitOptions{DailyRequested: true}
	if err := tui.RunPlay(a.engine(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error running game: %v\n", err)
		os.Exit(1)
	}
}
