package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var flagFlush bool

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show local score history",
	Long: `Display your recent game results and any scores still waiting to
be delivered to the server.

Examples:
  decodey scores
  decodey scores --flush    # retry delivery of queued scores now`,
	Run: runScores,
}

func init() {
	scoresCmd.Flags().BoolVar(&flagFlush, "flush", false, "Retry delivery of queued scores")
}

func runScores(_ *cobra.Command, _ []string) {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if flagFlush {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		stats, flushErr := a.queue().FlushPending(ctx)
		if flushErr != nil {
			fmt.Fprintf(os.Stderr, "Error flushing queue: %v\n", flushErr)
			os.Exit(1)
		}
		fmt.Printf("Flushed: %d delivered, %d still queued.\n\n", stats.Delivered, stats.Remaining)
	}

	results, err := a.local.RecentResults(10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Recent games")
	fmt.Println()

	if len(results) == 0 {
		fmt.Println("No games recorded yet.")
		fmt.Println()
		fmt.Println("Play 'decodey play' to record your first result!")
		return
	}

	fmt.Printf("  %-10s  %-8s  %-6s  %-5s  %s\n", "Difficulty", "Score", "Daily", "Won", "Date")
	fmt.Printf("  %-10s  %-8s  %-6s  %-5s  %s\n", "----------", "-----", "-----", "---", "----")
	for _, entry := range results {
		daily := ""
		if entry.IsDaily {
			daily = "yes"
		}
		won := "lost"
		if entry.Won {
			won = "won"
		}
		fmt.Printf("  %-10s  %-8d  %-6s  %-5s  %s\n",
			entry.Difficulty, entry.Score, daily, won,
			entry.CreatedAt.Format("2006-01-02 15:04"))
	}

	fmt.Println()
	if high, err := a.local.HighScore(); err == nil && high > 0 {
		fmt.Printf("Best: %d\n", high)
	}
	if pending, err := a.local.PendingCount(); err == nil && pending > 0 {
		fmt.Printf("Queued for delivery: %d (run 'decodey scores --flush' to retry)\n", pending)
	}
}
