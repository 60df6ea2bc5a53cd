package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out",
	Long: `Log out and clear the locally stored session.

Scores still waiting in the delivery queue are kept and flagged; they
submit on your next login.`,
	Run: runLogout,
}

func runLogout(_ *cobra.Command, _ []string) {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if !a.auth.Authenticated() {
		fmt.Println("Not logged in.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Best effort; the local session clears regardless.
	if err := a.client.Logout(ctx); err != nil {
		a.logger.Warn("server-side logout failed", "error", err)
	}

	if err := a.auth.ClearSession(); err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing session: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Logged out.")
	if pending, err := a.queue().PendingCount(); err == nil && pending > 0 {
		fmt.Printf("%d queued score(s) will submit on your next login.\n", pending)
	}
}
