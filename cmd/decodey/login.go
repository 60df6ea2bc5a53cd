package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var flagRemember bool

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in to the decodey server",
	Long: `Log in to submit scores, keep streaks and resume games across
devices. The password is read without echo.

With --remember the session is stored locally and restored on the next
run until it expires.

Any scores queued while you were logged out are submitted right after a
successful login.

Examples:
  decodey login alice
  decodey login alice --remember
  decodey login`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&flagRemember, "remember", false, "Keep the session across runs")
}

func runLogin(_ *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	username := ""
	if len(args) == 1 {
		username = args[0]
	} else {
		fmt.Print("Username: ")
		reader := bufio.NewReader(os.Stdin)
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			fmt.Fprintf(os.Stderr, "Error reading username: %v\n", readErr)
			os.Exit(1)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		fmt.Fprintln(os.Stderr, "Error: username is required")
		os.Exit(1)
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := a.client.Login(ctx, username, string(password))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
		os.Exit(1)
	}

	name := res.Username
	if name == "" {
		name = username
	}
	if err := a.auth.SetSession(res.Token, name, flagRemember); err != nil {
		fmt.Fprintf(os.Stderr, "Error storing session: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Logged in as %s.\n", name)

	// Deliver anything that queued up while logged out.
	stats, err := a.queue().FlushPending(ctx)
	if err != nil {
		a.logger.Warn("could not flush pending scores", "error", err)
		return
	}
	if stats.Delivered > 0 {
		fmt.Printf("Submitted %d queued score(s).\n", stats.Delivered)
	}
	if stats.Remaining > 0 {
		fmt.Printf("%d score(s) still queued.\n", stats.Remaining)
	}
}
