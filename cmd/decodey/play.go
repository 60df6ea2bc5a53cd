package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/decodey/internal/config"
	"github.com/vovakirdan/decodey/internal/platform/tui"
	"github.com/vovakirdan/decodey/internal/session"
)

var (
	flagCustom     bool
	flagDifficulty string
	flagLongText   bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a game",
	Long: `Start or resume a game.

Logged-in players resume their in-progress game when one exists; guests
get today's daily challenge unless --custom is given.

Controls:
  letters    - Pick an encrypted letter, then type your guess for it
  Tab        - Hint (costs a mistake)
  Esc        - Cancel the current selection
  Ctrl+C     - Quit

Difficulty options (mistake budget):
  easy   - 8 mistakes
  medium - 5 mistakes
  hard   - 3 mistakes

Examples:
  decodey play
  decodey play --custom
  decodey play --custom --difficulty hard
  decodey play --custom --long`,
	Run: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&flagCustom, "custom", false, "Start a fresh custom game")
	playCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty: easy, medium, hard")
	playCmd.Flags().BoolVar(&flagLongText, "long", false, "Play a longer quote")
}

func runPlay(_ *cobra.Command, _ []string) {
	difficulty := config.Difficulty(flagDifficulty)
	if flagDifficulty != "" && !difficulty.Valid() {
		fmt.Fprintf(os.Stderr, "Error: unknown difficulty %q (easy, medium, hard)\n", flagDifficulty)
		os.Exit(1)
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	opts := session.InitOptions{
		CustomRequested: flagCustom,
		Difficulty:      difficulty,
		LongText:        flagLongText,
	}

	if err := tui.RunPlay(a.engine(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error running game: %v\n", err)
		os.Exit(1)
	}
}
