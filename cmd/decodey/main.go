// decodey is a terminal client for the decodey word-substitution
// decryption puzzle.
//
// Usage:
//
//	decodey play              - Play (resumes, or starts the daily for guests)
//	decodey daily             - Play today's daily challenge
//	decodey login             - Log in to submit scores and keep streaks
//	decodey logout            - Log out
//	decodey scores            - Show local score history and pending queue
//	decodey leaderboard       - Show the public leaderboard
//	decodey serve             - Serve the game over SSH
//
// Global flags:
//
//	--server <url>    - Backend URL (default from config)
//	--db <path>       - Local database path (default: ~/.decodey/decodey.db)
//	--config <path>   - Path to a settings YAML file
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagServer string
	flagDBPath string
	flagConfig string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "decodey",
	Short: "Decodey - crack substitution ciphers in your terminal",
	Long: `Decodey is a terminal client for the decodey decryption puzzle:
uncover a famous quote by guessing the letter substitutions before you
run out of mistakes.

Available commands:
  play        - Play a game (resumes your game, daily for guests)
  daily       - Play today's daily challenge
  login       - Log in to submit scores and keep streaks
  logout      - Log out
  scores      - Local score history and pending submissions
  leaderboard - Public leaderboard
  serve       - Serve the game over SSH

Examples:
  decodey play
  decodey play --custom --difficulty hard
  decodey daily
  decodey login alice --remember
  decodey serve --ssh :2222`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Backend server URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to local database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to settings YAML file")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(serveCmd)
}
