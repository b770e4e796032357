// Package main runs the terminal dashboard against a running signals server.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"solana-signals/internal/dashboard"
)

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api-url", envOr("SIGNALS_API_URL", "http://localhost:8080"), "Signals API base URL")
	minScore := flag.Int("min-score", 0, "Minimum combined score to display")
	tradeAmount := flag.Float64("trade-amount", 1, "SOL amount per b/s paper trade")
	flag.Parse()

	model := dashboard.NewModel(dashboard.NewClient(*apiURL), *minScore, *tradeAmount)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
