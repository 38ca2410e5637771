package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Dedsec1226/extreme-search/pkg/config"
	"github.com/Dedsec1226/extreme-search/pkg/progress"
	"github.com/Dedsec1226/extreme-search/pkg/research"
)

var prompt string

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "extreme-search",
		Short: "A terminal-based autonomous research agent",
		Long:  `extreme-search plans a research strategy for a prompt, runs the planned web searches through a tool-calling agent, and writes a cited markdown report.`,
		Run: func(cmd *cobra.Command, args []string) {

			// Check if prompt provided via flags
			promptFlagChanged := cmd.Flags().Changed("prompt")

			if !promptFlagChanged {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research prompt: ")
				input, _ := reader.ReadString('\n')
				prompt = strings.TrimSpace(input)
			}

			if prompt == "" {
				slog.Error("Prompt cannot be empty")
				os.Exit(1)
			}

			slog.Info("Starting research", "prompt", prompt)

			deps, err := research.LoadDeps(cfg)
			if err != nil {
				slog.Error("Error initializing dependencies", "error", err)
				os.Exit(1)
			}

			// Progress events go straight to the terminal
			emitter := progress.EmitterFunc(printEvent)

			engine := research.NewEngine(deps, research.ConfigFromEnv(cfg), emitter, slog.Default())

			report, err := engine.Run(context.Background(), prompt)
			if err != nil {
				slog.Error("Error running research", "error", err)
				os.Exit(1)
			}

			if err := writeReport(report); err != nil {
				slog.Error("Error writing report", "error", err)
				os.Exit(1)
			}
		},
	}

	rootCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "The research prompt")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func printEvent(ev progress.Event) {
	switch ev.Type {
	case progress.EventStatus:
		fmt.Printf("[status] %s\n", ev.Title)
	case progress.EventThinking:
		fmt.Printf("[thinking] %s\n", ev.Content)
	case progress.EventSearchQuery:
		fmt.Printf("[search] %s\n", ev.Query)
	case progress.EventSource:
		fmt.Printf("[source] %s (%s)\n", ev.Title, ev.URL)
	case progress.EventContent:
		fmt.Printf("[content] %s\n", ev.URL)
	}
}

// writeReport saves the report markdown and its source list next to each
// other, stamped with the run time.
func writeReport(report *research.Report) error {
	ts := time.Now().Format("20060102_150405")

	reportFile := fmt.Sprintf("report_%s.md", ts)
	if err := os.WriteFile(reportFile, []byte(report.Text), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	sourcesJSON, err := json.MarshalIndent(report.Sources, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}
	sourcesFile := fmt.Sprintf("sources_%s.json", ts)
	if err := os.WriteFile(sourcesFile, sourcesJSON, 0644); err != nil {
		return fmt.Errorf("failed to write sources: %w", err)
	}

	slog.Info("Report written", "report", reportFile, "sources", sourcesFile)
	return nil
}
