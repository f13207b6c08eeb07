package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aristath/chorewheel/internal/config"
	"github.com/aristath/chorewheel/internal/tui"
)

func newBoardCmd(opts *rootOptions) *cobra.Command {
	var remind bool

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the interactive household board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			hh, err := a.householdID(ctx)
			if err != nil {
				return err
			}

			// The board owns the terminal, so log lines go to a file.
			logFile, err := tea.LogToFile(filepath.Join(filepath.Dir(a.cfg.Database.Path), "chorewheel.log"), "chorewheel")
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer logFile.Close()

			if remind {
				schedule, err := a.startReminders(ctx)
				if err != nil {
					return err
				}
				if schedule != nil {
					defer schedule.Stop()
				}
			}

			model := tui.New(a.bus, a.svc, hh, a.cfg, a.globalPath, config.ProjectPath)

			// Run Bubble Tea in a goroutine so a signal can shut it down.
			p := tea.NewProgram(model, tea.WithAltScreen())
			errChan := make(chan error, 1)
			go func() {
				_, err := p.Run()
				errChan <- err
			}()

			select {
			case err := <-errChan:
				return err
			case <-ctx.Done():
				// Restore default signal handling so a second Ctrl+C forces exit.
				stop()
				log.Println("Shutdown signal received, cleaning up...")
				p.Quit()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				select {
				case err := <-errChan:
					if err != nil {
						log.Printf("TUI exit error: %v", err)
					}
				case <-shutdownCtx.Done():
					log.Println("Shutdown timeout exceeded, forcing exit")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remind, "remind", false, "also run the reminder schedule while the board is open")
	return cmd
}
