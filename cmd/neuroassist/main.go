package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbaille/neuroassist/internal/config"
	"github.com/pbaille/neuroassist/internal/domain"
	"github.com/pbaille/neuroassist/internal/logging"
	"github.com/pbaille/neuroassist/internal/monitor"
	"github.com/pbaille/neuroassist/internal/store"
)

var (
	dbPath     string
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "neuroassist",
		Short:        "Cognitive health monitoring: risk scores and caregiver alerts",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(trendCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(ackCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles what every command needs
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Store
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	// Ensure directory exists
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	s, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: s}, nil
}

func (a *app) Close() {
	a.store.Close()
	a.log.Sync()
}

func (a *app) monitor(opts monitor.Options) *monitor.Service {
	opts.Logger = a.log
	opts.Location = a.cfg.Scoring.Location()
	opts.WindowDays = a.cfg.Scoring.WindowDays
	opts.MedicationCutoffHour = a.cfg.Scoring.MedicationCutoffHour
	return monitor.New(a.store, opts)
}

// resolveUser accepts a full ID, an ID prefix or a user name
func (a *app) resolveUser(ctx context.Context, ref string) (*domain.User, error) {
	if u, err := a.store.GetUser(ctx, ref); err == nil {
		return u, nil
	}
	if u, err := a.store.FindUserByName(ctx, ref); err == nil {
		return u, nil
	}

	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	var found *domain.User
	for i, u := range users {
		if strings.HasPrefix(u.ID, ref) {
			if found != nil {
				return nil, fmt.Errorf("ambiguous user id prefix: %s", ref)
			}
			found = &users[i]
		}
	}
	if found == nil {
		return nil, fmt.Errorf("user not found: %s", ref)
	}
	return found, nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
