package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"atlas/internal/api"
	"atlas/internal/server"
	"atlas/internal/ui"
)

// Config holds the resolved CLI configuration.
type Config struct {
	DataDir       string
	DBPath        string
	ServerURL     string
	GeocodeServer string
	NoMap         bool
}

var (
	flagDataDir       string
	flagDBPath        string
	flagServer        string
	flagGeocodeServer string
	flagNoMap         bool
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Track places and visits on a terminal map",
	Long: `atlas is a terminal tracker for places you want to go and visits you
have planned or made. Places appear as markers on an ASCII map; visits,
reviews and calendar exports hang off each place.

By default atlas runs fully local, serving itself from an embedded
API over a loopback socket. Point --server at a running "atlas serve"
instance to share one database between machines.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

// Execute parses flags and runs the selected command.
func Execute(version string) error {
	if version != "" {
		rootCmd.Version = version
		rootCmd.SetVersionTemplate("{{.Version}}\n")
	}

	// Load .env files first so env-based defaults work for every command.
	loadDotEnv(".env")
	loadDotEnv(".env.local")

	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Directory for the database and uploads (default: ~/.atlas, or ATLAS_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to SQLite database file (default: <data-dir>/atlas.db)")
	rootCmd.PersistentFlags().StringVar(&flagGeocodeServer, "geocode-server", "", "Nominatim server for address lookups (default: public OpenStreetMap instance, or ATLAS_GEOCODE_SERVER)")
	rootCmd.Flags().StringVar(&flagServer, "server", "", "URL of a remote atlas server (default: run locally, or ATLAS_SERVER)")
	rootCmd.Flags().BoolVar(&flagNoMap, "no-map", false, "Disable the map canvas and use the textual place roster")
}

// resolveConfig applies flag > environment > default resolution and
// makes sure the data directory exists.
func resolveConfig() (*Config, error) {
	config := &Config{
		DataDir:       flagDataDir,
		DBPath:        flagDBPath,
		ServerURL:     flagServer,
		GeocodeServer: flagGeocodeServer,
		NoMap:         flagNoMap,
	}

	if config.DataDir == "" {
		config.DataDir = os.Getenv("ATLAS_DATA_DIR")
	}
	if config.ServerURL == "" {
		config.ServerURL = os.Getenv("ATLAS_SERVER")
	}
	if config.GeocodeServer == "" {
		config.GeocodeServer = os.Getenv("ATLAS_GEOCODE_SERVER")
	}

	if config.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		config.DataDir = filepath.Join(home, ".atlas")
	}
	if err := os.MkdirAll(config.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if config.DBPath == "" {
		config.DBPath = filepath.Join(config.DataDir, "atlas.db")
	}

	return config, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	config, err := resolveConfig()
	if err != nil {
		return err
	}

	settings, err := loadOnboardingSettings(config.DataDir)
	if err != nil {
		return fmt.Errorf("failed to load onboarding settings: %w", err)
	}
	if shouldRunOnboarding(settings) {
		settings, err = runOnboarding(config.DataDir, config.ServerURL)
		if err != nil {
			return fmt.Errorf("failed to run onboarding: %w", err)
		}
	}
	if config.ServerURL == "" {
		config.ServerURL = settings.ServerURL
	}

	termCaps := ui.DetectTerminalCapabilities()

	baseURL := config.ServerURL
	if baseURL == "" {
		// Local mode: serve the API in-process over a loopback socket.
		db, err := server.Open(config.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		srv, err := server.New(db, server.Config{
			DataDir:       config.DataDir,
			GeocodeServer: config.GeocodeServer,
		})
		if err != nil {
			return err
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to bind loopback listener: %w", err)
		}
		defer listener.Close()
		go func() { _ = http.Serve(listener, srv.Router()) }()

		baseURL = "http://" + listener.Addr().String()
	}

	client := api.NewClient(baseURL)

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()
	boot, err := client.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("failed to load places from %s: %w", baseURL, err)
	}

	p := tea.NewProgram(ui.New(client, boot, termCaps, config.NoMap), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}

		value = strings.Trim(value, `"'`)
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}
