package cmd

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"atlas/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the places API server standalone",
	Long: `serve runs the atlas HTTP API in the foreground so several clients
can share one database. Point the TUI at it with --server or the
ATLAS_SERVER environment variable.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "127.0.0.1:8787", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := resolveConfig()
	if err != nil {
		return err
	}

	db, err := server.Open(config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	srv, err := server.New(db, server.Config{
		DataDir:       config.DataDir,
		GeocodeServer: config.GeocodeServer,
		Logger:        log.New(os.Stdout, "", log.LstdFlags),
	})
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", flagAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", flagAddr, err)
	}

	addr := color.New(color.FgCyan, color.Bold).Sprintf("http://%s", listener.Addr())
	fmt.Printf("atlas server listening on %s\n", addr)
	fmt.Printf("database: %s\n", config.DBPath)

	return http.Serve(listener, srv.Router())
}
