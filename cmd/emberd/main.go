package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raspine/beauty/filestore/diskstore"
	"github.com/raspine/beauty/server"
)

var (
	configPath           string
	address              string
	port                 int
	maxContentSize       int
	maxKeepAliveRequests int
	idleTimeoutSeconds   int
	documentRoot         string
	logPath              string
	logLevel             string
)

var rootCmd = &cobra.Command{
	Use:   "emberd",
	Short: "Embeddable HTTP/1.1 file server core",
	Example: "# emberd --root ./public --port 8080\n" +
		"# emberd --config emberd.yaml",
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "YAML config file path; when set, replaces every flag below except --root")
	rootCmd.Flags().StringVar(&address, "address", "", "Bind address (empty binds all interfaces)")
	rootCmd.Flags().IntVar(&port, "port", 8080, "Bind port (0 picks an OS-assigned port)")
	rootCmd.Flags().IntVar(&maxContentSize, "max-content-size", 8192, "Fixed chunk size for request/response bodies, bytes (>= 1024)")
	rootCmd.Flags().IntVar(&maxKeepAliveRequests, "max-keep-alive-requests", 100, "Requests served before a connection is closed regardless of Connection header")
	rootCmd.Flags().IntVar(&idleTimeoutSeconds, "idle-timeout", 60, "Seconds a connection may sit idle before the manager closes it")
	rootCmd.Flags().StringVar(&documentRoot, "root", ".", "Document root served for GET requests and multipart uploads")
	rootCmd.Flags().StringVar(&logPath, "log-path", "", "Rotating log file path (empty logs to stderr)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := server.Config{
		Address:              address,
		Port:                 port,
		MaxContentSize:       maxContentSize,
		MaxKeepAliveRequests: maxKeepAliveRequests,
		IdleTimeoutSeconds:   idleTimeoutSeconds,
		LogPath:              logPath,
		LogLevel:             logLevel,
	}
	if configPath != "" {
		loaded, err := server.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	logger := server.NewLogger(cfg.LogPath, cfg.LogLevel)
	defer logger.Sync()

	store := diskstore.New(documentRoot, logger)

	srv, err := server.New(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("configuring server: %w", err)
	}

	logger.Info("starting emberd",
		zap.String("address", cfg.Address),
		zap.Int("port", cfg.Port),
		zap.String("documentRoot", documentRoot),
	)
	return srv.ListenAndServe()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
