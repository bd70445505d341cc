package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapdemo/pkg/config"
	"github.com/getmockd/soapdemo/pkg/logging"
	"github.com/getmockd/soapdemo/pkg/metrics"
	"github.com/getmockd/soapdemo/pkg/server"
	"github.com/getmockd/soapdemo/pkg/users"
)

var (
	serveHost      string
	servePort      int
	serveAdminPort int
	servePublicURL string
	serveCheck     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SOAP service",
	Long: `Start the SOAP listener and, unless --admin-port is 0, the admin listener
serving /health, /metrics and /users.

The server runs until it receives SIGINT or SIGTERM, then drains in-flight
requests for up to server.shutdown_timeout.`,
	Example: `  soapdemo serve
  soapdemo serve --port 9000 --admin-port 0
  soapdemo serve --config soapdemo.yaml --log-format json
  soapdemo serve --check --json`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Interface to bind (default: all)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultPort, "SOAP listener port")
	serveCmd.Flags().IntVar(&serveAdminPort, "admin-port", config.DefaultAdminPort, "Admin listener port (0 disables)")
	serveCmd.Flags().StringVar(&servePublicURL, "public-url", "", "Base URL advertised in the WSDL (default: from the request)")
	serveCmd.Flags().BoolVar(&serveCheck, "check", false, "Load and validate the configuration, print it and exit")
}

// loadConfig resolves the layered configuration and applies any flag that
// was set explicitly on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile, EnvFile: envFile})
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	set := func(flag, key string, apply func()) {
		if cmd.Flags().Changed(flag) {
			apply()
			cfg.SetSource(key, config.SourceFlag)
		}
	}
	set("host", "server.host", func() { cfg.Server.Host = serveHost })
	set("port", "server.port", func() { cfg.Server.Port = servePort })
	set("admin-port", "server.admin_port", func() { cfg.Server.AdminPort = serveAdminPort })
	set("public-url", "server.public_url", func() { cfg.Server.PublicURL = servePublicURL })
	set("log-level", "log.level", func() { cfg.Log.Level = logLevel })
	set("log-format", "log.format", func() { cfg.Log.Format = logFormat })
}

// serveCheckOutput is printed by serve --check.
type serveCheckOutput struct {
	Addr      string            `json:"addr"`
	AdminAddr string            `json:"adminAddr,omitempty"`
	PublicURL string            `json:"publicUrl,omitempty"`
	LogLevel  string            `json:"logLevel"`
	LogFormat string            `json:"logFormat"`
	SeedUsers int               `json:"seedUsers"`
	Sources   map[string]string `json:"sources"`
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	now := time.Now()
	if serveCheck {
		return printServeCheck(cmd, cfg, now)
	}

	log := logging.FromStrings(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	store := users.NewStore(users.WithSeed(cfg.SeedUsers(now)...))
	srv := server.New(cfg, store, log, metrics.NewRegistry())

	if err := srv.Start(); err != nil {
		return err
	}
	log.Info("soapdemo started",
		"addr", srv.Addr(),
		"admin_addr", srv.AdminAddr(),
		"users", store.Count(),
		"version", Version,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped")
	return nil
}

func printServeCheck(cmd *cobra.Command, cfg *config.Config, now time.Time) error {
	out := serveCheckOutput{
		Addr:      cfg.Addr(),
		AdminAddr: cfg.AdminAddr(),
		PublicURL: cfg.Server.PublicURL,
		LogLevel:  cfg.Log.Level,
		LogFormat: cfg.Log.Format,
		SeedUsers: len(cfg.SeedUsers(now)),
		Sources:   cfg.Sources,
	}
	if jsonOutput {
		return outputJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(w, "Configuration OK")
	_, _ = fmt.Fprintf(w, "  addr:       %s (%s)\n", out.Addr, cfg.Sources["server.port"])
	admin := out.AdminAddr
	if admin == "" {
		admin = "disabled"
	}
	_, _ = fmt.Fprintf(w, "  admin:      %s (%s)\n", admin, cfg.Sources["server.admin_port"])
	_, _ = fmt.Fprintf(w, "  log:        %s/%s\n", out.LogLevel, out.LogFormat)
	_, _ = fmt.Fprintf(w, "  seed users: %d\n", out.SeedUsers)
	return nil
}
