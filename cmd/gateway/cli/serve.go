package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pitstopcrm/gateway/internal/config"
	"github.com/pitstopcrm/gateway/internal/server"
	"github.com/pitstopcrm/gateway/internal/service"
	"github.com/pitstopcrm/gateway/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port     int
		host     string
		upstream string
		dev      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		Long:  "Start the HTTP front door that authenticates, authorizes, rate-limits, and audits requests before forwarding them to the CRM upstream.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().StringVar(&upstream, "upstream", "", "CRM upstream base URL (e.g. http://crm.internal:9000)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("upstream_url", cmd.Flags().Lookup("upstream"))
	viper.BindPFlag("dev", cmd.Flags().Lookup("dev"))

	return cmd
}

func runServe(dev bool) error {
	logLevel := slog.LevelInfo
	if dev || viper.GetBool("dev") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = resolveDataDir()
	}

	st, err := store.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("init gateway store: %w", err)
	}
	defer st.Close()
	logger.Info("gateway store initialized", "path", cfg.DataDir)

	authn, err := service.NewAuthenticator(st, logger)
	if err != nil {
		return fmt.Errorf("init authenticator: %w", err)
	}
	limiter := service.NewLimiter(st, logger)
	auditor := service.NewAuditor(st, logger)
	sessions := service.NewSessions(st, cfg.JWTSecret, cfg.SessionTTL)

	var business http.Handler
	if cfg.UpstreamURL != "" {
		target, err := url.Parse(cfg.UpstreamURL)
		if err != nil {
			return fmt.Errorf("parse upstream url: %w", err)
		}
		business = httputil.NewSingleHostReverseProxy(target)
		logger.Info("forwarding admitted requests", "upstream", cfg.UpstreamURL)
	} else {
		logger.Warn("no upstream configured; admitted requests will answer NOT_FOUND")
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Host
	srvCfg.Port = cfg.Port
	srvCfg.ShutdownTimeout = cfg.ShutdownTimeout
	srvCfg.CORSOrigins = cfg.CORSOrigins
	srvCfg.MaxBodySize = cfg.MaxBodySize
	srvCfg.LoginRatePerMinute = cfg.LoginRatePerMinute
	srvCfg.AuditBodies = cfg.AuditBodies
	srvCfg.AuditMaxBody = cfg.AuditMaxBody
	srvCfg.DefaultRatePerMinute = cfg.DefaultRatePerMinute
	srvCfg.DefaultRatePerDay = cfg.DefaultRatePerDay
	srvCfg.CounterRetention = cfg.CounterRetention

	srv := server.New(srvCfg, st, authn, limiter, auditor, sessions, business, logger)
	return srv.ListenAndServe()
}
