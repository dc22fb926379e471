// apctl is the operator console for a travel-router style access point.
//
// Usage:
//
//	apctl [global flags] <command> [command flags]
//
// Commands:
//
//	status    Show AP, WAN and client status
//	wan       Show the upstream link
//	clients   List DHCP leases
//	scan      Scan upstream networks
//	connect   Join an upstream network
//	internet  Run the internet check
//	server    Show the active relay server
//	watch     Auto refresh and print every update
//	serve     Run the HTTP and WebSocket panel
//	signal    Summarize recorded scan signal
//	history   List connect attempts
//	init      Write a default config file
//
// Global Flags:
//
//	--config   YAML config file (default: apctl.yaml)
//	--backend  Appliance base URL, overrides backend.url
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"apctl/internal/api"
	"apctl/internal/config"
	"apctl/internal/metrics"
	"apctl/internal/model"
	"apctl/internal/mqtt"
	"apctl/internal/panel"
	"apctl/internal/render"
	"apctl/internal/store"
	"apctl/internal/stunutil"
	"apctl/internal/view"
	"apctl/internal/web"
)

var (
	configPath string
	backendURL string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "apctl",
		Short: "Access point operator console",
		Long: `apctl reads status from the access point's local HTTP API and drives
its upstream Wi-Fi connection.

By default it talks to the appliance at ` + config.DefaultBackendURL + `.
Use --backend or backend.url in the config file to point elsewhere.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "apctl.yaml",
		"YAML config file")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "",
		"Appliance base URL")

	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(wanCmd())
	rootCmd.AddCommand(clientsCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(connectCmd())
	rootCmd.AddCommand(internetCmd())
	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(signalCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(initCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show AP, WAN and client status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.panel.Refresh(ctx)
			printState(a.panel.View().State())
			return err
		},
	}
}

func wanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wan",
		Short: "Show the upstream link",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			wan, err := a.panel.LoadWANStatus(ctx)
			if err != nil {
				return err
			}
			render.WAN(os.Stdout, wan)
			return nil
		},
	}
}

func clientsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List DHCP leases",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			clients, err := a.panel.LoadClients(ctx)
			if err != nil {
				return err
			}
			render.Clients(os.Stdout, clients, all)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Show every lease with client id and expiry")
	return cmd
}

func scanCmd() *cobra.Command {
	var record bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan upstream networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, appOptions{recordSignal: record})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.panel.Scan(ctx)
			if err != nil {
				return err
			}
			render.Networks(os.Stdout, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "Append samples to the signal log")
	return cmd
}

func connectCmd() *cobra.Command {
	var (
		password string
		security string
		wait     int
	)
	cmd := &cobra.Command{
		Use:   "connect <ssid>",
		Short: "Join an upstream network",
		Long: `connect asks the appliance to join an upstream Wi-Fi network and reports
its verification checks. Status is refreshed after every attempt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.panel.OpenConnect(args[0], security); err != nil {
				return err
			}
			res, err := a.panel.SubmitConnect(ctx, panel.ConnectForm{
				SSID:        args[0],
				Password:    password,
				WaitSeconds: wait,
			})
			if err != nil {
				return err
			}
			render.ConnectResult(os.Stdout, a.panel.Session().View(), res)
			if !res.OK {
				return errors.New("connect: verification checks failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Network password (empty for open networks)")
	cmd.Flags().StringVar(&security, "security", "", "Security label shown in the log")
	cmd.Flags().IntVar(&wait, "wait", 0, "Seconds the appliance waits for the link (default from config)")
	return cmd
}

func internetCmd() *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   "internet",
		Short: "Run the internet check",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, appOptions{stun: public})
			if err != nil {
				return err
			}
			defer a.Close()

			check, err := a.panel.TestInternet(ctx)
			if err != nil {
				return err
			}
			render.Internet(os.Stdout, check)
			return nil
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "Also discover the public address over STUN")
	return cmd
}

func serverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Show the active relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			line, err := a.panel.ActiveServer(ctx)
			if errors.Is(err, panel.ErrNoActiveServer) {
				fmt.Println("No active server.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(line)
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Auto refresh and print every update",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, appOptions{restore: true})
			if err != nil {
				return err
			}
			defer a.Close()

			unsub := a.panel.View().Events().SubscribeAll(printEvent(a.panel.View()))
			defer unsub()

			if err := a.panel.Start(ctx); err != nil {
				a.logger.Warn("initial load failed", "err", err)
			}
			a.panel.SetAuto(true)
			<-ctx.Done()
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, appOptions{restore: true, stun: true})
			if err != nil {
				return err
			}
			defer a.Close()

			var opts []web.ServerOption
			if a.cfg.Web.APIKey != "" {
				opts = append(opts, web.WithAPIKey(a.cfg.Web.APIKey))
			}
			if len(a.cfg.Web.AllowedOrigins) > 0 {
				opts = append(opts, web.WithAllowedOrigins(a.cfg.Web.AllowedOrigins))
			}
			srv := web.NewServer(a.panel, a.logger, opts...)
			defer srv.Stop()

			if a.cfg.MQTT.Enabled {
				pub, err := mqtt.NewPublisher(a.panel.View().Events(), a.panel, mqtt.Config{
					Broker:      a.cfg.MQTT.Broker,
					ClientID:    a.cfg.MQTT.ClientID,
					Username:    a.cfg.MQTT.Username,
					Password:    a.cfg.MQTT.Password,
					TopicPrefix: a.cfg.MQTT.TopicPrefix,
				}, a.logger)
				if err != nil {
					a.logger.Error("mqtt publisher", "err", err)
				} else {
					pub.Start()
					defer pub.Stop()
				}
			}

			go func() {
				if err := a.panel.Start(ctx); err != nil {
					a.logger.Warn("initial load failed", "err", err)
				}
				if a.cfg.Refresh.AutoOnStart {
					a.panel.SetAuto(true)
				}
			}()

			if listen == "" {
				listen = a.cfg.Web.Listen
			}
			return srv.ListenAndServe(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	return cmd
}

func signalCmd() *cobra.Command {
	var (
		path  string
		since time.Duration
		raw   bool
	)
	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Summarize recorded scan signal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.SignalLog.Path
			}
			items, err := metrics.ReadCSV(path)
			if err != nil {
				return err
			}
			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			if raw {
				return metrics.WriteCSV(os.Stdout, metrics.Since(items, from))
			}
			render.Signal(os.Stdout, metrics.Summarize(items, from))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "Signal CSV (default from config)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only samples newer than this, e.g. 24h")
	cmd.Flags().BoolVar(&raw, "csv", false, "Print the matching samples as CSV instead of a summary")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List connect attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := store.NewBoltStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			attempts, err := db.ListAttempts(limit)
			if err != nil {
				return err
			}
			render.Attempts(os.Stdout, attempts)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum attempts to show")
	return cmd
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s exists (use --force to overwrite)", configPath)
			}
			cfg := config.Default()
			if backendURL != "" {
				cfg.Backend.URL = config.NormalizeBaseURL(backendURL)
			}
			if err := config.Save(configPath, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

type appOptions struct {
	recordSignal bool
	restore      bool
	stun         bool
}

// app is one configured panel plus the resources it holds open.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	panel  *panel.Panel
	db     *store.BoltStore
	detach func()
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	client := api.NewClient(cfg.Backend.URL, time.Duration(cfg.Backend.TimeoutSec)*time.Second)
	popts := panel.Options{
		Context:         ctx,
		Interval:        time.Duration(cfg.Refresh.IntervalSec) * time.Second,
		RecentClients:   cfg.Refresh.RecentClients,
		DefaultWait:     cfg.Connect.WaitSec,
		ActivityLimit:   cfg.Log.ActivityLimit,
		ConnectEndpoint: client.BaseURL() + "/wan/connect",
		Logger:          logger,
	}

	if cfg.Store.Enabled {
		db, err := store.NewBoltStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.db = db
		popts.AttemptRecorder = db
	}
	if cfg.SignalLog.Enabled || opts.recordSignal {
		popts.SignalRecorder = metrics.NewCSVRecorder(cfg.SignalLog.Path)
	}
	if opts.stun {
		popts.Prober = stunutil.NewProber(cfg.STUN.Servers, time.Duration(cfg.STUN.TimeoutSec)*time.Second)
	}

	a.panel = panel.New(client, popts)

	if a.db != nil {
		if opts.restore {
			n, err := store.Restore(a.db, a.panel.View())
			if err != nil {
				logger.Warn("restore snapshots", "err", err)
			} else if n > 0 {
				logger.Info("restored last known state", "slots", n)
			}
		}
		a.detach = store.Attach(a.panel.View().Events(), a.db, logger)
	}
	return a, nil
}

// Close stops the panel before the store it writes to.
func (a *app) Close() {
	a.panel.Close()
	if a.detach != nil {
		a.detach()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close store", "err", err)
		}
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if backendURL != "" {
		cfg.Backend.URL = backendURL
	}
	cfg.Backend.URL = config.NormalizeBaseURL(cfg.Backend.URL)
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger writes to stderr so command output on stdout stays clean.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func printState(st view.State) {
	if st.Summary != nil {
		render.Summary(os.Stdout, *st.Summary, st.WANIP)
	}
	if st.WAN != nil {
		render.WAN(os.Stdout, *st.WAN)
	}
	if st.Clients != nil {
		render.Clients(os.Stdout, *st.Clients, false)
	}
}

// printEvent prints data slot changes. Log lines already reach stderr
// through slog.
func printEvent(v *view.View) view.Listener {
	return func(ev view.Event) {
		switch data := ev.Data.(type) {
		case model.StatusSnapshot:
			render.Summary(os.Stdout, data, v.State().WANIP)
		case model.WanStatus:
			render.WAN(os.Stdout, data)
		case model.ClientsView:
			render.Clients(os.Stdout, data, false)
		case model.ScanResult:
			render.Networks(os.Stdout, data)
		case bool:
			if ev.Type == view.EventAuto {
				fmt.Printf("auto=%t\n", data)
			}
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()
	return ctx, cancel
}
