package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"figmamcp/internal/app"
	"figmamcp/internal/domain"
	"figmamcp/internal/infra/figmaurl"
	"figmamcp/internal/infra/jsonutil"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logDev     bool
}

type serveOptions struct {
	transport        string
	httpAddr         string
	httpPath         string
	httpToken        string
	httpJSONResponse bool
	metricsAddr      string
	cacheTTLSeconds  int
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := &rootOptions{
		configPath: os.Getenv(domain.EnvPrefix + "_CONFIG"),
	}

	root := &cobra.Command{
		Use:           "figmamcp",
		Short:         "MCP server for the Figma REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.logDev, "log-dev", false, "human readable development logs")

	root.AddCommand(
		newServeCmd(logger, opts),
		newValidateCmd(logger, opts),
		newResolveCmd(),
		newVersionCmd(),
	)

	return root
}

func newServeCmd(logger *zap.Logger, root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			override := buildOverride(cmd.Flags(), root, opts)
			cfg, err := app.LoadConfig(ctx, root.configPath, override, logger)
			if err != nil {
				return err
			}

			logging, err := app.NewLogging(app.LoggingConfig{
				Level:       cfg.Log.Level,
				Development: cfg.Log.Development,
			})
			if err != nil {
				return err
			}
			defer func() { _ = logging.Logger.Sync() }()

			return app.New(logging.Logger).Serve(ctx, app.ServeConfig{
				ConfigPath: root.configPath,
				Config:     cfg,
				Override:   override,
			}, logging)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", domain.DefaultTransport, "MCP transport (stdio or streamable-http)")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", domain.DefaultHTTPListenAddress, "streamable HTTP listen address")
	cmd.Flags().StringVar(&opts.httpPath, "http-path", domain.DefaultHTTPPath, "streamable HTTP endpoint path")
	cmd.Flags().StringVar(&opts.httpToken, "http-token", "", "bearer token required by the streamable HTTP endpoint")
	cmd.Flags().BoolVar(&opts.httpJSONResponse, "http-json-response", false, "use application/json responses instead of SSE")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "listen address for /metrics and /healthz (empty disables)")
	cmd.Flags().IntVar(&opts.cacheTTLSeconds, "cache-ttl", domain.DefaultExportTTLSeconds, "seconds an export URL stays downloadable")

	return cmd
}

func newValidateCmd(logger *zap.Logger, root *rootOptions) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and token without serving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application := app.New(logger)
			return application.ValidateConfig(cmd.Context(), app.ValidateConfig{
				ConfigPath: root.configPath,
				Override:   buildOverride(cmd.Flags(), root, nil),
				Remote:     remote,
			})
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "also verify the token against the Figma API")
	return cmd
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <figma-url>",
		Short: "Print the file key and node id encoded in a Figma URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveURL(cmd.OutOrStdout(), args[0])
		},
	}
}

func resolveURL(out io.Writer, raw string) error {
	info, err := figmaurl.NewResolver().Parse(raw)
	if err != nil {
		return err
	}
	data, err := jsonutil.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "figmamcp %s (%s)\n", app.Version, app.Build)
		},
	}
}

// buildOverride captures the flags set on the command line so they keep
// winning over the config file across reloads.
func buildOverride(flags *pflag.FlagSet, root *rootOptions, opts *serveOptions) func(*domain.Config) {
	var setters []func(*domain.Config)

	if flag := flags.Lookup("log-level"); flag != nil && flag.Changed {
		level := root.logLevel
		setters = append(setters, func(cfg *domain.Config) { cfg.Log.Level = level })
	}
	if flag := flags.Lookup("log-dev"); flag != nil && flag.Changed {
		dev := root.logDev
		setters = append(setters, func(cfg *domain.Config) { cfg.Log.Development = dev })
	}

	if opts != nil {
		flags.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "transport":
				value := opts.transport
				setters = append(setters, func(cfg *domain.Config) { cfg.Server.Transport = value })
			case "http-addr":
				value := opts.httpAddr
				setters = append(setters, func(cfg *domain.Config) { cfg.Server.HTTPAddr = value })
			case "http-path":
				value := opts.httpPath
				setters = append(setters, func(cfg *domain.Config) { cfg.Server.HTTPPath = value })
			case "http-token":
				value := opts.httpToken
				setters = append(setters, func(cfg *domain.Config) { cfg.Server.HTTPToken = value })
			case "http-json-response":
				value := opts.httpJSONResponse
				setters = append(setters, func(cfg *domain.Config) { cfg.Server.JSONResponse = value })
			case "metrics-addr":
				value := opts.metricsAddr
				setters = append(setters, func(cfg *domain.Config) { cfg.Observability.ListenAddress = value })
			case "cache-ttl":
				value := opts.cacheTTLSeconds
				setters = append(setters, func(cfg *domain.Config) { cfg.Cache.TTLSeconds = value })
			}
		})
	}

	if len(setters) == 0 {
		return nil
	}
	return func(cfg *domain.Config) {
		for _, set := range setters {
			set(cfg)
		}
	}
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
