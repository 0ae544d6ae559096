package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/controller"
	"github.com/npratt/reroll/internal/daemon"
	"github.com/npratt/reroll/internal/events"
	initcmd "github.com/npratt/reroll/internal/init"
	"github.com/npratt/reroll/internal/normalize"
	"github.com/npratt/reroll/internal/target"
)

var version = "dev"

// getDaemonClient creates a daemon client by finding daemon.json in the project.
func getDaemonClient() (*daemon.Client, error) {
	info, err := daemon.FindDaemonInfo("")
	if errors.Is(err, daemon.ErrNoDaemon) {
		return nil, fmt.Errorf("%w; start one with 'reroll serve --daemon'", err)
	}
	if err != nil {
		return nil, err
	}
	if info.Version != "" && info.Version != version {
		slog.Debug("daemon version differs", "daemon", info.Version, "cli", version)
	}
	return daemon.NewClient(info.SocketPath), nil
}

func main() {
	logLevel := &slog.LevelVar{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	config.ConfigureEnv(viper.GetViper())

	rootCmd := &cobra.Command{
		Use:   "reroll",
		Short: "Reroll a stat dialog until the wanted stats appear",
		Long: `reroll clicks a game's Apply and Change buttons, reads the rolled stats
with OCR and repeats until every target stat shows the wanted value.

Press ESC (the kill switch) at any time to stop.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if viper.GetBool(FlagVerbose) {
				logLevel.Set(slog.LevelDebug)
				logger.Debug("verbose logging enabled")
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .reroll/config.yaml)")
	rootCmd.PersistentFlags().String(FlagEnvFile, "", "Dotenv file with notification secrets (default: .env)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Event log path")
	rootCmd.PersistentFlags().String(FlagStateFile, "", "State file path")
	rootCmd.PersistentFlags().String(FlagSocketPath, "", "Unix socket path for daemon control")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("reroll %s\n", version)
		},
	}

	// Run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Reroll in the foreground until the targets match",
		Long: `Run the reroll loop in this terminal.

Each cycle clicks Apply, waits, clicks Change, waits for the dialog to
settle, captures the stat region and reads it with OCR. The loop stops when
every target matches, when the kill switch is pressed or on the first error.

A terminal UI is shown when stdout is a terminal; use --tui=false for plain
output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground(cmd, logger, logLevel)
		},
	}

	addRunFlags(runCmd)
	runCmd.Flags().Bool(FlagTUI, false, "Enable terminal UI (default: when stdout is a terminal)")
	runCmd.Flags().String(FlagApply, "", `Apply button "x,y" (overrides config)`)
	runCmd.Flags().String(FlagChange, "", `Change button "x,y" (overrides config)`)
	runCmd.Flags().String(FlagRegion, "", `Stat region "left,top,right,bottom" (overrides config)`)
	runCmd.Flags().Duration(FlagSettle, 0, "Wait after Change before capturing (overrides config)")
	runCmd.Flags().Duration(FlagClickDelay, 0, "Wait between Apply and Change (overrides config)")
	runCmd.Flags().String(FlagCapture, "", "Capture backend: auto, window or exec")
	runCmd.Flags().String(FlagInput, "", "Input backend: auto, window or xdotool")
	_ = viper.BindPFlag(FlagTUI, runCmd.Flags().Lookup(FlagTUI))

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the controller over a Unix socket",
		Long: `Serve a long-lived controller that accepts start, status, cancel and
stop requests on the project's Unix socket, and optionally on an HTTP API.

Use --daemon to run in the background.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, logger)
		},
	}

	serveCmd.Flags().Bool(FlagDaemon, false, "Run as a background daemon")
	serveCmd.Flags().Bool(FlagHTTP, false, "Enable the HTTP API (overrides config)")
	serveCmd.Flags().String(FlagHTTPAddr, "", "HTTP API listen address (overrides config)")
	serveCmd.Flags().String(FlagCatalog, "", "Stat catalog YAML file (default: built-in)")
	_ = viper.BindPFlag(FlagDaemon, serveCmd.Flags().Lookup(FlagDaemon))

	// Start command
	startCmd := &cobra.Command{
		Use:   "start [Stat=Value ...]",
		Short: "Start a run on the daemon",
		Long: `Ask a running daemon to start a run. Targets given as arguments replace
the configured targets for this run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient()
			if err != nil {
				return err
			}

			id, err := client.Start(args)
			if err != nil {
				return err
			}
			fmt.Printf("Run %s started\n", events.ShortID(id))
			return nil
		},
	}

	// Status command
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient()
			if err != nil {
				return err
			}

			status, err := client.Status()
			if err != nil {
				return err
			}

			if viper.GetBool(FlagJSON) {
				data, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal status: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			// Group by the daemon's catalog so custom stats are labelled too.
			cat, err := client.Catalog()
			if err != nil {
				printStatus(os.Stdout, status, nil)
				return nil
			}
			printStatus(os.Stdout, status, catalogFromStats(cat.Stats))
			return nil
		},
	}
	statusCmd.Flags().Bool(FlagJSON, false, "Output status as JSON")
	_ = viper.BindPFlag(FlagJSON, statusCmd.Flags().Lookup(FlagJSON))

	// Cancel command
	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Trip the daemon's kill switch",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient()
			if err != nil {
				return err
			}

			if err := client.Cancel(); err != nil {
				return err
			}
			fmt.Println("Cancel requested - the active run stops before its next step")
			return nil
		},
	}

	// Stop command
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient()
			if err != nil {
				return err
			}

			if err := client.Stop(); err != nil {
				return err
			}
			fmt.Println("Stop requested - daemon cancels any run and exits")
			return nil
		},
	}

	// Catalog command
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the stats and values a target may name",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd.Flags(), viper.GetViper())
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool(FlagJSON); asJSON {
				data, err := json.MarshalIndent(cat.All(), "", "  ")
				if err != nil {
					return fmt.Errorf("marshal catalog: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			printCatalog(os.Stdout, cat.All())
			return nil
		},
	}
	catalogCmd.Flags().String(FlagCatalog, "", "Stat catalog YAML file (default: built-in)")
	catalogCmd.Flags().Bool(FlagJSON, false, "Output the catalog as JSON")

	// Parse command
	parseCmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Normalize OCR text and check it against the targets",
		Long: `Read OCR output from a file (or stdin) and print the stats the normalizer
recognises. With targets configured or given by --target, also report
whether the text would have stopped a run. Exits non-zero on no match.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd.Flags(), viper.GetViper())
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			norm, err := normalize.New(cat, cfg.NormalizerOptions())
			if err != nil {
				return err
			}

			var sel target.Selection
			if len(cfg.Targets) > 0 {
				req, err := controller.BuildRequest(cfg, cat, nil)
				if err != nil {
					return err
				}
				sel = req.Selection
			}

			var in io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			matched, err := runParse(os.Stdout, in, norm, cat, sel)
			if err != nil {
				return err
			}
			if !sel.Empty() && !matched {
				return fmt.Errorf("targets not satisfied")
			}
			return nil
		},
	}
	addRunFlags(parseCmd)

	// Events command
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "View recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath, err := eventLogPath(cmd)
			if err != nil {
				return err
			}

			if viper.GetBool(FlagFollow) {
				return tailFollow(cmd.Context(), os.Stdout, logPath)
			}
			return tailLast(os.Stdout, logPath, viper.GetInt(FlagCount))
		},
	}

	eventsCmd.Flags().Bool(FlagFollow, false, "Follow event stream (like tail -f)")
	eventsCmd.Flags().Int(FlagCount, 20, "Number of recent events to show")
	eventsCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	// Init command
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter reroll configuration",
		Long: `Write a starter configuration for reroll.

Creates the following structure:
  .reroll/
    config.yaml
  .env.example (unless --minimal)
  .gitignore   (managed section appended, unless --minimal)

With --global, writes ~/.config/reroll/config.yaml instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := initcmd.Options{
				DryRun:  viper.GetBool(FlagDryRun),
				Force:   viper.GetBool(FlagForce),
				Minimal: viper.GetBool(FlagMinimal),
				Global:  viper.GetBool(FlagGlobal),
			}

			_, err := initcmd.Run(opts)
			return err
		},
	}

	initCmd.Flags().Bool(FlagDryRun, false, "Show what would be changed without making changes")
	initCmd.Flags().Bool(FlagForce, false, "Overwrite existing files (creates timestamped backups)")
	initCmd.Flags().Bool(FlagMinimal, false, "Write only the config file")
	initCmd.Flags().Bool(FlagGlobal, false, "Write ~/.config/reroll/config.yaml instead of ./.reroll/")
	initCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	// Register all commands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(initCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// eventLogPath returns the log of the running daemon, else the configured one.
func eventLogPath(cmd *cobra.Command) (string, error) {
	if info, err := daemon.FindDaemonInfo(""); err == nil && !cmd.Flags().Changed(FlagLogFile) {
		return info.LogPath, nil
	}
	cfg, _, err := loadConfig(cmd.Flags(), viper.GetViper())
	if err != nil {
		return "", err
	}
	return cfg.Paths.Log, nil
}
