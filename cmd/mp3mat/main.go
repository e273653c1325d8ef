package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Set via ldflags at build time
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// cliOptions holds the persistent flags shared by all subcommands.
type cliOptions struct {
	configPath string

	mpdAddress    string
	mpdRoot       string
	buttonDelayMS int
	sleepDelayMS  int
	updateHz      int
	sleepMode     string
	logLevel      string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "mp3mat",
		Short: "Selector-driven MP3 trigger box",
		Long: `mp3mat turns a five-position directory selector, a volume selector and
two step switches into MPD playback, and puts the board to sleep when idle.`,
		SilenceUsage: true,
	}

	opts.bindFlags(root.PersistentFlags())

	root.AddCommand(
		newRunCmd(opts),
		newProbeCmd(opts),
		newScanCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *cliOptions) bindFlags(pf *pflag.FlagSet) {
	pf.StringVarP(&o.configPath, "config", "c", "", "YAML config file (optional; never written)")
	pf.StringVar(&o.mpdAddress, "mpd-address", defaultMPDAddress, "MPD address (host:port or socket path)")
	pf.StringVar(&o.mpdRoot, "mpd-root", "", "directory in MPD's database holding the slot directories")
	pf.IntVar(&o.buttonDelayMS, "button-delay-ms", defaultButtonDelayMS, "selector re-sample interval in ms")
	pf.IntVar(&o.sleepDelayMS, "sleep-delay-ms", defaultSleepDelayMS, "idle time before sleep in ms")
	pf.IntVar(&o.updateHz, "update-hz", defaultUpdateHz, "control loop frequency in Hz")
	pf.StringVar(&o.sleepMode, "sleep-mode", SleepModeAuto, "sleep mode: auto, mem, standby, freeze, none")
	pf.StringVar(&o.logLevel, "log-level", "info", "log level: error, warn, info, debug")
}

// loadConfig resolves defaults + optional file + flags that were set explicitly.
func (o *cliOptions) loadConfig(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	if o.configPath != "" {
		var err error
		cfg, err = LoadConfigFile(o.configPath)
		if err != nil {
			return Config{}, err
		}
	}

	o.overrides(cmd).Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// overrides only includes flags the user actually passed, so file values win
// over flag defaults.
func (o *cliOptions) overrides(cmd *cobra.Command) FlagOverrides {
	var ov FlagOverrides
	changed := cmd.Flags().Changed
	if changed("mpd-address") {
		ov.MPDAddress = &o.mpdAddress
	}
	if changed("mpd-root") {
		ov.MPDRoot = &o.mpdRoot
	}
	if changed("button-delay-ms") {
		ov.ButtonDelayMS = &o.buttonDelayMS
	}
	if changed("sleep-delay-ms") {
		ov.SleepDelayMS = &o.sleepDelayMS
	}
	if changed("update-hz") {
		ov.UpdateHz = &o.updateHz
	}
	if changed("sleep-mode") {
		ov.SleepMode = &o.sleepMode
	}
	if changed("log-level") {
		ov.LogLevel = &o.logLevel
	}
	return ov
}

func loggerFor(cfg Config, w io.Writer) *slog.Logger {
	level, _ := parseLogLevel(cfg.Logging.Level) // validated
	return setupLogger(w, level)
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the playback daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := loggerFor(cfg, os.Stdout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runDaemon(ctx, cfg, logger)
		},
	}
}

// runDaemon opens the collaborators and blocks until ctx is canceled.
func runDaemon(ctx context.Context, cfg Config, logger *slog.Logger) error {
	decoder, err := cfg.ToDecoder()
	if err != nil {
		return err
	}

	sampler, err := OpenRPiSampler(cfg.ToHardwareConfig(), logger.With("component", "sampler"))
	if err != nil {
		logger.Error("failed to open GPIO/SPI", "error", err, "tip", "run as root or add user to the 'gpio' and 'spi' groups")
		return err
	}
	defer sampler.Close()

	audio, err := NewMPDClient(cfg.ToMPDConfig(), logger.With("component", "mpd"))
	if err != nil {
		logger.Error("failed to connect to MPD", "error", err)
		return err
	}
	defer audio.Close()

	wake := NewGPIOWake(cfg.ToWakeConfig(), logger.With("component", "wake"))

	dcfg := cfg.ToDaemonConfig()
	logger.Debug("starting mp3mat", "version", Version)
	logger.Debug("configuration",
		"mpd_address", cfg.MPD.Address,
		"mpd_root", cfg.MPD.Root,
		"update_hz", dcfg.UpdateHz,
		"button_delay", dcfg.ButtonDelay,
		"sleep_delay", dcfg.SleepDelay,
		"previous_restart", dcfg.PreviousRestart,
		"max_files", dcfg.MaxFiles,
		"initial_volume", dcfg.InitialVolume,
		"wake_pins", dcfg.WakePins,
		"sleep_mode", cfg.Power.SleepMode,
	)

	d := newDaemon(dcfg, decoder, audio, audio, sampler, wake, time.Now, logger)
	d.Init()
	d.Run(ctx)

	// Leave the device silent on shutdown.
	if err := audio.Stop(); err != nil {
		logger.Warn("failed to stop playback on exit", "error", err)
	}
	return nil
}

func newProbeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Print raw and decoded selector samples and switch levels",
		Long: `probe samples both selectors and both switches once per button delay and
prints the raw ADC readings next to the decoded positions. Use it to calibrate
selector bands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := loggerFor(cfg, os.Stderr)

			decoder, err := cfg.ToDecoder()
			if err != nil {
				return err
			}
			sampler, err := OpenRPiSampler(cfg.ToHardwareConfig(), logger)
			if err != nil {
				return err
			}
			defer sampler.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			interval := time.Duration(cfg.Timing.ButtonDelayMS) * time.Millisecond
			if interval < 100*time.Millisecond {
				interval = 100 * time.Millisecond
			}
			return probeLoop(ctx, cmd.OutOrStdout(), cfg.ToDaemonConfig(), decoder, sampler, interval)
		},
	}
}

func probeLoop(ctx context.Context, w io.Writer, cfg DaemonConfig, decoder SelectorDecoder, sampler Sampler, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fmt.Fprintln(w, probeLine(cfg, decoder, sampler))
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func probeLine(cfg DaemonConfig, decoder SelectorDecoder, sampler Sampler) string {
	analog := func(ch int) string {
		raw, err := sampler.ReadAnalog(ch)
		if err != nil {
			return "error(" + err.Error() + ")"
		}
		return fmt.Sprintf("%4d -> %d", raw, decoder.Decode(raw))
	}
	digital := func(pin int) string {
		level, err := sampler.ReadDigital(pin)
		if err != nil {
			return "error"
		}
		if level == cfg.SwitchLevel {
			return "pressed"
		}
		return "open"
	}
	return fmt.Sprintf("directory=%s  volume=%s  next=%s  previous=%s",
		analog(cfg.DirectoryChannel), analog(cfg.VolumeChannel),
		digital(cfg.NextPin), digital(cfg.PreviousPin))
}

func newScanCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Print the slot directories registered from MPD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := loggerFor(cfg, os.Stderr)

			client, err := NewMPDClient(cfg.ToMPDConfig(), logger)
			if err != nil {
				return err
			}
			defer client.Close()

			return printRegistry(cmd.OutOrStdout(), client, cfg.MPD.Root, cfg.Playback.MaxFiles, logger)
		},
	}
}

// printRegistry resolves slots exactly as the daemon does and lists each
// slot's playable tracks.
func printRegistry(w io.Writer, storage Storage, root string, maxFiles int, logger *slog.Logger) error {
	dirs := newDirectoryController(storage, nil, maxFiles, logger)
	if err := dirs.Rescan(root); err != nil {
		return fmt.Errorf("list %q: %w", root, err)
	}
	for pos := SelectorPosition(1); pos <= selectorPositions; pos++ {
		d, ok := dirs.Registered(pos)
		if !ok {
			fmt.Fprintf(w, "%d: (none)\n", pos)
			continue
		}
		files, err := storage.ListFiles(d.Path, maxFiles)
		if err != nil {
			fmt.Fprintf(w, "%d: %s (listing failed: %v)\n", pos, d.Path, err)
			continue
		}
		fmt.Fprintf(w, "%d: %s (%d tracks)\n", pos, d.Path, len(files))
		for i, f := range files {
			fmt.Fprintf(w, "     %2d  %s\n", i+1, f)
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "mp3mat %s\n", Version)
			fmt.Fprintf(w, "  commit:     %s\n", Commit)
			fmt.Fprintf(w, "  built:      %s\n", BuildDate)
			fmt.Fprintf(w, "  go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
