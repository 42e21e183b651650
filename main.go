package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ringer/audio"
	"ringer/button"
	"ringer/config"
	"ringer/doctor"
	"ringer/hotkey"
	"ringer/log"
	"ringer/mqtt"
	"ringer/shutdown"
	"ringer/signals"
	"ringer/wake"
	"ringer/web"
)

var version = "dev"

var (
	configFlag   string
	logPathFlag  string
	signalsFlag  string
	offsetFlag   int
	ringtoneFlag string
	noTUIFlag    bool
	httpFlag     string
	mqttFlag     string
	testFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "ringer",
	Short: "Ring an alert shortly before each trading signal",
	Long: `ringer watches a file of scheduled trading signals and rings an alert
a configurable number of seconds before each one. The alert loops until it is
rung off from the terminal, the global hotkey, a GPIO button or the HTTP API.

Run without arguments to start monitoring.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ringer %s\n", version)
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run interactive system diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		os.Exit(doctor.Run(cfg))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFlag, "config", "c", "", "config file (default "+config.Path()+")")
	pf.StringVar(&logPathFlag, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	pf.StringVar(&signalsFlag, "signals", "", "signals file (overrides signals_file in config)")

	f := rootCmd.Flags()
	f.IntVar(&offsetFlag, "offset", 0, "seconds before the signal time to ring (0-99, overrides config)")
	f.StringVar(&ringtoneFlag, "ringtone", "", "ringtone file or data URL (overrides config)")
	f.BoolVar(&noTUIFlag, "no-tui", false, "run without the terminal UI")
	f.StringVar(&httpFlag, "http", "", "status server address, e.g. :8089 (overrides config)")
	f.StringVar(&mqttFlag, "mqtt", "", "MQTT broker URL, e.g. tcp://localhost:1883 (overrides config)")
	f.BoolVar(&testFlag, "test", false, "test mode (fake audio, headless, stdin-driven)")

	rootCmd.AddCommand(versionCmd, doctorCmd)
}

func execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.Path()
}

func loadConfig() (config.Config, error) {
	path := configPath()
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if signalsFlag != "" {
		cfg.SignalsFile = signalsFlag
	}
	return cfg, nil
}

// applyFlags lays daemon flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("offset") {
		cfg.OffsetSeconds = offsetFlag
	}
	if f.Changed("ringtone") {
		cfg.Ringtone = ringtoneFlag
	}
	if f.Changed("http") {
		cfg.HTTP.Addr = httpFlag
	}
	if f.Changed("mqtt") {
		cfg.MQTT.Broker = mqttFlag
	}
	return cfg.Validate()
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func runDaemon(cmd *cobra.Command) error {
	logPath, err := log.ResolveDir(logPathFlag)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SignalsFile), 0755); err != nil {
		return fmt.Errorf("signals directory: %w", err)
	}
	store, err := signals.Open(cfg.SignalsFile)
	if err != nil {
		return err
	}

	var backend audio.Backend
	var inh wake.Inhibitor
	if testFlag {
		backend = audio.NewFakeBackend()
		inh = wake.NewFakeInhibitor()
	} else {
		backend, err = audio.NewBackend()
		if err != nil {
			log.Errorf("audio backend init error: %v", err)
			return fmt.Errorf("initializing audio: %w", err)
		}
		inh = wake.Off()
		if cfg.WakeLock {
			inh = wake.New()
		}
	}
	defer backend.Close()

	var pub mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix)
		if err != nil {
			log.Warnf("mqtt: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: MQTT disabled: %v\n", err)
		} else {
			pub = p
		}
	}

	d := newDaemon(cfg, configPath(), store, backend, inh, pub)

	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, d.status, d, d.broker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("http server: %v", err)
				fmt.Fprintf(os.Stderr, "Warning: status server: %v\n", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			srv.Shutdown(sctx)
		}()
	}

	if testFlag {
		go runTestMode(ctx, cancel, d, cfg, os.Stdin, os.Stdout)
		d.run(ctx)
		return nil
	}

	startInputs(ctx, d, cfg)

	if noTUIFlag || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("ringer %s: watching %s, offset %ds, ringtone %s\n",
			version, cfg.SignalsFile, cfg.OffsetSeconds, audio.Describe(cfg.Ringtone))
		d.run(ctx)
		return nil
	}

	p := NewTUIProgram(d, hotkey.MustParseCombo(cfg.Hotkey.Combo).String())
	d.setSender(p.Send)
	tuiDone := make(chan struct{})
	go func() {
		defer close(tuiDone)
		if _, err := p.Run(); err != nil {
			log.Errorf("TUI error: %v", err)
		}
		cancel()
	}()
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	d.run(ctx)
	d.setSender(nil)
	<-tuiDone
	return nil
}

// startInputs wires the global hotkey and the GPIO button to ring-off.
func startInputs(ctx context.Context, d *daemon, cfg config.Config) {
	if cfg.Hotkey.Enabled {
		combo := hotkey.MustParseCombo(cfg.Hotkey.Combo)
		hk := hotkey.New(combo)
		if err := hk.Register(); err != nil {
			log.Errorf("hotkey register error: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: %s hotkey unavailable: %v\n", combo, err)
			if _, derr := hotkey.Diagnose(combo); derr != nil {
				fmt.Fprintf(os.Stderr, "  %v\n", derr)
			}
		} else {
			go func() {
				<-ctx.Done()
				hk.Unregister()
			}()
			go d.handlePresses(ctx, hotkey.NewPresses(hk, cfg.Hotkey.LongPress.Duration), "hotkey")
		}
	}

	if cfg.Button.Enabled {
		line, err := button.Open(cfg.Button.Chip, cfg.Button.Pin)
		if err != nil {
			log.Errorf("button: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: ring-off button unavailable: %v\n", err)
			return
		}
		b := button.New(line, button.PollInterval)
		go b.Run(ctx)
		go d.handlePresses(ctx, hotkey.NewPresses(b, cfg.Hotkey.LongPress.Duration), "button")
	}
}
