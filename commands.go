package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ringer/audio"
	"ringer/config"
	"ringer/ring"
	"ringer/signals"
)

var offsetCmd = &cobra.Command{
	Use:   "offset [seconds]",
	Short: "Show or set how many seconds before a signal the alert rings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			fmt.Printf("%d\n", cfg.OffsetSeconds)
			return nil
		}
		sec, err := parseOffset(args[0])
		if err != nil {
			return err
		}
		cfg.OffsetSeconds = sec
		if err := config.Save(configPath(), cfg); err != nil {
			return err
		}
		fmt.Printf("offset set to %ds\n", sec)
		return nil
	},
}

func parseOffset(s string) (int, error) {
	sec, err := strconv.Atoi(strings.TrimSuffix(s, "s"))
	if err != nil {
		return 0, fmt.Errorf("offset %q: not a number of seconds", s)
	}
	if sec < 0 || sec > ring.MaxOffset {
		return 0, fmt.Errorf("%w: %d (want 0-%d)", ring.ErrOffsetRange, sec, ring.MaxOffset)
	}
	return sec, nil
}

var ringtoneCmd = &cobra.Command{
	Use:   "ringtone",
	Short: "Show the configured ringtone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Println(audio.Describe(cfg.Ringtone))
		return nil
	},
}

var ringtoneSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Embed a WAV or FLAC file as the ringtone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return setRingtone(configPath(), cfg, args[0])
	},
}

var ringtoneClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Go back to the default tone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Ringtone = ""
		if err := config.Save(configPath(), cfg); err != nil {
			return err
		}
		fmt.Println("ringtone cleared, using the default tone")
		return nil
	},
}

// setRingtone stores file as a data URL. A file that cannot be decoded
// clears the ringtone so alerts fall back to the default tone.
func setRingtone(path string, cfg config.Config, file string) error {
	url, err := audio.DataURL(file)
	if err != nil {
		cfg.Ringtone = ""
		if serr := config.Save(path, cfg); serr != nil {
			return fmt.Errorf("%w (and clearing failed: %v)", err, serr)
		}
		return fmt.Errorf("ringtone cleared to default tone: %w", err)
	}
	cfg.Ringtone = url
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("ringtone set to %s\n", audio.Describe(url))
	return nil
}

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "List, add or clear scheduled signals",
}

var signalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all signals with the time each one rings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := openStore()
		if err != nil {
			return err
		}
		all := store.All()
		if len(all) == 0 {
			fmt.Println("No signals.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tRINGS AT\tASSET\tDIR\tEXPIRY\tNOTIFIED")
		fmt.Fprintln(w, "────\t────────\t─────\t───\t──────\t────────")
		offset := time.Duration(cfg.OffsetSeconds) * time.Second
		for _, s := range all {
			notified := ""
			if s.Notified {
				notified = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				s.Time.Local().Format("2006-01-02 15:04:05"),
				s.Time.Add(-offset).Local().Format("15:04:05"),
				s.Asset, s.Direction, s.Expiry, notified)
		}
		return w.Flush()
	},
}

var (
	expiryFlag string
	noteFlag   string
)

var signalsAddCmd = &cobra.Command{
	Use:   "add <time> <asset> <direction>",
	Short: "Add a signal; time is RFC 3339 or HH:MM[:SS] today",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		at, err := parseSignalTime(args[0], time.Now())
		if err != nil {
			return err
		}
		sig := signals.Signal{
			Time:      at,
			Asset:     strings.ToUpper(args[1]),
			Direction: strings.ToLower(args[2]),
			Expiry:    expiryFlag,
			Note:      noteFlag,
		}
		if err := store.Add(sig); err != nil {
			return err
		}
		fmt.Printf("added %s\n", sig.Summary())
		return nil
	},
}

var signalsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every signal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		n := len(store.All())
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Printf("removed %d signals\n", n)
		return nil
	},
}

var signalsPruneCmd = &cobra.Command{
	Use:   "prune [age]",
	Short: "Remove signals older than age (default 24h)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		age := pruneAge
		if len(args) == 1 {
			d, err := time.ParseDuration(args[0])
			if err != nil {
				return err
			}
			age = d
		}
		_, store, err := openStore()
		if err != nil {
			return err
		}
		n, err := store.Prune(time.Now().Add(-age))
		if err != nil {
			return err
		}
		fmt.Printf("removed %d signals\n", n)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and signals files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := openStore()
		if err != nil {
			return err
		}
		fmt.Printf("config:   %s ok\n", configPath())
		fmt.Printf("signals:  %s, %d total, %d pending\n", store.Path(), len(store.All()), len(store.Pending()))
		fmt.Printf("offset:   %ds\n", cfg.OffsetSeconds)
		fmt.Printf("window:   %s every %s, dedup %s\n", cfg.MatchWindow, cfg.PollInterval, cfg.DedupGrace)
		for _, line := range dryRun(cfg, store.Pending(), time.Now()) {
			fmt.Println(line)
		}
		if cfg.Ringtone == "" {
			fmt.Println("ringtone: default tone")
			return nil
		}
		data, err := audio.Load(cfg.Ringtone)
		if err == nil {
			_, err = audio.Decode(data)
		}
		if err != nil {
			return fmt.Errorf("ringtone %s: %w (alerts will use the default tone)", audio.Describe(cfg.Ringtone), err)
		}
		fmt.Printf("ringtone: %s ok\n", audio.Describe(cfg.Ringtone))
		return nil
	},
}

// dryRun reports which pending signals would ring at now, or the next one due.
func dryRun(cfg config.Config, pending []signals.Signal, now time.Time) []string {
	cond := ring.Window{Width: cfg.MatchWindow.Duration}
	offset := time.Duration(cfg.OffsetSeconds) * time.Second
	var due []string
	var next *signals.Signal
	for i, s := range pending {
		if cond.Match(s, offset, now) {
			due = append(due, "due now:  "+s.Summary())
			continue
		}
		at := s.Time.Add(-offset)
		if at.After(now) && (next == nil || at.Before(next.Time.Add(-offset))) {
			next = &pending[i]
		}
	}
	if len(due) > 0 {
		return due
	}
	if next == nil {
		return []string{"due now:  nothing"}
	}
	return []string{fmt.Sprintf("next:     %s in %s", next.Summary(), next.Time.Add(-offset).Sub(now).Round(time.Second))}
}

func openStore() (config.Config, *signals.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	store, err := signals.Open(cfg.SignalsFile)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, store, nil
}

// parseSignalTime accepts RFC 3339 or a local wall-clock time on the day of now.
func parseSignalTime(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.ParseInLocation(layout, s, now.Location())
		if err != nil {
			continue
		}
		y, m, d := now.Date()
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("signal time %q: want RFC 3339 or HH:MM[:SS]", s)
}

func init() {
	ringtoneCmd.AddCommand(ringtoneSetCmd, ringtoneClearCmd)

	signalsAddCmd.Flags().StringVar(&expiryFlag, "expiry", "", "option expiry, e.g. 5m")
	signalsAddCmd.Flags().StringVar(&noteFlag, "note", "", "free-form note")
	signalsCmd.AddCommand(signalsListCmd, signalsAddCmd, signalsClearCmd, signalsPruneCmd)

	rootCmd.AddCommand(offsetCmd, ringtoneCmd, signalsCmd, checkCmd)
}
