package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"trainload/internal/api"
	"trainload/internal/config"
	"trainload/internal/logging"
	"trainload/internal/service"
	"trainload/internal/store"
	"trainload/internal/tui"
)

const usage = `Usage: trainload [-config path] <command> [args]

Commands:
  tui                     interactive dashboard (default)
  serve [-addr host:port] read-only JSON API with /metrics
  import <file.fit>       import and score a FIT activity
  recovery [-date YYYY-MM-DD] [-source name] <0-100>
                          record a wearable recovery score
  logout                  forget the stored Strava tokens
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("trainload", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default ~/.trainload/config.json)")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	command := "tui"
	if fs.NArg() > 0 {
		command = fs.Arg(0)
	}
	rest := fs.Args()
	if len(rest) > 0 {
		rest = rest[1:]
	}

	cfg, err := loadConfig(*configPath)
	if err != nil || cfg == nil {
		return err
	}

	if err := cfg.ValidateSettings(); err != nil {
		return configError(err)
	}

	switch command {
	case "tui":
		return runTUI(cfg)
	case "serve":
		return runServe(cfg, rest)
	case "import":
		return runImport(cfg, rest)
	case "recovery":
		return runRecovery(cfg, rest)
	case "logout":
		return runLogout()
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// loadConfig returns nil, nil after writing an example config on first run
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}

	if errors.Is(err, config.ErrNoConfig) && path == "" {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file at:\n  %s/config.json\n\n", configDir)
		fmt.Println("Set your athlete thresholds, and add Strava API credentials to sync.")
		fmt.Println("Get them from: https://www.strava.com/settings/api")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func configError(err error) error {
	configDir, _ := config.GetConfigDir()
	return fmt.Errorf("config validation failed: %w (edit %s/config.json)", err, configDir)
}

// setupLogging sends logs to the rotating log file. The TUI owns the
// terminal, so only serve also logs to stdout.
func setupLogging(cfg *config.Config, toStdout bool) {
	file := cfg.Log.File
	if file == "" {
		if dir, err := config.GetConfigDir(); err == nil {
			file = filepath.Join(dir, "trainload.log")
		}
	}
	logging.Setup(logging.SetupParams{
		LogFileName:   file,
		LogToStdout:   toStdout,
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
	})
}

// newServices wires the sync and load services and rescores any activity
// whose score is stale for the current thresholds
func newServices(ctx context.Context, cfg *config.Config, db *store.DB, provider service.ActivityProvider) (*service.SyncService, *service.LoadService, error) {
	syncSvc := service.NewSyncService(provider, db, cfg.Athlete, cfg.DurationRates)
	loadSvc := service.NewLoadService(db, cfg.Cache.SizeMB, cfg.Display.WindowDays)

	result, err := syncSvc.Rescore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("rescoring activities: %w", err)
	}
	if result.ActivitiesScored > 0 {
		logrus.WithField("scored", result.ActivitiesScored).Info("Rescored activities for current thresholds")
	}

	return syncSvc, loadSvc, nil
}

func openDB() (*store.DB, error) {
	db, err := store.Open()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func runTUI(cfg *config.Config) error {
	setupLogging(cfg, false)
	ctx := context.Background()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	// a nil interface, not a nil *strava.Client, keeps sync disabled
	var provider service.ActivityProvider
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Strava sync disabled: %v\n", err)
	} else {
		client, err := connectStrava(ctx, cfg, db)
		if err != nil {
			return err
		}
		provider = client
	}

	syncSvc, loadSvc, err := newServices(ctx, cfg, db, provider)
	if err != nil {
		return err
	}

	app := tui.NewApp(loadSvc, syncSvc, tui.NewUnits(cfg.Display), cfg.Display.WindowDays)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func runServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Server.Address, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	setupLogging(cfg, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	_, loadSvc, err := newServices(ctx, cfg, db, nil)
	if err != nil {
		return err
	}

	handler := api.NewHandler(loadSvc, cfg.Display.WindowDays)
	return api.Run(ctx, api.NewServer(*addr, handler.Routes()))
}

func runImport(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: trainload import <file.fit>")
	}
	setupLogging(cfg, false)
	ctx := context.Background()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening FIT file: %w", err)
	}
	defer f.Close()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	syncSvc, _, err := newServices(ctx, cfg, db, nil)
	if err != nil {
		return err
	}

	result, err := syncSvc.ImportFIT(ctx, f)
	if err != nil {
		return fmt.Errorf("importing %s: %w", args[0], err)
	}

	fmt.Printf("Imported %q (%s): TSS %.0f via %s\n", result.Name, result.SportType, result.TSS, result.Tier)
	return nil
}

func runRecovery(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("recovery", flag.ContinueOnError)
	date := fs.String("date", "", "day of the reading, YYYY-MM-DD (default today)")
	source := fs.String("source", "manual", "where the score came from")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: trainload recovery [-date YYYY-MM-DD] [-source name] <0-100>")
	}

	score, err := strconv.ParseFloat(fs.Arg(0), 64)
	if err != nil {
		return fmt.Errorf("recovery score must be a number: %w", err)
	}

	day := time.Now()
	if *date != "" {
		day, err = time.ParseInLocation("2006-01-02", *date, time.Local)
		if err != nil {
			return fmt.Errorf("invalid -date: %w", err)
		}
	}

	setupLogging(cfg, false)

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	syncSvc, loadSvc, err := newServices(context.Background(), cfg, db, nil)
	if err != nil {
		return err
	}
	if err := syncSvc.RecordRecovery(day, score, *source); err != nil {
		return err
	}

	state, err := loadSvc.Current()
	if err != nil {
		return err
	}

	fmt.Printf("Recorded recovery %.0f for %s\n", score, day.Format("2006-01-02"))
	if state.Recovery != nil && state.Recovery.Date == state.Date {
		fmt.Printf("%s: %s\n", state.Recovery.Label, state.Recovery.Advice)
	}
	fmt.Printf("Form %s (TSB %+.1f): %s\n", state.Form.Label, state.TSB, state.Form.Advice)
	return nil
}

func runLogout() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteAuth(); errors.Is(err, store.ErrNoAuth) {
		fmt.Println("Not logged in.")
		return nil
	} else if err != nil {
		return err
	}
	fmt.Println("Strava tokens removed. The next start will ask you to log in again.")
	return nil
}
