package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/ogier/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/signlens/internal/app"
	"github.com/ayusman/signlens/internal/classifier"
	"github.com/ayusman/signlens/internal/config"
	"github.com/ayusman/signlens/internal/logging"
	"github.com/ayusman/signlens/internal/server"
	"github.com/ayusman/signlens/internal/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("signlens: %v", err)
	}
}

// run starts everything and blocks until a signal or a fatal error. Every
// resource opened before a failure is closed before it returns.
func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return fmt.Errorf("load config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logFile, err := logging.InitFile(cfg.LogFile, level)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logging.Info.Println("SignLens - sign language recognition")

	models, err := classifier.LoadSet(cfg.ForestModel, cfg.CNNModel)
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	if cfg.StaticDir == "" {
		cfg.StaticDir = findWebDir()
	}
	if cfg.StaticDir != "" {
		logging.Info.Printf("serving static files from: %s", cfg.StaticDir)
	}

	a, err := app.New(app.Config{Settings: cfg, Store: st, Models: models})
	if err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	srv := server.New(server.Config{StaticDir: cfg.StaticDir, App: a, BaseContext: ctx})
	g.Go(func() error {
		logging.Info.Printf("starting server on %s", cfg.Addr)
		return srv.Run(ctx, cfg.Addr)
	})
	g.Go(func() error {
		return a.RunCamera(ctx)
	})

	if err := g.Wait(); err != nil {
		logging.Error.Printf("server failed: %v", err)
		return err
	}
	logging.Info.Println("shut down")
	return nil
}

// loadConfig reads the config file named by --config and applies the flags
// that were set on top of it.
func loadConfig(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("signlens", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: signlens [flags]\n")
		fs.PrintDefaults()
	}

	def := config.Default()
	var (
		path      = fs.StringP("config", "c", config.DefaultPath, "path to the YAML config file")
		addr      = fs.StringP("addr", "a", def.Addr, "listen address")
		staticDir = fs.String("static-dir", "", "directory of web files to serve")
		dataDir   = fs.String("data-dir", def.DataDir, "dataset capture directory")
		dbPath    = fs.String("db", def.DBPath, "SQLite database path")
		forest    = fs.String("forest-model", def.ForestModel, "random forest model file")
		cnn       = fs.String("cnn-model", def.CNNModel, "CNN model file")
		minHold   = fs.Duration("min-hold", def.MinHold, "how long a sign must be held to be confirmed")
		logLevel  = fs.StringP("log-level", "l", def.LogLevel, "trace, info, warning or error")
		logFile   = fs.String("log-file", def.LogFile, "also write logs to this file")
		camera    = fs.Bool("camera", false, "recognize signs from the local camera")
		device    = fs.Int("camera-device", def.Camera.Device, "local camera device id")
	)

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "static-dir":
			cfg.StaticDir = *staticDir
		case "data-dir":
			cfg.DataDir = *dataDir
		case "db":
			cfg.DBPath = *dbPath
		case "forest-model":
			cfg.ForestModel = *forest
		case "cnn-model":
			cfg.CNNModel = *cnn
		case "min-hold":
			cfg.MinHold = *minHold
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-file":
			cfg.LogFile = *logFile
		case "camera":
			cfg.Camera.Enabled = *camera
		case "camera-device":
			cfg.Camera.Device = *device
		}
	})

	return cfg, cfg.Validate()
}

// findWebDir searches for the web directory in common locations.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "static", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
