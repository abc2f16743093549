package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/matrixwidgets/internal/app"
	"github.com/coreman2200/matrixwidgets/internal/config"
	"github.com/coreman2200/matrixwidgets/internal/protocol"
)

func main() {
	// ---- Flags (explicitly set flags override the config file) ----
	var (
		listModules   = flag.Bool("list-modules", false, "list detected LED matrix modules and exit")
		listWidgets   = flag.Bool("list-widgets", false, "list available widgets and exit")
		rate          = flag.Float64("rate", 0.5, "refresh rate in Hz (max 5)")
		configPath    = flag.String("config", "matrixwidgets.yaml", "path to the YAML config")
		writeConfig   = flag.Bool("write-config", false, "write the effective config to -config and exit")
		brightness    = flag.Int("brightness", 0, "module brightness 1..255 sent at startup (0 leaves it)")
		mergeCPU      = flag.Bool("merge-cpu", false, "8x8 cpu widget with paired cores per column")
		port          = flag.String("port", "", "serial port of the primary module (skips detection)")
		secondaryPort = flag.String("secondary-port", "", "serial port of a second module to blank")
		preview       = flag.Bool("preview", false, "mirror frames to the terminal")
		drawMode      = flag.String("draw", config.DrawGray, "draw mode: gray (per-pixel brightness) | bool (on/off, one command per frame)")
		sleep         = flag.Bool("sleep", false, "put the modules to sleep and exit")
		wake          = flag.Bool("wake", false, "wake the modules and exit")
		pattern       = flag.String("pattern", "", "show a built-in pattern and exit (zigzag, gradient, percentage:N, ...)")
		animate       = flag.String("animate", "", "start or stop the firmware animation and exit: on | off")
		bootloader    = flag.Bool("bootloader", false, "reboot the modules into the firmware bootloader and exit")
		panicModule   = flag.Bool("panic", false, "make the module firmware panic and exit (debug)")
		debug         = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	deps := app.DefaultDeps()

	if *listWidgets {
		app.ListWidgets(os.Stdout, deps.Registry)
		return
	}
	if *listModules {
		if err := app.ListModules(os.Stdout, deps); err != nil {
			fatal(err)
		}
		return
	}

	// ---- Config (optional) ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
		cfg = config.Default()
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rate":
			cfg.RefreshHz = *rate
		case "brightness":
			cfg.Brightness = *brightness
		case "merge-cpu":
			cfg.CPUMergeThreads = *mergeCPU
		case "port":
			cfg.Port = *port
		case "secondary-port":
			cfg.SecondaryPort = *secondaryPort
		case "preview":
			cfg.Preview = *preview
		case "draw":
			cfg.DrawMode = *drawMode
		}
	})

	if *writeConfig {
		if err := app.Validate(cfg, deps.Registry); err != nil {
			fatal(err)
		}
		if err := config.Save(*configPath, cfg); err != nil {
			fatal(err)
		}
		log.Info().Str("path", *configPath).Msg("config written")
		return
	}

	// ---- One-shot module commands ----
	var (
		cmdName string
		cmd     func(app.Module) error
	)
	switch {
	case *sleep:
		cmdName, cmd = "sleep", app.Module.Sleep
	case *wake:
		cmdName, cmd = "wake", app.Module.Wake
	case *bootloader:
		cmdName, cmd = "bootloader", app.Module.Bootloader
	case *panicModule:
		cmdName, cmd = "panic", app.Module.Panic
	case *pattern != "":
		p, args, err := protocol.ParsePattern(*pattern)
		if err != nil {
			fatal(err)
		}
		cmdName = "pattern"
		cmd = func(m app.Module) error { return m.Pattern(p, args...) }
	case *animate != "":
		if *animate != "on" && *animate != "off" {
			fatal(fmt.Errorf("-animate wants on or off, got %q", *animate))
		}
		on := *animate == "on"
		cmdName = "animate"
		cmd = func(m app.Module) error { return m.Animate(on) }
	}
	if cmd != nil {
		if err := app.Exec(cfg, deps, cmdName, cmd); err != nil {
			fatal(err)
		}
		return
	}

	a, err := app.Start(cfg, deps)
	if err != nil {
		fatal(err)
	}
	defer a.Close()

	// ---- Run until SIGINT/SIGTERM ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		a.Close()
		fatal(err)
	}
	log.Info().Int("frames", a.Engine.Frames()).Msg("shutting down")
}

func fatal(err error) {
	log.Error().Err(err).Msg("matrixwidgets")
	os.Exit(1)
}
