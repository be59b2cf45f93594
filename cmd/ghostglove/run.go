package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/ayusman/ghostglove/internal/app"
	"github.com/ayusman/ghostglove/internal/calibration"
	"github.com/ayusman/ghostglove/internal/capture"
	"github.com/ayusman/ghostglove/internal/config"
	"github.com/ayusman/ghostglove/internal/console"
	"github.com/ayusman/ghostglove/internal/keymap"
	"github.com/ayusman/ghostglove/internal/log"
	"github.com/ayusman/ghostglove/internal/plugin"
	"github.com/ayusman/ghostglove/internal/server"
	"github.com/ayusman/ghostglove/internal/session"
	"github.com/ayusman/ghostglove/internal/store"
	"github.com/ayusman/ghostglove/internal/transport"
	"github.com/ayusman/ghostglove/internal/tray"
	"github.com/ayusman/ghostglove/internal/vision"
)

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	interactive := !runHeadless && term.IsTerminal(int(os.Stdout.Fd()))
	closeLog, err := initLogging(cfg, interactive)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	matcher, err := keymap.New(cfg.Keymap())
	if err != nil {
		return err
	}
	sess := session.New(calibration.NewStore(), matcher)

	settings := capture.Settings{
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
		Exposure: cfg.Camera.Exposure,
		Gain:     cfg.Camera.Gain,
	}
	cams := capture.NewStereoCamera(
		capture.NewCamera(cfg.Camera.Left, settings),
		capture.NewCamera(cfg.Camera.Right, settings),
		cfg.Camera.Flip,
	)
	if err := cams.Open(); err != nil {
		return fmt.Errorf("failed to open cameras: %w", err)
	}
	defer cams.Close()

	var emitters app.Emitters

	if cfg.Network.Peer != "" {
		sender := transport.NewTCPSender(cfg.Network.Peer, cfg.DialTimeout())
		// Offline is not fatal; keys are still shown and recorded.
		_ = sender.Connect(ctx)
		defer sender.Close()
		emitters = append(emitters, sender)
	}

	var st *store.Store
	if cfg.Store.Path != "" {
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer st.Close()

		rec, err := store.NewRecorder(st, matcher.Strategy())
		if err != nil {
			return err
		}
		defer rec.Close()
		emitters = append(emitters, rec)
		log.Info("recording keystroke history", "path", cfg.Store.Path, "session", rec.SessionID())
	}

	var dispatcher *plugin.Dispatcher
	if cfg.Plugins.Dir != "" {
		mgr := plugin.NewManager(cfg.Plugins.Dir)
		if err := mgr.Discover(); err != nil {
			log.Warn("plugin discovery failed", "dir", cfg.Plugins.Dir, "error", err)
		}
		dispatcher = plugin.NewDispatcher(mgr, plugin.NewExecutor(cfg.PluginTimeout()))
		for _, p := range dispatcher.Plugins() {
			log.Info("plugin loaded", "name", p.Manifest.Name, "version", p.Manifest.Version)
		}
		if len(dispatcher.Plugins()) > 0 {
			emitters = append(emitters, dispatcher)
		}
	}

	extraction := cfg.BlobExtraction()
	a := app.New(app.Config{
		Source: cams,
		Processor: app.NewProcessor(
			vision.NewBlobExtractor(extraction),
			vision.NewBlobExtractor(extraction),
			cfg.Rig(),
			sess,
		),
		Emitter: emitters,
	})

	log.Info("ghost glove starting",
		"strategy", matcher.Strategy(),
		"left", cfg.Camera.Left,
		"right", cfg.Camera.Right,
		"peer", cfg.Network.Peer,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return a.Run(gctx)
	})

	if dispatcher != nil && len(dispatcher.Plugins()) > 0 {
		g.Go(func() error {
			return dispatcher.Run(gctx)
		})
	}

	if cfg.Server.Addr != "" {
		srv := server.New(server.Config{
			StaticDir: cfg.Server.StaticDir,
			Store:     st,
			Pipeline:  a,
		})
		log.Info("monitor listening", "addr", cfg.Server.Addr)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Server.Addr)
		})
	}

	if interactive {
		outcomes, unsubscribe := a.Subscribe()
		program := tea.NewProgram(
			console.NewModel(outcomes, a.Control),
			tea.WithAltScreen(),
			tea.WithContext(gctx),
		)
		g.Go(func() error {
			defer unsubscribe()
			defer cancel()
			if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("failed to run console: %w", err)
			}
			return nil
		})
	}

	if runTray {
		runTrayIcon(gctx, cancel, a, cfg.Server.Addr)
	}

	return g.Wait()
}

// runTrayIcon blocks until ctx is done or Quit is clicked.
func runTrayIcon(ctx context.Context, cancel context.CancelFunc, a *app.App, serverAddr string) {
	outcomes, unsubscribe := a.Subscribe()
	defer unsubscribe()

	tr := tray.New()
	tr.OnSwitchMode(func() { a.Control(session.Toggle) })
	tr.OnQuit(cancel)
	if serverAddr != "" {
		tr.OnMonitor(func() { openBrowser(monitorURL(serverAddr)) })
	}

	go tr.Follow(outcomes)
	go func() {
		<-ctx.Done()
		tr.Quit()
	}()

	tr.Run()
	cancel()
}

// initLogging sends logs to stderr, or to a file while the console owns the terminal.
func initLogging(cfg config.Config, interactive bool) (func(), error) {
	if !interactive {
		log.Init(cfg.Log.Level)
		return func() {}, nil
	}

	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.InitWriter(cfg.Log.Level, f)
	return func() { f.Close() }, nil
}

func monitorURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/api/health"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("failed to open browser", "url", url, "error", err)
	}
}
