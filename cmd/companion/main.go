// Companion - chat with an avatar assistant from the terminal or a local
// dashboard, with optional speech in and out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-companion/internal/config"
	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/chat"
	"github.com/teslashibe/go-companion/pkg/eventloop"
	"github.com/teslashibe/go-companion/pkg/stt"
	"github.com/teslashibe/go-companion/pkg/tts"
	"github.com/teslashibe/go-companion/pkg/tui"
	"github.com/teslashibe/go-companion/pkg/voice"
	"github.com/teslashibe/go-companion/pkg/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "companion: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		config.PrintUsage(os.Stdout)
		return nil
	}
	if err != nil {
		return err
	}

	// The terminal UI owns stdout, so logs go to a file while it runs.
	closeLog, err := initLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := log.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := eventloop.New(eventloop.WithLogger(log.Component("eventloop")))
	session := chat.NewSession(loop,
		chat.WithResponseDelay(cfg.ResponseDelay),
		chat.WithLogger(log.Component("chat.session")),
	)
	defer session.Close()

	var remote *web.RemoteSpeech
	if cfg.Dashboard {
		remote = web.NewRemoteSpeech(log.L())
	}
	recognizer := newRecognizer(cfg, remote)
	synthesizer, err := newSynthesizer(cfg, remote)
	if err != nil {
		return err
	}
	if synthesizer != nil {
		defer synthesizer.Cancel()
	}

	bridge := voice.NewBridge(loop, session, recognizer, synthesizer,
		voice.WithLanguage(cfg.Language),
		voice.WithLogger(log.Component("voice.bridge")),
	)
	defer bridge.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(ctx)
	})

	if cfg.Dashboard {
		server := web.NewServer(session,
			web.WithVoice(bridge),
			web.WithSpeech(remote),
			web.WithLogger(log.Component("web")),
		)
		g.Go(func() error {
			return server.Run(ctx, cfg.Addr())
		})
	}

	if !cfg.Headless {
		app := tui.NewApp(session,
			tui.WithVoice(bridge),
			tui.WithLogger(log.Component("tui")),
		)
		g.Go(func() error {
			// Quitting the terminal UI ends the process.
			defer cancel()
			return tui.Run(ctx, app)
		})
	}

	logger.Info("companion started",
		"dashboard", cfg.Dashboard,
		"headless", cfg.Headless,
		"stt", recognizer != nil,
		"tts", synthesizer != nil,
	)

	err = g.Wait()
	logger.Info("companion stopped")
	return err
}

// initLogging sends logs to stderr when headless and to cfg.LogFile when the
// terminal UI is active.
func initLogging(cfg *config.Config) (func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if !cfg.Headless {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}
	log.Init(cfg.LogLevel, w)
	return closeFn, nil
}

// newRecognizer returns nil when recognition is disabled. Remote recognition
// needs the dashboard, which hosts the browser engine.
func newRecognizer(cfg *config.Config, remote *web.RemoteSpeech) stt.Recognizer {
	if cfg.STT == config.STTNone || remote == nil {
		return nil
	}
	return remote
}

// newSynthesizer picks the speech output. It returns nil when synthesis is
// disabled or nothing suitable is installed.
func newSynthesizer(cfg *config.Config, remote *web.RemoteSpeech) (tts.Synthesizer, error) {
	switch cfg.TTS {
	case config.TTSCommand:
		cmd, err := newCommand(cfg)
		if err != nil {
			return nil, fmt.Errorf("speech command: %w", err)
		}
		return cmd, nil

	case config.TTSRemote:
		if remote == nil {
			return nil, nil
		}
		return remote, nil

	case config.TTSAuto:
		if cmd, err := newCommand(cfg); err == nil {
			return cmd, nil
		}
		if remote != nil {
			return remote, nil
		}
	}
	return nil, nil
}

// newCommand uses the configured speech command, or the first one found on
// PATH.
func newCommand(cfg *config.Config) (*tts.Command, error) {
	var cmd *tts.Command
	if cfg.TTSCommand != "" {
		var err error
		if cmd, err = tts.NewCommand(tts.WithBinary(cfg.TTSCommand), tts.WithLogger(log.L())); err != nil {
			return nil, err
		}
	} else if cmd = tts.DetectCommand(tts.WithLogger(log.L())); cmd == nil {
		return nil, tts.ErrUnavailable
	}
	log.Component("main").Debug("using speech command", "binary", cmd.Binary())
	return cmd, nil
}
