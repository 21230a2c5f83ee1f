package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/llm-among-us/internal/config"
	"github.com/DoyleJ11/llm-among-us/internal/game"
	"github.com/DoyleJ11/llm-among-us/internal/httpapi"
	"github.com/DoyleJ11/llm-among-us/internal/session"
	"github.com/DoyleJ11/llm-among-us/internal/view"
	"github.com/DoyleJ11/llm-among-us/internal/ws"
)

const clearScreen = "\x1b[H\x1b[2J"

const help = "commands: create, start, advance, refresh, reconnect, delete, reset, quit"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "client:", err)
		os.Exit(1)
	}
}

func run() (err error) {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadClient(os.Args[1:])
	if err != nil {
		return err
	}
	log, err := config.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := httpapi.NewClient(cfg.APIURL, &http.Client{}, log)
	transport := ws.New(ctx, ws.Options{
		BaseURL:      cfg.WSURL,
		PingInterval: cfg.PingInterval,
		ReadLimit:    cfg.ReadLimit,
		Log:          log,
	})
	ctrl := session.New(ctx, api, transport, session.WithLogger(log))
	defer func() {
		err = multierr.Combine(err, ctrl.Close(), ignoreSyncErr(log.Sync()))
	}()

	tty := isatty.IsTerminal(os.Stdout.Fd())
	r := view.New(view.Options{Color: tty, ShowQR: cfg.ShowQR})

	log.Info("client started", zap.String("api", cfg.APIURL), zap.String("ws", cfg.WSURL))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		views, unsubscribe := ctrl.Subscribe()
		defer unsubscribe()
		for {
			select {
			case <-gctx.Done():
				return nil
			case v, ok := <-views:
				if !ok {
					return nil
				}
				if tty {
					fmt.Fprint(os.Stdout, clearScreen)
				}
				fmt.Fprintln(os.Stdout, r.Render(v))
				fmt.Fprintln(os.Stdout, help)
			}
		}
	})
	g.Go(func() error {
		defer cancel()
		return commands(gctx, g, os.Stdin, ctrl, cfg.Models, log)
	})
	return g.Wait()
}

// commands reads one command per line until quit or end of input. Requests
// run on their own goroutines so a slow advance never blocks the prompt.
func commands(ctx context.Context, g *errgroup.Group, in io.Reader, ctrl *session.Controller, models []string, log *zap.Logger) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	request := func(name string, call func(context.Context) error) {
		g.Go(func() error {
			if err := call(ctx); err != nil && !errors.Is(err, session.ErrClosed) {
				log.Debug("request finished with error", zap.String("command", name), zap.Error(err))
				if errors.Is(err, game.ErrNoGame) {
					fmt.Fprintln(os.Stdout, game.Describe(err))
				}
			}
			return nil
		})
	}

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		switch line {
		case "":
		case "create":
			request(line, func(ctx context.Context) error { return ctrl.CreateGame(ctx, models) })
		case "start":
			request(line, ctrl.StartGame)
		case "advance":
			request(line, ctrl.AdvancePhase)
		case "refresh":
			request(line, ctrl.Refresh)
		case "reconnect":
			if err := ctrl.Reconnect(); err != nil {
				fmt.Fprintln(os.Stdout, game.Describe(err))
			}
		case "delete":
			request(line, ctrl.DeleteGame)
		case "reset":
			ctrl.Reset()
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(os.Stdout, "unknown command %q\n%s\n", line, help)
		}
	}
}

// Sync on a terminal device returns EINVAL; that is not worth reporting.
func ignoreSyncErr(err error) error {
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
