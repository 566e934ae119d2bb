package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/boardimg"
	"github.com/park285/cheese-duel/internal/config"
	"github.com/park285/cheese-duel/internal/console"
	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/notify"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/internal/transport"
)

func main() {
	closeLog, err := obslog.InitFromEnv()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer closeLog()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages error: %v", err)
	}

	choice, ok, err := console.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, msgs.Text("app.usage", nil))
		os.Exit(2)
	}
	if !ok {
		if choice, err = console.Menu(msgs); err != nil {
			log.Fatalf("menu: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, msgs, choice); err != nil && !errors.Is(err, context.Canceled) {
		obslog.L().Error("duel_failed", zap.Error(err))
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, msgs *msgcat.Catalog, choice console.Choice) error {
	opts := []transport.Option{
		transport.WithMaxFrameSize(cfg.MaxFrameSize),
		transport.WithDialTimeout(cfg.DialTimeout),
	}

	var tr *transport.Session
	var err error
	scfg := session.Config{Role: choice.Role}
	if choice.Role == session.Host {
		scfg.HostSide = cfg.HostColor.Resolve()
		scfg.Verify = cfg.VerifySnapshot
		tr, err = accept(ctx, cfg, msgs, scfg, opts)
	} else {
		tr, err = dial(ctx, cfg, msgs, choice.Address, opts)
	}
	if err != nil {
		return err
	}

	scfg.Transport = tr
	scfg.Input = console.NewLineInput(msgs)
	scfg.Renderer = console.NewRenderer(msgs)
	if cfg.BoardPNGDir != "" {
		scfg.PlyObservers = append(scfg.PlyObservers, boardimg.NewExporter(cfg.BoardPNGDir))
	}
	if cfg.ResultWebhook != "" {
		scfg.ResultObservers = append(scfg.ResultObservers,
			notify.NewWebhook(cfg.ResultWebhook, notify.WithPlayer(cfg.PlayerName), notify.WithCatalog(msgs)))
	}

	s, err := session.New(scfg)
	if err != nil {
		_ = tr.Close()
		return err
	}
	_, err = s.Run(ctx)
	return err
}

func accept(ctx context.Context, cfg *config.AppConfig, msgs *msgcat.Catalog, scfg session.Config, opts []transport.Option) (*transport.Session, error) {
	var ln transport.Acceptor
	var err error
	switch cfg.Carrier {
	case config.CarrierWebSocket:
		ln, err = transport.ListenWebSocket(cfg.ListenAddr(), cfg.WSPath, opts...)
	default:
		ln, err = transport.Listen(cfg.ListenAddr(), opts...)
	}
	if err != nil {
		return nil, err
	}
	defer ln.Close()

	pterm.Info.Println(msgs.Text("host.waiting", map[string]any{"Addr": ln.Addr().String()}))
	tr, err := ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	pterm.Success.Println(msgs.Text("host.connected", map[string]any{"Peer": tr.RemoteAddr(), "Side": scfg.HostSide}))
	return tr, nil
}

func dial(ctx context.Context, cfg *config.AppConfig, msgs *msgcat.Catalog, address string, opts []transport.Option) (*transport.Session, error) {
	addr := transport.WithDefaultPort(address)
	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start(msgs.Text("join.dialing", map[string]any{"Addr": addr}))
	var tr *transport.Session
	var err error
	if cfg.Carrier == config.CarrierWebSocket {
		tr, err = transport.DialWebSocket(ctx, "ws://"+addr+"/"+strings.TrimPrefix(cfg.WSPath, "/"), opts...)
	} else {
		tr, err = transport.Dial(ctx, addr, opts...)
	}
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return nil, err
	}
	pterm.Success.Println(msgs.Text("join.connected", map[string]any{"Addr": addr}))
	return tr, nil
}
