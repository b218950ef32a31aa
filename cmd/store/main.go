package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"hecstore.ai/internal/config"
	"hecstore.ai/internal/console"
	"hecstore.ai/internal/metrics"
	"hecstore.ai/internal/persistence/journal"
	"hecstore.ai/internal/protocol"
	"hecstore.ai/internal/session"
	"hecstore.ai/internal/session/wsclient"
	"hecstore.ai/internal/store"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory")
		configPath = flag.String("config", "", "path to config.yaml (default: <data>/config.yaml)")
		noConsole  = flag.Bool("no_console", false, "do not read operator commands from stdin")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[store] ", log.LstdFlags|log.Lmicroseconds)

	cp := strings.TrimSpace(*configPath)
	if cp == "" {
		cp = filepath.Join(*dataDir, config.FileName)
	}
	cfg, err := config.Load(cp)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	repos, closer, err := store.OpenRepos(cfg.StorageBackend, *dataDir, cfg.SQLitePath, logger)
	if err != nil {
		logger.Fatalf("open %s backend: %v", cfg.StorageBackend, err)
	}
	defer closer.Close()

	dir, err := buildDirectory(cfg, logger)
	if err != nil {
		logger.Fatalf("directory: %v", err)
	}

	opts := store.Options{
		Origin:          cfg.Position,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		ActionTimeout:   cfg.ActionTimeout(),
		TradeRetention:  cfg.TradeRetention,
		Logger:          logger,
	}
	if cfg.Journal {
		jw := journal.NewWriter(filepath.Join(*dataDir, "journal"))
		defer jw.Close()
		opts.Journal = jw
	}

	s, err := store.New(dir, repos, opts)
	if err != nil {
		logger.Fatalf("load store: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.MetricsAddr != "" {
		srv := startMetrics(ctx, cfg.MetricsAddr, logger)
		defer srv.Close()
	}

	events := make(chan protocol.PlayerCommand, cfg.InboxDepth)
	requests := make(chan protocol.ConsoleRequest, cfg.InboxDepth)
	out := make(chan protocol.Instruction, cfg.OutboxDepth)

	client := wsclient.New(wsclient.Config{
		URL:     cfg.GatewayURL,
		Account: cfg.AccountEmail,
		Server:  cfg.ServerAddress,
		Logger:  log.New(os.Stdout, "[session] ", log.LstdFlags|log.Lmicroseconds),
	})
	adapter := session.NewAdapter(client, session.AdapterOptions{
		ActionTimeout: cfg.ActionTimeout(),
		Logger:        log.New(os.Stdout, "[session] ", log.LstdFlags|log.Lmicroseconds),
	})
	// The adapter stops on the Store's StopSession or when out closes, not on signals.
	go func() {
		if err := adapter.Run(context.Background(), events, out); err != nil {
			logger.Printf("session stopped: %v", err)
		}
	}()

	cons := store.NewConsole(requests, s.Done())
	if !*noConsole {
		go func() {
			if err := console.Run(ctx, os.Stdin, os.Stdout, cons); err != nil {
				logger.Printf("console: %v", err)
			}
		}()
	}

	// A signal asks for the same orderly shutdown as the console.
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout()+5*time.Second)
		defer scancel()
		if err := cons.Shutdown(sctx); err != nil && !errors.Is(err, protocol.ErrChannelClosed) {
			logger.Printf("shutdown: %v", err)
		}
	}()

	logger.Printf("store running: backend=%s directory=%s gateway=%s", cfg.StorageBackend, cfg.Directory, cfg.GatewayURL)
	if err := s.Run(context.Background(), events, requests, out); err != nil {
		logger.Printf("store stopped: %v", err)
	}
	logger.Printf("bye")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func startMetrics(ctx context.Context, addr string, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics: %v", err)
		}
	}()
	return srv
}
