package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"munin/internal/archive"
	"munin/internal/auth"
	"munin/internal/config"
	"munin/internal/db"
	httpx "munin/internal/http"
	"munin/internal/journal"
	"munin/internal/merge"
	"munin/internal/retention"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal(err)
	}

	store := &journal.Store{DB: gdb, DefaultLocation: cfg.Location}

	// Anything still MERGING at boot is a torn attempt from a previous run.
	if n, err := store.RecoverStuckMerging(context.Background()); err != nil {
		log.Fatal(err)
	} else if n > 0 {
		log.Printf("recovered %d journal(s) stuck in merging", n)
	}

	arch := archive.NewGitHub(cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo, cfg.GitHubBranch)

	acc := &journal.Accumulator{
		Store:   store,
		Allowed: cfg.Allowed,
		Label:   cfg.JournalLabel,
	}
	publisher := &merge.Publisher{
		Store:   store,
		Archive: arch,
		Label:   cfg.JournalLabel,
	}
	cleaner := &retention.Cleaner{Store: store}

	sched := &merge.Scheduler{
		Store:     store,
		Publisher: publisher,
		Users:     cfg.AllowedUserIDs,
	}
	if cfg.RetentionDays > 0 {
		sched.Janitor = func(ctx context.Context, userID uint64) {
			n, err := cleaner.Cleanup(ctx, userID, cfg.RetentionDays)
			if err != nil {
				log.Printf("retention sweep for user %d: %v", userID, err)
				return
			}
			if n > 0 {
				log.Printf("retention sweep for user %d: removed %d journal(s)", userID, n)
			}
		}
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	r := httpx.NewRouter(cfg, store, acc, sched, cleaner, arch, jwtSvc)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s\n", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	cancel()
	sched.Stop()
}
