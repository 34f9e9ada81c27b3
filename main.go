package main

import (
	"context"
	"log"
	"syscall"
	"time"

	"os/signal"

	"github.com/wharfterm/wharf/internal/config"
	"github.com/wharfterm/wharf/internal/logging"
	"github.com/wharfterm/wharf/internal/sshtransport"
	"github.com/wharfterm/wharf/internal/store"
)

func main() {
	config.Load()
	logging.Init()

	sessionStore, err := store.Load(config.Cfg.SessionsFilePath(), config.Cfg.DataPath)
	if err != nil {
		log.Fatalf("failed to load session store: %v", err)
	}

	manager := sshtransport.NewManager()

	unsubscribe := sessionStore.Subscribe(func(e store.Event) {
		log.Printf("store event: %s node=%s", e.Kind, e.NodeID)
	})
	defer unsubscribe()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go staleSessionSweepLoop(sigCtx, manager)

	log.Printf("wharf terminal core ready, %d session(s) loaded", len(sessionStore.Root()))

	<-sigCtx.Done()
	log.Println("shutting down...")

	if err := manager.CloseAll(); err != nil {
		log.Printf("error closing ssh sessions: %v", err)
	}

	log.Println("stopped")
}

// staleSessionSweepLoop periodically logs the number of pooled SSH sessions.
// It does not remove disconnected sessions; the manager replaces those on
// the next GetOrCreateSession for the same key.
func staleSessionSweepLoop(ctx context.Context, manager *sshtransport.Manager) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("ssh session pool: %d session(s)", manager.SessionCount())
		}
	}
}
