package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"order-gateway/internal/api"
	"order-gateway/internal/events"
	"order-gateway/internal/gateway"
	"order-gateway/internal/monitor"
	"order-gateway/internal/order"
	"order-gateway/internal/record"
	"order-gateway/internal/session"
	"order-gateway/internal/throttle"
	"order-gateway/internal/venue"
	"order-gateway/pkg/config"
	"order-gateway/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	log.Printf("starting order gateway on port %s", cfg.Port)
	log.Printf("session window %s - %s, throttle %d orders/sec", cfg.OpenTime, cfg.CloseTime, cfg.MaxOrdersPerSec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("db migrations failed: %v", err)
	}

	// Session window state machine
	openAt, _ := config.ParseTimeOfDay(cfg.OpenTime)
	closeAt, _ := config.ParseTimeOfDay(cfg.CloseTime)
	sess := session.NewController(session.Window{Open: openAt, Close: closeAt}, cfg.Username, bus, time.Duration(cfg.SessionPollMs)*time.Millisecond)
	go sess.Run(ctx)

	// Persist logon/logout events and log them as they happen.
	logonSub, unsubLogon := bus.Subscribe(events.EventSessionLogon, 8)
	defer unsubLogon()
	logoutSub, unsubLogout := bus.Subscribe(events.EventSessionLogout, 8)
	defer unsubLogout()
	recordTransition := func(msg any) {
		tr, ok := msg.(session.Transition)
		if !ok {
			return
		}
		log.Printf("session %s for %s", tr.Kind, tr.Username)
		if err := database.InsertSessionEvent(ctx, db.SessionEvent{
			ID:        uuid.NewString(),
			Kind:      tr.Kind,
			Username:  tr.Username,
			CreatedAt: tr.At,
		}); err != nil {
			log.Printf("session event persist failed: %v", err)
		}
	}
	go func() {
		for {
			select {
			case msg, ok := <-logonSub:
				if !ok {
					return
				}
				recordTransition(msg)
			case msg, ok := <-logoutSub:
				if !ok {
					return
				}
				recordTransition(msg)
			}
		}
	}()

	// Order flow: throttle gate -> pending queue -> simulated venue
	gate := throttle.New(cfg.MaxOrdersPerSec, time.Second)
	pending := order.NewPendingQueue()
	exchange := venue.NewMock(venue.MockConfig{
		LatencyMinMs: cfg.VenueLatencyMinMs,
		LatencyMaxMs: cfg.VenueLatencyMaxMs,
		RejectRate:   cfg.VenueRejectRate,
	})

	responseLog, err := record.OpenLog(cfg.ResponseLogPath)
	if err != nil {
		log.Fatalf("response log open failed: %v", err)
	}
	defer responseLog.Close()

	var store order.Recorder = record.NewStore(database)
	if cfg.ResponseBatchSize > 0 {
		batch := record.NewBatchStore(database, cfg.ResponseBatchSize, time.Duration(cfg.ResponseBatchMs)*time.Millisecond)
		defer batch.Close()
		store = batch
		log.Printf("batched response writes enabled (size %d)", cfg.ResponseBatchSize)
	}
	recorder := record.Fanout{responseLog, store}

	metrics := monitor.NewMetrics()
	dispatcher := order.NewDispatcher(gate, pending, exchange, recorder, bus, metrics, time.Duration(cfg.DrainTickMs)*time.Millisecond)
	go dispatcher.Run(ctx)

	facade := gateway.New(sess, dispatcher, pending, bus, metrics)

	// API
	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}
	server := api.NewServer(facade, bus, database, metrics, cfg.Username, cfg.Password, cfg.JWTSecret, api.SystemMeta{
		OpenTime:  cfg.OpenTime,
		CloseTime: cfg.CloseTime,
		MaxPerSec: cfg.MaxOrdersPerSec,
		Version:   buildVersion,
	})
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutMs)*time.Millisecond)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown: %v", err)
	}

	// Stop the drain loop, then wait for responses already in flight.
	cancel()
	dispatcher.Wait()
	log.Printf("stopped with %d orders still pending", pending.Len())
}
