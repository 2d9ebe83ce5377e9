package main

import (
	"context"
	"log"
	"time"

	"order-gateway/internal/events"
	"order-gateway/internal/gateway"
	"order-gateway/internal/monitor"
	"order-gateway/internal/order"
	"order-gateway/internal/record"
	"order-gateway/internal/session"
	"order-gateway/internal/throttle"
	"order-gateway/internal/venue"
	"order-gateway/pkg/db"
)

// traffic_demo drives the order pipeline end to end against the simulated
// venue, without the HTTP layer. It uses an in-memory database and a
// throw-away response log.
//
// Usage (from the repo root):
//   go run ./scripts/traffic_demo
//
// It will:
//   1) Burst 5 orders with a cap of 3/sec, so 2 queue.
//   2) Modify and cancel queued orders, including stale IDs that no-op.
//   3) Drain the queue once the throttle interval rolls over.
//   4) Submit malformed orders the venue rejects.
//   5) Show the window rejection once the session is closed.

type demoEnv struct {
	facade     *gateway.Facade
	dispatcher *order.Dispatcher
	pending    *order.PendingQueue
	metrics    *monitor.Metrics
	cancel     context.CancelFunc
}

func buildGateway(w session.Window, database *db.Database) *demoEnv {
	bus := events.NewBus()
	sess := session.NewController(w, "demo", bus, 50*time.Millisecond)
	sess.Check()

	responseLog, err := record.OpenLog("demo_responses.log")
	if err != nil {
		log.Fatalf("open response log: %v", err)
	}

	gate := throttle.New(3, time.Second)
	pending := order.NewPendingQueue()
	exchange := venue.NewMock(venue.MockConfig{LatencyMinMs: 40, LatencyMaxMs: 60})
	metrics := monitor.NewMetrics()
	recorder := record.Fanout{responseLog, record.NewStore(database)}
	d := order.NewDispatcher(gate, pending, exchange, recorder, bus, metrics, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go sess.Run(ctx)
	go d.Run(ctx)

	return &demoEnv{
		facade:     gateway.New(sess, d, pending, bus, metrics),
		dispatcher: d,
		pending:    pending,
		metrics:    metrics,
		cancel:     cancel,
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("=== order gateway traffic demo ===")

	database, err := db.New(":memory:")
	if err != nil {
		log.Fatalf("db init: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("db migrations: %v", err)
	}

	ctx := context.Background()
	env := buildGateway(session.Window{Open: 0, Close: 24 * time.Hour}, database)
	defer env.cancel()

	log.Println("[SCENARIO 1] burst of 5 orders with a cap of 3/sec")
	for i := 0; i < 5; i++ {
		id := int64(1000 + i)
		res := env.facade.NewOrder(ctx, order.Order{
			ID:     id,
			Symbol: "BTCUSDT",
			Side:   order.SideBuy,
			Price:  100 + float64(i),
			Qty:    10,
		})
		log.Printf("order %d -> %s", id, res.Status)
	}
	log.Printf("pending after burst: %d", env.pending.Len())

	log.Println("[SCENARIO 2] modify and cancel while queued")
	logResult := func(label string, res gateway.Result) {
		if res.Ignored {
			log.Printf("%s -> ignored (%s)", label, res.Reason)
			return
		}
		log.Printf("%s -> %s", label, res.Status)
	}
	logResult("modify 1003", env.facade.ModifyOrder(ctx, 1003, 250.5, 15))
	logResult("modify 1003 again", env.facade.ModifyOrder(ctx, 1003, 260.0, 20))
	logResult("cancel 1004", env.facade.CancelOrder(ctx, 1004))
	logResult("modify 9999 (never queued)", env.facade.ModifyOrder(ctx, 9999, 1, 1))
	logResult("cancel 8888 (never queued)", env.facade.CancelOrder(ctx, 8888))

	log.Println("[SCENARIO 3] wait for the throttle interval to roll and the queue to drain")
	time.Sleep(1200 * time.Millisecond)
	env.dispatcher.Wait()
	log.Printf("pending after drain: %d", env.pending.Len())

	log.Println("[SCENARIO 4] malformed orders and a duplicate queued ID")
	for _, o := range []order.Order{
		{ID: 2001, Symbol: "BTCUSDT", Side: "X", Price: 100, Qty: 10},
		{ID: 2002, Symbol: "BTCUSDT", Side: order.SideBuy, Price: 100, Qty: 0},
		{ID: 2003, Symbol: "BTCUSDT", Side: order.SideSell, Price: -5, Qty: 10},
	} {
		res := env.facade.NewOrder(ctx, o)
		log.Printf("order %d -> %s", o.ID, res.Status)
	}
	env.dispatcher.Wait()

	log.Println("[SCENARIO 5] a second burst of 10 to refill the queue")
	for i := 0; i < 10; i++ {
		id := int64(3000 + i)
		res := env.facade.NewOrder(ctx, order.Order{
			ID:     id,
			Symbol: "ETHUSDT",
			Side:   order.SideSell,
			Price:  2500,
			Qty:    1,
		})
		log.Printf("order %d -> %s", id, res.Status)
	}
	time.Sleep(3500 * time.Millisecond)
	env.dispatcher.Wait()
	log.Printf("pending after second drain: %d", env.pending.Len())

	log.Println("[SCENARIO 6] session closed, new orders rejected")
	env.cancel()
	closed := buildGateway(session.Window{Open: 0, Close: time.Nanosecond}, database)
	defer closed.cancel()
	res := closed.facade.NewOrder(ctx, order.Order{
		ID:     4000,
		Symbol: "BTCUSDT",
		Side:   order.SideBuy,
		Price:  100,
		Qty:    10,
	})
	log.Printf("order 4000 -> %s (%s)", res.Status, res.Reason)

	snap := env.metrics.Snapshot()
	log.Printf("=== demo complete: submitted=%d sent=%d queued=%d rejected=%d ===",
		snap.Submitted, snap.Sent, snap.Queued, snap.Rejected)
}
