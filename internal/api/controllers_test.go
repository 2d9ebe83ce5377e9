package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"order-gateway/internal/events"
	"order-gateway/internal/gateway"
	"order-gateway/internal/monitor"
	"order-gateway/internal/order"
	"order-gateway/internal/record"
	"order-gateway/internal/session"
	"order-gateway/internal/throttle"
	"order-gateway/pkg/db"
)

type stubSender struct {
	mu   sync.Mutex
	sent []order.Order
}

func (s *stubSender) Send(_ context.Context, o order.Order) (order.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, o)
	return order.Response{Verdict: order.VerdictAccept, At: time.Now()}, nil
}

type testEnv struct {
	srv        *httptest.Server
	dispatcher *order.Dispatcher
	sender     *stubSender
	database   *db.Database
}

func newTestServer(t *testing.T, open bool, cap int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := session.Window{Open: 0, Close: 24 * time.Hour}
	if !open {
		w = session.Window{Open: 0, Close: time.Nanosecond}
	}
	bus := events.NewBus()
	sess := session.NewController(w, "testuser", bus, time.Millisecond)
	sess.Check()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}

	pending := order.NewPendingQueue()
	sender := &stubSender{}
	metrics := monitor.NewMetrics()
	gate := throttle.New(cap, time.Minute)
	d := order.NewDispatcher(gate, pending, sender, record.NewStore(database), bus, metrics, time.Millisecond)
	facade := gateway.New(sess, d, pending, bus, metrics)

	s := NewServer(facade, bus, database, metrics, "testuser", "testpass", "test-secret", SystemMeta{
		OpenTime:  "00:00:00",
		CloseTime: "23:59:59",
		MaxPerSec: cap,
		Version:   "test",
	})
	srv := httptest.NewServer(s.Router)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, dispatcher: d, sender: sender, database: database}
}

func loginToken(t *testing.T, env *testEnv) string {
	t.Helper()
	body := bytes.NewBufferString(`{"username":"testuser","password":"testpass"}`)
	resp, err := http.Post(env.srv.URL+"/api/login", "application/json", body)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status=%d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if out.Token == "" {
		t.Fatal("empty token")
	}
	return out.Token
}

func doJSON(t *testing.T, method, url, token, payload string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestServer(t, true, 3)
	body := bytes.NewBufferString(`{"username":"testuser","password":"wrong"}`)
	resp, err := http.Post(env.srv.URL+"/api/login", "application/json", body)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d, expected 401", resp.StatusCode)
	}
}

func TestOrdersRequireAuth(t *testing.T) {
	env := newTestServer(t, true, 3)
	resp, _ := doJSON(t, http.MethodPost, env.srv.URL+"/api/orders", "",
		`{"symbol":"BTCUSDT","side":"B","price":100,"qty":10}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d, expected 401", resp.StatusCode)
	}
}

func TestSubmitOrderWhileOpen(t *testing.T) {
	env := newTestServer(t, true, 3)
	token := loginToken(t, env)

	resp, body := doJSON(t, http.MethodPost, env.srv.URL+"/api/orders", token,
		`{"order_id":1001,"symbol":"BTCUSDT","side":"B","price":100,"qty":10}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status=%d, expected 202 (%v)", resp.StatusCode, body)
	}
	if body["status"] != string(order.StatusSent) {
		t.Fatalf("body=%v, expected SENT", body)
	}

	env.dispatcher.Wait()
	records, err := env.database.ResponsesForOrder(context.Background(), 1001)
	if err != nil {
		t.Fatalf("ResponsesForOrder: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, expected 1", len(records))
	}
}

func TestSubmitOrderWhileClosed(t *testing.T) {
	env := newTestServer(t, false, 3)
	token := loginToken(t, env)

	resp, body := doJSON(t, http.MethodPost, env.srv.URL+"/api/orders", token,
		`{"symbol":"BTCUSDT","side":"B","price":100,"qty":10}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, expected 422", resp.StatusCode)
	}
	if body["reason"] != gateway.ReasonNotInWindow {
		t.Fatalf("reason=%v, expected window rejection", body["reason"])
	}
}

func TestModifyCancelPendingFlow(t *testing.T) {
	env := newTestServer(t, true, 1)
	token := loginToken(t, env)

	// First order consumes the cap; the next two queue.
	for i := 1; i <= 3; i++ {
		payload := fmt.Sprintf(`{"order_id":%d,"symbol":"BTCUSDT","side":"B","price":10%d,"qty":10}`, i, i)
		resp, _ := doJSON(t, http.MethodPost, env.srv.URL+"/api/orders", token, payload)
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("submit %d status=%d", i, resp.StatusCode)
		}
	}

	resp, body := doJSON(t, http.MethodPut, env.srv.URL+"/api/orders/2", token, `{"price":105.5,"qty":99}`)
	if resp.StatusCode != http.StatusOK || body["status"] != string(order.StatusModified) {
		t.Fatalf("modify: status=%d body=%v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodDelete, env.srv.URL+"/api/orders/3", token, "")
	if resp.StatusCode != http.StatusOK || body["status"] != string(order.StatusCancelled) {
		t.Fatalf("cancel: status=%d body=%v", resp.StatusCode, body)
	}

	// Stale modify is an ignored no-op with 200.
	resp, body = doJSON(t, http.MethodPut, env.srv.URL+"/api/orders/9999", token, `{"price":1,"qty":1}`)
	if resp.StatusCode != http.StatusOK || body["ignored"] != true {
		t.Fatalf("stale modify: status=%d body=%v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, env.srv.URL+"/api/orders/pending", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pending status=%d", resp.StatusCode)
	}
	if body["count"] != float64(1) {
		t.Fatalf("pending count=%v, expected 1", body["count"])
	}
}

func TestPublicEndpoints(t *testing.T) {
	env := newTestServer(t, true, 3)

	for _, path := range []string{"/health", "/api/session", "/api/metrics", "/api/responses"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(env.srv.URL + path)
			if err != nil {
				t.Fatalf("GET %s: %v", path, err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("GET %s status=%d", path, resp.StatusCode)
			}
		})
	}
}
