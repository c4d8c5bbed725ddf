package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bitcharge/internal/models"
	"bitcharge/pkg/utils"
)

// ============================================================
// Unit Tests
// ============================================================

func TestNewHub(t *testing.T) {
	hub := NewHub(utils.NewNopLogger(), nil)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.DroppedMessages() != 0 {
		t.Errorf("expected 0 dropped messages, got %d", hub.DroppedMessages())
	}
}

func TestOriginChecker_Check(t *testing.T) {
	checker := NewOriginChecker([]string{"http://localhost:3000", " https://example.com "})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},                       // не браузер
		{"http://localhost:3000", true},  // в списке
		{"https://example.com", true},    // пробелы обрезаны
		{"http://evil.com", false},       // не в списке
		{"http://localhost:8080", false}, // не в списке
	}

	for _, tt := range tests {
		if got := checker.Check(tt.origin); got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestOriginChecker_AllowAll(t *testing.T) {
	for _, origins := range [][]string{nil, {"*"}, {"", " "}} {
		checker := NewOriginChecker(origins)
		if !checker.Check("https://anything.example.org") {
			t.Errorf("origins %q must allow any origin", origins)
		}
	}
}

func TestHub_BroadcastNonBlocking(t *testing.T) {
	hub := NewHub(utils.NewNopLogger(), nil)
	// Run не запущен: очередь заполняется, лишние сообщения отбрасываются

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.BroadcastAction(models.ActionEvent{Action: "sell"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked with a full queue")
	}

	if hub.DroppedMessages() != 300-256 {
		t.Errorf("DroppedMessages() = %d, want %d", hub.DroppedMessages(), 300-256)
	}
}

// ============================================================
// Integration: реальный WebSocket клиент
// ============================================================

func startHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(utils.NewNopLogger(), []string{"http://allowed.example"})
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv, cancel
}

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func waitClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_DeliversTypedMessages(t *testing.T) {
	hub, srv, _ := startHub(t)

	conn, _, err := dial(t, srv, "http://allowed.example")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, 1)

	hub.BroadcastRates(models.RatesSnapshot{Bid: "25000.01", Ask: "25100"})
	hub.BroadcastAction(models.ActionEvent{Action: "withdraw", Amount: "99.10 EUR", Success: true, Reference: "42"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var rates RatesUpdateMessage
	if err := conn.ReadJSON(&rates); err != nil {
		t.Fatalf("read rates: %v", err)
	}
	if rates.Type != MessageTypeRatesUpdate || rates.Data.Bid != "25000.01" {
		t.Errorf("rates message = %+v", rates)
	}

	var action ExchangeActionMessage
	if err := conn.ReadJSON(&action); err != nil {
		t.Fatalf("read action: %v", err)
	}
	if action.Type != MessageTypeExchangeAction || action.Data.Amount != "99.10 EUR" || action.Data.Reference != "42" {
		t.Errorf("action message = %+v", action)
	}
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	_, srv, _ := startHub(t)

	_, resp, err := dial(t, srv, "http://evil.example")
	if err == nil {
		t.Fatal("dial from foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, srv, _ := startHub(t)

	conn, _, err := dial(t, srv, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, srv, cancel := startHub(t)

	conn, _, err := dial(t, srv, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, 1)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed after hub stop")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after stop", hub.ClientCount())
	}
}
