// Package websocket рассылает события worker'а подключённым клиентам.
package websocket

import (
	"context"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"bitcharge/internal/models"
	"bitcharge/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Hub управляет всеми активными WebSocket соединениями
//
// Регистрация, отключение и рассылка идут через каналы и обрабатываются
// одной горутиной Run. Broadcast не блокирует отправителя: если очередь
// hub'а переполнена, сообщение отбрасывается и учитывается в счётчике.
//
// Использование:
//
//	hub := NewHub(logger, origins)
//	go hub.Run(ctx)
//	hub.BroadcastRates(snapshot)
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]struct{}
	mu      sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	// закрывается при остановке Run
	done chan struct{}

	origins *OriginChecker
	logger  *utils.Logger

	dropped atomic.Int64
}

// NewHub создаёт Hub; пустой список origins разрешает любой Origin
func NewHub(logger *utils.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = utils.L()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		origins:    NewOriginChecker(allowedOrigins),
		logger:     logger.WithComponent("websocket"),
	}
}

// Run - главный цикл Hub, работает до отмены ctx
//
// При остановке все клиенты отключаются.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client connected", utils.Int("clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client disconnected", utils.Int("clients", total))

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// deliver отправляет сообщение всем клиентам, отключая тех, кто не успевает
func (h *Hub) deliver(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}

	if len(slow) == 0 {
		return
	}

	h.mu.Lock()
	for _, client := range slow {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
		}
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Warn("Removed slow clients", utils.Int("removed", len(slow)), utils.Int("clients", total))
}

// Broadcast сериализует сообщение и ставит его в очередь рассылки
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", utils.Err(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
		h.logger.Warn("Broadcast queue full, message dropped")
	}
}

// BroadcastRates отправляет свежие котировки
func (h *Hub) BroadcastRates(snapshot models.RatesSnapshot) {
	h.Broadcast(NewRatesUpdateMessage(snapshot))
}

// BroadcastAction отправляет результат продажи или вывода
func (h *Hub) BroadcastAction(event models.ActionEvent) {
	h.Broadcast(NewExchangeActionMessage(event))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages возвращает число сообщений, отброшенных из-за переполнения очереди
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}
