package ws

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/avelez/duet/internal/metrics"
	"github.com/avelez/duet/internal/models"
)

// delivery asks the hub loop to push an event to the current connections of
// the listed users.
type delivery struct {
	eventType string
	userIDs   []int
	data      []byte
}

// Hub owns the connection registry. All mutation and fan-out happens on the
// Run goroutine, so a register/unregister plus its presence broadcast is
// atomic relative to every other event.
type Hub struct {
	// Registered clients, by connection id.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Targeted event deliveries from the HTTP handlers and the relay path.
	deliveries chan delivery

	registry Registry
	logger   zerolog.Logger
}

func NewHub(registry Registry, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, 64),
		registry:   registry,
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.connID] = client
			metrics.WSConnections.Inc()
			// A connection without a user id is accepted but never
			// appears online.
			if client.userID != 0 {
				h.registry.Register(client.userID, client.connID)
			}
			h.broadcastPresence()

		case client := <-h.unregister:
			if _, ok := h.clients[client.connID]; ok {
				delete(h.clients, client.connID)
				close(client.send)
				metrics.WSConnections.Dec()
			}
			if client.userID != 0 {
				h.registry.Unregister(client.connID)
			}
			h.broadcastPresence()

		case d := <-h.deliveries:
			evicted := false
			for _, userID := range d.userIDs {
				connID, ok := h.registry.Lookup(userID)
				if !ok {
					// Receiver offline: fire-and-forget, the
					// message is recovered on the next
					// history fetch.
					continue
				}
				client, ok := h.clients[connID]
				if !ok {
					continue
				}
				if h.send(client, d.data) {
					evicted = true
					continue
				}
				metrics.EventsDelivered.WithLabelValues(d.eventType).Inc()
			}
			if evicted {
				h.broadcastPresence()
			}
		}
	}
}

// DeliverNewMessage pushes a persisted message to the receiver's connection
// only. The sender's UI updates from its own HTTP response.
func (h *Hub) DeliverNewMessage(msg *models.Message) {
	data, err := marshalEvent(EventNewMessage, msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal newMessage event")
		return
	}
	h.deliveries <- delivery{eventType: EventNewMessage, userIDs: []int{msg.ReceiverID}, data: data}
}

// DeliverMessageDeleted notifies exactly the listed participants. Used by the
// HTTP delete handler (sender and receiver) and by the client relay path.
func (h *Hub) DeliverMessageDeleted(messageID string, userIDs []int) {
	data, err := marshalEvent(EventMessageDeleted, DeletePayload{
		MessageID:         messageID,
		DeleteForEveryone: true,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal messageDeleted event")
		return
	}
	h.deliveries <- delivery{eventType: EventMessageDeleted, userIDs: userIDs, data: data}
}

// broadcastPresence sends the full online set to every connection, the
// unregistered ones included.
func (h *Hub) broadcastPresence() {
	online := h.registry.OnlineUserIDs()
	sort.Ints(online)

	data, err := marshalEvent(EventOnlineUsers, online)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal presence event")
		return
	}
	evicted := false
	for _, client := range h.clients {
		if h.send(client, data) {
			evicted = true
		}
	}
	metrics.EventsDelivered.WithLabelValues(EventOnlineUsers).Add(float64(len(h.clients)))
	// An eviction changed the online set mid-broadcast; go again so the
	// survivors see the current set. Terminates: every pass removes a
	// client.
	if evicted {
		h.broadcastPresence()
	}
}

// send queues data on the client, dropping the connection if its buffer is
// full. Reports whether the client was evicted.
func (h *Hub) send(client *Client, data []byte) bool {
	select {
	case client.send <- data:
		return false
	default:
		delete(h.clients, client.connID)
		close(client.send)
		if client.userID != 0 {
			h.registry.Unregister(client.connID)
		}
		metrics.WSConnections.Dec()
		return true
	}
}
