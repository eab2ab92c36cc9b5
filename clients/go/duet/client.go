// Package duet provides a Go client for the duet chat server: the HTTP API
// plus the realtime channel, with the chat session state kept consistent with
// server-side truth.
package duet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avelez/duet/internal/models"
	"github.com/avelez/duet/internal/ws"
)

// Client is a duet API client and chat session controller. It holds the
// selected peer, the loaded conversation and the online set, and keeps them
// in sync with realtime events while subscribed.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	conn *websocket.Conn

	mu       sync.Mutex
	self     models.User
	peerID   int
	messages []models.Message
	online   []int
	loading  bool
	handlers map[string]func(ws.Event)
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second, Jar: jar},
		handlers:   make(map[string]func(ws.Event)),
	}
}

// Signup registers a new account and stores the session cookie.
func (c *Client) Signup(username, fullName, email, password string) (models.User, error) {
	return c.authenticate("/auth/signup", map[string]string{
		"username":  username,
		"full_name": fullName,
		"email":     email,
		"password":  password,
	})
}

// Login authenticates and stores the session cookie.
func (c *Client) Login(email, password string) (models.User, error) {
	return c.authenticate("/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) authenticate(path string, body map[string]string) (models.User, error) {
	var user models.User
	if err := c.doJSON("POST", path, body, &user); err != nil {
		return models.User{}, err
	}
	c.mu.Lock()
	c.self = user
	c.mu.Unlock()
	return user, nil
}

// Connect dials the realtime channel using the stored session cookie and
// starts the read loop. The connection stays useful across peer changes; call
// Subscribe after selecting a peer.
func (c *Client) Connect() error {
	u, err := url.Parse(c.BaseURL + "/ws")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	dialer := websocket.Dialer{Jar: c.HTTPClient.Jar, HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect realtime channel: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	go c.readLoop(conn)
	return nil
}

// Close tears down the realtime channel.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var event ws.Event
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		if event.Type == ws.EventOnlineUsers {
			var online []int
			if err := json.Unmarshal(event.Payload, &online); err == nil {
				c.mu.Lock()
				c.online = online
				c.mu.Unlock()
			}
			continue
		}

		c.mu.Lock()
		handler := c.handlers[event.Type]
		c.mu.Unlock()
		if handler != nil {
			handler(event)
		}
	}
}

// Users fetches the available chat partners.
func (c *Client) Users() ([]models.User, error) {
	var users []models.User
	if err := c.doJSON("GET", "/messages/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SelectPeer switches the conversation to peerID and loads its history.
func (c *Client) SelectPeer(peerID int) error {
	c.mu.Lock()
	c.peerID = peerID
	c.mu.Unlock()
	return c.LoadHistory()
}

// LoadHistory replaces the message list with the server's conversation. On
// failure the list is left empty and the error is returned for the caller to
// surface; a later retry recovers.
func (c *Client) LoadHistory() error {
	c.mu.Lock()
	peerID := c.peerID
	c.loading = true
	c.mu.Unlock()

	var messages []models.Message
	err := c.doJSON("GET", fmt.Sprintf("/messages/%d", peerID), nil, &messages)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.messages = nil
		return err
	}
	c.messages = messages
	return nil
}

// Send posts a message to the selected peer. The server-confirmed message is
// appended only on success; there is no optimistic insert.
func (c *Client) Send(text, image string) (models.Message, error) {
	c.mu.Lock()
	peerID := c.peerID
	c.mu.Unlock()

	var msg models.Message
	body := map[string]string{}
	if text != "" {
		body["text"] = text
	}
	if image != "" {
		body["image"] = image
	}
	if err := c.doJSON("POST", fmt.Sprintf("/messages/send/%d", peerID), body, &msg); err != nil {
		return models.Message{}, err
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return msg, nil
}

// Delete removes a message for everyone. On success it is dropped locally; on
// failure local state is untouched. The server's delete response already fans
// the notification out to both participants, so no relay frame is emitted
// here — doing both would deliver the event twice.
func (c *Client) Delete(messageID string) error {
	if err := c.doJSON("DELETE", "/messages/delete/"+messageID,
		map[string]bool{"delete_for_everyone": true}, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.removeMessageLocked(messageID)
	c.mu.Unlock()
	return nil
}

// RelayDelete pushes a delete notification for the given participants over
// the realtime channel. This is for callers that deleted through another
// path and still need the peers' connections told; Delete does not need it.
func (c *Client) RelayDelete(messageID string, userIDs []int) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("relay delete notification: not connected")
	}

	payload, err := json.Marshal(ws.DeletePayload{
		MessageID:         messageID,
		DeleteForEveryone: true,
		UserIDs:           userIDs,
	})
	if err != nil {
		return err
	}
	frame, _ := json.Marshal(ws.Event{Type: ws.EventMessageDeleted, Payload: payload})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("relay delete notification: %w", err)
	}
	return nil
}

// Subscribe installs the live handlers for the selected peer. Repeated calls
// replace the previous handlers rather than accumulating them, so a peer
// switch without an Unsubscribe cannot cause duplicate appends.
func (c *Client) Subscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[ws.EventNewMessage] = func(event ws.Event) {
		var msg models.Message
		if err := json.Unmarshal(event.Payload, &msg); err != nil {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		// Events for other peer pairs are ignored, not queued.
		if msg.SenderID != c.peerID && msg.ReceiverID != c.peerID {
			return
		}
		c.messages = append(c.messages, msg)
	}

	c.handlers[ws.EventMessageDeleted] = func(event ws.Event) {
		var payload ws.DeletePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		c.removeMessageLocked(payload.MessageID)
	}
}

// Unsubscribe removes the live handlers.
func (c *Client) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, ws.EventNewMessage)
	delete(c.handlers, ws.EventMessageDeleted)
}

// Messages returns a snapshot of the loaded conversation.
func (c *Client) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// OnlineUsers returns the latest presence snapshot.
func (c *Client) OnlineUsers() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.online))
	copy(out, c.online)
	return out
}

// IsLoading reports whether a history fetch is in flight.
func (c *Client) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Client) removeMessageLocked(messageID string) {
	for i, m := range c.messages {
		if m.ID == messageID {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return
		}
	}
}

func (c *Client) doJSON(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" {
			e.Message = resp.Status
		}
		return fmt.Errorf("server: %s", e.Message)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
