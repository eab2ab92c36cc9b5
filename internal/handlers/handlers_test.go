package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/avelez/duet/internal/auth"
	"github.com/avelez/duet/internal/models"
	"github.com/avelez/duet/internal/store/sqlstore"
	"github.com/avelez/duet/internal/upload"
	"github.com/avelez/duet/internal/ws"
)

const testPNG = "data:image/png;base64,ZmFrZS1wbmctYnl0ZXM="

type testEnv struct {
	store  *sqlstore.SQLStore
	tokens *auth.Tokens
	hub    *ws.Hub
	auth   *AuthHandler
	msg    *MessageHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	uploader, err := upload.NewDiskSaver(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tokens := auth.NewTokens("test-secret")
	hub := ws.NewHub(ws.NewMemoryRegistry(), zerolog.Nop())
	go hub.Run()

	return &testEnv{
		store:  store,
		tokens: tokens,
		hub:    hub,
		auth:   &AuthHandler{Store: store, Tokens: tokens, Uploader: uploader, Logger: zerolog.Nop()},
		msg:    &MessageHandler{Store: store, Hub: hub, Uploader: uploader, Logger: zerolog.Nop()},
	}
}

func (e *testEnv) createUser(t *testing.T, username, email string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: email, Password: "hash"}
	if err := e.store.CreateUser(user); err != nil {
		t.Fatal(err)
	}
	return user
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(data)
}

// authedRequest builds a request carrying a valid session cookie for userID.
func (e *testEnv) authedRequest(t *testing.T, userID int, method, target string, body *bytes.Buffer) *http.Request {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatal(err)
	}
	token, err := e.tokens.Generate(userID)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	return req
}
