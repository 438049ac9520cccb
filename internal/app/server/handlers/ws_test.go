package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/app/registry"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/services"
)

type stubConvRepo struct{}

func (stubConvRepo) GetConversationByID(ctx context.Context, convID uuid.UUID) (*domain.Conversation, error) {
	return nil, domain.ErrConversationNotFound
}
func (stubConvRepo) CreateConversation(ctx context.Context, c *domain.Conversation) error { return nil }
func (stubConvRepo) UpsertReadState(ctx context.Context, convID, userID uuid.UUID, at time.Time) error {
	return nil
}
func (stubConvRepo) IncrementUnread(ctx context.Context, convID, senderID uuid.UUID) (map[uuid.UUID]int, error) {
	return nil, nil
}

type stubMsgRepo struct{}

func (stubMsgRepo) SaveMessage(ctx context.Context, m *domain.Message) error { return nil }
func (stubMsgRepo) ListMessages(ctx context.Context, convID uuid.UUID, limit int) ([]domain.Message, error) {
	return nil, nil
}

type stubQueue struct{}

func (stubQueue) PublishToStream(ctx context.Context, topic string, payload []byte) error { return nil }
func (stubQueue) SubscribeToStream(ctx context.Context, topic, conGroup string, handler func(ctx context.Context, messageID string, data []byte) error) error {
	return nil
}
func (stubQueue) AcknowledgeMessage(ctx context.Context, topic, conGroup, mesgID string) error {
	return nil
}
func (stubQueue) DeleteMessage(ctx context.Context, topic, mesgID string) error { return nil }

type stubTxManager struct{}

func (stubTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestWSHandler(t *testing.T) (*WSHandler, *services.TokenService, *registry.Registry) {
	t.Helper()
	log := slog.Default()
	reg := registry.NewRegistry()
	notifier := services.NewNotifierService(log, reg)
	presence := services.NewPresenceService(log, reg, notifier)
	messages := services.NewMessageService(log, stubQueue{}, notifier, stubConvRepo{}, stubMsgRepo{}, stubTxManager{}, "messages")
	tokenSvc := services.NewTokenService("handler-test-secret")
	return NewWSHandler(tokenSvc, presence, messages), tokenSvc, reg
}

func TestWSHandler_RejectsMissingCookie(t *testing.T) {
	handler, _, reg := newTestWSHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(handler.Handler))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, reg.Snapshot(), "rejected connection must never appear in presence")
}

func TestWSHandler_RejectsBadToken(t *testing.T) {
	handler, _, reg := newTestWSHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(handler.Handler))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "garbage"})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, reg.Snapshot())
}

func TestWSHandler_RejectsNonUUIDSubject(t *testing.T) {
	handler, tokenSvc, reg := newTestWSHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(handler.Handler))
	defer srv.Close()

	token, err := tokenSvc.GenerateToken("not-a-uuid")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, reg.Snapshot())
}

func dialWS(t *testing.T, srvURL, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srvURL, "http")
	header := http.Header{}
	header.Add("Cookie", (&http.Cookie{Name: "jwt", Value: token}).String())
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	return conn
}

func readOnlineUsers(t *testing.T, conn *websocket.Conn) domain.OnlineUsersEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev domain.OnlineUsersEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	require.Equal(t, domain.TypeOnlineUsers, ev.Type)
	return ev
}

func TestWSHandler_ConnectBroadcastsOnlineUsers(t *testing.T) {
	handler, tokenSvc, reg := newTestWSHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(handler.Handler))
	defer srv.Close()

	userID := uuid.New()
	token, err := tokenSvc.GenerateToken(userID.String())
	require.NoError(t, err)

	conn := dialWS(t, srv.URL, token)
	defer conn.Close()

	ev := readOnlineUsers(t, conn)
	assert.Equal(t, []string{userID.String()}, ev.Online)
	assert.Equal(t, []string{userID.String()}, reg.Snapshot())

	// a second session for the same user triggers another broadcast with the
	// same single-entry snapshot
	conn2 := dialWS(t, srv.URL, token)
	defer conn2.Close()

	ev = readOnlineUsers(t, conn)
	assert.Equal(t, []string{userID.String()}, ev.Online)
	assert.Equal(t, []string{userID.String()}, reg.Snapshot())
}

func TestWSHandler_DisconnectRemovesFromPresence(t *testing.T) {
	handler, tokenSvc, reg := newTestWSHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(handler.Handler))
	defer srv.Close()

	aliceID := uuid.New()
	bobID := uuid.New()
	aliceToken, err := tokenSvc.GenerateToken(aliceID.String())
	require.NoError(t, err)
	bobToken, err := tokenSvc.GenerateToken(bobID.String())
	require.NoError(t, err)

	aliceConn := dialWS(t, srv.URL, aliceToken)
	defer aliceConn.Close()
	readOnlineUsers(t, aliceConn)

	bobConn := dialWS(t, srv.URL, bobToken)
	ev := readOnlineUsers(t, aliceConn)
	assert.Len(t, ev.Online, 2)

	bobConn.Close()

	// alice should observe bob leaving
	ev = readOnlineUsers(t, aliceConn)
	assert.Equal(t, []string{aliceID.String()}, ev.Online)

	waitFor(t, func() bool {
		online := reg.Snapshot()
		return len(online) == 1 && online[0] == aliceID.String()
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
