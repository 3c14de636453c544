package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refeitorio-client/config"
	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/model"
)

type mockInboxBackend struct {
	UnreadFunc      func(ctx context.Context) ([]model.Notification, error)
	MarkReadFunc    func(ctx context.Context, id int64) error
	MarkAllReadFunc func(ctx context.Context) error
}

func (m *mockInboxBackend) Unread(ctx context.Context) ([]model.Notification, error) {
	return m.UnreadFunc(ctx)
}

func (m *mockInboxBackend) MarkRead(ctx context.Context, id int64) error {
	return m.MarkReadFunc(ctx, id)
}

func (m *mockInboxBackend) MarkAllRead(ctx context.Context) error { return m.MarkAllReadFunc(ctx) }

func TestInbox_LoadAndMark(t *testing.T) {
	markErr := error(nil)
	backend := &mockInboxBackend{
		UnreadFunc: func(ctx context.Context) ([]model.Notification, error) {
			return []model.Notification{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}, nil
		},
		MarkReadFunc:    func(ctx context.Context, id int64) error { return markErr },
		MarkAllReadFunc: func(ctx context.Context) error { return markErr },
	}
	inbox := NewInbox(backend, nil)
	inbox.now = func() time.Time { return time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	inbox.LoadUnread(ctx)
	assert.Equal(t, 2, inbox.UnreadCount())

	markErr = errors.New("offline")
	inbox.MarkRead(ctx, 1)
	assert.Equal(t, 2, inbox.UnreadCount())

	markErr = nil
	inbox.MarkRead(ctx, 1)
	assert.Equal(t, 1, inbox.UnreadCount())
	items := inbox.Items()
	require.NotNil(t, items[0].ReadAt)
	assert.Equal(t, "2024-05-02T12:00:00Z", *items[0].ReadAt)

	inbox.MarkAllRead(ctx)
	assert.Equal(t, 0, inbox.UnreadCount())
	assert.Len(t, inbox.Items(), 2)

	inbox.Reset()
	assert.Empty(t, inbox.Items())
}

func TestInbox_LoadFailureIsSilent(t *testing.T) {
	backend := &mockInboxBackend{
		UnreadFunc: func(ctx context.Context) ([]model.Notification, error) {
			return nil, &gateway.Error{Kind: gateway.KindServer, Status: 500}
		},
	}
	inbox := NewInbox(backend, nil)
	inbox.LoadUnread(context.Background())
	assert.Empty(t, inbox.Items())
	assert.NotNil(t, inbox.Items())
}

func TestService_Endpoints(t *testing.T) {
	var patched []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/estudante/notificacoes/nao-lidas":
			fmt.Fprint(w, `{"data":[{"id":3,"tipo":"alerta","titulo":"Fila","mensagem":"Você é o próximo","lida":false,"lida_em":null}]}`)
		case r.Method == http.MethodGet && r.URL.Path == "/estudante/notificacoes/contador":
			fmt.Fprint(w, `{"data":{"total":5,"nao_lidas":1}}`)
		case r.Method == http.MethodPatch:
			patched = append(patched, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := gateway.New(config.APIConfig{BaseURL: srv.URL, StudentPrefix: "estudante", Timeout: 5 * time.Second}, nil, nil)
	svc := NewService(client)
	ctx := context.Background()

	unread, err := svc.Unread(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, model.NotificationAlert, unread[0].Kind)

	counter, err := svc.Counter(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationCounter{Total: 5, Unread: 1}, counter)

	require.NoError(t, svc.MarkRead(ctx, 3))
	require.NoError(t, svc.MarkAllRead(ctx))
	assert.Equal(t, []string{"/estudante/notificacoes/3/ler", "/estudante/notificacoes/marcar-todas-lidas"}, patched)

	_, err = svc.List(ctx)
	assert.True(t, gateway.IsKind(err, gateway.KindNotFound))
}
