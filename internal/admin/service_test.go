package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refeitorio-client/config"
	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/model"
	"refeitorio-client/internal/session"
)

func newAdminService(t *testing.T, role model.Role, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess := session.New(nil)
	sess.Init(model.AuthPayload{User: model.User{ID: 1, Role: role}, Token: "tok"})
	client := gateway.New(config.APIConfig{BaseURL: srv.URL, AdminPrefix: "admin", Timeout: 5 * time.Second}, sess, nil)
	svc := NewService(client, sess, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_RefusesNonAdmin(t *testing.T) {
	svc := newAdminService(t, model.RoleStudent, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})
	ctx := context.Background()

	_, _, err := svc.List(ctx, model.ExtrasFilter{})
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.ErrorIs(t, svc.Approve(ctx, 1), ErrNotAdmin)
	assert.ErrorIs(t, svc.Remove(ctx, 1), ErrNotAdmin)
	_, err = svc.Export(ctx, ExportParams{})
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestService_ListWithFilterAndMeta(t *testing.T) {
	svc := newAdminService(t, model.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/extras", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2024-05-02", q.Get("data"))
		assert.Equal(t, "almoco", q.Get("turno"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Empty(t, q.Get("status"))
		fmt.Fprint(w, `{"data":[{"id":4,"user":{"id":7,"nome":"Caio","matricula":"2023007"},"status":"inscrito","inscrito_em":"2024-05-02 08:00:00","posicao":1}],
			"meta":{"total":21,"per_page":20,"current_page":2,"last_page":2}}`)
	})

	items, page, err := svc.List(context.Background(), model.ExtrasFilter{Date: "2024-05-02", Shift: model.ShiftLunch, Page: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Caio", items[0].User.Name)
	assert.Equal(t, model.Pagination{Total: 21, PerPage: 20, CurrentPage: 2, LastPage: 2}, page)
}

func TestService_Actions(t *testing.T) {
	var calls []string
	svc := newAdminService(t, model.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/admin/extras/5/rejeitar":
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"motivo":"sem vaga"}`, string(body))
		case "/admin/extras/aprovar-lote":
			var req map[string][]int64
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []int64{1, 2, 3}, req["ids"])
			fmt.Fprint(w, `{"data":{"aprovados":2,"erros":["Inscrição 3 já processada"]}}`)
			return
		case "/admin/extras/estatisticas":
			assert.Equal(t, "2024-05-01", r.URL.Query().Get("data_inicio"))
			fmt.Fprint(w, `{"data":{"resumo":{"total_inscritos":10,"aprovados":6,"rejeitados":1,"aguardando":3,"taxa_aprovacao":"60%"},"top_estudantes":[],"periodo":{"inicio":"2024-05-01","fim":"2024-05-31"}}}`)
			return
		case "/admin/extras/hoje":
			assert.Equal(t, "jantar", r.URL.Query().Get("turno"))
			fmt.Fprint(w, `{"data":[{"id":9,"turno":"jantar","status":"aprovado","inscrito_em":"x","posicao":null}]}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, 4))
	require.NoError(t, svc.Reject(ctx, 5, "sem vaga"))
	require.NoError(t, svc.ConfirmAttendance(ctx, 6))
	require.NoError(t, svc.Remove(ctx, 7))

	batch, err := svc.ApproveBatch(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Approved)
	assert.Len(t, batch.Errors, 1)

	stats, err := svc.Stats(ctx, "2024-05-01", "")
	require.NoError(t, err)
	assert.Equal(t, "60%", stats.Summary.ApprovalRate)

	today, err := svc.Today(ctx, model.ShiftDinner)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Nil(t, today[0].Position)

	assert.Equal(t, []string{
		"POST /admin/extras/4/aprovar",
		"POST /admin/extras/5/rejeitar",
		"POST /admin/extras/6/confirmar-presenca",
		"DELETE /admin/extras/7",
		"POST /admin/extras/aprovar-lote",
		"GET /admin/extras/estatisticas",
		"GET /admin/extras/hoje",
	}, calls)
}

func TestService_ExportTo(t *testing.T) {
	svc := newAdminService(t, model.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/extras/exportar", r.URL.Path)
		assert.Equal(t, "almoco", r.URL.Query().Get("turno"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Write([]byte("PK-xlsx"))
	})
	dir := t.TempDir()

	path, err := svc.ExportTo(context.Background(), ExportParams{Shift: model.ShiftLunch}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "relatorio_fila_extras_2024-05-02.xlsx"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK-xlsx", string(data))
}
