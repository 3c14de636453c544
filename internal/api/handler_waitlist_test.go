package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refeitorio-client/config"
	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/model"
	"refeitorio-client/internal/store"
	"refeitorio-client/internal/waitlist"
)

// upstream is a scripted meal-program backend.
type upstream struct {
	mu            sync.Mutex
	positionCalls int
	handler       func(w http.ResponseWriter, r *http.Request)
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if r.URL.Path == "/estudante/fila-extras/posicao" {
		u.positionCalls++
	}
	u.handler(w, r)
}

func setupWaitlistRouter(t *testing.T, s store.Store, handler func(w http.ResponseWriter, r *http.Request)) (*gin.Engine, *upstream) {
	t.Helper()
	up := &upstream{handler: handler}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	client := gateway.New(config.APIConfig{BaseURL: srv.URL, StudentPrefix: "estudante", Timeout: 5 * time.Second}, nil, nil)
	coord := waitlist.NewCoordinator(waitlist.NewService(client, nil), nil, nil)

	gin.SetMode(gin.TestMode)
	router := NewRouter(config.ServerConfig{RateLimitPerSec: 100, RateLimitBurst: 100, CacheTTLSeconds: 30},
		NewHandler(s, nil, coord, nil), nil)
	return router, up
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{waitlist.ErrAlreadyInscribed, http.StatusConflict},
		{&gateway.Error{Kind: gateway.KindConflict}, http.StatusConflict},
		{&gateway.Error{Kind: gateway.KindValidation}, http.StatusUnprocessableEntity},
		{&gateway.Error{Kind: gateway.KindNotFound}, http.StatusNotFound},
		{&gateway.Error{Kind: gateway.KindUnauthorized}, http.StatusUnauthorized},
		{&gateway.Error{Kind: gateway.KindForbidden}, http.StatusForbidden},
		{&gateway.Error{Kind: gateway.KindServer}, http.StatusBadGateway},
		{&gateway.Error{Kind: gateway.KindDecode}, http.StatusBadGateway},
		{&gateway.Error{Kind: gateway.KindNetwork}, http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", &gateway.Error{Kind: gateway.KindNotFound}), http.StatusNotFound},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, statusFor(tc.err), "%v", tc.err)
	}
}

func TestGetPositions_CachedUntilMutation(t *testing.T) {
	router, up := setupWaitlistRouter(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/estudante/fila-extras/posicao":
			fmt.Fprint(w, `{"data":[{"refeicao_id":1,"posicao":2,"total_na_fila":3,"sua_vez_aproximada":"","status":"aguardando"}]}`)
		case r.URL.Path == "/estudante/fila-extras/disponiveis":
			fmt.Fprint(w, `{"data":[]}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/estudante/fila-extras/9":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})

	w := serve(router, http.MethodGet, "/api/fila/posicoes", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body struct {
		Data []model.QueuePosition `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 2, body.Data[0].Position)

	w = serve(router, http.MethodGet, "/api/fila/posicoes", "")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, 1, up.positionCalls)

	w = serve(router, http.MethodDelete, "/api/fila/inscricoes/9", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = serve(router, http.MethodGet, "/api/fila/posicoes", "")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"), "a mutation flushes the cache")
	assert.Equal(t, 2, up.positionCalls)
}

func TestPostInscription(t *testing.T) {
	router, _ := setupWaitlistRouter(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/estudante/fila-extras":
			var req model.InscriptionRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.SlotID == 2 {
				w.WriteHeader(http.StatusConflict)
				fmt.Fprint(w, `{"message":"Você já está inscrito nesta refeição"}`)
				return
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"data":{"id":5,"refeicao_id":%d,"posicao":1}}`, req.SlotID)
		case r.URL.Path == "/estudante/fila-extras/disponiveis":
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"message":"manutenção"}`)
		default:
			http.NotFound(w, r)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		w := serve(router, http.MethodPost, "/api/fila/inscricoes", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("created even when the refresh fails", func(t *testing.T) {
		w := serve(router, http.MethodPost, "/api/fila/inscricoes", `{"refeicao_id":1}`)
		require.Equal(t, http.StatusCreated, w.Code)
		var body struct {
			Data    model.Inscription `json:"data"`
			Warning string            `json:"warning"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, int64(5), body.Data.ID)
		assert.NotEmpty(t, body.Warning)
	})

	t.Run("backend conflict", func(t *testing.T) {
		w := serve(router, http.MethodPost, "/api/fila/inscricoes", `{"refeicao_id":2}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.JSONEq(t, `{"error":"Você já está inscrito nesta refeição"}`, w.Body.String())
	})

	t.Run("already inscribed locally", func(t *testing.T) {
		w := serve(router, http.MethodPost, "/api/fila/inscricoes", `{"refeicao_id":1}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestGetAvailable_BackendDown(t *testing.T) {
	router, _ := setupWaitlistRouter(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	w := serve(router, http.MethodGet, "/api/fila/disponiveis", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"Ocorreu um erro"}`, w.Body.String())
}

func TestGetMine_FailsSoft(t *testing.T) {
	router, _ := setupWaitlistRouter(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	w := serve(router, http.MethodGet, "/api/fila/minhas", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"state":"failed"}`, w.Body.String())
}

func TestGetPositionHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	_, err := s.UpdatePositions(ctx, t0, []model.QueuePosition{{SlotID: 7, Position: 3, Total: 3, Status: model.QueueWaiting}}, nil)
	require.NoError(t, err)
	_, err = s.UpdatePositions(ctx, t0.Add(time.Minute), []model.QueuePosition{{SlotID: 7, Position: 2, Total: 3, Status: model.QueueWaiting}}, nil)
	require.NoError(t, err)

	router, _ := setupWaitlistRouter(t, s, func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) })

	w := serve(router, http.MethodGet, "/api/fila/historico/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []model.PositionHistory `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 3, body.Data[0].Position)

	w = serve(router, http.MethodGet, "/api/fila/historico/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
