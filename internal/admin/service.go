// Package admin is the staff view of the extra-meal waitlist.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/model"
	"refeitorio-client/internal/session"
)

// ErrNotAdmin is returned when the session user lacks the admin role.
var ErrNotAdmin = errors.New("admin role required")

// ExportParams narrows the spreadsheet export.
type ExportParams struct {
	From  string
	To    string
	Shift model.Shift
}

// Service wraps the /{admin}/extras endpoints. Every call checks the
// session role first.
type Service struct {
	client *gateway.Client
	sess   *session.Session
	logger *zap.Logger
	now    func() time.Time
}

func NewService(client *gateway.Client, sess *session.Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, sess: sess, logger: logger, now: time.Now}
}

func (s *Service) authorize() error {
	if s.sess == nil || !s.sess.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

func (s *Service) path(segments ...string) string {
	return s.client.AdminPath(append([]string{"extras"}, segments...)...)
}

func filterQuery(f model.ExtrasFilter) url.Values {
	q := url.Values{}
	if f.Date != "" {
		q.Set("data", f.Date)
	}
	if f.Shift != "" {
		q.Set("turno", string(f.Shift))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}

// List returns one page of inscriptions and its pagination block.
func (s *Service) List(ctx context.Context, f model.ExtrasFilter) ([]model.AdminInscription, model.Pagination, error) {
	if err := s.authorize(); err != nil {
		return nil, model.Pagination{}, err
	}
	env, err := gateway.Fetch[[]model.AdminInscription](ctx, s.client, gateway.Request{
		Method: http.MethodGet,
		Path:   s.path(),
		Query:  filterQuery(f),
	})
	if err != nil {
		return nil, model.Pagination{}, err
	}
	var page model.Pagination
	if len(env.Meta) > 0 {
		if err := json.Unmarshal(env.Meta, &page); err != nil {
			s.logger.Debug("ignoring unreadable pagination meta", zap.Error(err))
		}
	}
	return env.Data, page, nil
}

func (s *Service) Today(ctx context.Context, shift model.Shift) ([]model.AdminInscription, error) {
	if err := s.authorize(); err != nil {
		return nil, err
	}
	q := url.Values{}
	if shift != "" {
		q.Set("turno", string(shift))
	}
	return gateway.Get[[]model.AdminInscription](ctx, s.client, s.path("hoje"), q)
}

func (s *Service) Stats(ctx context.Context, from, to string) (model.ExtrasStats, error) {
	if err := s.authorize(); err != nil {
		return model.ExtrasStats{}, err
	}
	q := url.Values{}
	if from != "" {
		q.Set("data_inicio", from)
	}
	if to != "" {
		q.Set("data_fim", to)
	}
	return gateway.Get[model.ExtrasStats](ctx, s.client, s.path("estatisticas"), q)
}

func (s *Service) post(ctx context.Context, body any, segments ...string) error {
	if err := s.authorize(); err != nil {
		return err
	}
	return s.client.Do(ctx, gateway.Request{Method: http.MethodPost, Path: s.path(segments...), Body: body}, nil)
}

func (s *Service) Approve(ctx context.Context, id int64) error {
	return s.post(ctx, nil, strconv.FormatInt(id, 10), "aprovar")
}

// Reject sends an optional reason along with the rejection.
func (s *Service) Reject(ctx context.Context, id int64, reason string) error {
	var body any
	if reason != "" {
		body = map[string]string{"motivo": reason}
	}
	return s.post(ctx, body, strconv.FormatInt(id, 10), "rejeitar")
}

func (s *Service) ConfirmAttendance(ctx context.Context, id int64) error {
	return s.post(ctx, nil, strconv.FormatInt(id, 10), "confirmar-presenca")
}

func (s *Service) Remove(ctx context.Context, id int64) error {
	if err := s.authorize(); err != nil {
		return err
	}
	return s.client.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: s.path(strconv.FormatInt(id, 10))}, nil)
}

func (s *Service) ApproveBatch(ctx context.Context, ids []int64) (model.BatchApproval, error) {
	if err := s.authorize(); err != nil {
		return model.BatchApproval{}, err
	}
	env, err := gateway.Fetch[model.BatchApproval](ctx, s.client, gateway.Request{
		Method: http.MethodPost,
		Path:   s.path("aprovar-lote"),
		Body:   map[string][]int64{"ids": ids},
	})
	if err != nil {
		return model.BatchApproval{}, err
	}
	return env.Data, nil
}

// Export downloads the waitlist spreadsheet.
func (s *Service) Export(ctx context.Context, p ExportParams) ([]byte, error) {
	if err := s.authorize(); err != nil {
		return nil, err
	}
	q := url.Values{}
	if p.From != "" {
		q.Set("data_inicio", p.From)
	}
	if p.To != "" {
		q.Set("data_fim", p.To)
	}
	if p.Shift != "" {
		q.Set("turno", string(p.Shift))
	}
	body, _, err := s.client.Download(ctx, gateway.Request{Method: http.MethodGet, Path: s.path("exportar"), Query: q})
	return body, err
}

// ExportFileName is the name the spreadsheet is saved under.
func (s *Service) ExportFileName() string {
	return fmt.Sprintf("relatorio_fila_extras_%s.xlsx", s.now().Format("2006-01-02"))
}

// ExportTo downloads the spreadsheet into dir and returns the file path.
func (s *Service) ExportTo(ctx context.Context, p ExportParams, dir string) (string, error) {
	body, err := s.Export(ctx, p)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, s.ExportFileName())
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}
	s.logger.Info("waitlist export saved", zap.String("path", path), zap.Int("bytes", len(body)))
	return path, nil
}
