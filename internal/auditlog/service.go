package auditlog

import (
	"context"
	"strings"
	"time"

	"authline.org/internal/ids"
	"authline.org/internal/obs"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// sortableColumns maps the request sort properties onto storage columns.
// Anything outside this list falls back to creation time.
var sortableColumns = map[string]string{
	"createdAt":    "created_at",
	"actionType":   "action_type",
	"actionStatus": "action_status",
	"entityType":   "entity_type",
	"userId":       "user_id",
}

// Service wraps a Store with best-effort recording and query normalization.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the audit log service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Recorder = (*Service)(nil)

// Record appends one entry. A storage failure is logged internally and
// swallowed: audit writes must never roll back the operation they describe.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.store.Append(ctx, &entry); err != nil {
		obs.LogRequest(map[string]any{
			"level":  "error",
			"msg":    "audit append failed",
			"action": string(entry.ActionType),
			"status": string(entry.ActionStatus),
			"error":  err.Error(),
		})
	}
}

// Query validates and normalizes the page link, then searches the store.
func (s *Service) Query(ctx context.Context, q Query) (Page, error) {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}

	column, ok := sortableColumns[strings.TrimSpace(q.SortProperty)]
	if !ok {
		column = "created_at"
	}
	q.SortProperty = column
	if q.SortOrder != SortAsc {
		q.SortOrder = SortDesc
	}
	return s.store.Search(ctx, q)
}
