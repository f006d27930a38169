package auditlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// captureStore records Append calls and replays a canned Search response.
type captureStore struct {
	appended  []Entry
	appendErr error

	lastQuery Query
	page      Page
	searchErr error
}

func (s *captureStore) Append(_ context.Context, entry *Entry) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, *entry)
	return nil
}

func (s *captureStore) Search(_ context.Context, q Query) (Page, error) {
	s.lastQuery = q
	return s.page, s.searchErr
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	store := &captureStore{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(store, WithClock(func() time.Time { return now }))

	svc.Record(context.Background(), Entry{
		TenantID:     uuid.New(),
		ActionType:   ActionLogin,
		ActionStatus: StatusSuccess,
	})

	if len(store.appended) != 1 {
		t.Fatalf("appended = %d, want 1", len(store.appended))
	}
	got := store.appended[0]
	if got.ID == "" {
		t.Error("entry id not assigned")
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created at = %v, want %v", got.CreatedAt, now)
	}
}

func TestRecordKeepsProvidedIDAndTimestamp(t *testing.T) {
	store := &captureStore{}
	svc := NewService(store)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.Record(context.Background(), Entry{ID: "fixed-id", CreatedAt: at, ActionType: ActionLogout})

	got := store.appended[0]
	if got.ID != "fixed-id" || !got.CreatedAt.Equal(at) {
		t.Errorf("entry = %+v", got)
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := &captureStore{appendErr: errors.New("db down")}
	svc := NewService(store)

	// Must not panic or surface the error.
	svc.Record(context.Background(), Entry{ActionType: ActionLogin, ActionStatus: StatusFailure})

	if len(store.appended) != 0 {
		t.Error("nothing should be appended on failure")
	}
}

func TestQueryNormalizesPaging(t *testing.T) {
	store := &captureStore{}
	svc := NewService(store)
	ctx := context.Background()

	tests := []struct {
		name     string
		in       Query
		page     int
		pageSize int
	}{
		{"defaults", Query{}, 0, 10},
		{"negative page", Query{Page: -3, PageSize: 25}, 0, 25},
		{"oversized page", Query{PageSize: 5000}, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Query(ctx, tt.in); err != nil {
				t.Fatalf("Query: %v", err)
			}
			if store.lastQuery.Page != tt.page || store.lastQuery.PageSize != tt.pageSize {
				t.Errorf("page/pageSize = %d/%d, want %d/%d",
					store.lastQuery.Page, store.lastQuery.PageSize, tt.page, tt.pageSize)
			}
		})
	}
}

func TestQueryMapsSortProperty(t *testing.T) {
	store := &captureStore{}
	svc := NewService(store)
	ctx := context.Background()

	tests := []struct {
		in   string
		want string
	}{
		{"createdAt", "created_at"},
		{"actionType", "action_type"},
		{"actionStatus", "action_status"},
		{"entityType", "entity_type"},
		{"userId", "user_id"},
		{"", "created_at"},
		{"evil; drop table audit_log", "created_at"},
	}
	for _, tt := range tests {
		if _, err := svc.Query(ctx, Query{SortProperty: tt.in}); err != nil {
			t.Fatalf("Query(%q): %v", tt.in, err)
		}
		if store.lastQuery.SortProperty != tt.want {
			t.Errorf("sort %q mapped to %q, want %q", tt.in, store.lastQuery.SortProperty, tt.want)
		}
	}
}

func TestQueryDefaultsSortOrder(t *testing.T) {
	store := &captureStore{}
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.Query(ctx, Query{}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if store.lastQuery.SortOrder != SortDesc {
		t.Errorf("default order = %s, want DESC", store.lastQuery.SortOrder)
	}

	if _, err := svc.Query(ctx, Query{SortOrder: SortAsc}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if store.lastQuery.SortOrder != SortAsc {
		t.Errorf("order = %s, want ASC", store.lastQuery.SortOrder)
	}
}
