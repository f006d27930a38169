// Package auditlog records security-relevant actions in an append-only log
// and serves tenant-scoped queries over it.
package auditlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActionType names the audited operation.
type ActionType string

const (
	ActionLogin          ActionType = "LOGIN"
	ActionLogout         ActionType = "LOGOUT"
	ActionRefreshToken   ActionType = "REFRESH_TOKEN"
	ActionPasswordChange ActionType = "PASSWORD_CHANGE"
	ActionSignUp         ActionType = "SIGNUP"
	ActionProfileUpdate  ActionType = "PROFILE_UPDATE"
)

// ActionStatus is the outcome of an audited action.
type ActionStatus string

const (
	StatusSuccess ActionStatus = "SUCCESS"
	StatusFailure ActionStatus = "FAILURE"
)

// EntityType names the kind of entity an action targeted.
type EntityType string

const EntityUser EntityType = "USER"

// Entry is one immutable audit row. TenantID, UserID and EntityID are
// uuid.Nil when the actor could not be resolved (failed pre-auth attempts).
type Entry struct {
	ID             string         `json:"id"`
	TenantID       uuid.UUID      `json:"tenantId,omitempty"`
	UserID         uuid.UUID      `json:"userId,omitempty"`
	EntityType     EntityType     `json:"entityType"`
	EntityID       uuid.UUID      `json:"entityId,omitempty"`
	ActionType     ActionType     `json:"actionType"`
	ActionStatus   ActionStatus   `json:"actionStatus"`
	FailureDetails string         `json:"actionFailureDetails,omitempty"`
	ActionData     map[string]any `json:"actionData,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// SortOrder is the requested sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Query carries the filters and page link for a log search. Zero values mean
// "no filter"; TenantID is mandatory and scopes every query.
type Query struct {
	TenantID     uuid.UUID
	EntityType   EntityType
	EntityID     uuid.UUID
	UserID       uuid.UUID
	ActionType   ActionType
	ActionStatus ActionStatus

	// Created-at range in Unix milliseconds, 0 = unbounded.
	StartTS int64
	EndTS   int64

	SearchText string
	MatchCase  bool

	Page         int
	PageSize     int
	SortProperty string
	SortOrder    SortOrder
}

// Page is one page of query results.
type Page struct {
	Entries       []Entry `json:"data"`
	TotalElements int64   `json:"totalElements"`
	TotalPages    int     `json:"totalPages"`
	HasNext       bool    `json:"hasNext"`
}

// Store is the persistence contract for the audit log.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	Search(ctx context.Context, q Query) (Page, error)
}

// Recorder is the write-side contract consumed by other services. Recording
// is best-effort: implementations must never fail the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}
