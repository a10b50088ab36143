package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no session exists for the key, either because
// none was started or because its TTL elapsed.
var ErrNotFound = errors.New("session not found")

// Session holds in-flight intake conversation state keyed by the reporter's
// external identity. It accumulates a ticket draft across messages until the
// reporter submits or the TTL expires.
type Session struct {
	Key       string    `json:"key"`
	Draft     Draft     `json:"draft"`
	Stage     Stage     `json:"stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draft is the partially collected ticket. Fields fill in as the conversation
// advances through the stages.
type Draft struct {
	ProductID string `json:"product_id,omitempty"`
	ModuleID  string `json:"module_id,omitempty"`
	IssueType string `json:"issue_type,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

// Stage tracks how far the intake conversation has progressed.
type Stage string

const (
	StageProduct Stage = "PRODUCT"
	StageModule  Stage = "MODULE"
	StageIssue   Stage = "ISSUE"
	StageSubject Stage = "SUBJECT"
	StageConfirm Stage = "CONFIRM"
)

// Store keeps intake sessions with a sliding TTL. Every write refreshes the
// expiry, so an abandoned conversation disappears without a cleanup job.
type Store interface {
	Get(ctx context.Context, key string) (*Session, error)
	Put(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, key string) error
}
