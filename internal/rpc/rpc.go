// Package rpc is the remote procedure gateway used for privileged
// operations: user administration, email, time logging.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Procedure names
const (
	CreateUserWithRole = "createUserWithRole"
	UpdateUserRole     = "updateUserRole"
	DeleteUserAccount  = "deleteUserAccount"
	InviteUser         = "inviteUser"
	SendEmail          = "sendEmail"
	LogTimeEntry       = "logTimeEntry"
)

// Error codes
const (
	CodeInvalidArgument  = "invalid-argument"
	CodePermissionDenied = "permission-denied"
	CodeUnauthenticated  = "unauthenticated"
	CodeNotFound         = "not-found"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal"
)

// Error is the structured failure of a procedure call
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds an *Error
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of err, or CodeInternal for foreign errors
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Caller invokes a named procedure. req is encoded as JSON and the result
// decoded into resp when resp is non-nil.
type Caller interface {
	Call(ctx context.Context, name string, req, resp any) error
}

// Principal identifies the caller of a procedure
type Principal struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

// HasRole reports whether p holds role
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal attaches the calling principal to ctx
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached to ctx
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// Request and response payloads

type CreateUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type CreateUserResponse struct {
	UserID string `json:"userId"`
}

type UpdateRoleRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type DeleteUserRequest struct {
	UserID string `json:"userId"`
}

type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type EmailRequest struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	HTML    bool     `json:"html,omitempty"`
}

type TimeEntryRequest struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	UserID    string    `json:"userId"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Minutes   int       `json:"minutes"`
}

// decodeInto moves a value through JSON into out
func decodeInto(data json.RawMessage, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return Errorf(CodeInternal, "failed to decode result: %v", err)
	}
	return nil
}
