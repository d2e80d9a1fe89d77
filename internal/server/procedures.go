package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/dori/taskdeck/internal/docstore"
	"github.com/dori/taskdeck/internal/rpc"
	"github.com/google/uuid"
)

const usersCollection = "users"

var knownRoles = map[string]bool{"admin": true, "member": true, "viewer": true}

type procedures struct {
	store  docstore.Client
	mailer Mailer
	logger *log.Logger
}

func registerProcedures(r *rpc.Registry, store docstore.Client, mailer Mailer, logger *log.Logger) {
	p := &procedures{store: store, mailer: mailer, logger: logger}
	r.Register(rpc.CreateUserWithRole, p.createUserWithRole)
	r.Register(rpc.UpdateUserRole, p.updateUserRole)
	r.Register(rpc.DeleteUserAccount, p.deleteUserAccount)
	r.Register(rpc.InviteUser, p.inviteUser)
	r.Register(rpc.SendEmail, p.sendEmail)
	r.Register(rpc.LogTimeEntry, p.logTimeEntry)
}

func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return rpc.Errorf(rpc.CodeInvalidArgument, "missing parameters")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return rpc.Errorf(rpc.CodeInvalidArgument, "malformed parameters: %v", err)
	}
	return nil
}

func requireAdmin(ctx context.Context) (rpc.Principal, error) {
	p, _ := rpc.PrincipalFrom(ctx)
	if !p.HasRole(AdminRole) {
		return p, rpc.Errorf(rpc.CodePermissionDenied, "admin role required")
	}
	return p, nil
}

func validEmail(addr string) bool {
	_, err := mail.ParseAddress(addr)
	return err == nil
}

func (p *procedures) findUser(ctx context.Context, id string) (docstore.Document, error) {
	docs, err := p.store.List(ctx, usersCollection)
	if err != nil {
		return docstore.Document{}, rpc.Errorf(rpc.CodeUnavailable, "failed to read users")
	}
	for _, d := range docs {
		if d.ID == id {
			return d, nil
		}
	}
	return docstore.Document{}, rpc.Errorf(rpc.CodeNotFound, "user %s not found", id)
}

func (p *procedures) createUserWithRole(ctx context.Context, params json.RawMessage) (any, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	var req rpc.CreateUserRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	req.Email = strings.TrimSpace(req.Email)
	if !validEmail(req.Email) {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "invalid email %q", req.Email)
	}
	if req.Role == "" {
		req.Role = "member"
	}
	if !knownRoles[req.Role] {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "unknown role %q", req.Role)
	}

	id := uuid.NewString()
	record := map[string]any{
		"id":          id,
		"email":       req.Email,
		"displayName": strings.TrimSpace(req.DisplayName),
		"role":        req.Role,
	}
	if err := p.store.Write(ctx, usersCollection, id, record); err != nil {
		return nil, rpc.Errorf(rpc.CodeUnavailable, "failed to create user")
	}
	p.logger.Printf("created user %s (%s) with role %s", id, req.Email, req.Role)
	return rpc.CreateUserResponse{UserID: id}, nil
}

func (p *procedures) updateUserRole(ctx context.Context, params json.RawMessage) (any, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	var req rpc.UpdateRoleRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if !knownRoles[req.Role] {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "unknown role %q", req.Role)
	}
	if _, err := p.findUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	if err := p.store.Write(ctx, usersCollection, req.UserID, map[string]any{"role": req.Role}); err != nil {
		return nil, rpc.Errorf(rpc.CodeUnavailable, "failed to update role")
	}
	return map[string]any{"userId": req.UserID, "role": req.Role}, nil
}

// deleteUserAccount removes the user record and the user's tasks. Users
// may delete themselves; anyone else needs the admin role.
func (p *procedures) deleteUserAccount(ctx context.Context, params json.RawMessage) (any, error) {
	var req rpc.DeleteUserRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	caller, _ := rpc.PrincipalFrom(ctx)
	if req.UserID != caller.UserID && !caller.HasRole(AdminRole) {
		return nil, rpc.Errorf(rpc.CodePermissionDenied, "cannot delete another user")
	}
	if _, err := p.findUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	tasks := docstore.UserCollection(req.UserID, "tasks")
	docs, err := p.store.List(ctx, tasks)
	if err != nil {
		return nil, rpc.Errorf(rpc.CodeUnavailable, "failed to read tasks")
	}
	for _, d := range docs {
		if err := p.store.Delete(ctx, tasks, d.ID); err != nil {
			return nil, rpc.Errorf(rpc.CodeUnavailable, "failed to delete task %s", d.ID)
		}
	}
	if err := p.store.Delete(ctx, usersCollection, req.UserID); err != nil {
		return nil, rpc.Errorf(rpc.CodeUnavailable, "failed to delete user")
	}
	p.logger.Printf("deleted user %s and %d task(s)", req.UserID, len(docs))
	return map[string]any{"deleted": req.UserID}, nil
}

func (p *procedures) inviteUser(ctx context.Context, params json.RawMessage) (any, error) {
	admin, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	var req rpc.InviteRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if !validEmail(req.Email) {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "invalid email %q", req.Email)
	}
	if req.Role == "" {
		req.Role = "member"
	}
	if !knownRoles[req.Role] {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "unknown role %q", req.Role)
	}

	body := fmt.Sprintf("%s invited you to taskdeck as %s.", admin.Email, req.Role)
	if err := p.mailer.Send([]string{req.Email}, "You're invited to taskdeck", body, false); err != nil {
		p.logger.Println(err)
		return nil, rpc.Errorf(rpc.CodeUnavailable, "failed to send invitation")
	}
	return map[string]any{"invited": req.Email}, nil
}

func (p *procedures) sendEmail(ctx context.Context, params json.RawMessage) (any, error) {
	var req rpc.EmailRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if len(req.To) == 0 {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "no recipients")
	}
	for _, to := range req.To {
		if !validEmail(to) {
			return nil, rpc.Errorf(rpc.CodeInvalidArgument, "invalid email %q", to)
		}
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "subject is required")
	}
	if err := p.mailer.Send(req.To, req.Subject, req.Body, req.HTML); err != nil {
		p.logger.Println(err)
		return nil, rpc.Errorf(rpc.CodeUnavailable, "failed to send email")
	}
	return map[string]any{"sent": len(req.To)}, nil
}

// logTimeEntry stores a finished timer session under the owner's
// timeEntries collection
func (p *procedures) logTimeEntry(ctx context.Context, params json.RawMessage) (any, error) {
	var req rpc.TimeEntryRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	caller, _ := rpc.PrincipalFrom(ctx)
	if req.UserID == "" {
		req.UserID = caller.UserID
	}
	if req.UserID != caller.UserID && !caller.HasRole(AdminRole) {
		return nil, rpc.Errorf(rpc.CodePermissionDenied, "cannot log time for another user")
	}
	if req.TaskID == "" || req.Minutes <= 0 {
		return nil, rpc.Errorf(rpc.CodeInvalidArgument, "taskId and positive minutes are required")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	record := map[string]any{
		"id":        req.ID,
		"taskId":    req.TaskID,
		"userId":    req.UserID,
		"startedAt": req.StartedAt,
		"endedAt":   req.EndedAt,
		"minutes":   req.Minutes,
	}
	if err := p.store.Write(ctx, docstore.UserCollection(req.UserID, "timeEntries"), req.ID, record); err != nil {
		return nil, rpc.Errorf(rpc.CodeUnavailable, "failed to store time entry")
	}
	return map[string]any{"id": req.ID}, nil
}
