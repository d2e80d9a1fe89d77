package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dori/taskdeck/internal/docstore"
	"github.com/dori/taskdeck/internal/rpc"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to      []string
	subject string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(to []string, subject, body string, html bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

type fixture struct {
	srv    *Server
	store  *docstore.Memory
	mailer *fakeMailer
	auth   *Auth
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth, err := NewAuth("test-secret", time.Hour)
	require.NoError(t, err)

	store := docstore.NewMemory()
	mailer := &fakeMailer{}
	srv := New(Options{
		Store:  store,
		Auth:   auth,
		Mailer: mailer,
		Logger: log.New(io.Discard, "", 0),
	})
	return &fixture{srv: srv, store: store, mailer: mailer, auth: auth}
}

func (f *fixture) token(t *testing.T, uid string, roles ...string) string {
	t.Helper()
	tok, err := f.auth.GenerateToken(rpc.Principal{UserID: uid, Email: uid + "@example.com", Roles: roles}, uid)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequiresToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/docs/projects", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/docs/projects", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body rpc.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, rpc.CodeUnauthenticated, body.Code)
}

func TestDocumentCRUD(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, "u1")

	rec := f.do(t, http.MethodPut, "/v1/docs/users/u1/tasks/t1", tok, map[string]any{"title": "Write tests"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/docs/users/u1/tasks/t1", tok, map[string]any{"status": "done"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/docs/users/u1/tasks", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list docstore.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	require.Equal(t, "t1", list.Documents[0].ID)
	require.Equal(t, "Write tests", list.Documents[0].Data["title"])
	require.Equal(t, "done", list.Documents[0].Data["status"])

	rec = f.do(t, http.MethodDelete, "/v1/docs/users/u1/tasks/t1", tok, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	docs, err := f.store.List(context.Background(), "users/u1/tasks")
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestDocumentAccess(t *testing.T) {
	f := newFixture(t)
	member := f.token(t, "u1")
	admin := f.token(t, "boss", AdminRole)

	rec := f.do(t, http.MethodGet, "/v1/docs/users/u2/tasks", member, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/docs/users/u2/tasks", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/docs/projects/p1", member, map[string]any{"name": "Launch"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/docs/projects/p1", admin, map[string]any{"name": "Launch"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/docs/projects", member, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDocumentBadPath(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, "u1")

	rec := f.do(t, http.MethodGet, "/v1/docs/users/u1", tok, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/docs/users/u1/tasks", tok, map[string]any{"title": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func callRPC(t *testing.T, f *fixture, token, name string, params any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/rpc/"+name, token, params)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestCreateAndUpdateUser(t *testing.T) {
	f := newFixture(t)
	admin := f.token(t, "boss", AdminRole)

	rec, body := callRPC(t, f, admin, rpc.CreateUserWithRole, rpc.CreateUserRequest{
		Email: "ada@example.com", DisplayName: "Ada", Role: "member",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := body["result"].(map[string]any)
	uid := result["userId"].(string)
	require.NotEmpty(t, uid)

	rec, _ = callRPC(t, f, admin, rpc.UpdateUserRole, rpc.UpdateRoleRequest{UserID: uid, Role: "viewer"})
	require.Equal(t, http.StatusOK, rec.Code)

	docs, err := f.store.List(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "viewer", docs[0].Data["role"])
	require.Equal(t, "Ada", docs[0].Data["displayName"])
}

func TestProcedureErrors(t *testing.T) {
	f := newFixture(t)
	member := f.token(t, "u1")
	admin := f.token(t, "boss", AdminRole)

	rec, body := callRPC(t, f, member, rpc.CreateUserWithRole, rpc.CreateUserRequest{Email: "a@example.com"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, rpc.CodePermissionDenied, body["code"])

	rec, body = callRPC(t, f, admin, rpc.CreateUserWithRole, rpc.CreateUserRequest{Email: "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, rpc.CodeInvalidArgument, body["code"])

	rec, body = callRPC(t, f, admin, rpc.UpdateUserRole, rpc.UpdateRoleRequest{UserID: "ghost", Role: "member"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, rpc.CodeNotFound, body["code"])

	rec, body = callRPC(t, f, member, "launchMissiles", map[string]any{})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, rpc.CodeNotFound, body["code"])
}

func TestDeleteUserAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, "users", "u1", map[string]any{"email": "u1@example.com"}))
	require.NoError(t, f.store.Write(ctx, "users/u1/tasks", "t1", map[string]any{"title": "a"}))
	require.NoError(t, f.store.Write(ctx, "users/u1/tasks", "t2", map[string]any{"title": "b"}))

	rec, _ := callRPC(t, f, f.token(t, "u2"), rpc.DeleteUserAccount, rpc.DeleteUserRequest{UserID: "u1"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = callRPC(t, f, f.token(t, "u1"), rpc.DeleteUserAccount, rpc.DeleteUserRequest{UserID: "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	users, err := f.store.List(ctx, "users")
	require.NoError(t, err)
	require.Empty(t, users)
	tasks, err := f.store.List(ctx, "users/u1/tasks")
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestEmailProcedures(t *testing.T) {
	f := newFixture(t)

	rec, _ := callRPC(t, f, f.token(t, "u1"), rpc.SendEmail, rpc.EmailRequest{
		To: []string{"team@example.com"}, Subject: "Due soon", Body: "Ship it",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = callRPC(t, f, f.token(t, "u1"), rpc.SendEmail, rpc.EmailRequest{Subject: "Due soon"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = callRPC(t, f, f.token(t, "boss", AdminRole), rpc.InviteUser, rpc.InviteRequest{Email: "new@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.mailer.sent, 2)
	require.Equal(t, []string{"team@example.com"}, f.mailer.sent[0].to)
	require.Equal(t, []string{"new@example.com"}, f.mailer.sent[1].to)
}

func TestLogTimeEntry(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, "u1")
	start := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	rec, _ := callRPC(t, f, tok, rpc.LogTimeEntry, rpc.TimeEntryRequest{
		ID: "e1", TaskID: "t1", StartedAt: start, EndedAt: start.Add(25 * time.Minute), Minutes: 25,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	docs, err := f.store.List(context.Background(), "users/u1/timeEntries")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "t1", docs[0].Data["taskId"])
	require.Equal(t, "u1", docs[0].Data["userId"])

	rec, _ = callRPC(t, f, tok, rpc.LogTimeEntry, rpc.TimeEntryRequest{TaskID: "t1", UserID: "u2", Minutes: 5})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = callRPC(t, f, tok, rpc.LogTimeEntry, rpc.TimeEntryRequest{TaskID: "t1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoteClientAgainstServer(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	remote := docstore.NewRemote(ts.URL, f.token(t, "u1"), nil)
	ctx := context.Background()

	snapshots := make(chan []docstore.Document, 16)
	cancel := remote.Subscribe(ctx, "users/u1/tasks", func(docs []docstore.Document) {
		snapshots <- docs
	}, func(err error) {
		t.Logf("subscription error: %v", err)
	})
	defer cancel()

	select {
	case docs := <-snapshots:
		require.Empty(t, docs)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot")
	}

	require.NoError(t, remote.Write(ctx, "users/u1/tasks", "t1", map[string]any{"title": "Remote"}))

	require.Eventually(t, func() bool {
		for {
			select {
			case docs := <-snapshots:
				if len(docs) == 1 && docs[0].Data["title"] == "Remote" {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 20*time.Millisecond)

	docs, err := remote.List(ctx, "users/u1/tasks")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	err = remote.Write(ctx, "projects", "p1", map[string]any{"name": "nope"})
	var apiErr *docstore.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Equal(t, rpc.CodePermissionDenied, apiErr.Code)
}

func TestRPCClientAgainstServer(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	client := rpc.NewClient(ts.URL, f.token(t, "u1"))
	var out map[string]any
	err := client.Call(context.Background(), rpc.SendEmail, rpc.EmailRequest{
		To: []string{"x@example.com"}, Subject: "Hi",
	}, &out)
	require.NoError(t, err)
	require.EqualValues(t, 1, out["sent"])

	err = client.Call(context.Background(), rpc.CreateUserWithRole, rpc.CreateUserRequest{Email: "x@example.com"}, nil)
	require.Equal(t, rpc.CodePermissionDenied, rpc.CodeOf(err))
}
