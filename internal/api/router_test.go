package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thymlegram/thymlegram/internal/store/memory"
)

type payload struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return &testAPI{t: t, handler: SetupRouter(memory.New())}
}

func (a *testAPI) do(method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, payload) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var p payload
	if rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &p)
	}
	return rec, p
}

// signUp registers a user and returns its id.
func (a *testAPI) signUp(username, email, password string) string {
	a.t.Helper()
	rec, p := a.do(http.MethodPost, "/api/v1/auth/sign-up", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, p.Message)
	var data struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(p.Data, &data))
	return data.ID
}

// login authenticates and returns the session cookie.
func (a *testAPI) login(username, password string) *http.Cookie {
	a.t.Helper()
	rec, p := a.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(a.t, http.StatusOK, rec.Code, p.Message)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	a.t.Fatal("no token cookie set on login")
	return nil
}

func TestSignUpAndLogin(t *testing.T) {
	a := newTestAPI(t)
	a.signUp("alice", "alice@example.com", "s3cret")

	rec, _ := a.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "ghost", "password": "s3cret",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := a.login("alice", "s3cret")
	assert.True(t, cookie.HttpOnly)
}

func TestSignUpDerivedUsername(t *testing.T) {
	a := newTestAPI(t)
	rec, p := a.do(http.MethodPost, "/api/v1/auth/sign-up", map[string]string{
		"email": "carol@example.com", "password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var data struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(p.Data, &data))
	assert.Equal(t, "carol", data.Username, "username derived from the email local part")
}

func TestSignUpRejectsDuplicates(t *testing.T) {
	a := newTestAPI(t)
	a.signUp("alice", "alice@example.com", "s3cret")

	rec, p := a.do(http.MethodPost, "/api/v1/auth/sign-up", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username is already taken", p.Message)

	rec, p = a.do(http.MethodPost, "/api/v1/auth/sign-up", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists with this email", p.Message)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	a := newTestAPI(t)

	rec, _ := a.do(http.MethodGet, "/api/v1/contacts", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bogus := &http.Cookie{Name: "token", Value: "not-a-jwt"}
	rec, _ = a.do(http.MethodGet, "/api/v1/contacts", nil, bogus)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContactAndMessageFlow(t *testing.T) {
	a := newTestAPI(t)
	a.signUp("alice", "alice@example.com", "pw")
	bobID := a.signUp("bob", "bob@example.com", "pw")
	cookie := a.login("alice", "pw")

	rec, p := a.do(http.MethodPost, "/api/v1/contacts", map[string]string{"username": "bob"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, p.Message)

	// Duplicate and self adds are rejected.
	rec, _ = a.do(http.MethodPost, "/api/v1/contacts", map[string]string{"username": "bob"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = a.do(http.MethodPost, "/api/v1/contacts", map[string]string{"username": "alice"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = a.do(http.MethodPost, "/api/v1/contacts", map[string]string{"username": "ghost"}, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, p = a.do(http.MethodGet, "/api/v1/contacts", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var contacts []struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		LastMessage string `json:"last_message"`
	}
	require.NoError(t, json.Unmarshal(p.Data, &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, "bob", contacts[0].Username)
	assert.Empty(t, contacts[0].LastMessage)

	rec, p = a.do(http.MethodPost, fmt.Sprintf("/api/v1/contacts/%s/messages", bobID),
		map[string]string{"content": "hi bob"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, p.Message)
	var sent struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(p.Data, &sent))
	assert.Equal(t, "hi bob", sent.Content, "response carries the plaintext copy")

	rec, p = a.do(http.MethodGet, fmt.Sprintf("/api/v1/contacts/%s/messages", bobID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []struct {
		SenderID string `json:"sender_id"`
		Content  string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(p.Data, &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "hi bob", messages[0].Content)

	// The new message shows up in the preview.
	rec, p = a.do(http.MethodGet, "/api/v1/contacts", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(p.Data, &contacts))
	assert.Equal(t, "hi bob", contacts[0].LastMessage)

	rec, _ = a.do(http.MethodPost, fmt.Sprintf("/api/v1/contacts/%s/messages", bobID),
		map[string]string{"content": "   "}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTemporaryConversationFlow(t *testing.T) {
	a := newTestAPI(t)
	a.signUp("alice", "alice@example.com", "pw")
	a.signUp("bob", "bob@example.com", "pw")
	cookie := a.login("alice", "pw")

	rec, p := a.do(http.MethodPost, "/api/v1/temp/contacts",
		map[string]any{"username": "bob", "duration_minutes": 5}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, p.Message)
	var created struct {
		ID             string `json:"id"`
		ConversationID string `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(p.Data, &created))
	require.NotEmpty(t, created.ID)
	require.NotEmpty(t, created.ConversationID)

	rec, p = a.do(http.MethodPost, fmt.Sprintf("/api/v1/temp/contacts/%s/messages", created.ID),
		map[string]string{"content": "this will vanish"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, p.Message)

	rec, p = a.do(http.MethodGet, fmt.Sprintf("/api/v1/temp/contacts/%s/messages", created.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var conversation struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
		Remaining string `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(p.Data, &conversation))
	require.Len(t, conversation.Messages, 1)
	assert.Equal(t, "this will vanish", conversation.Messages[0].Content)
	assert.NotEqual(t, "expired", conversation.Remaining)

	rec, p = a.do(http.MethodPost, "/api/v1/temp/cleanup", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var cleanup struct {
		RemovedContacts int `json:"removed_contacts"`
	}
	require.NoError(t, json.Unmarshal(p.Data, &cleanup))
	assert.Zero(t, cleanup.RemovedContacts, "nothing expired yet")

	rec, _ = a.do(http.MethodPost, fmt.Sprintf("/api/v1/temp/contacts/%s/stop", created.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, p = a.do(http.MethodGet, "/api/v1/temp/contacts", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []json.RawMessage
	require.NoError(t, json.Unmarshal(p.Data, &rows))
	assert.Empty(t, rows)

	rec, _ = a.do(http.MethodPost, fmt.Sprintf("/api/v1/temp/contacts/%s/stop", created.ID), nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code, "stopping a stopped conversation")
}
