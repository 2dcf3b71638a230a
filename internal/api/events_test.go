package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thymlegram/thymlegram/internal/store/memory"
)

// TestEventStream drives the SSE endpoint over a live server: a message insert
// involving the subscriber must arrive as an event frame on the open stream.
func TestEventStream(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	a.signUp("alice", "alice@example.com", "pw")
	bobID := a.signUp("bob", "bob@example.com", "pw")
	aliceCookie := a.login("alice", "pw")
	bobCookie := a.login("bob", "pw")

	_, p := a.do(http.MethodPost, "/api/v1/contacts", map[string]string{"username": "bob"}, aliceCookie)
	require.True(t, p.Success, p.Message)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	req.AddCookie(aliceCookie)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		var frame strings.Builder
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				frames <- frame.String()
				frame.Reset()
				continue
			}
			frame.WriteString(line)
			frame.WriteString("\n")
		}
	}()

	// Bob messages Alice through the API; the insert must reach her stream.
	body, _ := json.Marshal(map[string]string{"content": "over the wire"})
	sendReq, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/api/v1/contacts/%s/messages", srv.URL, mustAliceID(t, a)), bytes.NewReader(body))
	require.NoError(t, err)
	sendReq.Header.Set("Content-Type", "application/json")
	sendReq.AddCookie(bobCookie)
	sendResp, err := srv.Client().Do(sendReq)
	require.NoError(t, err)
	sendResp.Body.Close()
	require.Equal(t, http.StatusCreated, sendResp.StatusCode)

	select {
	case frame := <-frames:
		assert.Contains(t, frame, "event: messages")
		assert.Contains(t, frame, bobID, "frame carries the sender row")
	case <-time.After(2 * time.Second):
		t.Fatal("no event frame for the message insert")
	}
}

// mustAliceID looks alice up through the public API so the test stays on the
// HTTP surface.
func mustAliceID(t *testing.T, a *testAPI) string {
	t.Helper()
	cookie := a.login("bob", "pw")
	rec, p := a.do(http.MethodGet, "/api/v1/contacts", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var contacts []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(p.Data, &contacts))
	require.NotEmpty(t, contacts)
	return contacts[0].ID
}

// Rows not involving the subscriber never reach the stream.
func TestEventStreamFiltersByUser(t *testing.T) {
	st := memory.New()
	a := &testAPI{t: t, handler: SetupRouter(st)}
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	a.signUp("alice", "alice@example.com", "pw")
	a.signUp("bob", "bob@example.com", "pw")
	a.signUp("carol", "carol@example.com", "pw")
	carolCookie := a.login("carol", "pw")
	aliceCookie := a.login("alice", "pw")

	_, p := a.do(http.MethodPost, "/api/v1/contacts", map[string]string{"username": "bob"}, aliceCookie)
	require.True(t, p.Success, p.Message)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	req.AddCookie(carolCookie)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frames := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				frames <- line
			}
		}
	}()

	// A message between alice and bob does not concern carol's stream.
	senderCookie := a.login("alice", "pw")
	rec, p := a.do(http.MethodGet, "/api/v1/contacts", nil, senderCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var contacts []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(p.Data, &contacts))
	require.NotEmpty(t, contacts)

	_, p = a.do(http.MethodPost, fmt.Sprintf("/api/v1/contacts/%s/messages", contacts[0].ID),
		map[string]string{"content": "private"}, senderCookie)
	require.True(t, p.Success, p.Message)

	select {
	case line := <-frames:
		t.Fatalf("unexpected frame on an uninvolved stream: %s", line)
	case <-time.After(300 * time.Millisecond):
	}
}
