package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/fasihullahsaeed729-wq/study-bot/internal/chat"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/completion"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/config"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/memory"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/prompt"
)

type fixedClient struct {
	reply string
	err   error
}

func (c *fixedClient) Complete(context.Context, []prompt.Message) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func newTestServer(t *testing.T, client completion.Client) (*httptest.Server, *memory.InMemoryStore) {
	t.Helper()
	store := memory.NewInMemoryStore()
	svc := chat.NewService(store, client, nil, 10)
	srv := New(config.Config{}, svc, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func postChat(t *testing.T, ts *httptest.Server, body map[string]any) (*http.Response, map[string]any) {
	t.Helper()
	payload, _ := json.Marshal(body)
	res, err := http.Post(ts.URL+"/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /chat error = %v", err)
	}
	defer res.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode /chat response: %v", err)
	}
	return res, decoded
}

func TestRootInfo(t *testing.T) {
	ts, _ := newTestServer(t, &fixedClient{reply: "ok"})

	res, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var info map[string]any
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		t.Fatalf("decode info response: %v", err)
	}
	if info["message"] != "Welcome to Study Bot API" {
		t.Fatalf("info message = %v, want welcome message", info["message"])
	}
	if info["version"] != "1.0" {
		t.Fatalf("info version = %v, want 1.0", info["version"])
	}
	if _, ok := info["endpoints"].(map[string]any); !ok {
		t.Fatalf("info endpoints missing: %+v", info)
	}
}

func TestChatEndpoint(t *testing.T) {
	ts, store := newTestServer(t, &fixedClient{reply: "Photosynthesis is..."})

	res, decoded := postChat(t, ts, map[string]any{
		"user_id":  "alice",
		"question": "What is photosynthesis?",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("POST /chat status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if decoded["user_id"] != "alice" || decoded["question"] != "What is photosynthesis?" {
		t.Fatalf("echo fields wrong: %+v", decoded)
	}
	if decoded["answer"] != "Photosynthesis is..." {
		t.Fatalf("answer = %v, want stub reply", decoded["answer"])
	}
	if decoded["history_length"] != float64(0) {
		t.Fatalf("history_length = %v, want 0 on first exchange", decoded["history_length"])
	}

	turns, err := store.History(context.Background(), "alice")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("stored turns = %d, want 2", len(turns))
	}

	_, decoded = postChat(t, ts, map[string]any{
		"user_id":  "alice",
		"question": "More detail please",
	})
	if decoded["history_length"] != float64(1) {
		t.Fatalf("history_length = %v, want 1 on second exchange", decoded["history_length"])
	}
}

func TestChatMissingUserID(t *testing.T) {
	ts, _ := newTestServer(t, &fixedClient{reply: "ok"})

	res, decoded := postChat(t, ts, map[string]any{"question": "hi"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("POST /chat status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	if _, ok := decoded["detail"]; !ok {
		t.Fatalf("error body missing detail: %+v", decoded)
	}
}

func TestChatCompletionFailure(t *testing.T) {
	ts, store := newTestServer(t, &fixedClient{err: completion.ErrUnavailable})

	res, decoded := postChat(t, ts, map[string]any{
		"user_id":  "bob",
		"question": "hi",
	})
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("POST /chat status = %d, want %d", res.StatusCode, http.StatusInternalServerError)
	}
	detail, _ := decoded["detail"].(string)
	if detail == "" {
		t.Fatalf("error body missing detail: %+v", decoded)
	}

	turns, err := store.History(context.Background(), "bob")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("stored turns after failed completion = %d, want 0", len(turns))
	}
}

func TestGetHistoryWindowing(t *testing.T) {
	ts, store := newTestServer(t, &fixedClient{reply: "ok"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		for _, role := range []string{prompt.RoleUser, prompt.RoleAssistant} {
			err := store.AppendTurn(ctx, memory.TurnRecord{UserID: "carol", Role: role, Content: role})
			if err != nil {
				t.Fatalf("AppendTurn() error = %v", err)
			}
		}
	}

	res, err := http.Get(ts.URL + "/history/carol?limit=2")
	if err != nil {
		t.Fatalf("GET /history error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET /history status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var decoded struct {
		UserID  string `json:"user_id"`
		History []struct {
			Role    string `json:"role"`
			Message string `json:"message"`
		} `json:"history"`
		TotalMessages int `json:"total_messages"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode history response: %v", err)
	}
	if decoded.UserID != "carol" {
		t.Fatalf("user_id = %q, want carol", decoded.UserID)
	}
	// limit counts exchanges: 2 exchanges = 4 turns from the full transcript.
	if len(decoded.History) != 4 {
		t.Fatalf("len(history) = %d, want 4", len(decoded.History))
	}
	if decoded.TotalMessages != 6 {
		t.Fatalf("total_messages = %d, want the full count 6", decoded.TotalMessages)
	}
}

func TestGetHistoryUnknownUser(t *testing.T) {
	ts, _ := newTestServer(t, &fixedClient{reply: "ok"})

	res, err := http.Get(ts.URL + "/history/nobody")
	if err != nil {
		t.Fatalf("GET /history error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET /history status = %d, want %d for unknown user", res.StatusCode, http.StatusOK)
	}

	var decoded map[string]any
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode history response: %v", err)
	}
	if decoded["total_messages"] != float64(0) {
		t.Fatalf("total_messages = %v, want 0", decoded["total_messages"])
	}
}

func TestGetHistoryInvalidLimit(t *testing.T) {
	ts, _ := newTestServer(t, &fixedClient{reply: "ok"})

	res, err := http.Get(ts.URL + "/history/carol?limit=nope")
	if err != nil {
		t.Fatalf("GET /history error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("GET /history status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestClearHistoryEndpoint(t *testing.T) {
	ts, store := newTestServer(t, &fixedClient{reply: "ok"})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		err := store.AppendTurn(ctx, memory.TurnRecord{UserID: "dave", Role: prompt.RoleUser, Content: "x"})
		if err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	doDelete := func() string {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/history/dave", nil)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE /history error = %v", err)
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("DELETE /history status = %d, want %d", res.StatusCode, http.StatusOK)
		}
		var decoded map[string]string
		if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode delete response: %v", err)
		}
		return decoded["message"]
	}

	if got := doDelete(); got != "Cleared 4 messages for user dave" {
		t.Fatalf("delete message = %q, want cleared count 4", got)
	}
	// Idempotent: a second clear reports zero.
	if got := doDelete(); got != "Cleared 0 messages for user dave" {
		t.Fatalf("second delete message = %q, want cleared count 0", got)
	}
}

func TestChatWebSocket(t *testing.T) {
	ts, _ := newTestServer(t, &fixedClient{reply: "WS answer"})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/chat/ws"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s error = %v", wsURL, err)
	}
	defer conn.Close()
	defer res.Body.Close()

	if err := conn.WriteJSON(map[string]any{"user_id": "erin", "question": "hi"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if reply["answer"] != "WS answer" {
		t.Fatalf("ws answer = %v, want stub reply", reply["answer"])
	}
	if reply["history_length"] != float64(0) {
		t.Fatalf("ws history_length = %v, want 0", reply["history_length"])
	}

	// A bad turn keeps the connection open and reports a detail message.
	if err := conn.WriteJSON(map[string]any{"question": "no user"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var detail map[string]any
	if err := conn.ReadJSON(&detail); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if _, ok := detail["detail"]; !ok {
		t.Fatalf("ws error frame missing detail: %+v", detail)
	}
}

func TestCORSPreflight(t *testing.T) {
	store := memory.NewInMemoryStore()
	svc := chat.NewService(store, &fixedClient{reply: "ok"}, nil, 10)
	srv := New(config.Config{AllowedOrigins: []string{"http://studybot.example"}}, svc, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/chat", nil)
	req.Header.Set("Origin", "http://studybot.example")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /chat error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("OPTIONS status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if got := res.Header.Get("Access-Control-Allow-Origin"); got != "http://studybot.example" {
		t.Fatalf("Allow-Origin = %q, want the requesting origin", got)
	}

	req, _ = http.NewRequest(http.MethodOptions, ts.URL+"/chat", nil)
	req.Header.Set("Origin", "http://evil.example")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /chat error = %v", err)
	}
	defer res.Body.Close()
	if got := res.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Allow-Origin for unlisted origin = %q, want empty", got)
	}
}
