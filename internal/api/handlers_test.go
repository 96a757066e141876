package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kiroproxy/gateway/internal/config"
	"github.com/kiroproxy/gateway/internal/credentials"
	"github.com/kiroproxy/gateway/internal/kiroprovider"
	"github.com/kiroproxy/gateway/internal/requestlog"
)

func encodeEventHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.WriteByte(7)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(value)))
	buf.Write(lenBuf[:])
	buf.WriteString(value)
}

func encodeEventFrame(eventType string, payload []byte) []byte {
	var headers bytes.Buffer
	encodeEventHeader(&headers, ":event-type", eventType)

	const preludeLength = 8
	const preludeCRCLen = 4
	const messageCRCLen = 4

	headersLen := headers.Len()
	total := preludeLength + preludeCRCLen + headersLen + len(payload) + messageCRCLen

	var frame bytes.Buffer
	var totalBuf, headersLenBuf [4]byte
	binary.BigEndian.PutUint32(totalBuf[:], uint32(total))
	binary.BigEndian.PutUint32(headersLenBuf[:], uint32(headersLen))
	frame.Write(totalBuf[:])
	frame.Write(headersLenBuf[:])
	frame.Write(make([]byte, preludeCRCLen))
	frame.Write(headers.Bytes())
	frame.Write(payload)
	frame.Write(make([]byte, messageCRCLen))
	return frame.Bytes()
}

func newTestServerWithUpstream(t *testing.T, upstreamBody []byte) *Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(upstreamBody)
	}))
	t.Cleanup(upstream.Close)

	provider := kiroprovider.New(upstream.URL, credentials.NewStaticTokenManager("test-token"))
	return NewServer(provider, requestlog.New(), &config.Config{APIKey: "secret"})
}

func TestChatCompletionsNonStreamingHappyPath(t *testing.T) {
	var upstream bytes.Buffer
	upstream.Write(encodeEventFrame("assistantResponseEvent", []byte(`{"content":"Hello there"}`)))

	s := newTestServerWithUpstream(t, upstream.Bytes())
	r := NewRouter(s)

	body := `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	choices := resp["choices"].([]interface{})
	msg := choices[0].(map[string]interface{})["message"].(map[string]interface{})
	if msg["content"] != "Hello there" {
		t.Errorf("unexpected content: %v", msg["content"])
	}
}

func TestChatCompletionsRejectsEmptyMessages(t *testing.T) {
	s := newTestServerWithUpstream(t, nil)
	r := NewRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"gpt-4","messages":[]}`))
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatCompletionsReturns503WhenNoCredentialsConfigured(t *testing.T) {
	provider := kiroprovider.New("http://upstream.invalid", credentials.NewStaticTokenManager(""))
	s := NewServer(provider, requestlog.New(), &config.Config{APIKey: "secret"})
	r := NewRouter(s)

	body := `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestChatCompletionsRequiresAuth(t *testing.T) {
	s := newTestServerWithUpstream(t, nil)
	r := NewRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
