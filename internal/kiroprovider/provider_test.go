package kiroprovider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiroproxy/gateway/internal/credentials"
)

func TestCallAPIReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token forwarded, got %q", got)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	p := New(server.URL, credentials.NewStaticTokenManager("test-token"))
	result, err := p.CallAPI(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", result.Body)
	}
	if result.Credential == nil || result.Credential.ID == 0 {
		t.Errorf("expected a credential context, got %+v", result.Credential)
	}
}

func TestCallAPINoCredentialsFails(t *testing.T) {
	p := New("http://example.invalid", credentials.NewStaticTokenManager(""))
	_, err := p.CallAPI(context.Background(), []byte(`{}`))
	if err == nil {
		t.Fatal("expected error with no configured token source")
	}
}

func TestCallAPIUpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	p := New(server.URL, credentials.NewStaticTokenManager("t"))
	_, err := p.CallAPI(context.Background(), []byte(`{}`))
	if err == nil {
		t.Fatal("expected error for 502 upstream status")
	}
}

func TestCallAPIStreamReturnsOpenReader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("stream-bytes"))
	}))
	defer server.Close()

	p := New(server.URL, credentials.NewStaticTokenManager("t"))
	result, err := p.CallAPIStream(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer result.Stream.Close()

	data, err := io.ReadAll(result.Stream)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(data) != "stream-bytes" {
		t.Errorf("unexpected stream body: %s", data)
	}
}
