// Package kiroprovider implements the upstream HTTP client contract
// (KiroProvider: CallAPI / CallAPIStream) that calls the real Kiro
// conversational API and hands back bytes for the frame decoder.
package kiroprovider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"github.com/kiroproxy/gateway/internal/credentials"
	log "github.com/sirupsen/logrus"
)

const (
	kiroVersion        = "0.6.18"
	defaultHTTPTimeout = 60 * time.Second
)

// Provider calls the upstream Kiro API over HTTP, attaching a rotated bearer
// credential to each request and transparently inflating a brotli-encoded
// response body before handing bytes to the event-stream decoder.
type Provider struct {
	httpClient *http.Client
	baseURL    string
	tokens     *credentials.TokenManager
	machineID  string
}

// New builds a Provider targeting baseURL, rotating credentials through
// tokens.
func New(baseURL string, tokens *credentials.TokenManager) *Provider {
	return &Provider{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:    baseURL,
		tokens:     tokens,
		machineID:  uuid.New().String(),
	}
}

// CallResult is the outcome of a successful upstream call: the credential
// context used (for request-log attribution) and either a fully-buffered
// body (non-streaming) or an open body reader (streaming) — exactly one of
// Body/Stream is populated depending on which method was called.
type CallResult struct {
	Credential *credentials.CredentialContext
	Body       []byte
	Stream     io.ReadCloser
}

// CallAPI performs a single non-streaming upstream call and returns the
// fully-buffered, brotli-decoded response body.
func (p *Provider) CallAPI(ctx context.Context, payload []byte) (*CallResult, error) {
	cred, resp, err := p.do(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readDecoded(resp)
	if err != nil {
		return nil, fmt.Errorf("kiroprovider: reading response body: %w", err)
	}
	return &CallResult{Credential: cred, Body: body}, nil
}

// CallAPIStream performs a single streaming upstream call and returns the
// open, brotli-decoded body reader; the caller owns closing it.
func (p *Provider) CallAPIStream(ctx context.Context, payload []byte) (*CallResult, error) {
	cred, resp, err := p.do(ctx, payload)
	if err != nil {
		return nil, err
	}

	reader := resp.Body
	if resp.Header.Get("Content-Encoding") == "br" {
		reader = io.NopCloser(brotli.NewReader(resp.Body))
	}
	return &CallResult{Credential: cred, Stream: reader}, nil
}

func (p *Provider) do(ctx context.Context, payload []byte) (*credentials.CredentialContext, *http.Response, error) {
	cred, err := p.tokens.AcquireContext(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("kiroprovider: acquiring credential: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("kiroprovider: building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept-Encoding", "br")
	req.Header.Set("x-amz-user-agent", fmt.Sprintf("aws-sdk-js/1.0.0 KiroIDE-%s-%s", kiroVersion, p.machineID))
	req.Header.Set("amz-sdk-invocation-id", uuid.New().String())
	req.Header.Set("amz-sdk-request", "attempt=1; max=1")

	log.Debugf("kiroprovider: POST %s credential=%d", p.baseURL, cred.ID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("kiroprovider: upstream request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, nil, fmt.Errorf("kiroprovider: upstream returned status %d: %s", resp.StatusCode, body)
	}
	return cred, resp, nil
}

func readDecoded(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "br" {
		reader = brotli.NewReader(resp.Body)
	}
	return io.ReadAll(reader)
}
