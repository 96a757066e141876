package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kiroproxy/gateway/internal/credentials"
	"github.com/kiroproxy/gateway/internal/kiroevents"
	"github.com/kiroproxy/gateway/internal/requestlog"
	"github.com/kiroproxy/gateway/internal/translator/kiro/openai"
	log "github.com/sirupsen/logrus"
)

func responseID() string {
	return "chatcmpl-" + uuid.New().String()
}

// chatCompletions implements POST /v1/chat/completions: transcode, call
// upstream, then dispatch to the streaming or non-streaming response path.
func (s *Server) chatCompletions(c *gin.Context) {
	var req openai.ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	result, err := openai.ConvertRequest(&req)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	kiroReq := openai.KiroRequest{
		ConversationState: result.ConversationState,
		ProfileArn:        s.config().ProfileArn,
	}
	payload, err := json.Marshal(kiroReq)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "server_error", "failed to serialize upstream request")
		return
	}

	inputTokens := openai.EstimateInputTokens(&req)
	created := time.Now().Unix()

	if req.Stream {
		s.handleStream(c, &req, payload, result.ModelID, inputTokens, created)
		return
	}
	s.handleNonStream(c, &req, payload, result.ModelID, inputTokens, created)
}

func (s *Server) handleNonStream(c *gin.Context, req *openai.ChatCompletionRequest, payload []byte, modelID string, inputTokens int, created int64) {
	ctx := c.Request.Context()
	call, err := s.provider.CallAPI(ctx, payload)
	if err != nil {
		log.Warnf("api: upstream call failed: %v", err)
		s.logRequest(req, modelID, 0, false)
		respondUpstreamError(c, err)
		return
	}

	events := decodeAllEvents(call.Body)
	resp := openai.CollectNonStreamResponse(responseID(), created, req.Model, inputTokens, events)

	s.logRequest(req, modelID, call.Credential.ID, true)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStream(c *gin.Context, req *openai.ChatCompletionRequest, payload []byte, modelID string, inputTokens int, created int64) {
	ctx := c.Request.Context()
	call, err := s.provider.CallAPIStream(ctx, payload)
	if err != nil {
		log.Warnf("api: upstream stream call failed: %v", err)
		s.logRequest(req, modelID, 0, false)
		respondUpstreamError(c, err)
		return
	}

	streamCtx := openai.NewStreamContext(req.Model, created, inputTokens, req.IncludeUsageInStream())

	pumpSSE(c, call.Stream, streamCtx)
	s.logRequest(req, modelID, call.Credential.ID, true)
}

func decodeAllEvents(body []byte) []kiroevents.Event {
	decoder := kiroevents.NewEventStreamDecoder()
	if err := decoder.Feed(body); err != nil {
		log.Warnf("api: event-stream buffer overflow: %v", err)
		return nil
	}
	var events []kiroevents.Event
	for _, res := range decoder.DecodeIter() {
		if res.Err != nil {
			log.Warnf("api: frame decode error: %v", res.Err)
			continue
		}
		event, err := kiroevents.EventFromFrame(res.Frame)
		if err != nil {
			log.Warnf("api: event lift error: %v", err)
			continue
		}
		events = append(events, event)
	}
	return events
}

func (s *Server) logRequest(req *openai.ChatCompletionRequest, modelID string, credentialID uint64, success bool) {
	s.logs.Log(requestlog.Entry{
		ID:           responseID(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Model:        modelID,
		MaxTokens:    req.EffectiveMaxTokens(),
		Stream:       req.Stream,
		MessageCount: len(req.Messages),
		CredentialID: credentialID,
		Success:      success,
	})
}

func respondError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, openai.NewErrorResponse(errType, message))
}

// respondUpstreamError maps a provider-call failure to its HTTP status: no
// configured credential source is a 503 (the gateway itself isn't ready),
// anything else is a 502 (the upstream call itself failed).
func respondUpstreamError(c *gin.Context, err error) {
	if errors.Is(err, credentials.ErrNoCredentials) {
		respondError(c, http.StatusServiceUnavailable, "server_error", "no credentials available")
		return
	}
	respondError(c, http.StatusBadGateway, "server_error", "upstream request failed")
}
