package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiroproxy/gateway/internal/kiroevents"
	"github.com/kiroproxy/gateway/internal/translator/kiro/openai"
	log "github.com/sirupsen/logrus"
)

// pingInterval is the keep-alive comment-line cadence.
const pingInterval = 25 * time.Second

// pumpSSE owns the upstream body for its lifetime: it races a background
// reader goroutine against a keep-alive ticker (first-ready selection, so a
// body chunk in flight is never starved by a tick), decoding frames and
// folding them through streamCtx as they arrive, and concludes with a
// terminal chunk and the [DONE] sentinel once the upstream body ends. If the
// client disconnects first, it returns without writing either.
func pumpSSE(c *gin.Context, body io.ReadCloser, streamCtx *openai.StreamContext) {
	defer body.Close()

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)

	writeChunk := func(chunk openai.ChatCompletionChunk) {
		data, err := json.Marshal(chunk)
		if err != nil {
			log.Warnf("api: failed to serialize stream chunk: %v", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		if canFlush {
			flusher.Flush()
		}
	}

	for _, chunk := range streamCtx.GenerateInitialChunk() {
		writeChunk(chunk)
	}

	chunks, readErrs := readBody(body)
	decoder := kiroevents.NewEventStreamDecoder()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()

drain:
	for {
		select {
		case <-clientGone:
			return

		case chunk, ok := <-chunks:
			if !ok {
				break drain
			}
			if err := decoder.Feed(chunk); err != nil {
				log.Warnf("api: event-stream buffer overflow: %v", err)
				continue
			}
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
				for _, out := range streamCtx.ProcessKiroEvent(event) {
					writeChunk(out)
				}
			}

		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			if canFlush {
				flusher.Flush()
			}
		}
	}

	if err, ok := <-readErrs; ok && err != nil {
		log.Warnf("api: upstream stream read error: %v", err)
	}

	for _, chunk := range streamCtx.GenerateFinalChunk() {
		writeChunk(chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	if canFlush {
		flusher.Flush()
	}
}

// readBody pumps body's bytes onto a channel from a background goroutine,
// closing it on EOF and surfacing any non-EOF read error on a second,
// buffered channel.
func readBody(body io.Reader) (<-chan []byte, <-chan error) {
	out := make(chan []byte)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		buf := make([]byte, 32*1024)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				out <- chunk
			}
			if err != nil {
				if err != io.EOF {
					errs <- err
				}
				close(errs)
				return
			}
		}
	}()

	return out, errs
}
