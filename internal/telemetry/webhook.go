package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/model"
)

// Event names carried in the webhook envelope.
const (
	EventRunCompleted  = "enrichment_result"
	EventBatchSnapshot = "batch_snapshot"
)

// Event is one webhook delivery. Exactly one of Result or Batch is set,
// matching the Event name.
type Event struct {
	Event     string                  `json:"event"`
	Timestamp time.Time               `json:"timestamp"`
	Result    *model.EnrichmentResult `json:"result,omitempty"`
	Batch     *model.BatchSnapshot    `json:"batch,omitempty"`
}

// Webhook posts telemetry events to an operator endpoint, one JSON body
// per POST. Posts run in the background and failures are only logged;
// telemetry must never stall or fail the worker. An empty URL disables
// the sink.
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewWebhook builds a webhook sink for url. Empty url means disabled.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		timeout: 10 * time.Second,
	}
}

// RunCompleted posts one enrichment result.
func (w *Webhook) RunCompleted(result *model.EnrichmentResult) {
	w.post(Event{Event: EventRunCompleted, Timestamp: time.Now().UTC(), Result: result})
}

// BatchSnapshot posts one batch heartbeat.
func (w *Webhook) BatchSnapshot(snap model.BatchSnapshot) {
	w.post(Event{Event: EventBatchSnapshot, Timestamp: time.Now().UTC(), Batch: &snap})
}

// Close waits for in-flight posts to finish.
func (w *Webhook) Close() {
	w.wg.Wait()
}

func (w *Webhook) post(ev Event) {
	if w.url == "" {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.send(ev); err != nil {
			zap.L().Warn("telemetry: webhook post failed",
				zap.String("event", ev.Event),
				zap.Error(err),
			)
		}
	}()
}

func (w *Webhook) send(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "telemetry: marshal event")
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "telemetry: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "telemetry: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("telemetry: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
