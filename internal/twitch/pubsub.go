package twitch

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
	"github.com/fabian-lindhardt/ableton-ebs/internal/metrics"
)

const (
	defaultPubSubURL = "https://api.twitch.tv/helix/extensions/pubsub"
	publishQueueSize = 256
)

// pubsubMessage is what the frontend receives on the broadcast topic. It
// mirrors the WebSocket envelope so the panel can reuse one decoder.
type pubsubMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Publisher pushes emitted state to the extension PubSub broadcast topic.
//
// It is strictly fire-and-forget: Publish* enqueue onto a bounded buffer and
// return immediately. A single worker goroutine drains the buffer, so the
// Twitch rate limit is approached in order and a slow or failing API never
// backs up into the relay. Failures are logged and counted, never retried.
type Publisher struct {
	clientID  string
	secret    []byte
	ownerID   string
	channelID string

	apiURL     string // configurable for testing
	httpClient *http.Client
	clock      clockwork.Clock
	breaker    *gobreaker.CircuitBreaker

	queue    chan pubsubMessage
	done     chan struct{}
	stopOnce sync.Once
}

var _ domain.Publisher = (*Publisher)(nil)

// NewPublisher starts the publish worker. The secret is the base64-encoded
// extension secret from the Twitch developer console.
func NewPublisher(clientID, encodedSecret, ownerID, channelID string, clock clockwork.Clock) (*Publisher, error) {
	secret, err := base64.StdEncoding.DecodeString(encodedSecret)
	if err != nil {
		return nil, fmt.Errorf("extension secret must be valid base64: %w", err)
	}

	p := &Publisher{
		clientID:   clientID,
		secret:     secret,
		ownerID:    ownerID,
		channelID:  channelID,
		apiURL:     defaultPubSubURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		clock:      clock,
		queue:      make(chan pubsubMessage, publishQueueSize),
		done:       make(chan struct{}),
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "twitch-pubsub",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("PubSub circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	go p.worker()
	return p, nil
}

func (p *Publisher) PublishSync(data domain.SyncData) {
	p.enqueue(pubsubMessage{Type: domain.MessageSync, Data: data})
}

func (p *Publisher) PublishMetadata(snapshot domain.MetadataSnapshot) {
	p.enqueue(pubsubMessage{Type: domain.MessageMetadata, Data: snapshot})
}

// Stop shuts the worker down. Queued messages are discarded; nothing
// downstream depends on their delivery.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
}

func (p *Publisher) enqueue(msg pubsubMessage) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.queue <- msg:
		metrics.PubSubQueueDepth.Set(float64(len(p.queue)))
	default:
		metrics.PubSubDroppedTotal.Inc()
		slog.Warn("PubSub publish queue full, dropping message", "type", msg.Type)
	}
}

func (p *Publisher) worker() {
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.queue:
			metrics.PubSubQueueDepth.Set(float64(len(p.queue)))
			if err := p.send(msg); err != nil {
				metrics.PubSubPublishesTotal.WithLabelValues("error").Inc()
				slog.Warn("PubSub publish failed", "type", msg.Type, "error", err)
				continue
			}
			metrics.PubSubPublishesTotal.WithLabelValues("ok").Inc()
		}
	}
}

func (p *Publisher) send(msg pubsubMessage) error {
	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.post(msg)
	})
	return err
}

func (p *Publisher) post(msg pubsubMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	token, err := signServerToken(p.secret, p.ownerID, p.channelID, p.clock.Now())
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"target":              []string{"broadcast"},
		"broadcaster_id":      p.channelID,
		"is_global_broadcast": false,
		"message":             string(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", p.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", p.clientID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pubsub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pubsub publish failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
