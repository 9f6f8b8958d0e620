package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
	"github.com/fabian-lindhardt/ableton-ebs/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second  // Actor command timeout
	stopTimeout    = 10 * time.Second // Graceful shutdown timeout
)

// relayCmd is the command interface for the Relay actor.
type relayCmd interface{ isRelayCmd() }

type baseRelayCmd struct{}

func (baseRelayCmd) isRelayCmd() {}

type attachCmd struct {
	baseRelayCmd
	connection *websocket.Conn
}

type detachCmd struct {
	baseRelayCmd
	connection *websocket.Conn
}

type inboundCmd struct {
	baseRelayCmd
	connection *websocket.Conn
	envelope   domain.Envelope
}

type emitCmd struct {
	baseRelayCmd
	data domain.SyncData
}

type snapshotCmd struct {
	baseRelayCmd
	replyChannel chan domain.StateSnapshot
}

type forwardCmd struct {
	baseRelayCmd
	payload      []byte
	replyChannel chan error
}

type consumerCountCmd struct {
	baseRelayCmd
	replyChannel chan int
}

type producerPresentCmd struct {
	baseRelayCmd
	replyChannel chan bool
}

type stopCmd struct {
	baseRelayCmd
}

// Relay is the fan-out core. Exactly one connection may identify as the
// producer (the studio bridge); every other connection is a consumer that
// receives throttled sync updates and metadata changes. The single actor
// goroutine owns the state cache, the producer link, and the consumer set,
// so every event-handler body runs to completion before the next begins.
type Relay struct {
	cmdCh     chan relayCmd
	clock     clockwork.Clock
	cache     *StateCache
	throttle  *Throttle
	publisher domain.Publisher

	// producer is the identity the stale-close guard compares against:
	// a close event only clears the link when its connection is still the
	// registered producer.
	producer       *websocket.Conn
	producerWriter *clientWriter
	consumers      map[*websocket.Conn]*clientWriter

	done chan struct{}
}

// NewRelay creates and starts the relay actor. throttleInterval bounds the
// per-key emission rate toward the publisher and the consumer sockets.
func NewRelay(publisher domain.Publisher, clock clockwork.Clock, throttleInterval time.Duration) *Relay {
	r := &Relay{
		cmdCh:     make(chan relayCmd, 256),
		clock:     clock,
		cache:     NewStateCache(),
		publisher: publisher,
		consumers: make(map[*websocket.Conn]*clientWriter),
		done:      make(chan struct{}),
	}
	r.throttle = NewThrottle(clock, throttleInterval, func(d domain.SyncData) {
		// Trailing-edge timers fire off the actor goroutine; route the
		// emission back through the command channel so mutation stays
		// serialized and per-key ordering is preserved.
		r.cmdCh <- emitCmd{data: d}
	})
	go r.run()
	return r
}

// Attach registers a new connection. Every connection starts as a consumer;
// an identify message later promotes it to the producer link.
func (r *Relay) Attach(conn *websocket.Conn) {
	r.cmdCh <- attachCmd{connection: conn}
}

// Detach removes a connection, clearing the producer link if (and only if)
// this connection still holds it.
func (r *Relay) Detach(conn *websocket.Conn) {
	r.cmdCh <- detachCmd{connection: conn}
}

// HandleMessage feeds one decoded envelope from a connection's read pump
// into the actor.
func (r *Relay) HandleMessage(conn *websocket.Conn, env domain.Envelope) {
	r.cmdCh <- inboundCmd{connection: conn, envelope: env}
}

// Snapshot returns a copy of the cached state for consumer bootstrap.
func (r *Relay) Snapshot() domain.StateSnapshot {
	replyCh := make(chan domain.StateSnapshot, 1)
	r.cmdCh <- snapshotCmd{replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case snap := <-replyCh:
		return snap
	case <-timer.Chan():
		slog.Warn("Snapshot timed out", "timeout", commandTimeout)
		return domain.StateSnapshot{State: map[string]int{}}
	}
}

// Forward sends a privileged command payload to the producer. Returns
// domain.ErrProducerUnavailable when no producer is registered or its send
// buffer is wedged.
func (r *Relay) Forward(payload []byte) error {
	replyCh := make(chan error, 1)
	r.cmdCh <- forwardCmd{payload: payload, replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-replyCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("forward command timed out after %v", commandTimeout)
	}
}

// ConsumerCount returns the number of connected consumers.
// Returns -1 if the command times out.
func (r *Relay) ConsumerCount() int {
	replyCh := make(chan int, 1)
	r.cmdCh <- consumerCountCmd{replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ConsumerCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// ProducerConnected reports whether a producer link is registered.
func (r *Relay) ProducerConnected() bool {
	replyCh := make(chan bool, 1)
	r.cmdCh <- producerPresentCmd{replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case present := <-replyCh:
		return present
	case <-timer.Chan():
		return false
	}
}

// Stop shuts down the relay, closing all connections. Blocks until the
// actor goroutine has exited or the timeout is reached.
func (r *Relay) Stop() {
	r.cmdCh <- stopCmd{}

	timeout := r.clock.NewTimer(stopTimeout)
	defer timeout.Stop()

	select {
	case <-r.done:
		slog.Info("Relay stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Relay stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (r *Relay) run() {
	defer close(r.done)

	for cmd := range r.cmdCh {
		switch c := cmd.(type) {
		case attachCmd:
			r.handleAttach(c)
		case detachCmd:
			r.handleDetach(c)
		case inboundCmd:
			r.handleInbound(c)
		case emitCmd:
			r.handleEmit(c.data)
		case snapshotCmd:
			c.replyChannel <- r.cache.Snapshot()
		case forwardCmd:
			c.replyChannel <- r.handleForward(c.payload)
		case consumerCountCmd:
			c.replyChannel <- len(r.consumers)
		case producerPresentCmd:
			c.replyChannel <- r.producer != nil
		case stopCmd:
			r.handleStop()
			return
		default:
			slog.Warn("Relay received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (r *Relay) handleAttach(c attachCmd) {
	r.consumers[c.connection] = newClientWriter(c.connection, r.clock, true)
	metrics.RelayConnectedConsumers.Set(float64(len(r.consumers)))
	slog.Debug("Connection attached", "consumers", len(r.consumers))
}

func (r *Relay) handleDetach(c detachCmd) {
	if c.connection == r.producer {
		// Stale-close guard holds implicitly: a superseded producer is no
		// longer equal to r.producer and falls through to the consumer path.
		r.producerWriter.stop()
		r.producer = nil
		r.producerWriter = nil
		metrics.RelayProducerConnected.Set(0)
		slog.Info("Producer disconnected")
		return
	}

	cw, exists := r.consumers[c.connection]
	if !exists {
		return
	}
	cw.stop()
	delete(r.consumers, c.connection)
	metrics.RelayConnectedConsumers.Set(float64(len(r.consumers)))
	slog.Debug("Consumer detached", "consumers", len(r.consumers))
}

func (r *Relay) handleInbound(c inboundCmd) {
	switch c.envelope.Type {
	case domain.MessageIdentify:
		r.handleIdentify(c)
	case domain.MessageSync:
		r.handleSync(c)
	case domain.MessageBulkSync:
		r.handleBulkSync(c)
	case domain.MessageMetadata:
		r.handleMetadata(c)
	default:
		slog.Debug("Ignoring message of unknown type", "type", c.envelope.Type)
	}
}

func (r *Relay) handleIdentify(c inboundCmd) {
	role := c.envelope.Role
	if role != domain.RoleProducer && role != domain.RoleBridge {
		slog.Debug("Ignoring identify with non-producer role", "role", role)
		return
	}

	if r.producer == c.connection {
		return // idempotent re-identify
	}

	if r.producer != nil {
		// Silent supersession: the old bridge connection drops back into
		// the consumer set until its own close event arrives.
		slog.Info("Producer superseded by new connection")
		r.consumers[r.producer] = r.producerWriter
	}

	r.producer = c.connection
	if cw, exists := r.consumers[c.connection]; exists {
		// The consumer writer pings and idle-evicts; the producer link must
		// not. Halt the old pump and hand the socket to a keepalive-free writer.
		delete(r.consumers, c.connection)
		cw.stopPump()
	}
	r.producerWriter = newClientWriter(c.connection, r.clock, false)
	metrics.RelayProducerConnected.Set(1)
	metrics.RelayConnectedConsumers.Set(float64(len(r.consumers)))
	slog.Info("Producer identified", "cached_controls", r.cache.Len())
}

func (r *Relay) handleSync(c inboundCmd) {
	if c.connection != r.producer {
		slog.Debug("Dropping sync from non-producer connection")
		return
	}

	var data domain.SyncData
	if err := json.Unmarshal(c.envelope.Data, &data); err != nil {
		slog.Warn("Invalid sync payload", "error", err)
		return
	}

	metrics.RelaySyncEventsTotal.Inc()
	r.cache.ApplySync(data)
	if r.throttle.Admit(data) {
		r.handleEmit(data)
	}
}

func (r *Relay) handleBulkSync(c inboundCmd) {
	if c.connection != r.producer {
		slog.Debug("Dropping bulk_sync from non-producer connection")
		return
	}

	var entries map[string]int
	if err := json.Unmarshal(c.envelope.Data, &entries); err != nil {
		slog.Warn("Invalid bulk_sync payload", "error", err)
		return
	}

	// Restore is silent: no publish, no fan-out. Consumers already hold
	// this state (or will fetch it via bootstrap), and replaying a full
	// cache through the external API would burn its rate budget.
	applied := r.cache.ApplyBulk(entries)
	metrics.RelayBulkSyncEntriesTotal.Add(float64(applied))
	slog.Info("Bulk sync applied", "entries", applied, "cached_controls", r.cache.Len())
}

func (r *Relay) handleMetadata(c inboundCmd) {
	if c.connection != r.producer {
		slog.Debug("Dropping metadata from non-producer connection")
		return
	}

	var snapshot domain.MetadataSnapshot
	if err := json.Unmarshal(c.envelope.Data, &snapshot); err != nil {
		slog.Warn("Invalid metadata payload", "error", err)
		return
	}

	r.cache.ReplaceMetadata(snapshot)

	// Metadata is infrequent and structural — always published, never throttled.
	r.publisher.PublishMetadata(snapshot)
	r.fanOut(domain.MessageMetadata, c.envelope.Data)
}

// handleEmit runs once per throttle emission: push to the external
// broadcast API and to every connected consumer.
func (r *Relay) handleEmit(data domain.SyncData) {
	metrics.RelayEmissionsTotal.Inc()
	r.publisher.PublishSync(data)

	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to marshal sync payload", "error", err)
		return
	}
	r.fanOut(domain.MessageSync, payload)
}

func (r *Relay) fanOut(messageType string, data json.RawMessage) {
	msg, err := json.Marshal(domain.Envelope{Type: messageType, Data: data})
	if err != nil {
		slog.Error("Failed to marshal fan-out envelope", "error", err)
		return
	}

	var slow []*websocket.Conn
	for conn, writer := range r.consumers {
		if !writer.send(msg) {
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow consumer")
		metrics.RelaySlowClientsEvicted.Inc()
		r.handleDetach(detachCmd{connection: conn})
	}
}

func (r *Relay) handleForward(payload []byte) error {
	if r.producer == nil {
		metrics.RelayForwardsTotal.WithLabelValues("producer_unavailable").Inc()
		return domain.ErrProducerUnavailable
	}

	if !r.producerWriter.send(payload) {
		// A wedged producer link is as good as an absent one.
		metrics.RelayForwardsTotal.WithLabelValues("producer_unavailable").Inc()
		return fmt.Errorf("producer send buffer full: %w", domain.ErrProducerUnavailable)
	}

	metrics.RelayForwardsTotal.WithLabelValues("forwarded").Inc()
	return nil
}

func (r *Relay) handleStop() {
	r.throttle.Stop()

	totalConsumers := len(r.consumers)
	slog.Info("Relay shutting down", "consumers", totalConsumers, "producer_connected", r.producer != nil)

	for conn, cw := range r.consumers {
		cw.stopGraceful("Server shutting down")
		delete(r.consumers, conn)
	}
	if r.producerWriter != nil {
		r.producerWriter.stopGraceful("Server shutting down")
		r.producer = nil
		r.producerWriter = nil
	}

	metrics.RelayConnectedConsumers.Set(0)
	metrics.RelayProducerConnected.Set(0)
	slog.Info("Relay shutdown complete", "disconnected_consumers", totalConsumers)
}
