package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay Metrics
var (
	// RelayConnectedConsumers tracks the number of connected viewer sockets
	RelayConnectedConsumers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connected_consumers",
			Help: "Number of connected consumer WebSocket clients",
		},
	)

	// RelayProducerConnected reports whether a producer link is registered (0/1)
	RelayProducerConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_producer_connected",
			Help: "Whether a producer (bridge) connection is registered (0 or 1)",
		},
	)

	// RelaySyncEventsTotal counts incoming sync events from the producer
	RelaySyncEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_sync_events_total",
			Help: "Total sync events received from the producer",
		},
	)

	// RelayBulkSyncEntriesTotal counts entries restored via bulk_sync
	RelayBulkSyncEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_bulk_sync_entries_total",
			Help: "Total cache entries restored via bulk_sync",
		},
	)

	// RelayEmissionsTotal counts throttle emissions that reached consumers
	RelayEmissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_emissions_total",
			Help: "Total throttled emissions fanned out to consumers",
		},
	)

	// RelayCoalescedTotal counts sync events absorbed by the throttle window
	RelayCoalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_coalesced_total",
			Help: "Total sync events coalesced away by the per-key throttle",
		},
	)

	// RelaySlowClientsEvicted counts consumers dropped for full send buffers
	RelaySlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_slow_clients_evicted_total",
			Help: "Total slow consumers evicted due to full send buffers",
		},
	)

	// RelayForwardsTotal counts privileged commands forwarded to the producer
	RelayForwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_forwards_total",
			Help: "Privileged commands forwarded to the producer by outcome",
		},
		[]string{"outcome"},
	)
)

// WebSocket Writer Metrics
var (
	// WebSocketMessageSendDuration tracks per-message write latency
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// WebSocketPingFailures counts failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket ping failures",
		},
	)

	// WebSocketIdleDisconnects counts connections dropped for inactivity
	WebSocketIdleDisconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_idle_disconnects_total",
			Help: "Total WebSocket connections dropped for inactivity",
		},
	)
)

// PubSub Publisher Metrics
var (
	// PubSubPublishesTotal counts external broadcast calls by status
	PubSubPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubsub_publishes_total",
			Help: "Total extension PubSub publishes by status",
		},
		[]string{"status"},
	)

	// PubSubDroppedTotal counts messages dropped because the queue was full
	PubSubDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pubsub_dropped_total",
			Help: "Total PubSub messages dropped due to a full publish queue",
		},
	)

	// PubSubQueueDepth tracks the current publish queue depth
	PubSubQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pubsub_queue_depth",
			Help: "Current depth of the PubSub publish queue",
		},
	)
)

// Session Metrics
var (
	// SessionsActive tracks the number of unexpired session records
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of unexpired session records",
		},
	)

	// SessionPurchasesTotal counts purchase attempts by sku and status
	SessionPurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_purchases_total",
			Help: "Session purchase attempts by sku and status",
		},
		[]string{"sku", "status"},
	)

	// FreeTrialsTotal counts free-trial activations by outcome
	FreeTrialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "free_trials_total",
			Help: "Free-trial activation attempts by outcome",
		},
		[]string{"outcome"},
	)
)
