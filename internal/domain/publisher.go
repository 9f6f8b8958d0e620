package domain

// Publisher pushes emitted state changes to the external broadcast API
// (Twitch extension PubSub). Implementations are fire-and-forget: calls
// never block the relay's event path and failures are logged, not returned.
type Publisher interface {
	PublishSync(data SyncData)
	PublishMetadata(snapshot MetadataSnapshot)
}

// NopPublisher discards everything. Used when no broadcast credentials are
// configured and in tests.
type NopPublisher struct{}

func (NopPublisher) PublishSync(SyncData) {}

func (NopPublisher) PublishMetadata(MetadataSnapshot) {}
