package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// LogEntry is one log line as sent to stream clients.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	LeadID    string `json:"leadId,omitempty"`
}

// AppliedFilters selects which entries a client receives. ChannelAll
// matches every channel.
type AppliedFilters struct {
	Channel Channel
	Level   slog.Level
}

// ChannelAll is the stream filter matching every channel.
const ChannelAll Channel = "all"

// Client is one connected log stream.
type Client struct {
	ID       string
	Messages chan []byte
	filters  AppliedFilters
}

// LogBroadcaster fans log entries out to stream clients. Submit never
// blocks; entries are dropped when a buffer is full.
type LogBroadcaster struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	broadcast chan LogEntry
	dropped   atomic.Int64
	closed    bool
}

// NewLogBroadcaster creates a broadcaster. Call Run to start distribution.
func NewLogBroadcaster(buffer int) *LogBroadcaster {
	if buffer < 1 {
		buffer = 1000
	}
	return &LogBroadcaster{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan LogEntry, buffer),
	}
}

// Run distributes entries until ctx is done, then closes every client.
func (b *LogBroadcaster) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for client := range b.clients {
				delete(b.clients, client)
				close(client.Messages)
			}
			b.closed = true
			b.mu.Unlock()
			return nil
		case entry := <-b.broadcast:
			b.distribute(entry)
		}
	}
}

func (b *LogBroadcaster) distribute(entry LogEntry) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(entry.Level)); err != nil {
		level = slog.LevelInfo
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.clients) == 0 {
		return
	}

	message, err := json.Marshal(entry)
	if err != nil {
		return
	}
	for client := range b.clients {
		if client.filters.Channel != ChannelAll && client.filters.Channel != Channel(entry.Channel) {
			continue
		}
		if level < client.filters.Level {
			continue
		}
		select {
		case client.Messages <- message:
		default:
			b.dropped.Add(1)
		}
	}
}

// Submit queues an entry for distribution.
func (b *LogBroadcaster) Submit(entry LogEntry) {
	select {
	case b.broadcast <- entry:
	default:
		b.dropped.Add(1)
	}
}

// Subscribe registers a client. It returns nil once the broadcaster has
// stopped.
func (b *LogBroadcaster) Subscribe(filters AppliedFilters) *Client {
	if filters.Channel == "" {
		filters.Channel = ChannelAll
	}
	client := &Client{
		ID:       uuid.NewString(),
		Messages: make(chan []byte, 100),
		filters:  filters,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.clients[client] = struct{}{}
	return client
}

// Unsubscribe removes a client and closes its channel. Safe to call twice.
func (b *LogBroadcaster) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client.Messages)
	}
}

// ClientCount reports the number of connected clients.
func (b *LogBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Dropped reports how many entries were discarded on full buffers.
func (b *LogBroadcaster) Dropped() int64 { return b.dropped.Load() }

// IsValidStreamChannel reports whether name is a channel or ChannelAll.
func IsValidStreamChannel(name string) bool {
	if Channel(name) == ChannelAll {
		return true
	}
	for _, c := range allChannels {
		if string(c) == name {
			return true
		}
	}
	return false
}
