package buffer

import (
	"sync"
	"time"

	"companion/internal/logging"
)

// Message is a single conversational turn stored in a channel's buffer.
// Messages are immutable after insertion.
type Message struct {
	Author         string
	Content        string
	IsBot          bool // true if this message is from our bot
	Timestamp      time.Time
	AttachmentInfo string   // e.g. "[2 image(s), 1 file(s) attached]"
	ReplyTo        string   // display name of the user being replied to
	ImageURLs      []string // CDN URLs of images eligible for multimodal requests
}

// ring is a fixed-capacity FIFO of messages. Appending at capacity
// evicts the oldest entry.
type ring struct {
	mu      sync.Mutex
	entries []Message
	start   int
	count   int
}

func newRing(capacity int) *ring {
	return &ring{entries: make([]Message, capacity)}
}

// push appends a message, evicting the oldest when full. Returns true
// if an eviction happened.
func (r *ring) push(m Message) bool {
	if r.count == len(r.entries) {
		r.entries[r.start] = m
		r.start = (r.start + 1) % len(r.entries)
		return true
	}
	r.entries[(r.start+r.count)%len(r.entries)] = m
	r.count++
	return false
}

// dropOldest removes up to n entries from the head, returning the
// number actually removed.
func (r *ring) dropOldest(n int) int {
	if n > r.count {
		n = r.count
	}
	for i := 0; i < n; i++ {
		r.entries[r.start] = Message{}
		r.start = (r.start + 1) % len(r.entries)
	}
	r.count -= n
	return n
}

func (r *ring) clear() {
	for i := range r.entries {
		r.entries[i] = Message{}
	}
	r.start = 0
	r.count = 0
}

// snapshot copies the entries in insertion order.
func (r *ring) snapshot() []Message {
	out := make([]Message, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

// Store maintains one bounded message history per Discord channel.
// Buffers are created lazily and live for the process lifetime.
type Store struct {
	mu      sync.RWMutex
	buffers map[string]*ring
	maxSize int
}

// New creates a store keeping at most maxSize messages per channel.
func New(maxSize int) *Store {
	return &Store{
		buffers: make(map[string]*ring),
		maxSize: maxSize,
	}
}

// get returns the channel's buffer, creating it if needed.
func (s *Store) get(channelID string) *ring {
	s.mu.RLock()
	r, ok := s.buffers[channelID]
	s.mu.RUnlock()
	if ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok = s.buffers[channelID]; ok {
		return r
	}
	r = newRing(s.maxSize)
	s.buffers[channelID] = r
	return r
}

// Add appends a message to the channel's buffer, evicting the oldest
// message if the buffer is at capacity.
func (s *Store) Add(channelID string, m Message) {
	r := s.get(channelID)
	r.mu.Lock()
	evicted := r.push(m)
	count := r.count
	r.mu.Unlock()

	if evicted {
		logging.Debug("buffer", "Buffer for channel %s at max capacity (%d), oldest message was dropped",
			channelID, s.maxSize)
	}
	logging.Debug("buffer", "Added message from %s to channel %s buffer (now %d/%d messages)",
		m.Author, channelID, count, s.maxSize)
}

// Count returns the number of messages buffered for a channel.
func (s *Store) Count(channelID string) int {
	r := s.get(channelID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Has reports whether a buffer exists for the channel. Unlike Count it
// does not create one, so it distinguishes "never touched" from
// "touched but empty".
func (s *Store) Has(channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buffers[channelID]
	return ok
}

// Touch creates an empty buffer for the channel if none exists. Used
// after a failed history backfill so the backfill is not retried.
func (s *Store) Touch(channelID string) {
	s.get(channelID)
}

// Clear empties the channel's buffer in place. The buffer itself is
// kept, so Has still reports true afterwards.
func (s *Store) Clear(channelID string) {
	s.mu.RLock()
	r, ok := s.buffers[channelID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	r.mu.Lock()
	r.clear()
	r.mu.Unlock()
}

// TruncateOldest removes up to count messages from the head of the
// channel's buffer and returns the number actually removed. Used for
// recovery when the context is too long for the model.
func (s *Store) TruncateOldest(channelID string, count int) int {
	r := s.get(channelID)
	r.mu.Lock()
	before := r.count
	removed := r.dropOldest(count)
	after := r.count
	r.mu.Unlock()

	logging.Debug("buffer", "Truncated %d messages from channel %s buffer (%d -> %d messages)",
		removed, channelID, before, after)
	return removed
}

// Messages returns a copy of the channel's buffered messages in
// insertion order.
func (s *Store) Messages(channelID string) []Message {
	r := s.get(channelID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}
