package client

import (
	"challenge-chat/api/chat"
	"slices"
	"time"
)

// DefaultTimeout is how long a send may stay pending before it is marked failed.
const DefaultTimeout = 10 * time.Second

type State int

const (
	Pending State = iota
	Confirmed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// LateConfirmationPolicy decides what happens when the echo of a send
// arrives after the send was already marked failed.
type LateConfirmationPolicy int

const (
	// OverrideFailed replaces the failed entry by the persisted message.
	OverrideFailed LateConfirmationPolicy = iota
	// KeepFailed leaves the entry failed; the message shows up on the next history fetch.
	KeepFailed
)

// Entry is one rendered line of a room.
// Message is set once the server has persisted it.
type Entry struct {
	CorrelationID string
	Body          string
	SentAt        time.Time
	State         State
	Reason        string
	Message       *chat.Message
}

// Timeline is the client view of one room: canonical messages in server
// order followed by the local sends still unresolved. Every operation
// returns a new Timeline and leaves the receiver untouched.
type Timeline struct {
	room      string
	timeout   time.Duration
	policy    LateConfirmationPolicy
	messages  []chat.Message
	seen      map[string]struct{}
	confirmed map[string]string
	local     []Entry
}

type Option func(*Timeline)

func WithTimeout(timeout time.Duration) Option {
	return func(t *Timeline) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

func WithLateConfirmationPolicy(policy LateConfirmationPolicy) Option {
	return func(t *Timeline) {
		t.policy = policy
	}
}

func NewTimeline(room string, opts ...Option) Timeline {
	t := Timeline{
		room:      room,
		timeout:   DefaultTimeout,
		policy:    OverrideFailed,
		seen:      map[string]struct{}{},
		confirmed: map[string]string{},
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func (t Timeline) Room() string {
	return t.room
}

// Entries renders the timeline: confirmed messages first, then pending and failed sends.
func (t Timeline) Entries() []Entry {
	byMessage := make(map[string]string, len(t.confirmed))
	for correlationID, messageID := range t.confirmed {
		byMessage[messageID] = correlationID
	}
	entries := make([]Entry, 0, len(t.messages)+len(t.local))
	for i := range t.messages {
		message := t.messages[i]
		entries = append(entries, Entry{
			CorrelationID: byMessage[message.ID],
			Body:          message.Body,
			SentAt:        message.Timestamp,
			State:         Confirmed,
			Message:       &message,
		})
	}
	return append(entries, t.local...)
}

// Find returns the unresolved or confirmed entry sent with this correlation id.
func (t Timeline) Find(correlationID string) (Entry, bool) {
	for _, entry := range t.Entries() {
		if entry.CorrelationID == correlationID {
			return entry, true
		}
	}
	return Entry{}, false
}

// Send records a local message as pending.
func (t Timeline) Send(correlationID, body string, now time.Time) Timeline {
	next := t.clone()
	next.local = append(next.local, Entry{CorrelationID: correlationID, Body: body, SentAt: now, State: Pending})
	return next
}

// Seed merges a history page. Messages already known are skipped.
func (t Timeline) Seed(history []chat.Message) Timeline {
	next := t.clone()
	for _, message := range history {
		next.appendMessage(message)
	}
	slices.SortStableFunc(next.messages, func(a, b chat.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return next
}

// Apply folds a server event of this room into the timeline.
func (t Timeline) Apply(e chat.ServerEvent) Timeline {
	if e.RoomID != t.room {
		return t
	}
	switch e.Type {
	case chat.TypeMessageDelivered:
		if e.Message == nil {
			return t
		}
		return t.deliver(*e.Message, e.CorrelationID)
	case chat.TypeSendFailed:
		return t.fail(e.CorrelationID, e.Reason)
	default:
		return t
	}
}

// Expire fails every pending send older than the timeout.
func (t Timeline) Expire(now time.Time) Timeline {
	expired := slices.IndexFunc(t.local, func(entry Entry) bool {
		return entry.State == Pending && now.Sub(entry.SentAt) >= t.timeout
	})
	if expired < 0 {
		return t
	}
	next := t.clone()
	for i := range next.local {
		if next.local[i].State == Pending && now.Sub(next.local[i].SentAt) >= t.timeout {
			next.local[i].State = Failed
			next.local[i].Reason = "no confirmation received"
		}
	}
	return next
}

// Resend replaces a failed entry by a new pending one under a new correlation id.
// The caller is expected to issue the send with the returned entry.
func (t Timeline) Resend(correlationID, newCorrelationID string, now time.Time) (Timeline, Entry, bool) {
	i := slices.IndexFunc(t.local, func(entry Entry) bool {
		return entry.CorrelationID == correlationID && entry.State == Failed
	})
	if i < 0 {
		return t, Entry{}, false
	}
	next := t.clone()
	entry := Entry{CorrelationID: newCorrelationID, Body: next.local[i].Body, SentAt: now, State: Pending}
	next.local = append(slices.Delete(next.local, i, i+1), entry)
	return next, entry, true
}

// deliver resolves the local send first: its echo may follow a history page
// that already brought the same message.
func (t Timeline) deliver(message chat.Message, correlationID string) Timeline {
	i := -1
	if correlationID != "" {
		i = slices.IndexFunc(t.local, func(entry Entry) bool { return entry.CorrelationID == correlationID })
	}
	if i >= 0 && t.local[i].State == Failed && t.policy == KeepFailed {
		return t
	}
	if _, ok := t.seen[message.ID]; ok && i < 0 {
		return t
	}
	next := t.clone()
	if i >= 0 {
		next.local = slices.Delete(next.local, i, i+1)
		next.confirmed[correlationID] = message.ID
	}
	next.appendMessage(message)
	return next
}

func (t Timeline) fail(correlationID, reason string) Timeline {
	i := slices.IndexFunc(t.local, func(entry Entry) bool {
		return entry.CorrelationID == correlationID && entry.State == Pending
	})
	if i < 0 {
		return t
	}
	next := t.clone()
	next.local[i].State = Failed
	next.local[i].Reason = reason
	return next
}

// appendMessage must only be called on a clone.
func (t *Timeline) appendMessage(message chat.Message) {
	if _, ok := t.seen[message.ID]; ok {
		return
	}
	t.seen[message.ID] = struct{}{}
	t.messages = append(t.messages, message)
}

func (t Timeline) clone() Timeline {
	next := t
	next.messages = slices.Clone(t.messages)
	next.local = slices.Clone(t.local)
	next.seen = make(map[string]struct{}, len(t.seen))
	for id := range t.seen {
		next.seen[id] = struct{}{}
	}
	next.confirmed = make(map[string]string, len(t.confirmed))
	for correlationID, id := range t.confirmed {
		next.confirmed[correlationID] = id
	}
	return next
}
