package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sponsorlink/marketplace/backend/internal/analysis/intent"
	"github.com/sponsorlink/marketplace/backend/internal/metrics"
	"github.com/sponsorlink/marketplace/backend/internal/model/chat"
)

// Conversation owns the state of one chat widget: its ordered message list,
// the visitor's user type and the widget's visibility. Bot replies are appended
// after a fixed delay; Close discards any that are still pending.
type Conversation struct {
	id        string
	script    *Script
	delay     time.Duration
	logger    *zap.Logger
	now       func() time.Time
	createdAt time.Time

	mu          sync.RWMutex
	messages    []chat.Message
	userType    chat.UserType
	open        bool
	closed      bool
	lastActive  time.Time
	pending     map[uint64]*time.Timer
	nextTimer   uint64
	subscribers map[uint64]chan chat.Message
	nextSub     uint64
}

// ConversationOption customises a Conversation.
type ConversationOption func(*Conversation)

// WithReplyDelay sets the artificial typing delay before bot replies.
func WithReplyDelay(d time.Duration) ConversationOption {
	return func(c *Conversation) { c.delay = d }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) ConversationOption {
	return func(c *Conversation) { c.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ConversationOption {
	return func(c *Conversation) { c.now = now }
}

// NewConversation starts a session with the playbook greeting as its first message.
func NewConversation(id string, script *Script, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		id:          id,
		script:      script,
		delay:       500 * time.Millisecond,
		logger:      zap.NewNop(),
		now:         time.Now,
		userType:    chat.UserTypeUnknown,
		pending:     make(map[uint64]*time.Timer),
		subscribers: make(map[uint64]chan chat.Message),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	c.createdAt = c.now().UTC()
	c.lastActive = c.createdAt
	c.messages = make([]chat.Message, 0, 16)

	c.mu.Lock()
	c.appendLocked(script.Playbook().Greeting, chat.SenderBot)
	c.mu.Unlock()

	return c
}

// ID returns the session identifier.
func (c *Conversation) ID() string {
	return c.id
}

// PlaybookID returns the id of the playbook driving the conversation.
func (c *Conversation) PlaybookID() string {
	return c.script.Playbook().ID
}

// AddMessage appends a message. A user message also runs the script once and
// schedules the resulting bot reply. Any content is accepted, including "".
func (c *Conversation) AddMessage(ctx context.Context, content string, sender chat.Sender) chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := c.appendLocked(content, sender)
	c.lastActive = msg.CreatedAt

	if sender != chat.SenderUser || c.closed {
		return msg
	}

	decision, err := c.script.Decide(ctx, c.userType, content)
	if err != nil {
		c.logger.Error("script failed", zap.String("session", c.id), zap.Error(err))
		return msg
	}

	if decision.Kind == intent.KindClassified {
		c.userType = decision.UserType
		metrics.ClassificationsTotal.WithLabelValues(string(decision.UserType)).Inc()
		c.logger.Info("visitor classified",
			zap.String("session", c.id),
			zap.String("userType", string(decision.UserType)))
	}

	metrics.RepliesTotal.WithLabelValues(string(decision.UserType), decision.Intent).Inc()
	c.scheduleLocked(decision.Reply)
	return msg
}

// Toggle flips widget visibility and returns the new state.
func (c *Conversation) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = !c.open
	c.lastActive = c.now().UTC()
	return c.open
}

// Messages returns a copy of the message list in insertion order.
func (c *Conversation) Messages() []chat.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]chat.Message(nil), c.messages...)
}

// UserType returns the current classification.
func (c *Conversation) UserType() chat.UserType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userType
}

// Open reports whether the widget is expanded.
func (c *Conversation) Open() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// Snapshot copies the whole session state.
func (c *Conversation) Snapshot() chat.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return chat.Snapshot{
		SessionID:  c.id,
		PlaybookID: c.script.Playbook().ID,
		UserType:   c.userType,
		Open:       c.open,
		Messages:   append([]chat.Message(nil), c.messages...),
		CreatedAt:  c.createdAt,
	}
}

// Pending returns the number of bot replies not yet delivered.
func (c *Conversation) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}

// IdleSince returns when the conversation last saw an append, a toggle or a
// subscriber leaving.
func (c *Conversation) IdleSince() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActive
}

// Subscribers returns the number of live feeds.
func (c *Conversation) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers)
}

// Subscribe returns a feed of messages appended after the call. The feed is
// closed when cancel is called or the conversation is closed. A subscriber
// that falls more than buffer messages behind misses messages.
func (c *Conversation) Subscribe(buffer int) (<-chan chat.Message, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan chat.Message, buffer)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
				c.lastActive = c.now().UTC()
			}
		})
	}
}

// Close stops pending replies and ends every subscription. It is safe to call twice.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	for id, timer := range c.pending {
		timer.Stop()
		delete(c.pending, id)
	}
	for id, sub := range c.subscribers {
		close(sub)
		delete(c.subscribers, id)
	}
}

// Closed reports whether Close has been called.
func (c *Conversation) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Conversation) appendLocked(content string, sender chat.Sender) chat.Message {
	msg := chat.Message{
		ID:        uuid.NewString(),
		Seq:       len(c.messages) + 1,
		SessionID: c.id,
		Sender:    sender,
		Content:   content,
		CreatedAt: c.now().UTC(),
	}
	c.messages = append(c.messages, msg)
	metrics.MessagesTotal.WithLabelValues(string(sender)).Inc()

	for id, sub := range c.subscribers {
		select {
		case sub <- msg:
		default:
			c.logger.Warn("subscriber lagging, message dropped",
				zap.String("session", c.id),
				zap.Uint64("subscriber", id),
				zap.Int("seq", msg.Seq))
		}
	}
	return msg
}

func (c *Conversation) scheduleLocked(reply string) {
	id := c.nextTimer
	c.nextTimer++
	c.pending[id] = time.AfterFunc(c.delay, func() {
		c.deliver(id, reply)
	})
}

func (c *Conversation) deliver(id uint64, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[id]; !ok {
		return
	}
	delete(c.pending, id)
	if c.closed {
		return
	}
	c.appendLocked(reply, chat.SenderBot)
}
