package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	Greeting = "Namaste! I am your AI Health Assistant. How can I help you with your wellness today?"

	// MaxMessages bounds a conversation; the oldest messages go first.
	MaxMessages = 100
)

type Language struct {
	Code string
	Name string
}

var Languages = []Language{
	{Code: "en", Name: "English"},
	{Code: "hi", Name: "हिन्दी"},
	{Code: "bn", Name: "বাংলা"},
	{Code: "ta", Name: "தமிழ்"},
	{Code: "te", Name: "తెలుగు"},
}

// LanguageName returns the display name for code, English when unknown.
func LanguageName(code string) string {
	for _, l := range Languages {
		if l.Code == code {
			return l.Name
		}
	}
	return Languages[0].Name
}

// Supported reports whether code is one of Languages.
func Supported(code string) bool {
	for _, l := range Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

func fallbackReply(lang string) string {
	return fmt.Sprintf("I'm analyzing your request in %s. How else can I assist?", LanguageName(lang))
}

type Sender string

const (
	FromBot  Sender = "bot"
	FromUser Sender = "user"
)

type Message struct {
	ID     string
	Text   string
	Sender Sender
	Time   string
}

// Replier answers one chat message.
type Replier interface {
	Chat(ctx context.Context, message, language string) (string, error)
}

// Conversation is one doctor's chat widget history.
type Conversation struct {
	replier Replier
	logger  zerolog.Logger
	clock   func() time.Time

	mu       sync.Mutex
	messages []Message
}

type Option func(*Conversation)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Conversation) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Conversation) { c.clock = now }
}

func NewConversation(r Replier, opts ...Option) *Conversation {
	c := &Conversation{
		replier: r,
		logger:  zerolog.Nop(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.messages = []Message{c.message(Greeting, FromBot)}
	return c
}

func (c *Conversation) message(text string, from Sender) Message {
	return Message{
		ID:     uuid.NewString(),
		Text:   text,
		Sender: from,
		Time:   c.clock().Format("15:04"),
	}
}

// Messages returns a copy of the history, oldest first.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Send appends text as a user message, then the bot reply. When the replier
// fails the reply is a fixed fallback line in the chosen language. Blank
// text is ignored and returns false.
func (c *Conversation) Send(ctx context.Context, text, lang string) (Message, bool) {
	if strings.TrimSpace(text) == "" {
		return Message{}, false
	}
	c.append(c.message(text, FromUser))

	reply, err := c.replier.Chat(ctx, text, lang)
	if err != nil {
		c.logger.Warn().Err(err).Str("language", lang).Msg("chat reply failed")
		reply = fallbackReply(lang)
	}

	bot := c.message(reply, FromBot)
	c.append(bot)
	return bot, true
}

func (c *Conversation) append(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
	if over := len(c.messages) - MaxMessages; over > 0 {
		c.messages = append([]Message(nil), c.messages[over:]...)
	}
}
