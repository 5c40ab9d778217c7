package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replierFunc func(ctx context.Context, message, language string) (string, error)

func (f replierFunc) Chat(ctx context.Context, message, language string) (string, error) {
	return f(ctx, message, language)
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 9, 5, 0, 0, time.UTC)
}

func TestConversationStartsWithGreeting(t *testing.T) {
	c := NewConversation(replierFunc(nil), WithClock(fixedClock))
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Greeting, msgs[0].Text)
	assert.Equal(t, FromBot, msgs[0].Sender)
	assert.Equal(t, "09:05", msgs[0].Time)
}

func TestSendAppendsReply(t *testing.T) {
	c := NewConversation(replierFunc(func(ctx context.Context, message, language string) (string, error) {
		return "reply to " + message + " (" + language + ")", nil
	}), WithClock(fixedClock))

	bot, ok := c.Send(context.Background(), "I have a headache", "hi")
	require.True(t, ok)
	assert.Equal(t, "reply to I have a headache (hi)", bot.Text)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, FromUser, msgs[1].Sender)
	assert.Equal(t, "I have a headache", msgs[1].Text)
	assert.NotEqual(t, msgs[1].ID, msgs[2].ID)
}

func TestSendFallsBackOnError(t *testing.T) {
	c := NewConversation(replierFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("unreachable")
	}))

	bot, ok := c.Send(context.Background(), "hello", "ta")
	require.True(t, ok)
	assert.Equal(t, "I'm analyzing your request in தமிழ். How else can I assist?", bot.Text)

	bot, _ = c.Send(context.Background(), "hello", "fr")
	assert.Equal(t, "I'm analyzing your request in English. How else can I assist?", bot.Text)
}

func TestSendIgnoresBlank(t *testing.T) {
	calls := 0
	c := NewConversation(replierFunc(func(context.Context, string, string) (string, error) {
		calls++
		return "x", nil
	}))

	_, ok := c.Send(context.Background(), "   ", "en")
	assert.False(t, ok)
	assert.Zero(t, calls)
	assert.Len(t, c.Messages(), 1)
}

func TestHistoryIsCapped(t *testing.T) {
	c := NewConversation(replierFunc(func(_ context.Context, message, _ string) (string, error) {
		return "ack " + message, nil
	}))

	for i := 0; i < MaxMessages; i++ {
		c.Send(context.Background(), fmt.Sprintf("m%d", i), "en")
	}

	msgs := c.Messages()
	assert.Len(t, msgs, MaxMessages)
	assert.Equal(t, fmt.Sprintf("ack m%d", MaxMessages-1), msgs[len(msgs)-1].Text)
	assert.NotEqual(t, Greeting, msgs[0].Text)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "বাংলা", LanguageName("bn"))
	assert.Equal(t, "English", LanguageName(""))
	assert.True(t, Supported("te"))
	assert.False(t, Supported("fr"))
}
