package mqtt

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type doneToken struct {
	pahomqtt.Token
	err error
}

func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

type subscribeClient struct {
	pahomqtt.Client
	mu     sync.Mutex
	topics []string
	err    error
}

func (c *subscribeClient) Subscribe(topic string, _ byte, _ pahomqtt.MessageHandler) pahomqtt.Token {
	c.mu.Lock()
	c.topics = append(c.topics, topic)
	c.mu.Unlock()
	return doneToken{err: c.err}
}

func TestSubscribeCommands_LogsRejectedSubscription(t *testing.T) {
	t.Parallel()

	var logs lockedBuffer
	client := &subscribeClient{err: errors.New("not authorized")}
	p := &Publisher{
		client: client,
		cmd:    &fakeCommander{},
		prefix: "apctl",
		logger: slog.New(slog.NewTextHandler(&logs, nil)),
	}

	p.subscribeCommands()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(logs.String(), "MQTT subscribe error") {
		if time.Now().After(deadline) {
			t.Fatalf("logs=%q", logs.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if out := logs.String(); !strings.Contains(out, "topic=apctl/cmd") || !strings.Contains(out, "not authorized") {
		t.Fatalf("logs=%q", out)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.topics) != 1 || client.topics[0] != "apctl/cmd" {
		t.Fatalf("topics=%v", client.topics)
	}
}

func TestSubscribeCommands_NoCommanderNoSubscription(t *testing.T) {
	t.Parallel()

	client := &subscribeClient{}
	p := &Publisher{client: client, prefix: "apctl", logger: slog.Default()}
	p.subscribeCommands()
	if len(client.topics) != 0 {
		t.Fatalf("topics=%v", client.topics)
	}
}
