package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"apctl/internal/model"
	"apctl/internal/view"
)

// Config holds MQTT publisher configuration.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Commander is the set of panel operations reachable over MQTT.
type Commander interface {
	Refresh(ctx context.Context) error
	Scan(ctx context.Context) (model.ScanResult, error)
	LoadClients(ctx context.Context) (model.ClientsView, error)
	TestInternet(ctx context.Context) (model.InternetCheck, error)
	SetAuto(on bool)
}

// topics maps view events to topic suffixes. Log lines are not published.
var topics = map[string]string{
	view.EventSummary:  "summary",
	view.EventWANIP:    "wan_ip",
	view.EventWAN:      "wan",
	view.EventClients:  "clients",
	view.EventNetworks: "networks",
	view.EventSession:  "connect",
	view.EventAuto:     "auto",
	view.EventInternet: "internet",
}

// Publisher mirrors view changes to retained MQTT topics and accepts a few
// commands under <prefix>/cmd.
type Publisher struct {
	client pahomqtt.Client
	bus    *view.Feed
	cmd    Commander
	prefix string
	logger *slog.Logger
	unsub  func()
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPublisher creates and connects a publisher. cmd may be nil, in which
// case no command topics are subscribed.
func NewPublisher(bus *view.Feed, cmd Commander, cfg Config, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "apctl"
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		bus:    bus,
		cmd:    cmd,
		prefix: strings.TrimRight(cfg.TopicPrefix, "/"),
		logger: logger.With("component", "mqtt"),
		ctx:    ctx,
		cancel: cancel,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(p.topic("state"), "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			p.logger.Info("MQTT connected")
			p.publish(p.topic("state"), []byte("online"), true)
			p.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			p.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	p.client = pahomqtt.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		cancel()
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return p, nil
}

// Start subscribes to view events.
func (p *Publisher) Start() {
	p.unsub = p.bus.SubscribeAll(p.handleEvent)
	p.logger.Info("MQTT publisher started", "prefix", p.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (p *Publisher) Stop() {
	p.cancel()
	if p.unsub != nil {
		p.unsub()
	}
	p.publish(p.topic("state"), []byte("offline"), true)
	p.client.Disconnect(1000)
	p.logger.Info("MQTT publisher stopped")
}

func (p *Publisher) handleEvent(ev view.Event) {
	topic, payload, ok := Message(p.prefix, ev)
	if !ok {
		return
	}
	p.publish(topic, payload, true)
}

// Message maps a view event to its topic and JSON payload.
func Message(prefix string, ev view.Event) (string, []byte, bool) {
	suffix, ok := topics[ev.Type]
	if !ok {
		return "", nil, false
	}
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return "", nil, false
	}
	return prefix + "/" + suffix, payload, true
}

func (p *Publisher) subscribeCommands() {
	if p.cmd == nil {
		return
	}
	topic := p.topic("cmd")
	token := p.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		go p.handleCommand(string(msg.Payload()))
	})
	go p.await(token, "subscribe", topic)
}

func (p *Publisher) handleCommand(raw string) {
	ctx, cancel := context.WithTimeout(p.ctx, time.Minute)
	defer cancel()
	if err := Dispatch(ctx, p.cmd, raw); err != nil {
		p.logger.Warn("MQTT command failed", "cmd", raw, "err", err)
	}
}

// Dispatch runs one text command: refresh, scan, clients, internet,
// auto on, auto off.
func Dispatch(ctx context.Context, cmd Commander, raw string) error {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return fmt.Errorf("empty command")
	}
	switch fields[0] {
	case "refresh":
		return cmd.Refresh(ctx)
	case "scan":
		_, err := cmd.Scan(ctx)
		return err
	case "clients":
		_, err := cmd.LoadClients(ctx)
		return err
	case "internet":
		_, err := cmd.TestInternet(ctx)
		return err
	case "auto":
		if len(fields) != 2 {
			return fmt.Errorf("auto needs on or off")
		}
		switch fields[1] {
		case "on":
			cmd.SetAuto(true)
		case "off":
			cmd.SetAuto(false)
		default:
			return fmt.Errorf("auto needs on or off")
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", fields[0])
}

func (p *Publisher) topic(suffix string) string {
	return p.prefix + "/" + suffix
}

func (p *Publisher) publish(topic string, payload []byte, retained bool) {
	token := p.client.Publish(topic, 1, retained, payload)
	go p.await(token, "publish", topic)
}

// await logs a token that times out or completes with an error.
func (p *Publisher) await(token pahomqtt.Token, op, topic string) {
	if !token.WaitTimeout(5 * time.Second) {
		p.logger.Warn("MQTT "+op+" timeout", "topic", topic)
	} else if err := token.Error(); err != nil {
		p.logger.Warn("MQTT "+op+" error", "topic", topic, "err", err)
	}
}
