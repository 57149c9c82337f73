// Package publish mirrors board snapshots to an MQTT broker.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/jfoltran/uiregistry/internal/board"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt: timed out waiting for broker")

// Client is the part of mqtt.Client the Publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Options configures a Publisher and its broker connection.
type Options struct {
	URL      string
	ClientID string
	Username string
	Password string

	// Topic receives the full snapshot. Each counter's display string is
	// also published, retained, to Topic/counters/<name>.
	Topic    string
	QoS      byte
	Interval time.Duration
	Timeout  time.Duration
}

// Connect dials the broker described by opts.
func Connect(opts Options, logger zerolog.Logger) (mqtt.Client, error) {
	logger = logger.With().Str("component", "mqtt").Logger()
	co := mqtt.NewClientOptions().
		AddBroker(opts.URL).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info().Str("broker", opts.URL).Msg("connected")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn().Err(err).Msg("connection lost")
		})

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(timeoutOrDefault(opts.Timeout)) {
		return nil, fmt.Errorf("connect %s: %w", opts.URL, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.URL, err)
	}
	return client, nil
}

// Publisher forwards board snapshots to MQTT at most once per Interval.
type Publisher struct {
	client Client
	board  *board.Board
	opts   Options
	logger zerolog.Logger
	last   map[string]string
	sent   int
}

// New creates a Publisher. Call Run to start forwarding.
func New(client Client, b *board.Board, opts Options, logger zerolog.Logger) *Publisher {
	if opts.Interval <= 0 {
		opts.Interval = 250 * time.Millisecond
	}
	opts.Timeout = timeoutOrDefault(opts.Timeout)
	return &Publisher{
		client: client,
		board:  b,
		opts:   opts,
		logger: logger.With().Str("component", "publisher").Str("topic", opts.Topic).Logger(),
		last:   make(map[string]string),
	}
}

// Run forwards snapshots until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	ch := p.board.Subscribe()
	defer p.board.Unsubscribe(ch)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	var pending *board.Snapshot
	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				p.publishOrRecord(*pending)
			}
			return nil
		case snap := <-ch:
			pending = &snap
		case <-ticker.C:
			if pending == nil {
				continue
			}
			p.publishOrRecord(*pending)
			pending = nil
		}
	}
}

func (p *Publisher) publishOrRecord(snap board.Snapshot) {
	if err := p.Publish(snap); err != nil {
		p.logger.Err(err).Msg("publish snapshot")
		p.board.RecordError(err)
	}
}

// Publish sends snap to the snapshot topic and every changed counter
// display to its per-counter topic.
func (p *Publisher) Publish(snap board.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := p.send(p.opts.Topic, false, data); err != nil {
		return err
	}
	for _, c := range snap.Counters {
		if p.last[c.Name] == c.Display {
			continue
		}
		if err := p.send(CounterTopic(p.opts.Topic, c.Name), true, []byte(c.Display)); err != nil {
			return err
		}
		p.last[c.Name] = c.Display
	}
	p.sent++
	return nil
}

// Sent returns the number of snapshots published.
func (p *Publisher) Sent() int {
	return p.sent
}

func (p *Publisher) send(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, p.opts.QoS, retained, payload)
	if !token.WaitTimeout(p.opts.Timeout) {
		return fmt.Errorf("publish %s: %w", topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// CounterTopic returns the per-counter topic below base.
func CounterTopic(base, name string) string {
	return base + "/counters/" + name
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}
