package mqttclient

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/metrics"
)

// publishConn is the part of mqtt.Client the publisher uses.
type publishConn interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher sends run notifications to an MQTT broker.
type Publisher struct {
	conn      publishConn
	prefix    string
	timeout   time.Duration
	connected atomic.Bool
	log       zerolog.Logger
}

type Options struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	Log         zerolog.Logger
}

// Connect dials the broker and returns a publisher. The client reconnects
// on its own after a lost connection.
func Connect(opts Options) (*Publisher, error) {
	p := &Publisher{
		prefix:  strings.Trim(opts.TopicPrefix, "/"),
		timeout: 5 * time.Second,
		log:     opts.Log.With().Str("component", "mqtt").Logger(),
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	conn := mqtt.NewClient(clientOpts)
	token := conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func (p *Publisher) onConnect(_ mqtt.Client) {
	p.connected.Store(true)
	p.log.Info().Str("prefix", p.prefix).Msg("mqtt connected")
}

func (p *Publisher) onConnectionLost(_ mqtt.Client, err error) {
	p.connected.Store(false)
	p.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

// Topic returns the full topic for a sub-path.
func (p *Publisher) Topic(parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if p.prefix != "" {
		all = append(all, p.prefix)
	}
	for _, s := range parts {
		if s = strings.Trim(s, "/"); s != "" {
			all = append(all, s)
		}
	}
	return strings.Join(all, "/")
}

// Publish JSON-encodes payload and sends it at QoS 1 to <prefix>/<parts...>.
func (p *Publisher) Publish(payload any, parts ...string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	topic := p.Topic(parts...)
	token := p.conn.Publish(topic, 1, false, data)
	if !token.WaitTimeout(p.timeout) {
		metrics.MQTTPublishedTotal.WithLabelValues("timeout").Inc()
		return fmt.Errorf("mqtt publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		metrics.MQTTPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	metrics.MQTTPublishedTotal.WithLabelValues("ok").Inc()
	p.log.Debug().Str("topic", topic).Int("bytes", len(data)).Msg("mqtt published")
	return nil
}

func (p *Publisher) IsConnected() bool {
	return p.connected.Load()
}

func (p *Publisher) Close() {
	p.log.Info().Msg("disconnecting mqtt client")
	p.conn.Disconnect(1000)
}
