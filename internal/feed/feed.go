// Package feed connects the generator to a live MQTT broker. The core
// only ever consumes plain records; reconnect and backoff stay inside
// this boundary.
package feed

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/yourorg/asyncdoc/internal/config"
	"github.com/yourorg/asyncdoc/internal/ingest"
	"github.com/yourorg/asyncdoc/internal/metrics"
	"github.com/yourorg/asyncdoc/pkg/types"
)

// Handler receives feed events. Nil callbacks are skipped.
type Handler struct {
	OnMessage      func(types.Record)
	OnConnected    func()
	OnDisconnected func(error)
	OnError        func(error)
}

// Listener is a live record source.
type Listener interface {
	Start(ctx context.Context) error
	Stop()
}

// MQTTListener subscribes to the configured topics and forwards every
// decodable payload as a record.
type MQTTListener struct {
	cfg     config.MQTTConfig
	handler Handler
	logger  zerolog.Logger
	client  mqtt.Client
}

const (
	connectTimeout       = 10 * time.Second
	maxReconnectInterval = 30 * time.Second
	disconnectQuiesceMs  = 250
)

// NewMQTT builds a listener from config. Start must be called before any
// event fires.
func NewMQTT(cfg config.MQTTConfig, handler Handler, logger zerolog.Logger) *MQTTListener {
	return &MQTTListener{cfg: cfg, handler: handler, logger: logger}
}

// Start connects to the broker and subscribes. It returns once the
// initial connect attempt resolves; reconnects happen in the background.
func (l *MQTTListener) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(l.cfg.BrokerURL).
		SetClientID(l.cfg.ClientID).
		SetUsername(l.cfg.Username).
		SetPassword(l.cfg.Password).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(maxReconnectInterval).
		SetConnectTimeout(connectTimeout)

	opts.OnConnect = func(client mqtt.Client) {
		l.logger.Info().Str("broker", l.cfg.BrokerURL).Msg("connected")
		if err := l.subscribe(client); err != nil {
			l.emitError(err)
			return
		}
		if l.handler.OnConnected != nil {
			l.handler.OnConnected()
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		l.logger.Warn().Err(err).Msg("connection lost")
		if l.handler.OnDisconnected != nil {
			l.handler.OnDisconnected(err)
		}
	}
	opts.OnReconnecting = func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		metrics.FeedReconnects.Inc()
		l.logger.Info().Msg("reconnecting")
	}

	l.client = mqtt.NewClient(opts)
	token := l.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to %s: timeout", l.cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", l.cfg.BrokerURL, err)
	}

	go func() {
		<-ctx.Done()
		l.Stop()
	}()
	return nil
}

func (l *MQTTListener) subscribe(client mqtt.Client) error {
	filters := make(map[string]byte, len(l.cfg.Topics))
	for _, t := range l.cfg.Topics {
		filters[t] = byte(l.cfg.QoS)
	}
	token := client.SubscribeMultiple(filters, l.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	l.logger.Info().Strs("topics", l.cfg.Topics).Msg("subscribed")
	return nil
}

func (l *MQTTListener) onMessage(_ mqtt.Client, msg mqtt.Message) {
	rec, err := ingest.ParsePayload(msg.Topic(), msg.Payload(), time.Now().UTC())
	if err != nil {
		metrics.RecordsRejected.WithLabelValues("live").Inc()
		l.logger.Debug().Str("topic", msg.Topic()).Err(err).Msg("dropping undecodable payload")
		return
	}
	metrics.RecordsIngested.WithLabelValues("live").Inc()
	if l.handler.OnMessage != nil {
		l.handler.OnMessage(rec)
	}
}

func (l *MQTTListener) emitError(err error) {
	l.logger.Error().Err(err).Msg("feed error")
	if l.handler.OnError != nil {
		l.handler.OnError(err)
	}
}

// Stop disconnects from the broker.
func (l *MQTTListener) Stop() {
	if l.client != nil && l.client.IsConnected() {
		l.client.Disconnect(disconnectQuiesceMs)
	}
}
