/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus fans the in-process event stream out across
// instances over NATS. Local subscribers always receive events through
// the in-memory bus; NATS mirrors them to the other replicas.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/events"
)

const subjectPrefix = "muninn.events."

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Token         string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSBus bridges the in-memory event bus to a NATS subject per event
// type. Remote events are replayed onto the local bus; events
// originating from this node are not re-delivered.
type NATSBus struct {
	conn   *nats.Conn
	local  *events.Bus
	logger zerolog.Logger
	nodeID string
	subs   []*nats.Subscription
}

// NewNATSBus connects to NATS and wraps the given local bus.
func NewNATSBus(cfg NATSConfig, local *events.Bus, logger zerolog.Logger) (*NATSBus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.Name("muninn"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	bus := &NATSBus{
		conn:   conn,
		local:  local,
		logger: logger.With().Str("component", "nats_bus").Logger(),
		nodeID: generateNodeID(),
	}

	bus.logger.Info().Str("url", cfg.URL).Str("node_id", bus.nodeID).Msg("connected to nats")
	return bus, nil
}

// Mirror subscribes to the NATS subjects for the given event types and
// replays remote events onto the local bus.
func (nb *NATSBus) Mirror(eventTypes ...events.EventType) error {
	for _, eventType := range eventTypes {
		et := eventType
		sub, err := nb.conn.Subscribe(subjectPrefix+string(et), func(msg *nats.Msg) {
			remote, err := unmarshalNATSMessage(msg.Data)
			if err != nil {
				nb.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed nats message")
				return
			}
			if remote.NodeID == nb.nodeID {
				return // our own publish echoed back
			}
			nb.local.Publish(remote.EventType, remote.Payload)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", et, err)
		}
		nb.subs = append(nb.subs, sub)
	}
	return nil
}

// Publish delivers locally and mirrors the event to the other nodes.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.local.Publish(eventType, payload)

	data, err := marshalNATSMessage(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("marshal nats message")
		return
	}
	if err := nb.conn.Publish(subjectPrefix+string(eventType), data); err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("publish to nats")
	}
}

// Subscribe registers a local subscriber for an event type.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	return nb.local.Subscribe(eventType)
}

// Unsubscribe removes a local subscriber.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.local.Unsubscribe(eventType, sub)
}

// Close drains subscriptions and closes the NATS connection.
func (nb *NATSBus) Close() error {
	for _, sub := range nb.subs {
		if err := sub.Unsubscribe(); err != nil {
			nb.logger.Warn().Err(err).Msg("unsubscribe nats subject")
		}
	}
	return nb.conn.Drain()
}

// natsMessage represents a message published to NATS.
type natsMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"` // For deduplication
}

func marshalNATSMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := natsMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    nodeID,
		MessageID: uuid.New().String(),
	}
	return json.Marshal(msg)
}

func unmarshalNATSMessage(data []byte) (*natsMessage, error) {
	var msg natsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal nats message: %w", err)
	}
	return &msg, nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.New().String()
	}
	return fmt.Sprintf("%s-%s", host, uuid.New().String()[:8])
}
