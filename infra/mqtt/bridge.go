// Package mqtt bridges the in-process relay to an MQTT broker so mobile
// clients can participate in relay groups over a plain broker connection.
// Outbound group traffic is published to roadassist/<group>/out; inbound
// client messages arrive on roadassist/<group>/in and are handed to the
// registered inbound handler.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/aapatcall/roadassist/core/relay"
	"github.com/aapatcall/roadassist/infra/logger"
)

const (
	topicPrefix    = "roadassist"
	inboundFilter  = topicPrefix + "/+/in"
	outboundSuffix = "out"
)

// InboundHandler receives messages clients publish to a group's inbound topic.
type InboundHandler func(group string, msg relay.Message)

// pahoClient is the subset of the Paho client the bridge needs; tests swap in
// a fake through newMQTTClient.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Bridge connects a relay.Bus to an MQTT broker.
type Bridge struct {
	cli     pahoClient
	bus     *relay.Bus
	inbound InboundHandler
	log     logger.Logger

	qos        map[string]byte
	maxRetries int
	backoff    time.Duration

	mu    sync.Mutex
	conns map[string]*BridgeConn
}

// NewBridge connects to the broker, subscribes to the inbound topic filter,
// and returns a Bridge publishing through bus.
func NewBridge(cfg Config, bus *relay.Bus, inbound InboundHandler) (*Bridge, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_bridge")
	b := &Bridge{
		bus:        bus,
		inbound:    inbound,
		log:        log,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		conns:      make(map[string]*BridgeConn),
	}
	if b.maxRetries <= 0 {
		b.maxRetries = 3
	}
	if b.backoff <= 0 {
		b.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		qos := byte(0)
		if q, ok := b.qos["inbound"]; ok {
			qos = q
		}
		if token := c.Subscribe(inboundFilter, qos, b.onInbound); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	b.cli = c
	return b, nil
}

func (b *Bridge) onInbound(_ paho.Client, m paho.Message) {
	group, ok := groupFromTopic(m.Topic())
	if !ok {
		b.log.Warnf("inbound on unrecognized topic %s", m.Topic())
		return
	}
	var msg relay.Message
	if err := json.Unmarshal(m.Payload(), &msg); err != nil {
		b.log.Errorf("failed to decode inbound message on %s: %v", m.Topic(), err)
		return
	}
	if b.inbound != nil {
		b.inbound(group, msg)
	}
}

func groupFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != topicPrefix || parts[2] != "in" {
		return "", false
	}
	return parts[1], true
}

// Attach joins the given relay group with a connection that republishes
// everything to the group's outbound MQTT topic. Attaching the same group
// twice returns the existing connection.
func (b *Bridge) Attach(group string) *BridgeConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.conns[group]; ok {
		return c
	}
	c := &BridgeConn{
		bridge: b,
		connID: "mqtt:" + group,
		topic:  fmt.Sprintf("%s/%s/%s", topicPrefix, group, outboundSuffix),
	}
	b.conns[group] = c
	b.bus.Join(group, c)
	return c
}

// Detach leaves the relay group and drops the bridged connection.
func (b *Bridge) Detach(group string) {
	b.mu.Lock()
	c, ok := b.conns[group]
	delete(b.conns, group)
	b.mu.Unlock()
	if ok {
		b.bus.Leave(group, c)
	}
}

func (b *Bridge) publish(topic string, payload []byte) error {
	qos := byte(0)
	if q, ok := b.qos["outbound"]; ok {
		qos = q
	}
	var publishErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		token := b.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		b.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(b.backoff * time.Duration(1<<attempt))
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (b *Bridge) Disconnect() {
	if b.cli != nil && b.cli.IsConnected() {
		b.cli.Disconnect(250)
	}
}

// BridgeConn is a relay.Conn whose deliveries go out over MQTT.
type BridgeConn struct {
	bridge *Bridge
	connID string
	topic  string
}

func (c *BridgeConn) ID() string { return c.connID }

// Send marshals the message and publishes it to the group's outbound topic.
func (c *BridgeConn) Send(msg relay.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.bridge.publish(c.topic, payload)
}
