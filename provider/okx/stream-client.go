package okx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/recws-org/recws"

	"github.com/spooky-finn/go-orderbook-sync/domain"
)

const (
	handshakeTimeout = 5 * time.Second
	// Okx drops connections idle for 30s; ping well inside that.
	pingInterval = 20 * time.Second

	subscriberChanSize = 64
)

type wsArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type wsRequest struct {
	Op   string  `json:"op"`
	Args []wsArg `json:"args"`
}

type wsEvent struct {
	Event string `json:"event"`
	Arg   wsArg  `json:"arg"`
	Code  string `json:"code"`
	Msg   string `json:"msg"`
}

type subscriptionEntry struct {
	ch              chan []byte
	subscriberCount int
}

// StreamClient multiplexes okx public channels over one
// auto-reconnecting connection, keyed by channel:instId.
type StreamClient struct {
	endpoint string
	conn     *recws.RecConn
	writeMu  sync.Mutex

	mu            sync.Mutex
	subscriptions map[string]*subscriptionEntry
	done          chan struct{}
}

func NewStreamClient(endpoint string) *StreamClient {
	return &StreamClient{
		endpoint:      endpoint,
		subscriptions: make(map[string]*subscriptionEntry),
		done:          make(chan struct{}),
	}
}

func (c *StreamClient) Connect() error {
	conn := &recws.RecConn{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		NonVerbose:       true,
		SubscribeHandler: c.resubscribe,
	}
	conn.Dial(c.endpoint, nil)
	c.conn = conn

	go c.read()
	go c.pinger()
	return nil
}

// resubscribe runs after every (re)connect. The books channel re-sends
// a full snapshot to fresh subscriptions, so the book recovers without
// a REST fetch.
func (c *StreamClient) resubscribe() error {
	c.mu.Lock()
	args := make([]wsArg, 0, len(c.subscriptions))
	for topic := range c.subscriptions {
		channel, instID, ok := splitTopicKey(topic)
		if !ok {
			continue
		}
		args = append(args, wsArg{Channel: channel, InstID: instID})
	}
	c.mu.Unlock()

	if len(args) == 0 {
		return nil
	}

	logger.Infof("resubscribing to %d channels after reconnect", len(args))
	return c.writeJSON(wsRequest{Op: "subscribe", Args: args})
}

func (c *StreamClient) Subscribe(channel, instID string) (*domain.Subscription[[]byte], error) {
	topic := topicKey(channel, instID)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.subscriptions[topic]
	if ok {
		entry.subscriberCount++
	} else {
		entry = &subscriptionEntry{
			ch:              make(chan []byte, subscriberChanSize),
			subscriberCount: 1,
		}
		c.subscriptions[topic] = entry

		logger.Debugf("subscribing to %s", topic)
		if err := c.writeJSON(wsRequest{
			Op:   "subscribe",
			Args: []wsArg{{Channel: channel, InstID: instID}},
		}); err != nil {
			delete(c.subscriptions, topic)
			return nil, fmt.Errorf("failed to send subscribe msg for %s: %w", topic, err)
		}
	}

	return &domain.Subscription[[]byte]{
		Stream: entry.ch,
		Topic:  topic,
		Unsubscribe: func() {
			c.unsubscribe(channel, instID)
		},
	}, nil
}

func (c *StreamClient) unsubscribe(channel, instID string) {
	topic := topicKey(channel, instID)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.subscriptions[topic]
	if !ok {
		return
	}

	entry.subscriberCount--
	if entry.subscriberCount > 0 {
		return
	}

	// The channel is left open so a frame already routed by read()
	// cannot hit a closed channel. The entry just leaves the routing
	// table.
	delete(c.subscriptions, topic)

	if err := c.writeJSON(wsRequest{
		Op:   "unsubscribe",
		Args: []wsArg{{Channel: channel, InstID: instID}},
	}); err != nil {
		logger.Warnf("failed to send unsubscribe for %s: %s", topic, err)
	}
}

func (c *StreamClient) Close() error {
	close(c.done)
	c.conn.Close()
	return nil
}

func (c *StreamClient) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *StreamClient) pinger() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			c.writeMu.Unlock()
			if err != nil {
				logger.Warnf("ping failed: %s", err)
			}
		}
	}
}

func (c *StreamClient) read() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if string(msg) == "pong" {
			continue
		}

		var event wsEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			logger.Warnf("unparseable frame: %s", err)
			continue
		}

		if event.Event != "" {
			if event.Event == "error" {
				logger.Warnf("stream error %s: %s", event.Code, event.Msg)
			}
			continue
		}

		topic := topicKey(event.Arg.Channel, event.Arg.InstID)

		c.mu.Lock()
		entry, ok := c.subscriptions[topic]
		c.mu.Unlock()
		if !ok {
			continue
		}

		select {
		case entry.ch <- msg:
		default:
			logger.Debugf("subscriber for %s is lagging, frame dropped", topic)
		}
	}
}

func topicKey(channel, instID string) string {
	return channel + ":" + instID
}

func splitTopicKey(topic string) (channel, instID string, ok bool) {
	return strings.Cut(topic, ":")
}
