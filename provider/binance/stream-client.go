package binance

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/recws-org/recws"

	"github.com/spooky-finn/go-orderbook-sync/domain"
)

const (
	handshakeTimeout = 5 * time.Second
	// Binance closes idle combined streams after ~10 minutes without a
	// pong; recws keeps the keepalive below that.
	keepAliveTimeout = 9 * time.Minute

	subscriberChanSize = 64
)

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
	ID     *int            `json:"id"`
}

type wsRequest struct {
	ReqID  int      `json:"id"`
	Method string   `json:"method"`
	Params []string `json:"params"`
}

type subscriptionEntry struct {
	ch              chan []byte
	subscriberCount int
}

// StreamClient multiplexes topics over one auto-reconnecting combined
// stream connection. Subscribers get the unwrapped data payload.
type StreamClient struct {
	endpoint string
	conn     *recws.RecConn

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
		KeepAliveTimeout: keepAliveTimeout,
		NonVerbose:       true,
		SubscribeHandler: c.resubscribe,
	}
	conn.Dial(c.endpoint, nil)
	c.conn = conn

	go c.read()
	return nil
}

// resubscribe runs after every (re)connect so active topics survive a
// dropped connection. Duplicate SUBSCRIBE frames are harmless.
func (c *StreamClient) resubscribe() error {
	c.mu.Lock()
	topics := make([]string, 0, len(c.subscriptions))
	for topic := range c.subscriptions {
		topics = append(topics, topic)
	}
	c.mu.Unlock()

	if len(topics) == 0 {
		return nil
	}

	logger.Infof("resubscribing to %d topics after reconnect", len(topics))
	return c.conn.WriteJSON(wsRequest{
		Method: "SUBSCRIBE",
		ReqID:  randomReqID(),
		Params: topics,
	})
}

func (c *StreamClient) Subscribe(topic string) (*domain.Subscription[[]byte], error) {
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
		err := c.conn.WriteJSON(wsRequest{
			Method: "SUBSCRIBE",
			ReqID:  randomReqID(),
			Params: []string{topic},
		})
		if err != nil {
			delete(c.subscriptions, topic)
			return nil, fmt.Errorf("failed to send subscribe msg for topic %s: %w", topic, err)
		}
	}

	return &domain.Subscription[[]byte]{
		Stream: entry.ch,
		Topic:  topic,
		Unsubscribe: func() {
			c.unsubscribe(topic)
		},
	}, nil
}

func (c *StreamClient) unsubscribe(topic string) {
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

	// The channel stays open: read() may be about to send a frame it
	// looked up before this call, and subscribers exit on their own
	// stop signal. The entry is simply dropped from routing.
	delete(c.subscriptions, topic)

	err := c.conn.WriteJSON(wsRequest{
		Method: "UNSUBSCRIBE",
		ReqID:  randomReqID(),
		Params: []string{topic},
	})
	if err != nil {
		logger.Warnf("failed to send unsubscribe for topic %s: %s", topic, err)
	}
}

func (c *StreamClient) Close() error {
	close(c.done)
	c.conn.Close()
	return nil
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
			// recws redials on its own, just avoid a hot loop.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		var envelope streamEnvelope
		if err := json.Unmarshal(msg, &envelope); err != nil {
			logger.Warnf("unparseable frame: %s", err)
			continue
		}

		// Subscribe/unsubscribe acks carry an id and no stream name.
		if envelope.Stream == "" {
			continue
		}

		c.mu.Lock()
		entry, ok := c.subscriptions[envelope.Stream]
		c.mu.Unlock()
		if !ok {
			continue
		}

		select {
		case entry.ch <- envelope.Data:
		default:
			logger.Debugf("subscriber for %s is lagging, frame dropped", envelope.Stream)
		}
	}
}

func randomReqID() int {
	min, max := 10000, 9999999
	return min + rand.Intn(max-min)
}
