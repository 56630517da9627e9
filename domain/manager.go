package domain

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultBooksChanSize = 256

// BookRequest names one (exchange, symbol) book to maintain.
type BookRequest struct {
	Exchange string
	Symbol   *MarketSymbol
}

// Manager owns all per-symbol synchronizers and is the only external
// surface of the engine: start/stop, current book reads, stats, and
// the applied-book event stream.
type Manager struct {
	cfg      SynchronizerConfig
	resolver AdapterResolver
	counters *Counters
	books    chan *OrderBookView

	mu    sync.RWMutex
	syncs map[string]*Synchronizer

	logger *logrus.Entry
}

func NewManager(resolver AdapterResolver, cfg SynchronizerConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		resolver: resolver,
		counters: &Counters{},
		books:    make(chan *OrderBookView, defaultBooksChanSize),
		syncs:    make(map[string]*Synchronizer),
		logger:   logrus.WithField("component", "orderbook-manager"),
	}
}

// Start registers every requested book and launches its synchronizer.
// A book that is already registered is left running untouched.
func (m *Manager) Start(requests []BookRequest) error {
	for _, req := range requests {
		if err := m.Register(req.Exchange, req.Symbol); err != nil {
			return fmt.Errorf("failed to start %s %s: %w", req.Exchange, req.Symbol, err)
		}
	}

	return nil
}

func (m *Manager) Register(exchange string, symbol *MarketSymbol) error {
	adapter, err := m.resolver.Adapter(exchange)
	if err != nil {
		return err
	}

	key := bookKey(exchange, symbol)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.syncs[key]; ok {
		return nil
	}

	syncer := NewSynchronizer(adapter, symbol, m.cfg, m.counters, m.books)
	if err := syncer.Start(); err != nil {
		return err
	}

	m.syncs[key] = syncer
	m.logger.Infof("registered %s on %s", symbol, exchange)
	return nil
}

// Unregister stops and discards one symbol's synchronizer.
func (m *Manager) Unregister(exchange string, symbol *MarketSymbol) error {
	key := bookKey(exchange, symbol)

	m.mu.Lock()
	syncer, ok := m.syncs[key]
	delete(m.syncs, key)
	m.mu.Unlock()

	if !ok {
		return ErrOrderBookNotFound
	}

	syncer.Stop()
	return nil
}

// Stop shuts every synchronizer down cooperatively and closes the
// event stream.
func (m *Manager) Stop() {
	m.mu.Lock()
	syncs := m.syncs
	m.syncs = make(map[string]*Synchronizer)
	m.mu.Unlock()

	wg := sync.WaitGroup{}
	for _, s := range syncs {
		wg.Add(1)
		go func(s *Synchronizer) {
			defer wg.Done()
			s.Stop()
		}(s)
	}
	wg.Wait()

	close(m.books)
	m.logger.Info("all synchronizers stopped")
}

// OrderBook returns the current book view, or false while the symbol
// is unknown or unsynced. Unsynced means "data temporarily
// unavailable", not an error.
func (m *Manager) OrderBook(exchange string, symbol *MarketSymbol) (*OrderBookView, bool) {
	m.mu.RLock()
	s, ok := m.syncs[bookKey(exchange, symbol)]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}

	return s.CurrentView()
}

// Books is the applied-update event stream consumed by the downstream
// fan-out layer. Views are dropped, not queued, when the consumer
// lags.
func (m *Manager) Books() <-chan *OrderBookView {
	return m.books
}

func (m *Manager) Stats() Stats {
	stats := m.counters.Stats()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for key, s := range m.syncs {
		stats.Symbols[key] = s.SymbolStats()
	}

	return stats
}

func bookKey(exchange string, symbol *MarketSymbol) string {
	return exchange + "/" + symbol.String()
}
