package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

// Enable switches the maintenance mode on with the message to display.
func (m *Maintenance) Enable(msg string, at time.Time) {
	m.mu.Lock()
	m.message = msg
	m.started = at
	m.mu.Unlock()
	m.enabled.Store(true)
}

// Disable switches the maintenance mode off.
func (m *Maintenance) Disable() {
	m.enabled.Store(false)
	m.mu.Lock()
	m.message = ""
	m.started = time.Time{}
	m.mu.Unlock()
}

// Details returns the maintenance message and its start time.
func (m *Maintenance) Details() (string, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.message, m.started
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler defines the API handler.
type APIHandler struct {
	logger      *zap.Logger
	config      *Config
	stats       *Statistics
	mode        *Maintenance
	clock       Clocker
	idsHandler  UIDHandler
	limiter     *ClientsLimiter
	storage     Pinger
	bookService BookServiceProvider
}

// NewAPIHandler provides a new instance of APIHandler. A nil config
// falls back to the defaults and a nil storage is always reported ready.
func NewAPIHandler(logger *zap.Logger, config *Config, stats *Statistics, clock TickerClocker, idsHandler UIDHandler, storage Pinger, bs BookServiceProvider) *APIHandler {
	if config == nil {
		config = &Config{FrontendURL: DefaultFrontendURL}
	}
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	return &APIHandler{
		logger:      logger,
		config:      config,
		stats:       stats,
		mode:        &Maintenance{},
		clock:       clock,
		idsHandler:  idsHandler,
		limiter:     NewClientsLimiter(config.Server.RateLimit, config.Server.RateBurst, clock),
		storage:     storage,
		bookService: bs,
	}
}

// BackgroundJobs returns the long running jobs the handler needs.
func (api *APIHandler) BackgroundJobs() []func(context.Context) error {
	var jobs []func(context.Context) error
	if api.limiter != nil {
		jobs = append(jobs, api.limiter.Janitor)
	}
	return jobs
}
