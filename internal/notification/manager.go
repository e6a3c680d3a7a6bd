package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/civicgrid/grievance-engine/internal/config"
)

// Audience identifies who a notification is for.
type Audience string

const (
	AudienceCitizen Audience = "citizen"
	AudienceStaff   Audience = "staff"
)

// Notification is one queued outbound message.
type Notification struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaint_id"`
	Audience    Audience  `json:"audience"`
	Recipient   string    `json:"recipient"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// Manager dispatches notifications asynchronously through a worker pool.
// Enqueueing never blocks callers in the request path: when the queue is full
// the notification is dropped and counted, because losing a courtesy message
// must never fail a lifecycle operation.
type Manager struct {
	config  config.NotificationsConfig
	logger  *slog.Logger
	client  Client
	limiter *rate.Limiter

	queue chan *Notification
	wg    sync.WaitGroup

	statsMutex sync.RWMutex
	stats      Stats
}

// Stats holds dispatch counters for the status endpoint.
type Stats struct {
	Enqueued  int64 `json:"enqueued"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// NewManager creates a notification manager. When no webhook URL is configured
// notifications are written to the log.
func NewManager(cfg config.NotificationsConfig, logger *slog.Logger) *Manager {
	var client Client
	if cfg.WebhookURL != "" {
		client = NewWebhookClient(cfg.WebhookURL, cfg.WebhookTimeout, cfg.MaxRetries)
	} else {
		client = NewLogClient(logger)
	}

	perSecond := rate.Limit(float64(cfg.RateLimitPerMin) / 60.0)
	if cfg.RateLimitPerMin <= 0 {
		perSecond = rate.Inf
	}

	return &Manager{
		config:  cfg,
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(perSecond, cfg.RateLimitPerMin),
		queue:   make(chan *Notification, cfg.QueueSize),
	}
}

// Start launches the worker pool.
func (m *Manager) Start() {
	workers := m.config.WorkerCount
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	m.logger.Info("Notification manager started", "workers", workers)
}

// Stop drains the queue and waits for workers to finish.
func (m *Manager) Stop() {
	close(m.queue)
	m.wg.Wait()
	m.logger.Info("Notification manager stopped")
}

// NotifyCitizen queues a notification to the reporting citizen.
func (m *Manager) NotifyCitizen(_ context.Context, complaintID, citizenRef, message string) {
	m.enqueue(&Notification{
		ID:          uuid.New().String(),
		ComplaintID: complaintID,
		Audience:    AudienceCitizen,
		Recipient:   citizenRef,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	})
}

// NotifyStaff queues a notification to a staff member.
func (m *Manager) NotifyStaff(_ context.Context, complaintID, staffID, message string) {
	m.enqueue(&Notification{
		ID:          uuid.New().String(),
		ComplaintID: complaintID,
		Audience:    AudienceStaff,
		Recipient:   staffID,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	})
}

func (m *Manager) enqueue(n *Notification) {
	if !m.config.Enabled {
		return
	}
	select {
	case m.queue <- n:
		m.statsMutex.Lock()
		m.stats.Enqueued++
		m.statsMutex.Unlock()
	default:
		m.statsMutex.Lock()
		m.stats.Dropped++
		m.statsMutex.Unlock()
		m.logger.Warn("Notification queue full, dropping",
			"complaint_id", n.ComplaintID, "audience", n.Audience)
	}
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()

	for n := range m.queue {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.WebhookTimeout+10*time.Second)

		if err := m.limiter.Wait(ctx); err != nil {
			cancel()
			m.recordFailure(n, err)
			continue
		}
		if err := m.client.Send(ctx, n); err != nil {
			cancel()
			m.recordFailure(n, err)
			continue
		}
		cancel()

		m.statsMutex.Lock()
		m.stats.Delivered++
		m.statsMutex.Unlock()

		m.logger.Debug("Notification delivered",
			"worker", id,
			"notification_id", n.ID,
			"complaint_id", n.ComplaintID)
	}
}

func (m *Manager) recordFailure(n *Notification, err error) {
	m.statsMutex.Lock()
	m.stats.Failed++
	m.statsMutex.Unlock()
	m.logger.Error("Notification delivery failed",
		"notification_id", n.ID,
		"complaint_id", n.ComplaintID,
		"error", err)
}

// GetStats returns a copy of the dispatch counters.
func (m *Manager) GetStats() Stats {
	m.statsMutex.RLock()
	defer m.statsMutex.RUnlock()
	return m.stats
}
