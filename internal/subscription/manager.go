package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mixelka/mailhook/internal/graph"
	"github.com/mixelka/mailhook/pkg/models"
)

// ErrNoSubscriptions is returned by Start when no target folder could be subscribed
var ErrNoSubscriptions = errors.New("no subscriptions created")

// State of the subscription lifecycle
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateRenewing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateRenewing:
		return "renewing"
	case StateTerminated:
		return "terminated"
	default:
		return "uninitialized"
	}
}

// Healthy reports whether notifications are expected to be delivered
func (s State) Healthy() bool {
	return s == StateActive || s == StateRenewing
}

// API is the part of the remote API the manager uses
type API interface {
	FolderIDByName(ctx context.Context, name string) (string, error)
	CreateSubscription(ctx context.Context, sub graph.Subscription) (*graph.Subscription, error)
	RenewSubscription(ctx context.Context, id string, expiration time.Time) (*graph.Subscription, error)
}

// Config for the subscription manager
type Config struct {
	CallbackURL   string
	Folders       []string // display names
	ClientState   string
	ChangeType    string
	Lifetime      time.Duration // requested lifetime of a new or renewed subscription
	RenewMargin   time.Duration
	PollInterval  time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

// AlertHandler receives alerts raised by the manager
type AlertHandler func(alert models.Alert)

type tracked struct {
	folder     string
	folderID   string
	id         string
	expiration time.Time
}

// Manager creates one subscription per target folder and keeps it renewed
type Manager struct {
	api     API
	cfg     Config
	logger  *slog.Logger
	onAlert AlertHandler
	now     func() time.Time

	mu      sync.RWMutex
	state   State
	subs    []*tracked
	lastErr error
}

// NewManager creates a new subscription manager
func NewManager(api API, cfg Config, logger *slog.Logger) *Manager {
	if cfg.ChangeType == "" {
		cfg.ChangeType = "created,updated"
	}
	return &Manager{
		api:    api,
		cfg:    cfg,
		logger: logger.With("component", "subscription_manager"),
		now:    time.Now,
	}
}

// SetAlertHandler sets the handler for fatal conditions
func (m *Manager) SetAlertHandler(handler AlertHandler) {
	m.onAlert = handler
}

// NeedsRenewal reports whether a subscription expiring at exp must be renewed now
func NeedsRenewal(exp, now time.Time, margin time.Duration) bool {
	return exp.Sub(now) <= margin
}

// Start creates a subscription for every target folder. Folders that do not
// exist are logged and skipped.
func (m *Manager) Start(ctx context.Context) error {
	var subs []*tracked
	for _, folder := range m.cfg.Folders {
		folderID, err := m.api.FolderIDByName(ctx, folder)
		if err != nil {
			var cfgErr *graph.ConfigurationError
			if errors.As(err, &cfgErr) {
				m.logger.Error("target folder not found, skipping", "folder", folder, "error", err)
				continue
			}
			return m.terminate(fmt.Errorf("failed to resolve folder %s: %w", folder, err))
		}

		t := &tracked{folder: folder, folderID: folderID}
		if err := m.create(ctx, t); err != nil {
			return m.terminate(err)
		}
		subs = append(subs, t)
	}

	if len(subs) == 0 {
		return m.terminate(ErrNoSubscriptions)
	}

	m.mu.Lock()
	m.subs = subs
	m.state = StateActive
	m.mu.Unlock()
	return nil
}

// Check renews every subscription whose remaining lifetime is within the margin
func (m *Manager) Check(ctx context.Context) error {
	m.mu.RLock()
	subs := m.subs
	m.mu.RUnlock()

	for _, t := range subs {
		m.mu.RLock()
		exp := t.expiration
		m.mu.RUnlock()

		remaining := exp.Sub(m.now())
		m.logger.Debug("subscription status",
			"folder", t.folder,
			"subscription_id", t.id,
			"minutes_remaining", int(remaining.Minutes()),
		)
		if !NeedsRenewal(exp, m.now(), m.cfg.RenewMargin) {
			continue
		}

		m.setState(StateRenewing)
		if err := m.renew(ctx, t); err != nil {
			return m.terminate(err)
		}
		m.setState(StateActive)
	}
	return nil
}

// Run starts the subscriptions if needed, then checks them every poll
// interval until ctx is cancelled or renewal fails for good
func (m *Manager) Run(ctx context.Context) error {
	if m.State() == StateUninitialized {
		if err := m.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("subscription manager stopped")
			return nil
		case <-ticker.C:
			if err := m.Check(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// create registers a new subscription for t's folder
func (m *Manager) create(ctx context.Context, t *tracked) error {
	requested := m.now().Add(m.cfg.Lifetime)
	sub := graph.Subscription{
		ChangeType:         m.cfg.ChangeType,
		NotificationURL:    m.cfg.CallbackURL,
		Resource:           graph.FolderMessagesResource(t.folderID),
		ExpirationDateTime: graph.FormatTime(requested),
		ClientState:        m.cfg.ClientState,
	}

	created, err := m.retry(ctx, "create", func() (*graph.Subscription, error) {
		return m.api.CreateSubscription(ctx, sub)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to folder %s: %w", t.folder, err)
	}

	m.mu.Lock()
	t.id = created.ID
	t.expiration = m.expirationOf(created, requested)
	m.mu.Unlock()

	m.logger.Info("subscription created",
		"folder", t.folder,
		"subscription_id", created.ID,
		"expires", t.expiration,
	)
	return nil
}

// renew extends t, recreating it when the provider no longer knows it
func (m *Manager) renew(ctx context.Context, t *tracked) error {
	requested := m.now().Add(m.cfg.Lifetime)

	renewed, err := m.retry(ctx, "renew", func() (*graph.Subscription, error) {
		sub, err := m.api.RenewSubscription(ctx, t.id, requested)
		if graph.IsNotFound(err) {
			return nil, backoff.Permanent(err)
		}
		return sub, err
	})
	if graph.IsNotFound(err) {
		m.logger.Warn("subscription lost, recreating", "folder", t.folder, "subscription_id", t.id)
		return m.create(ctx, t)
	}
	if err != nil {
		return fmt.Errorf("failed to renew subscription %s: %w", t.id, err)
	}

	m.mu.Lock()
	t.expiration = m.expirationOf(renewed, requested)
	m.mu.Unlock()

	m.logger.Info("subscription renewed",
		"folder", t.folder,
		"subscription_id", t.id,
		"expires", t.expiration,
	)
	return nil
}

// retry runs fn with exponential backoff, at most MaxRetries retries.
// Failures that cannot succeed on repeat are returned at once.
func (m *Manager) retry(ctx context.Context, op string, fn func() (*graph.Subscription, error)) (*graph.Subscription, error) {
	interval := m.cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	var b backoff.BackOff = &backoff.StopBackOff{}
	if m.cfg.MaxRetries > 0 {
		b = backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(interval),
			backoff.WithMaxInterval(interval*8),
			backoff.WithMaxElapsedTime(0),
		), uint64(m.cfg.MaxRetries))
	}
	policy := backoff.WithContext(b, ctx)

	return backoff.RetryNotifyWithData(func() (*graph.Subscription, error) {
		sub, err := fn()
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return sub, err
	}, policy, func(err error, next time.Duration) {
		m.logger.Warn("subscription request failed, retrying", "op", op, "error", err, "retry_in", next)
	})
}

func retryable(err error) bool {
	var trErr *graph.TransientError
	if errors.As(err, &trErr) {
		return true
	}
	var upErr *graph.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Retryable() || graph.IsNotFound(err)
	}
	return false
}

// expirationOf returns the expiration the provider granted, or the requested
// one when the response does not carry a usable value
func (m *Manager) expirationOf(sub *graph.Subscription, requested time.Time) time.Time {
	exp, err := sub.Expiration()
	if err != nil {
		m.logger.Warn("subscription response has no usable expiration", "subscription_id", sub.ID, "error", err)
		return requested.UTC()
	}
	return exp
}

// terminate records a fatal error, stops the lifecycle and raises an alert
func (m *Manager) terminate(err error) error {
	m.mu.Lock()
	m.state = StateTerminated
	m.lastErr = err
	m.mu.Unlock()

	m.logger.Error("subscription manager terminated, notifications will stop", "error", err)

	if m.onAlert != nil {
		m.onAlert(models.Alert{
			Severity:  models.AlertCritical,
			Component: "subscription",
			Title:     "Subscription lifecycle terminated",
			Detail:    err.Error(),
			Time:      m.now(),
		})
	}
	return err
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SubscriptionStatus describes one managed subscription
type SubscriptionStatus struct {
	Folder           string    `json:"folder"`
	ID               string    `json:"id"`
	Expiration       time.Time `json:"expiration"`
	MinutesRemaining int       `json:"minutes_remaining"`
}

// Status is a snapshot of the manager for health reporting
type Status struct {
	State         string               `json:"state"`
	Healthy       bool                 `json:"healthy"`
	Subscriptions []SubscriptionStatus `json:"subscriptions"`
	Error         string               `json:"error,omitempty"`
}

// Status returns a snapshot of the lifecycle
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	st := Status{
		State:         m.state.String(),
		Healthy:       m.state.Healthy(),
		Subscriptions: make([]SubscriptionStatus, 0, len(m.subs)),
	}
	for _, t := range m.subs {
		st.Subscriptions = append(st.Subscriptions, SubscriptionStatus{
			Folder:           t.folder,
			ID:               t.id,
			Expiration:       t.expiration,
			MinutesRemaining: int(t.expiration.Sub(now).Minutes()),
		})
	}
	if m.lastErr != nil {
		st.Error = m.lastErr.Error()
	}
	return st
}
