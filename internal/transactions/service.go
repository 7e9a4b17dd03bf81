// Package transactions records purchases and notifies about their outcome.
package transactions

import (
	"context"
	"fmt"
	"strings"

	"github.com/microtrax/microtrax/internal/datastore"
	"github.com/microtrax/microtrax/internal/errors"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/notification"
	"github.com/microtrax/microtrax/internal/settings"
)

// Store is the transaction persistence the service needs.
type Store interface {
	CreateTransaction(ctx context.Context, tx *datastore.Transaction) error
	GetTransaction(ctx context.Context, id string) (*datastore.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status datastore.TransactionStatus, reason string) (*datastore.Transaction, error)
}

// Notifier dispatches notifications. *notification.Manager satisfies it.
type Notifier interface {
	Notify(ctx context.Context, t notification.Type, data map[string]any, recipients []notification.Recipient, opts ...notification.NotifyOption) map[string]*notification.Result
}

// Preferences returns the current event switches.
type Preferences interface {
	Get(ctx context.Context) (settings.AppSettings, error)
}

// CreateRequest starts a purchase.
type CreateRequest struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// Validate checks the required fields.
func (r CreateRequest) Validate() error {
	var missing []string
	if r.UserID == "" {
		missing = append(missing, "user_id")
	}
	if r.ProductID == "" {
		missing = append(missing, "product_id")
	}
	if len(r.Currency) != 3 {
		missing = append(missing, "currency")
	}
	if len(missing) > 0 {
		return errors.Newf("missing or invalid fields: %s", strings.Join(missing, ", ")).
			Component("transactions").
			Category(errors.CategoryValidation).
			Build()
	}
	if r.Amount <= 0 {
		return errors.Newf("amount must be positive, got %d", r.Amount).
			Component("transactions").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Service runs the purchase lifecycle.
type Service struct {
	store    Store
	notifier Notifier
	prefs    Preferences
	log      logger.Logger
}

// NewService wires a transaction service. prefs may be nil, in which case
// every event is sent.
func NewService(store Store, notifier Notifier, prefs Preferences) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		prefs:    prefs,
		log:      logger.Global().Module("transactions"),
	}
}

// Create stores a pending transaction and announces it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*datastore.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	tx := &datastore.Transaction{
		UserID:      req.UserID,
		Email:       req.Email,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Amount:      req.Amount,
		Currency:    strings.ToUpper(req.Currency),
		Status:      datastore.TransactionPending,
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	s.notify(ctx, notification.TypeTransactionCreated, tx)
	return tx, nil
}

// Complete marks a pending transaction as paid.
func (s *Service) Complete(ctx context.Context, id string) (*datastore.Transaction, error) {
	tx, err := s.store.UpdateTransactionStatus(ctx, id, datastore.TransactionCompleted, "")
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notification.TypeTransactionCompleted, tx)
	return tx, nil
}

// Fail marks a pending transaction as failed with reason.
func (s *Service) Fail(ctx context.Context, id, reason string) (*datastore.Transaction, error) {
	tx, err := s.store.UpdateTransactionStatus(ctx, id, datastore.TransactionFailed, reason)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notification.TypeTransactionFailed, tx)
	return tx, nil
}

// Get returns one transaction.
func (s *Service) Get(ctx context.Context, id string) (*datastore.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// notify never fails the caller; delivery problems are logged by the manager.
func (s *Service) notify(ctx context.Context, t notification.Type, tx *datastore.Transaction) {
	if !s.allowed(ctx, t) {
		s.log.Debug("notification disabled by settings",
			logger.String("type", t.String()),
			logger.String("transaction_id", tx.ID))
		return
	}

	var recipients []notification.Recipient
	if tx.Email != "" {
		recipients = append(recipients, notification.Recipient{ID: tx.Email, Type: notification.RecipientEmail})
	}
	recipients = append(recipients, notification.Recipient{ID: tx.UserID})

	results := s.notifier.Notify(ctx, t, eventData(tx), recipients)
	for name, res := range results {
		if !res.Succeeded() {
			s.log.Warn("transaction notification not delivered",
				logger.String("provider", name),
				logger.String("transaction_id", tx.ID),
				logger.String("status", string(res.Status)))
		}
	}
}

func (s *Service) allowed(ctx context.Context, t notification.Type) bool {
	if s.prefs == nil {
		return true
	}
	current, err := s.prefs.Get(ctx)
	if err != nil {
		// fall back to sending rather than dropping the event
		s.log.Warn("could not read notification preferences", logger.Error(err))
		return true
	}
	return current.NotificationsFor(t)
}

// eventData is the template data for transaction events.
func eventData(tx *datastore.Transaction) map[string]any {
	data := map[string]any{
		"transaction_id": tx.ID,
		"amount":         formatAmount(tx.Amount, tx.Currency),
		"status":         string(tx.Status),
		"product": map[string]any{
			"id":   tx.ProductID,
			"name": tx.ProductName,
		},
		"user": map[string]any{
			"id":    tx.UserID,
			"email": tx.Email,
		},
	}
	if tx.FailureReason != "" {
		data["reason"] = tx.FailureReason
	}
	return data
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}
