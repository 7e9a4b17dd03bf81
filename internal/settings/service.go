package settings

import (
	"context"
	"encoding/json"
	"html"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/datastore"
	"github.com/microtrax/microtrax/internal/errors"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/notification"
)

const (
	cacheTTL = 5 * time.Minute

	// minVAPIDKeyLength is the shortest key accepted before new keys are generated.
	minVAPIDKeyLength = 16
)

// Store is the persistence the service needs. datastore.Interface satisfies it.
type Store interface {
	GetSettings(ctx context.Context, teamID string) (*datastore.SettingsRecord, error)
	SaveSettings(ctx context.Context, teamID, data string) (*datastore.SettingsRecord, error)
}

// Service loads and saves the settings of one team and applies them to the
// notification manager.
type Service struct {
	store   Store
	manager *notification.Manager
	config  *conf.Settings
	teamID  string
	cache   *cache.Cache
	log     logger.Logger

	// serializes Update so provisioning and re-initialization see one order
	updateMu sync.Mutex

	generateKeys func() (notification.VAPIDKeys, error)
	now          func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithKeyGenerator replaces notification.GenerateVAPIDKeys.
func WithKeyGenerator(f func() (notification.VAPIDKeys, error)) Option {
	return func(s *Service) { s.generateKeys = f }
}

// WithClock replaces time.Now for test metadata.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a service for the team named by admin.email.
func NewService(store Store, manager *notification.Manager, cfg *conf.Settings, opts ...Option) *Service {
	s := &Service{
		store:        store,
		manager:      manager,
		config:       cfg,
		teamID:       cfg.Admin.Email,
		cache:        cache.New(cacheTTL, 2*cacheTTL),
		log:          logger.Global().Module("settings"),
		generateKeys: notification.GenerateVAPIDKeys,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the stored settings, or the config defaults when none exist,
// and initializes the manager with them. A configuration error is returned
// after being logged; the caller decides whether to continue.
func (s *Service) Load(ctx context.Context) (AppSettings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return AppSettings{}, err
	}
	if err := s.apply(current); err != nil {
		s.log.Error("initial notification configuration failed", logger.Error(err))
		return current, err
	}
	s.log.Info("notification providers configured", logger.String("team_id", s.teamID))
	return current, nil
}

// Get returns the current settings. Stored settings are cached for five
// minutes; when no record exists the config defaults are returned.
func (s *Service) Get(ctx context.Context) (AppSettings, error) {
	if v, ok := s.cache.Get(s.teamID); ok {
		return v.(AppSettings), nil
	}

	rec, err := s.store.GetSettings(ctx, s.teamID)
	if err != nil {
		if errors.IsNotFound(err) {
			return Defaults(s.config), nil
		}
		return AppSettings{}, err
	}

	var out AppSettings
	if err := json.Unmarshal([]byte(rec.Data), &out); err != nil {
		return AppSettings{}, errors.New(err).
			Component("settings").
			Category(errors.CategoryDatabase).
			Context("team_id", s.teamID).
			Build()
	}
	s.cache.SetDefault(s.teamID, out)
	return out, nil
}

// Update merges req into the current settings and saves them. When web push
// is enabled without usable VAPID keys a new pair is generated and saved
// with the rest. Provider or webhook changes re-initialize the manager, and
// a configuration error is returned after the settings are stored.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (AppSettings, error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	current, err := s.Get(ctx)
	if err != nil {
		return AppSettings{}, err
	}
	updated := merge(current, req)

	if req.NotificationProviders != nil {
		s.provisionVAPIDKeys(&updated.NotificationProviders.Web)
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return AppSettings{}, errors.New(err).Component("settings").Category(errors.CategoryValidation).Build()
	}
	if _, err := s.store.SaveSettings(ctx, s.teamID, string(data)); err != nil {
		return AppSettings{}, err
	}
	s.cache.SetDefault(s.teamID, updated)

	if req.NotificationProviders != nil || req.Webhooks != nil {
		if err := s.apply(updated); err != nil {
			s.log.Error("notification provider update failed", logger.Error(err))
			return updated, err
		}
		s.log.Info("notification providers configuration updated")
	}
	return updated, nil
}

func (s *Service) provisionVAPIDKeys(web *WebProviderSettings) {
	if !web.Enabled {
		return
	}
	if len(web.VAPIDPublicKey) >= minVAPIDKeyLength && len(web.VAPIDPrivateKey) >= minVAPIDKeyLength {
		return
	}
	keys, err := s.generateKeys()
	if err != nil {
		s.log.Error("failed to generate VAPID keys", logger.Error(err))
		return
	}
	web.VAPIDPublicKey = keys.PublicKey
	web.VAPIDPrivateKey = keys.PrivateKey
	s.log.Info("generated new VAPID keys for web notifications")
}

func (s *Service) apply(a AppSettings) error {
	return s.manager.Initialize(ProviderConfig(a, &s.config.Notification))
}

// GenerateVAPIDKeys returns a fresh key pair without storing it.
func (s *Service) GenerateVAPIDKeys() (notification.VAPIDKeys, error) {
	return s.generateKeys()
}

// SendTest dispatches a diagnostic notification to user through the
// requested providers. An empty provider list selects by type as usual.
func (s *Service) SendTest(ctx context.Context, req TestRequest, user User) map[string]*notification.Result {
	t, ok := notification.ParseType(req.NotificationType)
	if !ok {
		s.log.Warn("unknown notification type, using system_alert",
			logger.String("notification_type", req.NotificationType))
	}

	name := user.Name
	if name == "" {
		name = "User"
	}
	data := map[string]any{
		notification.DataSubject:  req.Subject,
		notification.DataBody:     req.Message,
		notification.DataHTMLBody: "<p>" + html.EscapeString(req.Message) + "</p>",
		"user": map[string]any{
			"id":    user.ID,
			"email": user.Email,
			"name":  name,
		},
	}
	metadata := map[string]any{
		notification.MetadataTest: true,
		"timestamp":               s.now().UTC().Format(time.RFC3339),
		"notification_type":       req.NotificationType,
	}

	var recipients []notification.Recipient
	if slices.Contains(req.ProviderTypes, notification.EmailProviderName) && user.Email != "" {
		recipients = append(recipients, notification.Recipient{ID: user.Email, Type: notification.RecipientEmail})
	}
	if (slices.Contains(req.ProviderTypes, notification.WebPushProviderName) ||
		slices.Contains(req.ProviderTypes, notification.PushProviderName)) && user.ID != "" {
		recipients = append(recipients, notification.Recipient{ID: user.ID})
	}

	return s.manager.Notify(ctx, t, data, recipients,
		notification.WithProviders(req.ProviderTypes...),
		notification.WithMetadata(metadata))
}

// NotificationsFor reports whether the event switches allow t. Types
// without a switch always pass.
func (a AppSettings) NotificationsFor(t notification.Type) bool {
	switch t {
	case notification.TypeTransactionCompleted:
		return a.Notifications.PurchaseConfirmation
	case notification.TypeTransactionFailed:
		return a.Notifications.FailedTransactions
	case notification.TypeWeeklyReport:
		return a.Notifications.WeeklyReports
	case notification.TypeProductCreated:
		return a.Notifications.NewProductReleases
	default:
		return true
	}
}
