package settings

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/datastore"
	"github.com/microtrax/microtrax/internal/errors"
	"github.com/microtrax/microtrax/internal/notification"
)

// recordingProvider accepts any config and records every Configure and Send.
type recordingProvider struct {
	name string

	mu      sync.Mutex
	enabled bool
	configs []notification.ProviderConfig
	sent    []*notification.Notification
	failOn  string
}

func (p *recordingProvider) GetName() string { return p.name }

func (p *recordingProvider) Configure(cfg notification.ProviderConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs = append(p.configs, cfg)
	enabled, _ := cfg["enabled"].(bool)
	if enabled && p.failOn != "" {
		if v, _ := cfg[p.failOn].(string); v == "" {
			p.enabled = false
			return &notification.ProviderNotConfiguredError{Provider: p.name, Missing: []string{p.failOn}}
		}
	}
	p.enabled = enabled
	return nil
}

func (p *recordingProvider) IsEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *recordingProvider) SupportsType(notification.Type) bool { return true }

func (p *recordingProvider) FormatNotification(t notification.Type, data map[string]any) notification.Content {
	return notification.FormatDefault(t, data)
}

func (p *recordingProvider) Send(_ context.Context, n *notification.Notification) (*notification.Result, error) {
	p.mu.Lock()
	p.sent = append(p.sent, n)
	p.mu.Unlock()
	return notification.Delivered(1, 1, nil), nil
}

func (p *recordingProvider) lastConfig() notification.ProviderConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.configs) == 0 {
		return nil
	}
	return p.configs[len(p.configs)-1]
}

// memStore keeps settings documents in a map.
type memStore struct {
	mu      sync.Mutex
	records map[string]string
	saves   int
	gets    int
}

func newMemStore() *memStore { return &memStore{records: map[string]string{}} }

func (m *memStore) GetSettings(_ context.Context, teamID string) (*datastore.SettingsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	data, ok := m.records[teamID]
	if !ok {
		return nil, errors.New(datastore.ErrNotFound).Category(errors.CategoryNotFound).Build()
	}
	return &datastore.SettingsRecord{ID: "id-" + teamID, TeamID: teamID, Data: data}, nil
}

func (m *memStore) SaveSettings(_ context.Context, teamID, data string) (*datastore.SettingsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.records[teamID] = data
	return &datastore.SettingsRecord{ID: "id-" + teamID, TeamID: teamID, Data: data}, nil
}

type fixture struct {
	svc       *Service
	store     *memStore
	manager   *notification.Manager
	providers map[string]*recordingProvider
}

var testKeys = notification.VAPIDKeys{
	PublicKey:  "BPublicKeyPublicKeyPublicKey",
	PrivateKey: "PrivateKeyPrivateKeyPrivate",
}

func testConfig() *conf.Settings {
	cfg := &conf.Settings{}
	cfg.Main.Name = "microtrax"
	cfg.Admin.Email = "admin@example.com"
	cfg.Notification.Email = conf.EmailSettings{
		Enabled:   true,
		SMTPHost:  "smtp.example.com",
		SMTPPort:  2525,
		FromEmail: "noreply@example.com",
		UseTLS:    false,
	}
	cfg.Notification.Push.FCMURL = conf.DefaultFCMURL
	cfg.Notification.Web.VAPIDSubject = "mailto:ops@example.com"
	cfg.Notification.Chat = conf.ChatSettings{Enabled: true, URLs: []string{"logger://"}}
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newMemStore(),
		manager:   notification.NewManager(),
		providers: map[string]*recordingProvider{},
	}
	for _, name := range []string{"email", "push", "web", WebhookSuccessProvider, WebhookFailedProvider, "chat"} {
		p := &recordingProvider{name: name}
		f.providers[name] = p
		f.manager.Register(p)
	}
	f.svc = NewService(f.store, f.manager, testConfig(),
		WithKeyGenerator(func() (notification.VAPIDKeys, error) { return testKeys, nil }),
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }))
	return f
}

func TestGet_DefaultsWithoutRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	got, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	email := got.NotificationProviders.Email
	assert.True(t, email.Enabled)
	assert.Equal(t, "smtp.example.com", email.SMTPHost)
	assert.Equal(t, 2525, email.SMTPPort)
	require.NotNil(t, email.UseTLS)
	assert.False(t, *email.UseTLS)
	assert.Equal(t, "admin@example.com", got.Company.Email)
	assert.True(t, got.Notifications.PurchaseConfirmation)
}

func TestLoad_AppliesConfigDefaults(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, f.manager.Initialized())

	emailCfg := f.providers["email"].lastConfig()
	assert.Equal(t, true, emailCfg["enabled"])
	assert.Equal(t, 2525, emailCfg["smtp_port"])
	assert.Equal(t, false, emailCfg["use_tls"])

	chatCfg := f.providers["chat"].lastConfig()
	assert.Equal(t, true, chatCfg["enabled"])
	assert.Equal(t, []string{"logger://"}, chatCfg["urls"])

	webCfg := f.providers["web"].lastConfig()
	assert.Equal(t, "mailto:ops@example.com", webCfg["vapid_subject"])

	assert.Equal(t, false, f.providers[WebhookSuccessProvider].lastConfig()["enabled"])
}

func TestLoad_ReturnsConfigurationError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.providers["email"].failOn = "smtp_password"

	_, err := f.svc.Load(context.Background())
	require.Error(t, err)
	var pnc *notification.ProviderNotConfiguredError
	assert.ErrorAs(t, err, &pnc)
	assert.False(t, f.manager.Initialized())
}

func TestGet_UsesCache(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, UpdateRequest{Company: &CompanySettings{Name: "Studio"}})
	require.NoError(t, err)

	before := f.store.gets
	for range 3 {
		got, err := f.svc.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Studio", got.Company.Name)
	}
	assert.Equal(t, before, f.store.gets, "cached reads should not hit the store")
}

func TestUpdate_MergesSections(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, UpdateRequest{Company: &CompanySettings{Name: "Studio", Email: "a@b.c"}})
	require.NoError(t, err)
	got, err := f.svc.Update(ctx, UpdateRequest{Notifications: &EventSettings{WeeklyReports: true}})
	require.NoError(t, err)

	assert.Equal(t, "Studio", got.Company.Name, "absent sections are kept")
	assert.True(t, got.Notifications.WeeklyReports)
	assert.False(t, got.Notifications.PurchaseConfirmation)

	var stored AppSettings
	require.NoError(t, json.Unmarshal([]byte(f.store.records["admin@example.com"]), &stored))
	assert.Equal(t, got, stored)
	assert.False(t, f.manager.Initialized(), "event switches alone do not reconfigure providers")
}

func TestUpdate_ProvidersReinitialize(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), UpdateRequest{
		NotificationProviders: &ProviderSettings{
			Push: PushProviderSettings{Enabled: true, FCMAPIKey: "key"},
		},
		Webhooks: &WebhookSettings{PurchaseSuccess: "https://hooks.example.com/ok"},
	})
	require.NoError(t, err)
	require.True(t, f.manager.Initialized())

	pushCfg := f.providers["push"].lastConfig()
	assert.Equal(t, true, pushCfg["enabled"])
	assert.Equal(t, conf.DefaultFCMURL, pushCfg["fcm_url"], "empty fcm url gets the default")

	emailCfg := f.providers["email"].lastConfig()
	assert.Equal(t, 587, emailCfg["smtp_port"], "empty port gets the default")
	assert.Equal(t, true, emailCfg["use_tls"], "unset TLS means on")

	hook := f.providers[WebhookSuccessProvider].lastConfig()
	assert.Equal(t, true, hook["enabled"])
	assert.Equal(t, "https://hooks.example.com/ok", hook["url"])
	assert.Equal(t, []string{"transaction_completed"}, hook["types"])
	assert.Equal(t, false, f.providers[WebhookFailedProvider].lastConfig()["enabled"])
}

func TestUpdate_ConfigurationErrorAfterSave(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.providers["push"].failOn = "fcm_api_key"

	_, err := f.svc.Update(context.Background(), UpdateRequest{
		NotificationProviders: &ProviderSettings{Push: PushProviderSettings{Enabled: true}},
	})
	require.Error(t, err)
	assert.Equal(t, 1, f.store.saves, "settings are stored before providers are applied")
}

func TestUpdate_ProvisionsVAPIDKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		web      WebProviderSettings
		wantKeys notification.VAPIDKeys
	}{
		{
			name:     "missing keys",
			web:      WebProviderSettings{Enabled: true},
			wantKeys: testKeys,
		},
		{
			name:     "short key",
			web:      WebProviderSettings{Enabled: true, VAPIDPublicKey: "short", VAPIDPrivateKey: "PrivateKeyPrivateKeyLong"},
			wantKeys: testKeys,
		},
		{
			name: "existing keys kept",
			web:  WebProviderSettings{Enabled: true, VAPIDPublicKey: "ExistingPublicKeyValue", VAPIDPrivateKey: "ExistingPrivateKeyValue"},
			wantKeys: notification.VAPIDKeys{
				PublicKey:  "ExistingPublicKeyValue",
				PrivateKey: "ExistingPrivateKeyValue",
			},
		},
		{
			name:     "disabled untouched",
			web:      WebProviderSettings{},
			wantKeys: notification.VAPIDKeys{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			got, err := f.svc.Update(context.Background(), UpdateRequest{
				NotificationProviders: &ProviderSettings{Web: tt.web},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys.PublicKey, got.NotificationProviders.Web.VAPIDPublicKey)
			assert.Equal(t, tt.wantKeys.PrivateKey, got.NotificationProviders.Web.VAPIDPrivateKey)
			assert.Equal(t, tt.wantKeys.PublicKey, f.providers["web"].lastConfig()["vapid_public_key"])
		})
	}
}

func TestGenerateVAPIDKeys_Default(t *testing.T) {
	t.Parallel()

	svc := NewService(newMemStore(), notification.NewManager(), testConfig())
	keys, err := svc.GenerateVAPIDKeys()
	require.NoError(t, err)
	assert.True(t, notification.ValidVAPIDKey(keys.PublicKey))
	assert.True(t, notification.ValidVAPIDKey(keys.PrivateKey))
}

func TestSendTest(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, UpdateRequest{NotificationProviders: &ProviderSettings{
		Email: EmailProviderSettings{Enabled: true, SMTPHost: "smtp", FromEmail: "a@b.c"},
		Web:   WebProviderSettings{Enabled: true},
	}})
	require.NoError(t, err)

	results := f.svc.SendTest(ctx, TestRequest{
		Subject:          "Hello",
		Message:          "a <b> c",
		NotificationType: "TRANSACTION_COMPLETED",
		ProviderTypes:    []string{"email", "web", "push"},
	}, User{ID: "76561198000000000", Email: "dev@example.com"})

	require.Len(t, results, 2, "push is disabled and dropped")
	assert.Contains(t, results, "email")
	assert.Contains(t, results, "web")

	sent := f.providers["email"].sent
	require.Len(t, sent, 1)
	n := sent[0]
	assert.Equal(t, notification.TypeTransactionCompleted, n.Type)
	assert.True(t, n.IsTest())
	assert.Equal(t, "2026-01-02T03:04:05Z", n.Metadata["timestamp"])
	assert.Equal(t, "TRANSACTION_COMPLETED", n.Metadata["notification_type"])
	assert.Equal(t, "Hello", n.Content.Subject)
	assert.Equal(t, "<p>a &lt;b&gt; c</p>", n.Content.HTMLBody)
	assert.Equal(t, []notification.Recipient{
		{ID: "dev@example.com", Type: notification.RecipientEmail},
		{ID: "76561198000000000"},
	}, n.Recipients)

	user, ok := n.Content.Data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "User", user["name"])
}

func TestSendTest_UnknownTypeFallsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.svc.Load(context.Background())
	require.NoError(t, err)

	results := f.svc.SendTest(context.Background(), TestRequest{
		Subject:          "s",
		Message:          "m",
		NotificationType: "bogus",
		ProviderTypes:    []string{"email"},
	}, User{ID: "u", Email: "u@example.com"})

	require.Contains(t, results, "email")
	assert.Equal(t, notification.TypeSystemAlert, f.providers["email"].sent[0].Type)
	assert.Len(t, f.providers["web"].sent, 0)
}

func TestNotificationsFor(t *testing.T) {
	t.Parallel()

	a := AppSettings{Notifications: EventSettings{PurchaseConfirmation: true}}
	assert.True(t, a.NotificationsFor(notification.TypeTransactionCompleted))
	assert.False(t, a.NotificationsFor(notification.TypeTransactionFailed))
	assert.False(t, a.NotificationsFor(notification.TypeWeeklyReport))
	assert.True(t, a.NotificationsFor(notification.TypeTransactionCreated))
	assert.True(t, a.NotificationsFor(notification.TypeSystemAlert))
}

func TestService_SQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Database.Type = "sqlite"
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "settings.db")
	store, err := datastore.New(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService(store, notification.NewManager(), cfg)
	_, err = svc.Update(context.Background(), UpdateRequest{Company: &CompanySettings{Name: "Persisted"}})
	require.NoError(t, err)

	fresh := NewService(store, notification.NewManager(), cfg)
	got, err := fresh.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.Company.Name)
}
