package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, providers ...Provider) *Manager {
	t.Helper()
	m := NewManager(WithLogger(quietLogger()))
	for _, p := range providers {
		m.Register(p)
	}
	return m
}

func TestNotifyBeforeInitialize(t *testing.T) {
	t.Parallel()

	stub := newStubProvider("stub")
	m := newTestManager(t, stub)

	results := m.Notify(context.Background(), TypeTransactionCreated, nil, Bare("a@x.com"))
	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.Empty(t, stub.sent())
	assert.False(t, m.Initialized())
}

func TestRegisterKeepsOrderAndOverwrites(t *testing.T) {
	t.Parallel()

	first := newStubProvider("a")
	m := newTestManager(t, first, newStubProvider("b"), newStubProvider("c"))
	replacement := newStubProvider("a")
	m.Register(replacement)

	assert.Equal(t, []string{"a", "b", "c"}, m.Registered())
	got, ok := m.Provider("a")
	require.True(t, ok)
	assert.Same(t, replacement, got)

	_, ok = m.Provider("missing")
	assert.False(t, ok)
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	t.Run("absent config leaves provider disabled", func(t *testing.T) {
		t.Parallel()
		a, b := newStubProvider("a"), newStubProvider("b")
		m := newTestManager(t, a, b)

		require.NoError(t, m.Initialize(Config{Providers: map[string]ProviderConfig{"a": enabledStub()}}))
		assert.True(t, m.Initialized())
		assert.True(t, a.IsEnabled())
		assert.False(t, b.IsEnabled())
		require.Len(t, b.configs, 1)
		assert.Empty(t, b.configs[0])
	})

	t.Run("first error aborts", func(t *testing.T) {
		t.Parallel()
		a, b, c := newStubProvider("a"), newStubProvider("b"), newStubProvider("c")
		m := newTestManager(t, a, b, c)

		err := m.Initialize(Config{Providers: map[string]ProviderConfig{
			"a": enabledStub(),
			"b": {"enabled": true},
			"c": enabledStub(),
		}})
		var cfgErr *ProviderNotConfiguredError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "b", cfgErr.Provider)
		assert.Equal(t, []string{"token"}, cfgErr.Missing)

		assert.False(t, m.Initialized())
		assert.False(t, b.IsEnabled())
		assert.Empty(t, c.configs, "providers after the failing one are not configured")
		assert.Empty(t, m.Notify(context.Background(), TypeSystemAlert, nil, nil))
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		a, b := newStubProvider("a"), newStubProvider("b")
		m := newTestManager(t, a, b)
		cfg := Config{Providers: map[string]ProviderConfig{"a": enabledStub(), "b": {"enabled": false}}}

		require.NoError(t, m.Initialize(cfg))
		first := []bool{a.IsEnabled(), b.IsEnabled()}
		require.NoError(t, m.Initialize(cfg))
		assert.Equal(t, first, []bool{a.IsEnabled(), b.IsEnabled()})
	})
}

func TestGetProvidersForType(t *testing.T) {
	t.Parallel()

	email := newStubProvider("email")
	push := newStubProvider("push", TypeWeeklyReport)
	off := newStubProvider("off")
	m := newTestManager(t, email, push, off)
	require.NoError(t, m.Initialize(Config{Providers: map[string]ProviderConfig{
		"email": enabledStub(),
		"push":  enabledStub(),
	}}))

	for _, typ := range AllTypes {
		names := providerNames(m.GetProvidersForType(typ))
		assert.NotContains(t, names, "off", "disabled providers are never eligible")
		if typ == TypeWeeklyReport {
			assert.Equal(t, []string{"email"}, names)
		} else {
			assert.Equal(t, []string{"email", "push"}, names)
		}
	}
}

func providerNames(ps []Provider) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.GetName())
	}
	return out
}

func TestNotifySelection(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*Manager, *stubProvider, *stubProvider, *stubProvider) {
		t.Helper()
		email := newStubProvider("email")
		push := newStubProvider("push", TypeWeeklyReport)
		web := newStubProvider("web")
		m := newTestManager(t, email, push, web)
		require.NoError(t, m.Initialize(Config{Providers: map[string]ProviderConfig{
			"email": enabledStub(),
			"push":  enabledStub(),
		}}))
		return m, email, push, web
	}

	t.Run("type based", func(t *testing.T) {
		t.Parallel()
		m, email, push, web := setup(t)
		results := m.Notify(context.Background(), TypeWeeklyReport, nil, nil)
		assert.Len(t, results, 1)
		assert.Contains(t, results, "email")
		assert.Len(t, email.sent(), 1)
		assert.Empty(t, push.sent())
		assert.Empty(t, web.sent())
	})

	t.Run("explicit list takes precedence", func(t *testing.T) {
		t.Parallel()
		m, email, push, _ := setup(t)
		results := m.Notify(context.Background(), TypeSystemAlert, nil, nil, WithProviders("push"))
		assert.Equal(t, []string{"push"}, keys(results))
		assert.Empty(t, email.sent())
		assert.Len(t, push.sent(), 1)
	})

	t.Run("explicit list ignores type support", func(t *testing.T) {
		t.Parallel()
		m, _, push, _ := setup(t)
		results := m.Notify(context.Background(), TypeWeeklyReport, nil, nil, WithProviders("push"))
		assert.Contains(t, results, "push")
		assert.Len(t, push.sent(), 1)
	})

	t.Run("explicit list drops unknown and disabled", func(t *testing.T) {
		t.Parallel()
		m, _, _, web := setup(t)
		results := m.Notify(context.Background(), TypeSystemAlert, nil, nil, WithProviders("web", "sms"))
		assert.Empty(t, results)
		assert.Empty(t, web.sent())
	})

	t.Run("explicit order is dispatch order", func(t *testing.T) {
		t.Parallel()
		m, email, push, _ := setup(t)
		var order []string
		var mu sync.Mutex
		record := func(name string) func(context.Context, *Notification) (*Result, error) {
			return func(context.Context, *Notification) (*Result, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return Delivered(1, 1, nil), nil
			}
		}
		email.sendFn = record("email")
		push.sendFn = record("push")
		m.Notify(context.Background(), TypeSystemAlert, nil, nil, WithProviders("push", "email", "push"))
		assert.Equal(t, []string{"push", "email"}, order)
	})
}

func keys(m map[string]*Result) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestNotifySharedNotification(t *testing.T) {
	t.Parallel()

	first := newStubProvider("first")
	first.subject = "Formatted by first"
	second := newStubProvider("second")
	second.subject = "Formatted by second"
	m := newTestManager(t, first, second)
	m.newID = func() string { return "n-1" }
	require.NoError(t, m.Initialize(Config{Providers: map[string]ProviderConfig{
		"first":  enabledStub(),
		"second": enabledStub(),
	}}))

	recipients := Bare("a@x.com", "device:tok")
	m.Notify(context.Background(), TypeTransactionCompleted, map[string]any{"amount": 10},
		recipients, WithMetadata(map[string]any{"test": true}))

	require.Len(t, first.sent(), 1)
	require.Len(t, second.sent(), 1)
	n := first.sent()[0]
	assert.Same(t, n, second.sent()[0], "one notification is shared by all providers")
	assert.Equal(t, "n-1", n.ID)
	assert.Equal(t, TypeTransactionCompleted, n.Type)
	assert.Equal(t, "Formatted by first", n.Content.Subject)
	assert.Equal(t, 10, n.Content.Data["amount"])
	assert.Equal(t, recipients, n.Recipients)
	assert.True(t, n.IsTest())
}

func TestNotifyFreshIDPerCall(t *testing.T) {
	t.Parallel()

	stub := newStubProvider("stub")
	m := newTestManager(t, stub)
	require.NoError(t, m.Initialize(Config{Providers: map[string]ProviderConfig{"stub": enabledStub()}}))

	m.Notify(context.Background(), TypeSystemAlert, nil, nil)
	m.Notify(context.Background(), TypeSystemAlert, nil, nil)
	sent := stub.sent()
	require.Len(t, sent, 2)
	assert.NotEqual(t, sent[0].ID, sent[1].ID)
	assert.NotEmpty(t, sent[0].ID)
}

func TestNotifyFailureIsolation(t *testing.T) {
	t.Parallel()

	failing := newStubProvider("failing")
	failing.sendFn = func(context.Context, *Notification) (*Result, error) {
		return nil, errors.New("smtp exploded")
	}
	panicking := newStubProvider("panicking")
	panicking.sendFn = func(context.Context, *Notification) (*Result, error) {
		panic("nil map write")
	}
	recipientless := newStubProvider("recipientless")
	recipientless.sendFn = func(_ context.Context, n *Notification) (*Result, error) {
		return nil, &RecipientError{Provider: "recipientless", NotificationID: n.ID}
	}
	silent := newStubProvider("silent")
	silent.sendFn = func(context.Context, *Notification) (*Result, error) { return nil, nil }
	healthy := newStubProvider("healthy")

	metrics := newRecordingMetrics()
	m := NewManager(WithLogger(quietLogger()), WithMetrics(metrics))
	cfg := Config{Providers: map[string]ProviderConfig{}}
	for _, p := range []*stubProvider{failing, panicking, recipientless, silent, healthy} {
		m.Register(p)
		cfg.Providers[p.GetName()] = enabledStub()
	}
	require.NoError(t, m.Initialize(cfg))

	var results map[string]*Result
	require.NotPanics(t, func() {
		results = m.Notify(context.Background(), TypeTransactionFailed, nil, nil)
	})
	require.Len(t, results, 5)

	assert.Equal(t, "smtp exploded", results["failing"].Error)
	assert.Contains(t, results["panicking"].Error, "panicked")
	assert.Contains(t, results["recipientless"].Error, "no valid recipientless recipients")
	assert.Contains(t, results["silent"].Error, "returned no result")
	assert.True(t, results["healthy"].Succeeded())
	assert.Len(t, healthy.sent(), 1, "later providers still run")

	data, err := json.Marshal(results["failing"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"smtp exploded"}`, string(data))

	assert.Equal(t, "error", metrics.deliveries["failing"])
	assert.Equal(t, "success", metrics.deliveries["healthy"])
	assert.Equal(t, "recipient", metrics.errors["recipientless"])
	assert.Equal(t, 1, metrics.dispatched)
	assert.True(t, metrics.enabled["healthy"])
}

func TestNotifyNoSelectionCountsSkip(t *testing.T) {
	t.Parallel()

	metrics := newRecordingMetrics()
	m := NewManager(WithLogger(quietLogger()), WithMetrics(metrics))
	m.Register(newStubProvider("stub"))
	require.NoError(t, m.Initialize(Config{}))

	assert.Empty(t, m.Notify(context.Background(), TypeSystemAlert, nil, nil))
	assert.Equal(t, 1, metrics.skipped)
	assert.False(t, metrics.enabled["stub"])
}

func TestConcurrentInitializeAndNotify(t *testing.T) {
	t.Parallel()

	email := NewEmailProvider(WithDialerFactory(newFakeDialerFactory(&fakeSMTP{}).factory))
	email.SetLogger(quietLogger())
	m := newTestManager(t, email)
	cfg := Config{Providers: map[string]ProviderConfig{EmailProviderName: validEmailConfig()}}
	require.NoError(t, m.Initialize(cfg))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, m.Initialize(cfg))
				return
			}
			res := m.Notify(context.Background(), TypeTransactionCompleted, nil, Bare("user@example.com"))
			assert.Contains(t, res, EmailProviderName)
		}()
	}
	wg.Wait()
}
