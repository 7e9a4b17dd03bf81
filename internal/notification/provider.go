package notification

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/microtrax/microtrax/internal/httpclient"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/secrets"
)

// Provider is a delivery channel. Configure errors are fatal to Initialize.
// Send errors are folded into the result map by the Manager.
type Provider interface {
	GetName() string
	Configure(cfg ProviderConfig) error
	IsEnabled() bool
	SupportsType(t Type) bool
	FormatNotification(t Type, data map[string]any) Content
	Send(ctx context.Context, n *Notification) (*Result, error)
}

// ProviderConfig is the raw per-provider configuration. Every config carries
// an "enabled" key; each Configure call replaces the previous config.
type ProviderConfig map[string]any

// base holds the state every provider shares. Concrete providers keep their
// typed config next to it, guarded by the same mutex.
type base struct {
	name        string
	unsupported map[Type]struct{}

	mu      sync.RWMutex
	enabled bool

	log logger.Logger
}

// init sets the name and type exclusions. It runs once, before the provider
// is shared.
func (b *base) init(name string, unsupported ...Type) {
	b.name = name
	b.unsupported = make(map[Type]struct{}, len(unsupported))
	for _, t := range unsupported {
		b.unsupported[t] = struct{}{}
	}
}

// GetName returns the registry key of the provider.
func (b *base) GetName() string { return b.name }

// IsEnabled reports whether the last Configure enabled the provider.
func (b *base) IsEnabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// SupportsType reports whether t is outside the provider's exclusions.
func (b *base) SupportsType(t Type) bool {
	_, excluded := b.unsupported[t]
	return !excluded
}

// FormatNotification renders the default template for t.
func (b *base) FormatNotification(t Type, data map[string]any) Content {
	return FormatDefault(t, data)
}

// SetLogger replaces the provider logger.
func (b *base) SetLogger(l logger.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = l
}

func (b *base) logger() logger.Logger {
	b.mu.RLock()
	l := b.log
	b.mu.RUnlock()
	if l != nil {
		return l
	}
	return getLogger().Module(b.name)
}

// configSpec names the keys a provider requires when enabled and the keys
// holding secrets, which may be given inline, as ${VAR} references, or via
// a sibling <key>_file path.
type configSpec struct {
	required []string
	secrets  []string
}

// decodeConfig reads the enabled flag and, for an enabled provider, checks
// the required keys, resolves secrets and decodes cfg into out. A disabled
// provider accepts any config.
func decodeConfig(provider string, cfg ProviderConfig, out any, fields configSpec) (bool, error) {
	enabled := enabledFlag(cfg["enabled"])
	if !enabled {
		// Best effort so accessors still see what the operator stored.
		_ = decode(cfg, out)
		return false, nil
	}
	if missing := missingFields(cfg, fields.required...); len(missing) > 0 {
		return false, &ProviderNotConfiguredError{Provider: provider, Missing: missing}
	}

	resolved := maps.Clone(cfg)
	if err := secrets.ResolveConfig(resolved, fields.secrets...); err != nil {
		return false, &ProviderNotConfiguredError{Provider: provider, Err: err}
	}
	if err := decode(resolved, out); err != nil {
		return false, &ProviderNotConfiguredError{Provider: provider, Err: err}
	}
	return true, nil
}

func decode(cfg ProviderConfig, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("create config decoder: %w", err)
	}
	return dec.Decode(map[string]any(cfg))
}

// missingFields returns the required keys that are absent, nil, blank
// strings or empty lists, in the order they were given. A populated
// <key>_file sibling satisfies the key.
func missingFields(cfg ProviderConfig, required ...string) []string {
	var missing []string
	for _, key := range required {
		if v, ok := cfg[key]; ok && !isEmptyValue(v) {
			continue
		}
		if path, ok := cfg[key+secrets.FileSuffix]; ok && !isEmptyValue(path) {
			continue
		}
		missing = append(missing, key)
	}
	return missing
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func enabledFlag(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return false
	}
}

// StandardProviders returns the email, push and web providers sharing client.
func StandardProviders(client *httpclient.Client) []Provider {
	return []Provider{
		NewEmailProvider(),
		NewPushProvider(client),
		NewWebPushProvider(client),
	}
}
