package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/microtrax/microtrax/internal/buildinfo"
	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/httpclient"
	"github.com/microtrax/microtrax/internal/notification"
	"github.com/microtrax/microtrax/internal/settings"
)

// Command returns a cobra command that sends one notification through the
// providers configured in config.yaml and the environment.
func Command(cfg *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var (
		typ       string
		subject   string
		message   string
		providers []string
		to        []string
		test      bool
		metadata  []string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a notification through the configured providers",
		Long: `Send a notification using the provider settings from the config file and
environment. Saved team settings are not read.

Examples:
  # Test email through the email provider only
  microtrax notify --provider=email --to=ops@example.com

  # Device push with a custom message
  microtrax notify --type=system_alert --provider=push --to=device:abc123 --message="Maintenance at 22:00"

  # Non-test send selected by type, with extra metadata
  microtrax notify --type=transaction_completed --test=false --to=buyer@example.com --metadata="source=cli"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := notification.ParseType(typ)
			if !ok {
				return fmt.Errorf("invalid type: %s (valid: %s)", typ, validTypes())
			}

			md, err := parseMetadata(metadata)
			if err != nil {
				return err
			}
			md[notification.MetadataTest] = test

			client := httpclient.New(&httpclient.Config{UserAgent: build.UserAgent()})
			defer client.Close()

			manager := notification.NewManager()
			settings.RegisterProviders(manager, client)
			if err := manager.Initialize(settings.ProviderConfig(settings.Defaults(cfg), &cfg.Notification)); err != nil {
				return fmt.Errorf("failed to configure notification providers: %w", err)
			}

			data := map[string]any{}
			if subject != "" {
				data[notification.DataSubject] = subject
			}
			if message != "" {
				data[notification.DataBody] = message
				data[notification.DataHTMLBody] = "<p>" + html.EscapeString(message) + "</p>"
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			results := manager.Notify(ctx, t, data, notification.Bare(to...),
				notification.WithProviders(providers...),
				notification.WithMetadata(md))
			if len(results) == 0 {
				return fmt.Errorf("no enabled notification provider accepts type %s", t)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}

			for _, r := range results {
				if r.Status != notification.StatusError && r.Status != "" {
					return nil
				}
			}
			return fmt.Errorf("notification failed on every provider")
		},
	}

	cmd.Flags().StringVar(&typ, "type", string(notification.TypeSystemAlert), "Notification type: "+validTypes())
	cmd.Flags().StringVar(&subject, "subject", "Test Notification", "Notification subject")
	cmd.Flags().StringVar(&message, "message", "This is a test notification from microtrax", "Notification message")
	cmd.Flags().StringSliceVar(&providers, "provider", nil, "Providers to use (default: every enabled provider accepting the type)")
	cmd.Flags().StringSliceVar(&to, "to", nil, "Recipients: email addresses, device:<token> or user ids")
	cmd.Flags().BoolVar(&test, "test", true, "Mark as a test send (missing recipients are skipped instead of failing)")
	cmd.Flags().StringSliceVar(&metadata, "metadata", nil, "Metadata key-value pairs in format key=value (supports numbers, booleans, and strings)")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall time limit for delivery (0 to disable)")

	return cmd
}

func validTypes() string {
	names := make([]string, 0, len(notification.AllTypes))
	for _, t := range notification.AllTypes {
		names = append(names, t.String())
	}
	return strings.Join(names, "|")
}

// parseMetadata turns key=value pairs into a map. Values are parsed as
// numbers, then booleans, and kept as strings otherwise.
func parseMetadata(pairs []string) (map[string]any, error) {
	md := make(map[string]any, len(pairs)+1)
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid metadata format: %s (expected key=value)", kv)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || key == notification.MetadataTest {
			return nil, fmt.Errorf("invalid metadata key: %q", key)
		}

		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			md[key] = floatVal
		} else if boolVal, err := strconv.ParseBool(value); err == nil {
			md[key] = boolVal
		} else {
			md[key] = value
		}
	}
	return md, nil
}
