package vapid

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/notification"
)

// Command creates the vapid command, which generates a web push key pair.
func Command(cfg *conf.Settings) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "vapid",
		Short: "Generate a VAPID key pair for web push",
		Long: `Generate a VAPID key pair and print it as JSON. With --save the pair is
written to notification.web in the config file that was loaded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := notification.GenerateVAPIDKeys()
			if err != nil {
				return fmt.Errorf("failed to generate VAPID keys: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(keys); err != nil {
				return err
			}

			if !save {
				return nil
			}
			path := conf.ConfigFileUsed()
			if path == "" {
				return fmt.Errorf("no config file loaded, cannot save VAPID keys")
			}
			cfg.Notification.Web.VAPIDPublicKey = keys.PublicKey
			cfg.Notification.Web.VAPIDPrivateKey = keys.PrivateKey
			if err := conf.SaveYAMLConfig(path, cfg); err != nil {
				return fmt.Errorf("failed to save VAPID keys: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "VAPID keys saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Store the generated keys in the config file")

	return cmd
}
