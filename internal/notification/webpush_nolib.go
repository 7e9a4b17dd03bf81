//go:build nowebpush

package notification

import (
	"github.com/microtrax/microtrax/internal/httpclient"
)

var generateLibraryVAPIDKeys func() (string, string, error)

func newLibraryWebPushSender(*httpclient.Client) WebPushSender {
	return nil
}
