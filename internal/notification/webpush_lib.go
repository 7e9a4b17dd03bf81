//go:build !nowebpush

package notification

import (
	"context"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/microtrax/microtrax/internal/httpclient"
)

// maxPushServiceBody bounds the error body kept from a push service.
const maxPushServiceBody = 512

// generateLibraryVAPIDKeys is nil in builds without web-push support.
var generateLibraryVAPIDKeys = webpush.GenerateVAPIDKeys

// clientDoer lets webpush-go use the shared client and its default timeout.
type clientDoer struct {
	client *httpclient.Client
}

func (d clientDoer) Do(req *http.Request) (*http.Response, error) {
	return d.client.Do(req.Context(), req)
}

type libraryWebPushSender struct {
	doer clientDoer
}

func newLibraryWebPushSender(client *httpclient.Client) WebPushSender {
	return &libraryWebPushSender{doer: clientDoer{client: client}}
}

// SendWebPush encrypts payload for sub and posts it to the push service.
func (s *libraryWebPushSender) SendWebPush(ctx context.Context, payload []byte, sub *SubscriptionInfo, opts WebPushOptions) (int, string, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, &webpush.Options{
		HTTPClient: s.doer,
		// the library adds the mailto: scheme itself
		Subscriber:      strings.TrimPrefix(opts.Subject, "mailto:"),
		TTL:             opts.TTL,
		VAPIDPublicKey:  opts.PublicKey,
		VAPIDPrivateKey: opts.PrivateKey,
	})
	if err != nil {
		return 0, "", err
	}
	defer httpclient.DrainAndClose(resp)

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxPushServiceBody))
	return resp.StatusCode, string(body), nil
}
