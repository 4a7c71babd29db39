package delivery

import (
	"context"
	"strconv"
	"time"

	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"

	"github.com/nti-labs/webhooks/internal/domain"
)

// NewStandardWebhooksDialect returns a Dialect that signs requests per the
// Standard Webhooks spec (https://www.standardwebhooks.com/), using the
// whSecret-keyed Webhook signer from standard-webhooks/libraries — a
// concrete third-party alternative to the hand-rolled SignedDialect, wired
// because the dependency already sits in go.mod.
func NewStandardWebhooksDialect(name, whSecret, userAgent string) (*domain.Dialect, error) {
	signer, err := standardwebhooks.NewWebhook(whSecret)
	if err != nil {
		return nil, err
	}

	d := &domain.Dialect{
		Name:               name,
		ExternalizerFormat: "json",
		ContentType:        "application/json",
		UserAgent:          userAgent,
		HTTPMethod:         "POST",
	}
	d.PrepareRequest = func(ctx context.Context, sub *domain.Subscription, pair *domain.ShipmentPair) (domain.PreparedRequest, error) {
		now := time.Now()
		signature, err := signer.Sign(pair.AttemptID, now, string(pair.PayloadData))
		if err != nil {
			return domain.PreparedRequest{}, err
		}
		return domain.PreparedRequest{
			Method: d.HTTPMethod,
			URL:    sub.To,
			Body:   pair.PayloadData,
			Headers: map[string]string{
				"Content-Type":      d.ContentType,
				"User-Agent":        d.UserAgent,
				"webhook-id":        pair.AttemptID,
				"webhook-timestamp": strconv.FormatInt(now.Unix(), 10),
				"webhook-signature": signature,
			},
		}, nil
	}
	return d, nil
}
