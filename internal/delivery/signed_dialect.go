package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/pkg/crypto"
)

// NewSignedDialect returns a Dialect that injects an HMAC-SHA256 signature
// header over the serialized payload bytes, grounded on the teacher's
// signPayload helper (internal/service/webhook_delivery_worker.go) and
// pkg/crypto.ComputeHMAC256 — both compute hmac.New(sha256.New, secret) over
// the request bytes.
func NewSignedDialect(name, secret, userAgent string) *domain.Dialect {
	d := &domain.Dialect{
		Name:               name,
		ExternalizerFormat: "json",
		ContentType:        "application/json",
		UserAgent:          userAgent,
		HTTPMethod:         "POST",
	}
	d.PrepareRequest = func(ctx context.Context, sub *domain.Subscription, pair *domain.ShipmentPair) (domain.PreparedRequest, error) {
		signature := crypto.ComputeHMAC256(pair.PayloadData, secret)
		return domain.PreparedRequest{
			Method: d.HTTPMethod,
			URL:    sub.To,
			Body:   pair.PayloadData,
			Headers: map[string]string{
				"Content-Type":          d.ContentType,
				"User-Agent":            d.UserAgent,
				"X-Webhook-Signature":   signature,
				"X-Webhook-Timestamp":   fmt.Sprintf("%d", time.Now().Unix()),
				"X-Webhook-Delivery-Id": pair.AttemptID,
			},
		}, nil
	}
	return d
}
