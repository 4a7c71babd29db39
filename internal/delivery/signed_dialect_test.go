package delivery

import (
	"context"
	"testing"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/pkg/crypto"
	"github.com/stretchr/testify/assert"
)

func TestSignedDialect_InjectsHMACSignature(t *testing.T) {
	secret := "shh"
	d := NewSignedDialect("signed", secret, "webhooks/1.0")

	sub := &domain.Subscription{To: "https://example.com/hook"}
	pair := &domain.ShipmentPair{AttemptID: "att-1", PayloadData: []byte(`{"hello":"world"}`)}

	req, err := d.PrepareRequest(context.Background(), sub, pair)
	assert.NoError(t, err)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, sub.To, req.URL)
	assert.Equal(t, pair.PayloadData, req.Body)

	expectedSig := crypto.ComputeHMAC256(pair.PayloadData, secret)
	assert.Equal(t, expectedSig, req.Headers["X-Webhook-Signature"])
	assert.Equal(t, "att-1", req.Headers["X-Webhook-Delivery-Id"])
}
