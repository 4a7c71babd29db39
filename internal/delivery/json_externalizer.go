package delivery

import (
	"context"
	"encoding/json"

	"github.com/nti-labs/webhooks/internal/domain"
)

// JSONExternalizer is the default Externalizer: it renders a payload to
// its JSON representation via encoding/json regardless of the requested
// name/policyName, which are accepted for interface compatibility with
// hosts that route to multiple named externalizer policies. A payload that
// implements domain.WebhookPayload and reports false from IsWebhookPayload
// renders as JSON null.
type JSONExternalizer struct{}

// ToExternalRepresentation renders payload as JSON bytes.
func (JSONExternalizer) ToExternalRepresentation(ctx context.Context, payload any, format, name, policyName string) ([]byte, error) {
	if wp, ok := payload.(domain.WebhookPayload); ok && !wp.IsWebhookPayload() {
		payload = nil
	}
	return json.Marshal(payload)
}
