package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/pkg/cache"
	"github.com/stretchr/testify/assert"
)

type fakeResolver struct {
	resolvable map[string]bool
	calls      int
}

func (f *fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	f.calls++
	if f.resolvable[host] {
		return []string{"93.184.216.34"}, nil
	}
	return nil, errors.New("no such host")
}

func TestValidateTarget_RejectsNonHTTPS(t *testing.T) {
	v := NewDefaultDestinationValidator(&fakeResolver{resolvable: map[string]bool{"example.com": true}}, nil, 0)

	err := v.ValidateTarget(context.Background(), "http://example.com/hook")
	assert.Error(t, err)

	var rejected *domain.ErrDestinationRejected
	assert.ErrorAs(t, err, &rejected)
}

func TestValidateTarget_RejectsUnresolvableHost(t *testing.T) {
	v := NewDefaultDestinationValidator(&fakeResolver{resolvable: map[string]bool{}}, nil, 0)

	err := v.ValidateTarget(context.Background(), "https://nope.invalid/hook")
	assert.Error(t, err)
}

func TestValidateTarget_AcceptsResolvableHTTPS(t *testing.T) {
	v := NewDefaultDestinationValidator(&fakeResolver{resolvable: map[string]bool{"example.com": true}}, nil, 0)

	err := v.ValidateTarget(context.Background(), "https://example.com/hook")
	assert.NoError(t, err)
}

func TestValidateTarget_CachesOutcome(t *testing.T) {
	resolver := &fakeResolver{resolvable: map[string]bool{"example.com": true}}
	v := NewDefaultDestinationValidator(resolver, cache.NewInMemoryCache(time.Minute), time.Minute)

	assert.NoError(t, v.ValidateTarget(context.Background(), "https://example.com/a"))
	assert.NoError(t, v.ValidateTarget(context.Background(), "https://example.com/b"))

	assert.Equal(t, 1, resolver.calls)
}
