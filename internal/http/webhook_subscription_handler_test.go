package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/internal/domain/mocks"
	"github.com/nti-labs/webhooks/internal/registry"
	"github.com/nti-labs/webhooks/pkg/logger"
)

var testSecret = []byte("test-secret")

func testGetSecret() ([]byte, error) { return testSecret, nil }

func bearerToken(t *testing.T, principalID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"principal_id": principalID,
		"exp":          time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + signed
}

func newTestHandler(t *testing.T, ctrl *gomock.Controller) (*SubscriptionHandler, *mocks.MockSubscriptionRepository, *mocks.MockDeliveryAttemptRepository, *mocks.MockAuthentication) {
	subRepo := mocks.NewMockSubscriptionRepository(ctrl)
	attemptRepo := mocks.NewMockDeliveryAttemptRepository(ctrl)
	auth := mocks.NewMockAuthentication(ctrl)

	reg := registry.NewRegistry(subRepo, domain.NewInMemoryEventBus())
	h := NewSubscriptionHandler(reg, subRepo, attemptRepo, auth, testGetSecret, logger.NewMockLogger(t))
	return h, subRepo, attemptRepo, auth
}

func TestSubscriptionHandler_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, subRepo, _, _ := newTestHandler(t, ctrl)
	subRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	body, _ := json.Marshal(map[string]string{
		"site_id":  "site-1",
		"for_type": "order",
		"when":     "created",
		"to":       "https://example.com/hook",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions.create", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "principal-1"))
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestSubscriptionHandler_Create_RequiresAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, _, _, _ := newTestHandler(t, ctrl)

	body, _ := json.Marshal(map[string]string{"site_id": "site-1", "for_type": "order"})
	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions.create", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubscriptionHandler_Create_MissingForType(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, _, _, _ := newTestHandler(t, ctrl)

	body, _ := json.Marshal(map[string]string{"site_id": "site-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions.create", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "principal-1"))
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, subRepo, _, _ := newTestHandler(t, ctrl)
	subs := []*domain.Subscription{domain.NewSubscription("site-1", "order", "created", "https://example.com/hook", "", "", "", time.Now())}
	subRepo.EXPECT().List(gomock.Any(), "site-1").Return(subs, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/subscriptions.list?site_id=site-1", nil)
	req.Header.Set("Authorization", bearerToken(t, "principal-1"))
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSubscriptionHandler_Get_OpenSubscription(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, subRepo, _, _ := newTestHandler(t, ctrl)
	sub := domain.NewSubscription("site-1", "order", "created", "https://example.com/hook", "", "", "", time.Now())
	sub.ID = "sub-1"
	subRepo.EXPECT().GetByID(gomock.Any(), "site-1", "sub-1").Return(sub, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/subscriptions.get?site_id=site-1&id=sub-1", nil)
	req.Header.Set("Authorization", bearerToken(t, "principal-1"))
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSubscriptionHandler_Get_ForbiddenWhenPermissionDenied(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, subRepo, _, auth := newTestHandler(t, ctrl)
	sub := domain.NewSubscription("site-1", "order", "created", "https://example.com/hook", "owner-1", "view", "", time.Now())
	sub.ID = "sub-1"
	subRepo.EXPECT().GetByID(gomock.Any(), "site-1", "sub-1").Return(sub, nil)
	auth.EXPECT().GetPrincipal(gomock.Any(), "principal-1").Return(domain.Principal{ID: "principal-1"}, true)
	auth.EXPECT().GetPermission(gomock.Any(), "view").Return(domain.Permission{ID: "view"}, true)
	auth.EXPECT().CheckPermission(gomock.Any(), gomock.Any(), gomock.Any(), sub).Return(false)

	req := httptest.NewRequest(http.MethodGet, "/api/subscriptions.get?site_id=site-1&id=sub-1", nil)
	req.Header.Set("Authorization", bearerToken(t, "principal-1"))
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubscriptionHandler_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, subRepo, _, _ := newTestHandler(t, ctrl)
	sub := domain.NewSubscription("site-1", "order", "created", "https://example.com/hook", "", "", "", time.Now())
	sub.ID = "sub-1"
	subRepo.EXPECT().GetByID(gomock.Any(), "site-1", "sub-1").Return(sub, nil)
	subRepo.EXPECT().Delete(gomock.Any(), "site-1", "sub-1").Return(nil)

	h.registry.AddSite("site-1", "")

	body, _ := json.Marshal(map[string]string{"site_id": "site-1", "id": "sub-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions.delete", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "principal-1"))
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSubscriptionHandler_Delete_UnknownSite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, subRepo, _, _ := newTestHandler(t, ctrl)
	sub := domain.NewSubscription("site-unregistered", "order", "created", "https://example.com/hook", "", "", "", time.Now())
	sub.ID = "sub-1"
	subRepo.EXPECT().GetByID(gomock.Any(), "site-unregistered", "sub-1").Return(sub, nil)

	body, _ := json.Marshal(map[string]string{"site_id": "site-unregistered", "id": "sub-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions.delete", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "principal-1"))
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscriptionHandler_Toggle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, subRepo, _, _ := newTestHandler(t, ctrl)
	sub := domain.NewSubscription("site-1", "order", "created", "https://example.com/hook", "", "", "", time.Now())
	sub.ID = "sub-1"
	sub.Active = false
	subRepo.EXPECT().GetByID(gomock.Any(), "site-1", "sub-1").Return(sub, nil)
	subRepo.EXPECT().Update(gomock.Any(), sub).Return(nil)

	h.registry.AddSite("site-1", "")

	body, _ := json.Marshal(map[string]interface{}{"site_id": "site-1", "id": "sub-1", "active": true})
	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions.toggle", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "principal-1"))
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sub.Active)
}

func TestSubscriptionHandler_GetDeliveries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, _, attemptRepo, _ := newTestHandler(t, ctrl)
	attempt := domain.NewDeliveryAttempt("att-1", "sub-1", "site-1", time.Now(), domain.Originated{})
	attemptRepo.EXPECT().
		ListBySubscription(gomock.Any(), "site-1", "sub-1", 20, 0).
		Return([]*domain.DeliveryAttempt{attempt}, 1, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/subscriptions.deliveries?site_id=site-1&subscription_id=sub-1", nil)
	req.Header.Set("Authorization", bearerToken(t, "principal-1"))
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
