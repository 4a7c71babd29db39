package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/internal/http/middleware"
	"github.com/nti-labs/webhooks/internal/registry"
	"github.com/nti-labs/webhooks/pkg/logger"
)

// SubscriptionHandler exposes the subscription management API described in
// spec §7: CRUD over subscriptions plus a read-only delivery-attempt feed.
// Dispatch itself (spec §4.6-4.9) never goes through HTTP — it's driven by
// whatever component raises an object event and calls into the Outbox.
type SubscriptionHandler struct {
	registry     *registry.Registry
	subRepo      domain.SubscriptionRepository
	attemptRepo  domain.DeliveryAttemptRepository
	auth         domain.Authentication
	logger       logger.Logger
	getJWTSecret func() ([]byte, error)
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(
	reg *registry.Registry,
	subRepo domain.SubscriptionRepository,
	attemptRepo domain.DeliveryAttemptRepository,
	auth domain.Authentication,
	getJWTSecret func() ([]byte, error),
	log logger.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		registry:     reg,
		subRepo:      subRepo,
		attemptRepo:  attemptRepo,
		auth:         auth,
		logger:       log,
		getJWTSecret: getJWTSecret,
	}
}

// RegisterRoutes registers the subscription management routes.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux) {
	authMiddleware := middleware.NewAuthMiddleware(h.getJWTSecret)
	requireAuth := authMiddleware.RequireAuth()

	mux.Handle("/api/subscriptions.create", requireAuth(http.HandlerFunc(h.handleCreate)))
	mux.Handle("/api/subscriptions.list", requireAuth(http.HandlerFunc(h.handleList)))
	mux.Handle("/api/subscriptions.get", requireAuth(http.HandlerFunc(h.handleGet)))
	mux.Handle("/api/subscriptions.update", requireAuth(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("/api/subscriptions.delete", requireAuth(http.HandlerFunc(h.handleDelete)))
	mux.Handle("/api/subscriptions.toggle", requireAuth(http.HandlerFunc(h.handleToggle)))
	mux.Handle("/api/subscriptions.deliveries", requireAuth(http.HandlerFunc(h.handleGetDeliveries)))
}

func (h *SubscriptionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		SiteID       string `json:"site_id"`
		ForType      string `json:"for_type"`
		When         string `json:"when"`
		To           string `json:"to"`
		OwnerID      string `json:"owner_id"`
		PermissionID string `json:"permission_id"`
		DialectID    string `json:"dialect_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.SiteID == "" {
		WriteJSONError(w, "site_id is required", http.StatusBadRequest)
		return
	}
	if req.ForType == "" {
		WriteJSONError(w, "for_type is required", http.StatusBadRequest)
		return
	}

	mgr := h.registry.AddSite(req.SiteID, "")
	sub, err := mgr.CreateSubscription(r.Context(), req.To, req.ForType, req.When, req.OwnerID, req.PermissionID, req.DialectID, h.auth)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to create subscription")
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"subscription": sub})
}

func (h *SubscriptionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	siteID := r.URL.Query().Get("site_id")
	if siteID == "" {
		WriteJSONError(w, "site_id is required", http.StatusBadRequest)
		return
	}

	subs, err := h.subRepo.List(r.Context(), siteID)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to list subscriptions")
		WriteJSONError(w, "Failed to list subscriptions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": subs})
}

func (h *SubscriptionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	siteID := r.URL.Query().Get("site_id")
	id := r.URL.Query().Get("id")
	if siteID == "" {
		WriteJSONError(w, "site_id is required", http.StatusBadRequest)
		return
	}
	if id == "" {
		WriteJSONError(w, "id is required", http.StatusBadRequest)
		return
	}

	sub, err := h.subRepo.GetByID(r.Context(), siteID, id)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to get subscription")
		WriteJSONError(w, "Subscription not found", http.StatusNotFound)
		return
	}

	if !h.authorize(r, sub, "view") {
		WriteJSONError(w, "Forbidden", http.StatusForbidden)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subscription": sub})
}

func (h *SubscriptionHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		SiteID                             string `json:"site_id"`
		ID                                 string `json:"id"`
		To                                 string `json:"to"`
		DialectID                          string `json:"dialect_id"`
		AttemptLimit                       int    `json:"attempt_limit"`
		ApplicablePreconditionFailureLimit int    `json:"applicable_precondition_failure_limit"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.SiteID == "" {
		WriteJSONError(w, "site_id is required", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		WriteJSONError(w, "id is required", http.StatusBadRequest)
		return
	}

	sub, err := h.subRepo.GetByID(r.Context(), req.SiteID, req.ID)
	if err != nil {
		WriteJSONError(w, "Subscription not found", http.StatusNotFound)
		return
	}

	if !h.authorize(r, sub, "delete") {
		WriteJSONError(w, "Forbidden", http.StatusForbidden)
		return
	}

	if req.To != "" {
		sub.To = req.To
	}
	if req.DialectID != "" {
		sub.DialectID = req.DialectID
	}
	if req.AttemptLimit > 0 {
		sub.AttemptLimit = req.AttemptLimit
	}
	if req.ApplicablePreconditionFailureLimit > 0 {
		sub.ApplicablePreconditionFailureLimit = req.ApplicablePreconditionFailureLimit
	}

	if err := h.subRepo.Update(r.Context(), sub); err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to update subscription")
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subscription": sub})
}

func (h *SubscriptionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		SiteID string `json:"site_id"`
		ID     string `json:"id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.SiteID == "" {
		WriteJSONError(w, "site_id is required", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		WriteJSONError(w, "id is required", http.StatusBadRequest)
		return
	}

	sub, err := h.subRepo.GetByID(r.Context(), req.SiteID, req.ID)
	if err != nil {
		WriteJSONError(w, "Subscription not found", http.StatusNotFound)
		return
	}

	if !h.authorize(r, sub, "delete") {
		WriteJSONError(w, "Forbidden", http.StatusForbidden)
		return
	}

	mgr := h.registry.ManagerFor(req.SiteID)
	if mgr == nil {
		WriteJSONError(w, "Unknown site", http.StatusNotFound)
		return
	}

	if err := mgr.RemoveSubscription(r.Context(), sub); err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to delete subscription")
		WriteJSONError(w, "Failed to delete subscription", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *SubscriptionHandler) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		SiteID string `json:"site_id"`
		ID     string `json:"id"`
		Active bool   `json:"active"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.SiteID == "" {
		WriteJSONError(w, "site_id is required", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		WriteJSONError(w, "id is required", http.StatusBadRequest)
		return
	}

	sub, err := h.subRepo.GetByID(r.Context(), req.SiteID, req.ID)
	if err != nil {
		WriteJSONError(w, "Subscription not found", http.StatusNotFound)
		return
	}

	if !h.authorize(r, sub, "delete") {
		WriteJSONError(w, "Forbidden", http.StatusForbidden)
		return
	}

	mgr := h.registry.ManagerFor(req.SiteID)
	if mgr == nil {
		WriteJSONError(w, "Unknown site", http.StatusNotFound)
		return
	}

	if req.Active {
		mgr.ActivateSubscription(sub)
	} else {
		mgr.DeactivateSubscription(sub, domain.DeactivationReasonManual)
	}

	if err := h.subRepo.Update(r.Context(), sub); err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to persist subscription toggle")
		WriteJSONError(w, "Failed to toggle subscription", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subscription": sub})
}

func (h *SubscriptionHandler) handleGetDeliveries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	siteID := r.URL.Query().Get("site_id")
	subscriptionID := r.URL.Query().Get("subscription_id")
	if siteID == "" {
		WriteJSONError(w, "site_id is required", http.StatusBadRequest)
		return
	}
	if subscriptionID == "" {
		WriteJSONError(w, "subscription_id is required", http.StatusBadRequest)
		return
	}

	limit := 20
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	attempts, total, err := h.attemptRepo.ListBySubscription(r.Context(), siteID, subscriptionID, limit, offset)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to get delivery attempts")
		WriteJSONError(w, "Failed to get delivery attempts", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deliveries": attempts,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	})
}

// authorize reports whether the request's authenticated principal holds
// permissionID on sub. Subscriptions created with no OwnerID have no access
// control attached (spec §4.4.1's "passes unconditionally" case) and are
// open to any authenticated caller.
func (h *SubscriptionHandler) authorize(r *http.Request, sub *domain.Subscription, permissionID string) bool {
	if sub.OwnerID == "" {
		return true
	}

	principalID, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return false
	}

	principal, ok := h.auth.GetPrincipal(r.Context(), principalID)
	if !ok {
		return false
	}

	permission, ok := h.auth.GetPermission(r.Context(), permissionID)
	if !ok {
		return false
	}

	return h.auth.CheckPermission(r.Context(), principal, permission, sub)
}
