package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/roamsim/esim-platform/reconcile-service/internal/client"
	"github.com/roamsim/esim-platform/reconcile-service/internal/config"
	"github.com/roamsim/esim-platform/reconcile-service/internal/deeplink"
	"github.com/roamsim/esim-platform/reconcile-service/internal/models"
	"github.com/roamsim/esim-platform/reconcile-service/internal/reconcile"
	"github.com/roamsim/esim-platform/reconcile-service/internal/repository"
)

type Handler struct {
	orchestrator *reconcile.Orchestrator
	poller       *reconcile.Poller
	router       *deeplink.Router
	orders       reconcile.OrderFetcher
	pending      reconcile.PendingStore
	events       *repository.EventRepository
	polling      config.PollingConfig
}

func NewHandler(
	orchestrator *reconcile.Orchestrator,
	poller *reconcile.Poller,
	router *deeplink.Router,
	orders reconcile.OrderFetcher,
	pending reconcile.PendingStore,
	events *repository.EventRepository,
	polling config.PollingConfig,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		poller:       poller,
		router:       router,
		orders:       orders,
		pending:      pending,
		events:       events,
		polling:      polling,
	}
}

// uiRecorder materializes the router's navigation and alert side effects into
// the response the mobile shell executes.
type uiRecorder struct {
	navigation string
	alerts     []models.Alert
}

func (r *uiRecorder) NavigateTo(target string) {
	r.navigation = target
}

func (r *uiRecorder) Info(title, message string) {
	r.alerts = append(r.alerts, models.Alert{Title: title, Message: message, Tone: "info"})
}

func (r *uiRecorder) Error(title, message string) {
	r.alerts = append(r.alerts, models.Alert{Title: title, Message: message, Tone: "error"})
}

func (r *uiRecorder) response() models.DeepLinkResponse {
	return models.DeepLinkResponse{Navigation: r.navigation, Alerts: r.alerts}
}

func userID(c *gin.Context) (string, bool) {
	id := c.GetString("userID")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user identity missing from token"})
		return "", false
	}
	return id, true
}

// ==================== User API Handlers ====================

// Purchase runs the Buy Now flow and always answers with a terminal outcome.
func (h *Handler) Purchase(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := h.orchestrator.Purchase(c.Request.Context(), models.PurchaseIntent{
		UserID:        uid,
		PlanID:        req.PlanID,
		PlanName:      req.PlanName,
		IsTopUp:       req.IsTopUp,
		PaymentMethod: req.PaymentMethod,
	})

	c.JSON(http.StatusOK, resp)
}

// DeepLink dispatches one externally delivered URL for the user.
func (h *Handler) DeepLink(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req models.DeepLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := &uiRecorder{}
	h.router.Handle(c.Request.Context(), uid, req.URL, rec, rec)

	c.JSON(http.StatusOK, rec.response())
}

// GetOrder returns one order snapshot together with the should-poll pre-check.
func (h *Handler) GetOrder(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id required"})
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, client.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "order service unavailable"})
		return
	}

	c.JSON(http.StatusOK, models.OrderStatusResponse{
		Order:      order,
		ShouldPoll: reconcile.ShouldPoll(order),
	})
}

// PollOrder runs one polling loop with a named budget and returns the
// structured result; the HTTP status is 200 for every outcome, including
// timeouts and terminal failures.
func (h *Handler) PollOrder(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id required"})
		return
	}

	policy := h.polling.Quick
	switch c.DefaultQuery("policy", "quick") {
	case "quick":
	case "background":
		policy = h.polling.Background
	case "resumption":
		policy = h.polling.Resumption
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown poll policy"})
		return
	}

	result := h.poller.Poll(c.Request.Context(), orderID, reconcile.PollOptionsFromPolicy(policy))
	c.JSON(http.StatusOK, result)
}

// GetPending returns the single-slot pending purchase, null when absent.
func (h *Handler) GetPending(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, models.PendingResponse{
		Pending: h.pending.Get(c.Request.Context(), uid),
	})
}

// ClearPending removes the pending purchase, e.g. on explicit user
// cancellation. Idempotent.
func (h *Handler) ClearPending(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	h.pending.Clear(c.Request.Context(), uid)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ==================== Internal API Handlers ====================

// ReconcileUser re-runs recovery for one user with the background budget.
// Same engine as the deep-link path; the response carries the UI actions the
// notification layer may relay.
func (h *Handler) ReconcileUser(c *gin.Context) {
	uid := c.Param("user_id")
	if uid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	h.events.Record(c.Request.Context(), uid, "", models.ActionSweepStarted, "", "background reconcile sweep")

	rec := &uiRecorder{}
	h.router.Recover(c.Request.Context(), uid, h.polling.Background, rec, rec)

	c.JSON(http.StatusOK, rec.response())
}

// GetOrderEvents returns the reconciliation trail for one order.
func (h *Handler) GetOrderEvents(c *gin.Context) {
	orderID := c.Param("order_id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, err := h.events.GetByOrderID(c.Request.Context(), orderID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
