package cartapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/dimasukma/backend-etalase/internal/cart"
	"github.com/dimasukma/backend-etalase/internal/catalog"
	"github.com/dimasukma/backend-etalase/internal/common"
	"github.com/dimasukma/backend-etalase/internal/feedback"
	"github.com/dimasukma/backend-etalase/internal/obs"
	"github.com/dimasukma/backend-etalase/internal/pricing"
	"github.com/dimasukma/backend-etalase/internal/session"
)

// Handler wires cart sessions and the product catalog to HTTP.
type Handler struct {
	Sessions *session.Registry
	Catalog  *catalog.Service
	Validate *validator.Validate
}

// CreateSession provisions a fresh cart session and returns its identifier.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	entry := h.Sessions.Create()
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"sessionId": entry.ID},
	})
}

// entryKey is the context key storing the resolved session entry.
type entryKey struct{}

// RequireSession resolves the session from the X-Session-ID header and stores
// it on the request context. Requests without a live session are rejected.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(obs.SessionHeader))
		if id == "" {
			common.JSONError(w, http.StatusBadRequest, "SESSION_REQUIRED", "missing "+obs.SessionHeader+" header", nil)
			return
		}
		entry, ok := h.Sessions.Get(id)
		if !ok {
			common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "unknown or expired cart session", nil)
			return
		}
		ctx := context.WithValue(r.Context(), entryKey{}, entry)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func entryFrom(r *http.Request) *session.Entry {
	entry, _ := r.Context().Value(entryKey{}).(*session.Entry)
	return entry
}

// Get returns the current cart state.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	entry := entryFrom(r)
	common.JSON(w, http.StatusOK, map[string]any{"data": entry.Store.Snapshot()})
}

// Summary returns the cart's pricing summary with display-formatted amounts.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	entry := entryFrom(r)
	state := entry.Store.Snapshot()
	summary := cart.Summarize(state)
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"summary": summary,
			"formatted": map[string]string{
				"subtotal":      pricing.FormatPrice(summary.Subtotal),
				"totalSavings":  pricing.FormatPrice(summary.TotalSavings),
				"originalTotal": pricing.FormatPrice(summary.OriginalTotal),
				"finalTotal":    pricing.FormatPrice(summary.FinalTotal),
			},
		},
	})
}

type addItemRequest struct {
	ProductID int `json:"productId" validate:"required,gt=0"`
}

// AddItem fetches the product and runs it through the guarded add path.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	entry := entryFrom(r)
	var payload addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "productId must be a positive integer", nil)
		return
	}
	product, err := h.Catalog.GetProduct(r.Context(), payload.ProductID)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	note := entry.Engine.AddItem(r.Context(), &product)
	h.writeMutation(w, entry, note, http.StatusCreated)
}

// IncreaseQuantity increments the cart line for the product id. The product
// is re-fetched so the stock guard sees current upstream stock, not the
// figure captured when the line was added.
func (h *Handler) IncreaseQuantity(w http.ResponseWriter, r *http.Request) {
	h.adjustQuantity(w, r, func(ctx context.Context, entry *session.Entry, p *catalog.Product) feedback.Notification {
		return entry.Engine.IncreaseQuantity(ctx, p)
	})
}

// DecreaseQuantity decrements the cart line, removing it at quantity one.
// Decrementing an absent line surfaces the engine's minimum-reached
// rejection rather than a transport-level error.
func (h *Handler) DecreaseQuantity(w http.ResponseWriter, r *http.Request) {
	h.adjustQuantity(w, r, func(ctx context.Context, entry *session.Entry, p *catalog.Product) feedback.Notification {
		return entry.Engine.DecreaseQuantity(ctx, p)
	})
}

func (h *Handler) adjustQuantity(w http.ResponseWriter, r *http.Request, mutate func(context.Context, *session.Entry, *catalog.Product) feedback.Notification) {
	entry := entryFrom(r)
	id := common.AtoiDefault(chi.URLParam(r, "id"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	product, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	note := mutate(r.Context(), entry, &product)
	h.writeMutation(w, entry, note, http.StatusOK)
}

type confirmRequest struct {
	Confirmed *bool `json:"confirmed"`
}

// prompt captures the confirmation question raised by a destructive mutation.
type prompt struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// bodyConfirmer answers confirmation prompts from the request body. A request
// that carried no decision records the prompt so the handler can relay it.
type bodyConfirmer struct {
	confirmed *bool
	prompt    *prompt
}

func (c *bodyConfirmer) Confirm(_ context.Context, title, message string) (bool, error) {
	c.prompt = &prompt{Title: title, Message: message}
	if c.confirmed == nil {
		return false, nil
	}
	return *c.confirmed, nil
}

// RemoveItem removes a cart line. Without `"confirmed": true` in the body the
// mutation is withheld and the confirmation prompt is returned instead.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	entry := entryFrom(r)
	id := common.AtoiDefault(chi.URLParam(r, "id"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	h.confirmAndRespond(w, r, "removed", func(ctx context.Context) (bool, error) {
		return entry.Engine.RemoveItem(ctx, id)
	})
}

// Clear empties the cart under the same confirmation protocol as RemoveItem.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	entry := entryFrom(r)
	h.confirmAndRespond(w, r, "cleared", func(ctx context.Context) (bool, error) {
		return entry.Engine.ClearCart(ctx)
	})
}

func (h *Handler) confirmAndRespond(w http.ResponseWriter, r *http.Request, field string, run func(context.Context) (bool, error)) {
	entry := entryFrom(r)
	var payload confirmRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	confirmer := &bodyConfirmer{confirmed: payload.Confirmed}
	ctx := feedback.WithConfirmer(r.Context(), confirmer)

	done, err := run(ctx)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "confirmation failed", nil)
		return
	}
	if !done && confirmer.prompt != nil && payload.Confirmed == nil {
		common.JSON(w, http.StatusConflict, map[string]any{
			"error": common.ErrorBody{
				Code:    "CONFIRMATION_REQUIRED",
				Message: confirmer.prompt.Message,
				Details: confirmer.prompt,
			},
		})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			field:          done,
			"cart":         entry.Store.Snapshot(),
			"notification": entry.Engine.Notification(),
		},
	})
}

// Feedback returns the current transient notification.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	entry := entryFrom(r)
	common.JSON(w, http.StatusOK, map[string]any{"data": entry.Engine.Notification()})
}

// DismissFeedback hides the current notification ahead of its timer.
func (h *Handler) DismissFeedback(w http.ResponseWriter, r *http.Request) {
	entry := entryFrom(r)
	entry.Engine.Hide()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeMutation(w http.ResponseWriter, entry *session.Entry, note feedback.Notification, okStatus int) {
	status := okStatus
	if note.Kind == feedback.KindError {
		status = http.StatusUnprocessableEntity
	}
	common.JSON(w, status, map[string]any{
		"data": map[string]any{
			"notification": note,
			"cart":         entry.Store.Snapshot(),
		},
	})
}

func (h *Handler) writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrProductNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "product catalog unavailable", nil)
}
