package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/service"
)

type OrdersHandler struct {
	orders  *service.OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders *service.OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrderItemDTO struct {
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
	PriceAtOrder int64  `json:"price_at_order"`
}

type OrderDTO struct {
	ID          string         `json:"id"`
	TotalAmount int64          `json:"total_amount"`
	Currency    string         `json:"currency"`
	Status      string         `json:"status"`
	Items       []OrderItemDTO `json:"items"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toOrderDTO(o *domain.Order) OrderDTO {
	dto := OrderDTO{
		ID:          o.ID,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		Status:      string(o.Status),
		Items:       make([]OrderItemDTO, 0, len(o.Lines)),
		CreatedAt:   o.CreatedAt,
	}
	for _, l := range o.Lines {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			PriceAtOrder: l.PriceAtOrder,
		})
	}
	return dto
}

func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	order, err := h.orders.PlaceOrder(ctx, userID)
	if err != nil {
		// A request that runs out of time counts as a failed creation:
		// the caller cannot know whether the order committed and must retry.
		if errors.Is(err, context.DeadlineExceeded) {
			respondError(w, http.StatusServiceUnavailable, "order_creation_failed", "could not create order, please retry")
			return
		}
		handleServiceError(w, err)
		return
	}

	log.Printf("request %s: order %s placed for user %s", getRequestID(r.Context()), order.ID, userID)
	respondJSON(w, http.StatusCreated, toOrderDTO(order))
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListOrders(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toOrderDTO(o))
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id is required")
		return
	}

	order, err := h.orders.GetOrder(ctx, userID, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *OrdersHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id is required")
		return
	}

	if err := h.orders.DeleteOrder(ctx, userID, orderID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
