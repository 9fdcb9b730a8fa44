package api

import (
	"errors"
	"net/http"

	"github.com/example/promo-cart/internal/api/middleware"
	"github.com/example/promo-cart/internal/command"
	"github.com/example/promo-cart/internal/domain/cart"
	"github.com/example/promo-cart/internal/domain/catalog"
	"github.com/example/promo-cart/internal/notification"
	"github.com/example/promo-cart/internal/query"
	"github.com/gin-gonic/gin"
)

const msgOutOfStock = "재고가 부족합니다."

type Handlers struct {
	cmdHandler    *command.Handler
	queryHandler  *query.Handler
	notifications *notification.Handler
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, notifications *notification.Handler) *Handlers {
	return &Handlers{
		cmdHandler:    cmdHandler,
		queryHandler:  queryHandler,
		notifications: notifications,
	}
}

// Product Handlers

func (h *Handlers) GetProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.queryHandler.ListProducts())
}

func (h *Handlers) GetProduct(c *gin.Context) {
	p, err := h.queryHandler.GetProduct(c.Param("productId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Cart Handlers

type addToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  *int   `json:"quantity"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

type lineResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handlers) GetCart(c *gin.Context) {
	summary, err := h.queryHandler.GetCart()
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handlers) AddToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, "product_id is required")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	n, err := h.cmdHandler.AddToCart(c.Request.Context(), command.AddToCart{ProductID: req.ProductID, Quantity: qty})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lineResponse{ProductID: req.ProductID, Quantity: n})
}

func (h *Handlers) ChangeQuantity(c *gin.Context) {
	var req changeQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	productID := c.Param("productId")

	n, err := h.cmdHandler.ChangeQuantity(c.Request.Context(), command.ChangeQuantity{ProductID: productID, Delta: req.Delta})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, lineResponse{ProductID: productID, Quantity: n})
}

func (h *Handlers) RemoveFromCart(c *gin.Context) {
	if err := h.cmdHandler.RemoveFromCart(c.Request.Context(), command.RemoveFromCart{ProductID: c.Param("productId")}); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) ClearCart(c *gin.Context) {
	restored, err := h.cmdHandler.ClearCart(c.Request.Context(), command.ClearCart{})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restored": restored})
}

func (h *Handlers) GetHistory(c *gin.Context) {
	events, err := h.cmdHandler.History(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		middleware.RespondError(c, http.StatusInternalServerError, "journal unavailable")
		return
	}
	c.JSON(http.StatusOK, events)
}

// Alert Handlers

func (h *Handlers) GetAlerts(c *gin.Context) {
	alerts, err := h.notifications.Recent(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		middleware.RespondError(c, http.StatusInternalServerError, "alert feed unavailable")
		return
	}
	if alerts == nil {
		alerts = []notification.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondDomainError maps cart and catalog errors onto HTTP statuses.
func respondDomainError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, catalog.ErrInsufficientStock):
		middleware.RespondError(c, http.StatusConflict, msgOutOfStock)
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, cart.ErrNotInCart):
		middleware.RespondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, catalog.ErrInvalidQuantity):
		middleware.RespondError(c, http.StatusBadRequest, err.Error())
	default:
		middleware.RespondError(c, http.StatusInternalServerError, "internal error")
	}
}
