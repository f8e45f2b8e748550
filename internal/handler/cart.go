package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Sachintha-Prasad/retail-management-system/internal/dto"
	"github.com/Sachintha-Prasad/retail-management-system/internal/service"
)

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

// AddItem handles POST /api/cart/add.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	cart, err := h.svc.AddItem(c.Request.Context(), req.CustomerID, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrUserNotFound):
			fail(c, http.StatusNotFound, err)
		default:
			internalError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

// GetCart handles GET /api/cart/:customerId. A customer who never added
// anything has no cart yet and gets a 404.
func (h *CartHandler) GetCart(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("invalid customer id"))
		return
	}

	cart, err := h.svc.GetCart(c.Request.Context(), customerID)
	if err != nil {
		if errors.Is(err, service.ErrCartNotFound) {
			fail(c, http.StatusNotFound, err)
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

// UpdateItem handles PUT /api/cart/update.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	cart, err := h.svc.UpdateItem(c.Request.Context(), req.CustomerID, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartNotFound), errors.Is(err, service.ErrItemNotInCart):
			fail(c, http.StatusNotFound, err)
		default:
			internalError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

// RemoveItem handles DELETE /api/cart/remove. The product id travels in
// the request body, matching the original surface.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	var req dto.RemoveCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	cart, err := h.svc.RemoveItem(c.Request.Context(), req.CustomerID, req.ProductID)
	if err != nil {
		if errors.Is(err, service.ErrCartNotFound) {
			fail(c, http.StatusNotFound, err)
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

// Clear handles DELETE /api/cart/clear. Returns a confirmation message
// rather than the cart body.
func (h *CartHandler) Clear(c *gin.Context) {
	var req dto.ClearCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	if err := h.svc.Clear(c.Request.Context(), req.CustomerID); err != nil {
		if errors.Is(err, service.ErrCartNotFound) {
			fail(c, http.StatusNotFound, err)
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared successfully"})
}
