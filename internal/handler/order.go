package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Sachintha-Prasad/retail-management-system/internal/dto"
	"github.com/Sachintha-Prasad/retail-management-system/internal/model"
	"github.com/Sachintha-Prasad/retail-management-system/internal/service"
	"github.com/Sachintha-Prasad/retail-management-system/internal/worker"
)

type OrderHandler struct {
	svc         *service.OrderService
	redisClient *redis.Client
}

func NewOrderHandler(svc *service.OrderService, redisClient *redis.Client) *OrderHandler {
	return &OrderHandler{svc: svc, redisClient: redisClient}
}

// Create handles POST /api/orders: checkout of the customer's cart.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	order, err := h.svc.Checkout(c.Request.Context(), req.CustomerID, model.Address{
		Line1:      req.Address.Line1,
		City:       req.Address.City,
		State:      req.Address.State,
		PostalCode: req.Address.PostalCode,
		Country:    req.Address.Country,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			fail(c, http.StatusNotFound, err)
		case errors.Is(err, service.ErrEmptyCart):
			fail(c, http.StatusBadRequest, err)
		default:
			internalError(c, err)
		}
		return
	}
	c.JSON(http.StatusCreated, dto.ToOrderResponse(order))
}

func (h *OrderHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	order, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			fail(c, http.StatusNotFound, err)
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

func (h *OrderHandler) ListAll(c *gin.Context) {
	orders, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderList(orders))
}

// ListByCustomer handles GET /api/customers/:customerId/orders.
func (h *OrderHandler) ListByCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("invalid customer id"))
		return
	}

	orders, err := h.svc.ListByCustomerID(c.Request.Context(), customerID)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderList(orders))
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	order, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			fail(c, http.StatusNotFound, err)
		case errors.Is(err, service.ErrInvalidOrderStatus):
			fail(c, http.StatusBadRequest, err)
		default:
			internalError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			fail(c, http.StatusNotFound, err)
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

// Stats handles GET /api/stats/orders, reading the counters the stats
// worker maintains in Redis.
func (h *OrderHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.redisClient.Get(ctx, worker.StatsOrderCountKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		internalError(c, err)
		return
	}

	revenue := decimal.Zero
	if raw, err := h.redisClient.Get(ctx, worker.StatsRevenueKey).Result(); err == nil {
		if parsed, perr := decimal.NewFromString(raw); perr == nil {
			revenue = parsed
		}
	} else if !errors.Is(err, redis.Nil) {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OrderStatsResponse{Orders: count, Revenue: revenue})
}

func toOrderList(orders []model.Order) dto.OrderListResponse {
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, dto.ToOrderResponse(&orders[i]))
	}
	return dto.OrderListResponse{Orders: items, Total: len(items)}
}
