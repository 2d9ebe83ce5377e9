package api

import (
	"net/http"
	"strconv"

	"order-gateway/internal/order"

	"github.com/gin-gonic/gin"
)

type submitOrderRequest struct {
	OrderID int64   `json:"order_id"` // optional; 0 lets the gateway assign one
	Symbol  string  `json:"symbol" binding:"required"`
	Side    string  `json:"side" binding:"required"`
	Price   float64 `json:"price"`
	Qty     float64 `json:"qty"`
}

type amendOrderRequest struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// submitOrder handles POST /api/orders.
func (s *Server) submitOrder(c *gin.Context) {
	var req submitOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": err.Error(),
		})
		return
	}

	res := s.Facade.NewOrder(c.Request.Context(), order.Order{
		ID:     req.OrderID,
		Symbol: req.Symbol,
		Side:   order.Side(req.Side),
		Price:  req.Price,
		Qty:    req.Qty,
	})

	status := http.StatusAccepted
	if res.Status == order.StatusRejected {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, res)
}

// modifyOrder handles PUT /api/orders/:id.
func (s *Server) modifyOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_ORDER_ID",
			"error": "order id must be an integer",
		})
		return
	}

	var req amendOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": err.Error(),
		})
		return
	}

	// An ignored modify is a no-op, not an error.
	res := s.Facade.ModifyOrder(c.Request.Context(), id, req.Price, req.Qty)
	c.JSON(http.StatusOK, res)
}

// cancelOrder handles DELETE /api/orders/:id.
func (s *Server) cancelOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_ORDER_ID",
			"error": "order id must be an integer",
		})
		return
	}

	res := s.Facade.CancelOrder(c.Request.Context(), id)
	c.JSON(http.StatusOK, res)
}

// pendingOrders handles GET /api/orders/pending.
func (s *Server) pendingOrders(c *gin.Context) {
	pending := s.Facade.Pending()
	c.JSON(http.StatusOK, gin.H{
		"count":  len(pending),
		"orders": pending,
	})
}

// sessionStatus handles GET /api/session.
func (s *Server) sessionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"phase":       s.Facade.Phase().String(),
		"open_time":   s.Meta.OpenTime,
		"close_time":  s.Meta.CloseTime,
		"max_per_sec": s.Meta.MaxPerSec,
	})
}

// listResponses handles GET /api/responses.
func (s *Server) listResponses(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.DB.ListResponses(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}

	out := make([]gin.H, 0, len(records))
	for _, r := range records {
		out = append(out, gin.H{
			"order_id":   r.OrderID,
			"verdict":    r.Verdict,
			"latency_ms": r.LatencyMs,
			"created_at": r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"responses": out})
}

// metrics handles GET /api/metrics.
func (s *Server) metrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Metrics.Snapshot())
}
