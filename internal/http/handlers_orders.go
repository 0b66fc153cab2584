package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tuckshop/internal/domain"
	"tuckshop/internal/service"
)

type placeOrderReq struct {
	Items   []service.CartItem `json:"items"`
	Address domain.Address     `json:"address"`
}

// @Summary Place an order for the authenticated user
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body placeOrderReq true "Cart and address"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Router /orders/place [post]
func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON body"})
		return
	}
	claims := claimsFrom(c)
	customer := service.Customer{ID: claims.UserID, Name: claims.Name, Email: claims.Email}
	orderID, err := s.orders.Place(c, customer, req.Items, req.Address)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "orderId": orderID, "message": "Order placed successfully!"})
}

// @Summary List the authenticated user's orders, newest first
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	claims := claimsFrom(c)
	orders, err := s.orders.ListOrders(c, claims.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}
