package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"tuckshop/internal/repository"
	"tuckshop/internal/service"
)

type Server struct {
	engine    *gin.Engine
	auth      *service.AuthService
	catalog   *service.CatalogService
	orders    *service.OrderService
	passwords *service.PasswordService
	log       zerolog.Logger
}

func NewServer(auth *service.AuthService, catalog *service.CatalogService, orders *service.OrderService, passwords *service.PasswordService, log zerolog.Logger) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s := &Server{engine: r, auth: auth, catalog: catalog, orders: orders, passwords: passwords, log: log}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.engine.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/signup", s.signup)
		auth.POST("/login", s.login)
		auth.POST("/verify-token", s.authRequired(), s.verifyToken)

		products := api.Group("/products")
		products.GET("", s.listProducts)
		products.POST("", s.addProduct)
		products.POST("/bulk-add", s.authRequired(), s.bulkAddProducts)
		products.PUT("/rename", s.renameProduct)
		products.PUT("/update-quantity", s.updateQuantity)
		products.PUT("/update-price", s.updatePrice)
		products.PUT("/bulk-update-details", s.bulkUpdateDetails)
		products.PUT("/bulk-category-update", s.bulkCategoryUpdate)
		products.PUT("/category-by-pattern", s.categoryByPattern)
		products.DELETE("/category/:category", s.deleteCategory)
		products.DELETE("/:name", s.deleteProduct)

		orders := api.Group("/orders", s.authRequired())
		orders.GET("", s.listOrders)
		orders.POST("/place", s.placeOrder)

		password := api.Group("/password")
		password.POST("/forgot", s.forgotPassword)
		password.POST("/verify-token", s.verifyResetToken)
		password.POST("/reset", s.resetPassword)
	}
}

// fail maps a service error to an HTTP response. Business-rule errors
// carry their message through; anything unexpected is logged in full and
// reduced to a generic 500.
func (s *Server) fail(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(statusForKind(svcErr.Kind), gin.H{"success": false, "message": svcErr.Message})
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
		return
	}
	s.log.Error().Err(err).Str("path", c.FullPath()).Msg("unexpected error")
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
}

func statusForKind(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindConflict:
		return http.StatusBadRequest
	case service.KindAuth:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
