package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tuckshop/internal/domain"
	"tuckshop/internal/service"
)

type productReq struct {
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Quantity *int64   `json:"quantity"`
	ImageURL string   `json:"imageUrl"`
	Category string   `json:"category"`
}

func (r productReq) complete() bool {
	return r.Name != "" && r.Price != nil && r.Quantity != nil && r.ImageURL != "" && r.Category != ""
}

func (r productReq) toDomain() domain.Product {
	p := domain.Product{Name: r.Name, ImageURL: r.ImageURL, Category: domain.Category(r.Category)}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Quantity != nil {
		p.Quantity = *r.Quantity
	}
	return p
}

// @Summary List all products
// @Tags products
// @Produce json
// @Success 200 {object} map[string]any
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	products, err := s.catalog.List(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

// @Summary Add a product
// @Tags products
// @Accept json
// @Produce json
// @Param input body productReq true "Product"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /products [post]
func (s *Server) addProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON body"})
		return
	}
	if !req.complete() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "All product fields are required (name, price, quantity, imageUrl, category)",
		})
		return
	}
	p, err := s.catalog.Add(c, req.toDomain())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Product added successfully", "product": p})
}

type bulkAddReq struct {
	Products []productReq `json:"products"`
}

// @Summary Add many products
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body bulkAddReq true "Products"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /products/bulk-add [post]
func (s *Server) bulkAddProducts(c *gin.Context) {
	var req bulkAddReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Products) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Products array is required"})
		return
	}
	// Per-item required-field check mirrors the single add; incomplete
	// items become per-item errors, not batch failures.
	valid := make([]domain.Product, 0, len(req.Products))
	errs := make([]string, 0)
	for _, r := range req.Products {
		if !r.complete() {
			errs = append(errs, "Missing fields for product: "+r.Name)
			continue
		}
		valid = append(valid, r.toDomain())
	}
	created, svcErrs := s.catalog.BulkAdd(c, valid)
	errs = append(errs, svcErrs...)
	c.JSON(http.StatusCreated, gin.H{
		"success":      len(errs) == 0,
		"createdCount": len(created),
		"created":      created,
		"errors":       errs,
	})
}

type renameReq struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

// @Summary Rename a product
// @Tags products
// @Accept json
// @Produce json
// @Param input body renameReq true "Names"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /products/rename [put]
func (s *Server) renameProduct(c *gin.Context) {
	var req renameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON body"})
		return
	}
	p, err := s.catalog.Rename(c, req.OldName, req.NewName)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Renamed " + req.OldName + " to " + req.NewName, "product": p})
}

type updateQuantityReq struct {
	Name     string `json:"name"`
	Quantity *int64 `json:"quantity"`
}

// @Summary Update the stock of a product
// @Tags products
// @Accept json
// @Produce json
// @Param input body updateQuantityReq true "Update"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /products/update-quantity [put]
func (s *Server) updateQuantity(c *gin.Context) {
	var req updateQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Name and quantity are required"})
		return
	}
	p, err := s.catalog.UpdateQuantity(c, req.Name, *req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Quantity updated", "product": p})
}

type updatePriceReq struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

// @Summary Update the price of a product
// @Tags products
// @Accept json
// @Produce json
// @Param input body updatePriceReq true "Update"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /products/update-price [put]
func (s *Server) updatePrice(c *gin.Context) {
	var req updatePriceReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Price == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Name and price are required"})
		return
	}
	p, err := s.catalog.UpdatePrice(c, req.Name, *req.Price)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Price updated", "product": p})
}

type detailUpdateReq struct {
	Name     string   `json:"name"`
	Category *string  `json:"category"`
	Quantity *int64   `json:"quantity"`
	Price    *float64 `json:"price"`
}

type bulkUpdateDetailsReq struct {
	Updates []detailUpdateReq `json:"updates"`
}

// @Summary Patch category/quantity/price for many products
// @Tags products
// @Accept json
// @Produce json
// @Param input body bulkUpdateDetailsReq true "Updates"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /products/bulk-update-details [put]
func (s *Server) bulkUpdateDetails(c *gin.Context) {
	var req bulkUpdateDetailsReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Updates array is required"})
		return
	}
	updates := make([]service.DetailUpdate, 0, len(req.Updates))
	for _, u := range req.Updates {
		du := service.DetailUpdate{Name: u.Name, Quantity: u.Quantity, Price: u.Price}
		if u.Category != nil {
			cat := domain.Category(*u.Category)
			du.Category = &cat
		}
		updates = append(updates, du)
	}
	results, errs := s.catalog.BulkUpdateDetails(c, updates)
	c.JSON(http.StatusOK, gin.H{
		"success":      len(errs) == 0,
		"updatedCount": len(results),
		"results":      results,
		"errors":       errs,
	})
}

type categoryUpdateReq struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type bulkCategoryUpdateReq struct {
	Updates []categoryUpdateReq `json:"updates"`
}

// @Summary Reassign categories by name list
// @Tags products
// @Accept json
// @Produce json
// @Param input body bulkCategoryUpdateReq true "Updates"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /products/bulk-category-update [put]
func (s *Server) bulkCategoryUpdate(c *gin.Context) {
	var req bulkCategoryUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Updates array is required"})
		return
	}
	updates := make([]service.CategoryUpdate, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates = append(updates, service.CategoryUpdate{Name: u.Name, Category: domain.Category(u.Category)})
	}
	results, errs := s.catalog.BulkCategoryUpdate(c, updates)
	c.JSON(http.StatusOK, gin.H{
		"success": len(errs) == 0,
		"message": "Updated " + strconv.Itoa(len(results)) + " products",
		"results": results,
		"errors":  errs,
	})
}

type categoryByPatternReq struct {
	Pattern     string `json:"pattern"`
	NewCategory string `json:"newCategory"`
	MatchType   string `json:"matchType"`
}

// @Summary Reassign categories by name pattern
// @Tags products
// @Accept json
// @Produce json
// @Param input body categoryByPatternReq true "Pattern"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /products/category-by-pattern [put]
func (s *Server) categoryByPattern(c *gin.Context) {
	var req categoryByPatternReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON body"})
		return
	}
	modified, err := s.catalog.CategoryByPattern(c, req.Pattern, domain.Category(req.NewCategory), req.MatchType)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "modifiedCount": modified})
}

// @Summary Delete a product by name
// @Tags products
// @Produce json
// @Param name path string true "Product name"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /products/{name} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.catalog.DeleteByName(c, c.Param("name")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted successfully"})
}

// @Summary Delete all products in a category
// @Tags products
// @Produce json
// @Param category path string true "Category"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /products/category/{category} [delete]
func (s *Server) deleteCategory(c *gin.Context) {
	deleted, err := s.catalog.DeleteByCategory(c, domain.Category(c.Param("category")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deletedCount": deleted})
}
