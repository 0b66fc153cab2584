package service

import (
	"context"
	"errors"
	"fmt"

	"tuckshop/internal/domain"
	"tuckshop/internal/repository"
)

// CatalogService encapsulates product catalog operations
type CatalogService struct {
	products repository.ProductRepository
}

func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

// List returns all products ordered by category then name
func (s *CatalogService) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

func validateNewProduct(p domain.Product) error {
	if p.Name == "" || p.ImageURL == "" || p.Category == "" {
		return Invalid("All product fields are required (name, price, quantity, imageUrl, category)")
	}
	if !domain.ValidCategory(p.Category) {
		return Invalid(fmt.Sprintf("Invalid category %q", p.Category))
	}
	if p.Price < 0 || p.Quantity < 0 {
		return Invalid("Price and quantity must not be negative")
	}
	return nil
}

// Add creates a single product
func (s *CatalogService) Add(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateNewProduct(p); err != nil {
		return nil, err
	}
	cp := p
	if err := s.products.Create(ctx, &cp); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("Product name already exists")
		}
		return nil, err
	}
	return &cp, nil
}

// BulkAdd inserts many products with per-item validation. Failing items
// are reported, never fatal to the batch.
func (s *CatalogService) BulkAdd(ctx context.Context, products []domain.Product) (created []domain.Product, errs []string) {
	created = make([]domain.Product, 0, len(products))
	for _, p := range products {
		if err := validateNewProduct(p); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", p.Name, err))
			continue
		}
		cp := p
		if err := s.products.Create(ctx, &cp); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				errs = append(errs, fmt.Sprintf("Product name already exists: %s", p.Name))
			} else {
				errs = append(errs, fmt.Sprintf("Error adding %s: %v", p.Name, err))
			}
			continue
		}
		created = append(created, cp)
	}
	return created, errs
}

// Rename changes a product's name. Historical order lines keep the old
// name since they are value copies.
func (s *CatalogService) Rename(ctx context.Context, oldName, newName string) (*domain.Product, error) {
	if oldName == "" || newName == "" {
		return nil, Invalid("oldName and newName are required")
	}
	p, err := s.products.Rename(ctx, oldName, newName)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, Conflict("A product with the new name already exists")
		case errors.Is(err, repository.ErrNotFound):
			return nil, NotFound("Product with old name not found")
		}
		return nil, err
	}
	return p, nil
}

// UpdateQuantity sets the stock of a product by name
func (s *CatalogService) UpdateQuantity(ctx context.Context, name string, quantity int64) (*domain.Product, error) {
	if name == "" {
		return nil, Invalid("Name and quantity are required")
	}
	if quantity < 0 {
		return nil, Invalid("Quantity must not be negative")
	}
	p, err := s.products.UpdateByName(ctx, name, repository.ProductPatch{Quantity: &quantity})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound("Product not found")
	}
	return p, err
}

// UpdatePrice sets the price of a product by name
func (s *CatalogService) UpdatePrice(ctx context.Context, name string, price float64) (*domain.Product, error) {
	if name == "" {
		return nil, Invalid("Name and price are required")
	}
	if price < 0 {
		return nil, Invalid("Price must not be negative")
	}
	p, err := s.products.UpdateByName(ctx, name, repository.ProductPatch{Price: &price})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound("Product not found")
	}
	return p, err
}

// DetailUpdate is one item of a bulk details patch; nil fields are
// left unchanged.
type DetailUpdate struct {
	Name     string
	Category *domain.Category
	Quantity *int64
	Price    *float64
}

// BulkUpdateDetails applies per-product patches independently; item
// failures are collected alongside successes.
func (s *CatalogService) BulkUpdateDetails(ctx context.Context, updates []DetailUpdate) (results []domain.Product, errs []string) {
	results = make([]domain.Product, 0, len(updates))
	for _, u := range updates {
		if u.Name == "" {
			errs = append(errs, "Missing name in update")
			continue
		}
		if u.Category != nil && !domain.ValidCategory(*u.Category) {
			errs = append(errs, fmt.Sprintf("Invalid category %q for product %q", *u.Category, u.Name))
			continue
		}
		patch := repository.ProductPatch{Category: u.Category, Quantity: u.Quantity, Price: u.Price}
		if patch.IsEmpty() {
			errs = append(errs, fmt.Sprintf("No valid fields to update for product: %s", u.Name))
			continue
		}
		p, err := s.products.UpdateByName(ctx, u.Name, patch)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				errs = append(errs, fmt.Sprintf("Product not found: %s", u.Name))
			} else {
				errs = append(errs, fmt.Sprintf("Error updating %s: %v", u.Name, err))
			}
			continue
		}
		results = append(results, *p)
	}
	return results, errs
}

// CategoryResult reports one item of a bulk category update
type CategoryResult struct {
	Name        string          `json:"name"`
	NewCategory domain.Category `json:"newCategory"`
	Success     bool            `json:"success"`
}

// CategoryUpdate is one item of a bulk category reassignment
type CategoryUpdate struct {
	Name     string
	Category domain.Category
}

// BulkCategoryUpdate reassigns categories by explicit name list
func (s *CatalogService) BulkCategoryUpdate(ctx context.Context, updates []CategoryUpdate) (results []CategoryResult, errs []string) {
	results = make([]CategoryResult, 0, len(updates))
	for _, u := range updates {
		if u.Name == "" || u.Category == "" {
			errs = append(errs, fmt.Sprintf("Missing name or category: %+v", u))
			continue
		}
		if !domain.ValidCategory(u.Category) {
			errs = append(errs, fmt.Sprintf("Invalid category %q for product %q", u.Category, u.Name))
			continue
		}
		p, err := s.products.UpdateByName(ctx, u.Name, repository.ProductPatch{Category: &u.Category})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				errs = append(errs, fmt.Sprintf("Product not found: %s", u.Name))
			} else {
				errs = append(errs, fmt.Sprintf("Error updating %s: %v", u.Name, err))
			}
			continue
		}
		results = append(results, CategoryResult{Name: p.Name, NewCategory: p.Category, Success: true})
	}
	return results, errs
}

// CategoryByPattern reassigns the category of every product whose name
// matches the pattern (case-insensitive). The pattern is treated as a
// literal; the store escapes it before matching.
func (s *CatalogService) CategoryByPattern(ctx context.Context, pattern string, newCategory domain.Category, matchType string) (int64, error) {
	if pattern == "" || newCategory == "" {
		return 0, Invalid("Pattern and newCategory are required")
	}
	if !domain.ValidCategory(newCategory) {
		return 0, Invalid("Invalid category")
	}
	var match repository.PatternMatch
	switch matchType {
	case string(repository.MatchStartsWith):
		match = repository.MatchStartsWith
	case string(repository.MatchEndsWith):
		match = repository.MatchEndsWith
	default:
		match = repository.MatchContains
	}
	return s.products.UpdateCategoryByPattern(ctx, pattern, match, newCategory)
}

// DeleteByName hard-deletes one product
func (s *CatalogService) DeleteByName(ctx context.Context, name string) error {
	if name == "" {
		return Invalid("Product name is required")
	}
	err := s.products.DeleteByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return NotFound("Product not found")
	}
	return err
}

// DeleteByCategory hard-deletes every product in a category
func (s *CatalogService) DeleteByCategory(ctx context.Context, category domain.Category) (int64, error) {
	if !domain.ValidCategory(category) {
		return 0, Invalid("Invalid category")
	}
	return s.products.DeleteByCategory(ctx, category)
}
