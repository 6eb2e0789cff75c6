// internal/domain/product/service.go
package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Errors returned by the product service
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
)

const (
	productListCacheKey = "products:list"
	productCacheTTL     = 5 * time.Minute
)

// Service handles product catalog business logic
type Service struct {
	db     *gorm.DB
	cache  *redis.Client
	logger *logrus.Logger
}

// NewService creates a new product service. The cache client may be nil,
// in which case reads go straight to the database.
func NewService(db *gorm.DB, cache *redis.Client, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Stock       int             `json:"stock" binding:"min=0"`
	ImageURL    string          `json:"image_url"`
	CategoryID  uint            `json:"category_id" binding:"required"`
}

// UpdateProductRequest represents product update data. Pointer fields
// distinguish "not provided" from zero values.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	ImageURL    *string          `json:"image_url"`
	CategoryID  *uint            `json:"category_id"`
	IsActive    *bool            `json:"is_active"`
}

// GetProducts returns active products newest first with their categories.
// The full list is cached briefly to keep catalog browsing cheap.
func (s *Service) GetProducts(ctx context.Context) ([]Product, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, productListCacheKey).Result(); err == nil {
			var products []Product
			if err := json.Unmarshal([]byte(cached), &products); err == nil {
				return products, nil
			}
		}
	}

	var products []Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}

	if s.cache != nil {
		if data, err := json.Marshal(products); err == nil {
			if err := s.cache.Set(ctx, productListCacheKey, data, productCacheTTL).Err(); err != nil {
				s.logger.WithError(err).Warn("Failed to cache product list")
			}
		}
	}

	return products, nil
}

// GetProduct returns a single active product with its category.
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var p Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND is_active = ?", id, true).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &p, nil
}

// CreateProduct creates a new product. Admin only.
func (s *Service) CreateProduct(ctx context.Context, req *CreateProductRequest) (*Product, error) {
	var category Category
	if err := s.db.WithContext(ctx).First(&category, req.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to load category: %w", err)
	}

	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price cannot be negative")
	}

	p := Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidateCache(ctx)
	p.Category = category
	return &p, nil
}

// UpdateProduct updates an existing product. Admin only.
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *UpdateProductRequest) (*Product, error) {
	var p Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, fmt.Errorf("price cannot be negative")
		}
		updates["price"] = *req.Price
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.CategoryID != nil {
		var category Category
		if err := s.db.WithContext(ctx).First(&category, *req.CategoryID).Error; err != nil {
			return nil, ErrCategoryNotFound
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&p).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}

	s.invalidateCache(ctx)
	return s.reload(ctx, id)
}

// DeleteProduct soft-deletes a product. Admin only.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	s.invalidateCache(ctx)
	return nil
}

func (s *Service) reload(ctx context.Context, id uint) (*Product, error) {
	var p Product
	if err := s.db.WithContext(ctx).Preload("Category").First(&p, id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}
	return &p, nil
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, productListCacheKey).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate product cache")
	}
}
