// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{db: db}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Dependency order matters: categories before products, carts and
	// orders after users.
	models := []interface{}{
		&user.User{},
		&product.Category{},
		&product.Product{},
		&cart.Cart{},
		&cart.CartItem{},
		&order.Order{},
		&order.OrderItem{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
	}

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
		}
	}

	return nil
}

// SeedInitialData inserts development data: categories, an admin user
// and a few products to checkout against.
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedCategories() error {
	categories := []product.Category{
		{Name: "Electronics", Description: "Electronic devices, gadgets, and accessories"},
		{Name: "Clothing", Description: "Fashion, apparel, and accessories"},
		{Name: "Books", Description: "Books, eBooks, and educational materials"},
	}

	for _, category := range categories {
		var existing product.Category
		if err := m.db.Where("name = ?", category.Name).First(&existing).Error; err != nil {
			if err := m.db.Create(&category).Error; err != nil {
				return err
			}
			log.Printf("✅ Created category: %s", category.Name)
		}
	}
	return nil
}

func (m *Migration) seedAdminUser() error {
	var existing user.User
	if err := m.db.Where("email = ?", "admin@example.com").First(&existing).Error; err == nil {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("Admin1234"), 10)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	adminUser := user.User{
		Email:    "admin@example.com",
		Password: string(hashedPassword),
		Name:     "Admin User",
		IsActive: true,
		IsAdmin:  true,
	}
	if err := m.db.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	if err := m.db.Create(&cart.Cart{UserID: adminUser.ID}).Error; err != nil {
		return fmt.Errorf("failed to create admin cart: %w", err)
	}

	log.Println("✅ Created admin user: admin@example.com")
	return nil
}

func (m *Migration) seedProducts() error {
	var count int64
	m.db.Model(&product.Product{}).Count(&count)
	if count > 0 {
		return nil
	}

	var electronics product.Category
	if err := m.db.Where("name = ?", "Electronics").First(&electronics).Error; err != nil {
		return err
	}

	products := []product.Product{
		{
			Name:        "Wireless Gaming Mouse",
			Description: "Ergonomic wireless mouse with a high-precision sensor",
			Price:       decimal.NewFromFloat(79.99),
			Stock:       50,
			CategoryID:  electronics.ID,
			IsActive:    true,
		},
		{
			Name:        "Mechanical Keyboard",
			Description: "Tenkeyless mechanical keyboard with hot-swappable switches",
			Price:       decimal.NewFromFloat(129.99),
			Stock:       30,
			CategoryID:  electronics.ID,
			IsActive:    true,
		},
		{
			Name:        "Noise-Cancelling Headphones",
			Description: "Wireless headphones with active noise cancellation",
			Price:       decimal.NewFromFloat(159.99),
			Stock:       25,
			CategoryID:  electronics.ID,
			IsActive:    true,
		},
	}

	for _, p := range products {
		if err := m.db.Create(&p).Error; err != nil {
			log.Printf("⚠️ Failed to create product %s: %v", p.Name, err)
		} else {
			log.Printf("✅ Created product: %s", p.Name)
		}
	}
	return nil
}
