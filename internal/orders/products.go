package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
)

// ProductRepository covers the catalog reads and the stock decrement the
// materializer and checkout need.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	// DecrementStock subtracts qty only when enough stock remains, reporting
	// whether the row changed. The conditional update is what keeps two
	// concurrent materializations from overselling.
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &productRepository{db: tx}
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
