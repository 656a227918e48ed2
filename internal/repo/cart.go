package repo

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

// EnsureCart inserts an empty cart for the user unless one already exists.
// Concurrent callers race on the unique user_id and the loser inserts nothing.
func (r *GormRepo) EnsureCart(ctx context.Context, userID uint) error {
	cart := models.Cart{UserID: userID, TotalPrice: decimal.Zero}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Omit("Items").
		Create(&cart).Error
}

func (r *GormRepo) CartByUser(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// LockCartByUser reads the cart row with FOR UPDATE. Must run inside a transaction.
func (r *GormRepo) LockCartByUser(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) LockCartByID(ctx context.Context, cartID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cart, cartID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) CartItems(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	items := []models.CartItem{}
	if err := r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CartItemByProduct(ctx context.Context, cartID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *GormRepo) SetCartItemQuantity(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{"quantity": item.Quantity, "total_price": item.TotalPrice}).Error
}

func (r *GormRepo) DeleteCartItem(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&models.CartItem{}, id).Error
}

func (r *GormRepo) DeleteCartItems(ctx context.Context, cartID uint) error {
	return r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

func (r *GormRepo) DeleteCart(ctx context.Context, cartID uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Cart{}, cartID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) SetCartTotal(ctx context.Context, cartID uint, total decimal.Decimal) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("total_price", total).Error
}

func (r *GormRepo) ListCarts(ctx context.Context, offset, limit int) (int64, []models.Cart, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Cart{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var carts []models.Cart
	if err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&carts).Error; err != nil {
		return 0, nil, err
	}
	return total, carts, nil
}

func (r *GormRepo) CartIDsWithProduct(ctx context.Context, productID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("product_id = ?", productID).
		Order("cart_id ASC").
		Distinct().Pluck("cart_id", &ids).Error
	return ids, err
}

func (r *GormRepo) DeleteCartItemsByProduct(ctx context.Context, productID uint) error {
	return r.DB.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.CartItem{}).Error
}
