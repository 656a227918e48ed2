package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) ProductByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LockProductShared reads the product with FOR SHARE so it cannot be deleted
// before the transaction ends.
func (r *GormRepo) LockProductShared(ctx context.Context, id uint) (*models.Product, error) {
	return r.lockProduct(ctx, id, "SHARE")
}

func (r *GormRepo) LockProductForUpdate(ctx context.Context, id uint) (*models.Product, error) {
	return r.lockProduct(ctx, id, "UPDATE")
}

func (r *GormRepo) lockProduct(ctx context.Context, id uint, strength string) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, categoryID *uint, offset, limit int) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{})
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := []models.Product{}
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// SearchProducts is the database fallback used when no search index is configured.
func (r *GormRepo) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	pattern := "%" + strings.ToLower(q) + "%"
	where := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)

	var total int64
	if err := where.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := []models.Product{}
	if err := where.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) UpdateProduct(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) CategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	items := []models.Category{}
	err := r.DB.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *GormRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) UpdateCategory(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Updates(fields).Error
}

func (r *GormRepo) DeleteCategory(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) DetachCategory(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("category_id = ?", id).
		Update("category_id", nil).Error
}

func (r *GormRepo) ShopByID(ctx context.Context, id uint) (*models.Shop, error) {
	var s models.Shop
	if err := r.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) ListShops(ctx context.Context) ([]models.Shop, error) {
	items := []models.Shop{}
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *GormRepo) CreateShop(ctx context.Context, s *models.Shop) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *GormRepo) RenameShop(ctx context.Context, id uint, name string) error {
	return r.DB.WithContext(ctx).Model(&models.Shop{}).Where("id = ?", id).Update("name", name).Error
}

func (r *GormRepo) DeleteShop(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Shop{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) CountShopsByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Shop{}).Where("owner_id = ?", ownerID).Count(&n).Error
	return n, err
}

func (r *GormRepo) CountProductsInShop(ctx context.Context, shopID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).Where("shop_id = ?", shopID).Count(&n).Error
	return n, err
}
