package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type ProductIndex interface {
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Index  ProductIndex
	Events EventPublisher
}

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Count       uint            `json:"count"`
	IsAvailable *bool           `json:"is_available"`
	CategoryID  *uint           `json:"category_id"`
	ShopID      uint            `json:"shop_id"`
}

// ProductPatch lists the product fields that may change. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Count       *uint            `json:"count"`
	IsAvailable *bool            `json:"is_available"`
	CategoryID  *uint            `json:"category_id"`
}

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.ProductByID(ctx, id)
	if err != nil {
		return nil, wrapStorage("get product", err)
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, categoryID *uint, offset, limit int) (int64, []models.Product, error) {
	total, items, err := s.Repo.ListProducts(ctx, categoryID, offset, limit)
	if err != nil {
		return 0, nil, wrapStorage("list products", err)
	}
	return total, items, nil
}

// SearchProducts queries the search index and falls back to the database
// when the index is missing or failing.
func (s *CatalogService) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, fmt.Errorf("query is required: %w", ErrInvalidArgument)
	}

	if s.Index != nil {
		total, items, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			return total, items, nil
		}
		logging.FromContext(ctx).Warn("search_index_failed", "reason", "falling back to database", "error", err)
	}

	total, items, err := s.Repo.SearchProducts(ctx, q, offset, limit)
	if err != nil {
		return 0, nil, wrapStorage("search products", err)
	}
	return total, items, nil
}

func canManageShop(actor *models.User, shop *models.Shop) bool {
	return actor.IsAdmin || shop.OwnerID == actor.ID
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor *models.User, in ProductInput) (*models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidArgument)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("price cannot be negative: %w", ErrInvalidArgument)
	}

	p := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Count:       in.Count,
		IsAvailable: in.IsAvailable == nil || *in.IsAvailable,
		CategoryID:  in.CategoryID,
		ShopID:      in.ShopID,
	}

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		shop, err := tx.ShopByID(ctx, in.ShopID)
		if err != nil {
			if repo.IsNotFound(err) {
				return fmt.Errorf("shop %d: %w", in.ShopID, ErrNotFound)
			}
			return err
		}
		if !canManageShop(actor, shop) {
			return fmt.Errorf("shop %d belongs to another owner: %w", shop.ID, ErrForbidden)
		}
		if in.CategoryID != nil {
			if _, err := tx.CategoryByID(ctx, *in.CategoryID); err != nil {
				if repo.IsNotFound(err) {
					return fmt.Errorf("category %d: %w", *in.CategoryID, ErrInvalidArgument)
				}
				return err
			}
		}
		return tx.CreateProduct(ctx, p)
	})
	if err != nil {
		return nil, wrapStorage("create product", err)
	}

	s.afterProductWrite(ctx, p, "product_created")
	return p, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, actor *models.User, id uint, patch ProductPatch) (*models.Product, error) {
	fields := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty: %w", ErrInvalidArgument)
		}
		fields["name"] = name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, fmt.Errorf("price cannot be negative: %w", ErrInvalidArgument)
		}
		fields["price"] = patch.Price.Round(2)
	}
	if patch.Count != nil {
		fields["count"] = *patch.Count
	}
	if patch.IsAvailable != nil {
		fields["is_available"] = *patch.IsAvailable
	}
	if patch.CategoryID != nil {
		fields["category_id"] = *patch.CategoryID
	}

	var product *models.Product
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		p, err := tx.ProductByID(ctx, id)
		if err != nil {
			return err
		}
		shop, err := tx.ShopByID(ctx, p.ShopID)
		if err != nil && !repo.IsNotFound(err) {
			return err
		}
		if !actor.IsAdmin && (shop == nil || shop.OwnerID != actor.ID) {
			return fmt.Errorf("product %d belongs to another shop: %w", id, ErrForbidden)
		}
		if patch.CategoryID != nil {
			if _, err := tx.CategoryByID(ctx, *patch.CategoryID); err != nil {
				if repo.IsNotFound(err) {
					return fmt.Errorf("category %d: %w", *patch.CategoryID, ErrInvalidArgument)
				}
				return err
			}
		}
		if err := tx.UpdateProduct(ctx, id, fields); err != nil {
			return err
		}
		if product, err = tx.ProductByID(ctx, id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorage("patch product", err)
	}

	s.afterProductWrite(ctx, product, "product_updated")
	return product, nil
}

// DeleteProduct also drops the product from every cart that holds it.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor *models.User, id uint) error {
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		// blocks AddToCart until the delete commits; carts are locked after this
		p, err := tx.LockProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		shop, err := tx.ShopByID(ctx, p.ShopID)
		if err != nil && !repo.IsNotFound(err) {
			return err
		}
		if !actor.IsAdmin && (shop == nil || shop.OwnerID != actor.ID) {
			return fmt.Errorf("product %d belongs to another shop: %w", id, ErrForbidden)
		}
		if err := dropProduct(ctx, tx, id); err != nil {
			return err
		}
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return wrapStorage("delete product", err)
	}

	l := logging.FromContext(ctx)
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			l.Warn("search_unindex_failed", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, topicProduct, strconv.FormatUint(uint64(id), 10), ProductEvent{
		Type: "product_deleted", ProductID: id,
	})
	return nil
}

func (s *CatalogService) afterProductWrite(ctx context.Context, p *models.Product, eventType string) {
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("search_index_write_failed", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Events, topicProduct, strconv.FormatUint(uint64(p.ID), 10), ProductEvent{
		Type: eventType, ProductID: p.ID, Name: p.Name,
	})
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	items, err := s.Repo.ListCategories(ctx)
	if err != nil {
		return nil, wrapStorage("list categories", err)
	}
	return items, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	c, err := s.Repo.CategoryByID(ctx, id)
	if err != nil {
		return nil, wrapStorage("get category", err)
	}
	return c, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor *models.User, in CategoryInput) (*models.Category, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("only administrators manage categories: %w", ErrForbidden)
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidArgument)
	}

	c := &models.Category{Name: in.Name, Description: in.Description, ImageURL: in.ImageURL}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, fmt.Errorf("category %q exists: %w", in.Name, ErrConflict)
		}
		return nil, wrapStorage("create category", err)
	}
	return c, nil
}

func (s *CatalogService) PatchCategory(ctx context.Context, actor *models.User, id uint, patch CategoryPatch) (*models.Category, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("only administrators manage categories: %w", ErrForbidden)
	}
	fields := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty: %w", ErrInvalidArgument)
		}
		fields["name"] = name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.ImageURL != nil {
		fields["image_url"] = *patch.ImageURL
	}

	var category *models.Category
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.CategoryByID(ctx, id); err != nil {
			return err
		}
		if err := tx.UpdateCategory(ctx, id, fields); err != nil {
			if repo.IsUniqueViolation(err) {
				return fmt.Errorf("category %q exists: %w", fields["name"], ErrConflict)
			}
			return err
		}
		c, err := tx.CategoryByID(ctx, id)
		category = c
		return err
	})
	if err != nil {
		return nil, wrapStorage("patch category", err)
	}
	return category, nil
}

// DeleteCategory leaves the category's products uncategorized.
func (s *CatalogService) DeleteCategory(ctx context.Context, actor *models.User, id uint) error {
	if !actor.IsAdmin {
		return fmt.Errorf("only administrators manage categories: %w", ErrForbidden)
	}
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.DetachCategory(ctx, id); err != nil {
			return err
		}
		return tx.DeleteCategory(ctx, id)
	})
	return wrapStorage("delete category", err)
}

func (s *CatalogService) ListShops(ctx context.Context) ([]models.Shop, error) {
	items, err := s.Repo.ListShops(ctx)
	if err != nil {
		return nil, wrapStorage("list shops", err)
	}
	return items, nil
}

func (s *CatalogService) GetShop(ctx context.Context, id uint) (*models.Shop, error) {
	shop, err := s.Repo.ShopByID(ctx, id)
	if err != nil {
		return nil, wrapStorage("get shop", err)
	}
	return shop, nil
}

func (s *CatalogService) CreateShop(ctx context.Context, actor *models.User, name string) (*models.Shop, error) {
	if !actor.IsOwner && !actor.IsAdmin {
		return nil, fmt.Errorf("only shop owners open shops: %w", ErrForbidden)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidArgument)
	}

	shop := &models.Shop{Name: name, OwnerID: actor.ID}
	if err := s.Repo.CreateShop(ctx, shop); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, fmt.Errorf("shop %q exists: %w", name, ErrConflict)
		}
		return nil, wrapStorage("create shop", err)
	}
	return shop, nil
}

func (s *CatalogService) RenameShop(ctx context.Context, actor *models.User, id uint, name string) (*models.Shop, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidArgument)
	}

	var shop *models.Shop
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		sh, err := tx.ShopByID(ctx, id)
		if err != nil {
			return err
		}
		if !canManageShop(actor, sh) {
			return fmt.Errorf("shop %d belongs to another owner: %w", id, ErrForbidden)
		}
		if err := tx.RenameShop(ctx, id, name); err != nil {
			if repo.IsUniqueViolation(err) {
				return fmt.Errorf("shop %q exists: %w", name, ErrConflict)
			}
			return err
		}
		sh.Name = name
		shop = sh
		return nil
	})
	if err != nil {
		return nil, wrapStorage("rename shop", err)
	}
	return shop, nil
}

// DeleteShop refuses while the shop still lists products.
func (s *CatalogService) DeleteShop(ctx context.Context, actor *models.User, id uint) error {
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		shop, err := tx.ShopByID(ctx, id)
		if err != nil {
			return err
		}
		if !canManageShop(actor, shop) {
			return fmt.Errorf("shop %d belongs to another owner: %w", id, ErrForbidden)
		}
		n, err := tx.CountProductsInShop(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("shop %d still has %d products: %w", id, n, ErrConflict)
		}
		return tx.DeleteShop(ctx, id)
	})
	return wrapStorage("delete shop", err)
}
