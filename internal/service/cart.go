package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// CartService owns every write to carts and cart items. Each mutation runs in
// one transaction with the cart row locked and ends with a full recompute of
// the cart total, so the total always equals the sum of its line totals.
// MaxLineQuantity caps a single cart line so its total fits numeric(12,2).
const MaxLineQuantity = 10000

type CartService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

type AddItem struct {
	ProductID uint
	Quantity  int
	// UnitPrice is used only when a new line is created; left empty, the
	// product's current price is taken.
	UnitPrice decimal.NullDecimal
}

type LineUpdate struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

func lineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// lockCart creates the cart if needed and locks its row for the rest of the transaction.
func lockCart(ctx context.Context, tx *repo.GormRepo, userID uint) (*models.Cart, error) {
	if err := tx.EnsureCart(ctx, userID); err != nil {
		return nil, err
	}
	return tx.LockCartByUser(ctx, userID)
}

func recompute(ctx context.Context, tx *repo.GormRepo, cart *models.Cart) error {
	items, err := tx.CartItems(ctx, cart.ID)
	if err != nil {
		return err
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	if err := tx.SetCartTotal(ctx, cart.ID, total); err != nil {
		return err
	}
	cart.TotalPrice = total
	cart.Items = items
	return nil
}

func (s *CartService) GetOrCreateCart(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart *models.Cart
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.EnsureCart(ctx, userID); err != nil {
			return err
		}
		c, err := tx.CartByUser(ctx, userID)
		if err != nil {
			return err
		}
		if c.Items, err = tx.CartItems(ctx, c.ID); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, wrapStorage("get cart", err)
	}
	return cart, nil
}

// AddToCart merges the quantity into the product's line or opens a new one.
// It returns the affected line and the recomputed cart.
func (s *CartService) AddToCart(ctx context.Context, userID uint, in AddItem) (*models.CartItem, *models.Cart, error) {
	l := logging.FromContext(ctx).With("svc", "cart.add", "user_id", userID, "product_id", in.ProductID)

	if in.ProductID == 0 {
		return nil, nil, fmt.Errorf("product id is required: %w", ErrInvalidArgument)
	}
	if in.Quantity < 1 {
		return nil, nil, fmt.Errorf("quantity must be at least 1: %w", ErrInvalidArgument)
	}
	if in.Quantity > MaxLineQuantity {
		return nil, nil, fmt.Errorf("quantity must be at most %d: %w", MaxLineQuantity, ErrInvalidArgument)
	}
	if in.UnitPrice.Valid && in.UnitPrice.Decimal.IsNegative() {
		return nil, nil, fmt.Errorf("unit price cannot be negative: %w", ErrInvalidArgument)
	}

	var cart *models.Cart
	var line *models.CartItem
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		// product before cart, the same order DeleteProduct takes them in
		product, err := tx.LockProductShared(ctx, in.ProductID)
		if err != nil {
			if repo.IsNotFound(err) {
				return fmt.Errorf("product %d: %w", in.ProductID, ErrNotFound)
			}
			return err
		}

		c, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		item, err := tx.CartItemByProduct(ctx, c.ID, in.ProductID)
		switch {
		case err == nil:
			if item.Quantity > MaxLineQuantity-in.Quantity {
				return fmt.Errorf("line would exceed %d items: %w", MaxLineQuantity, ErrInvalidArgument)
			}
			// existing lines keep the unit price they were created with
			item.Quantity += in.Quantity
			item.TotalPrice = lineTotal(item.Price, item.Quantity)
			if err := tx.SetCartItemQuantity(ctx, item); err != nil {
				return err
			}
		case repo.IsNotFound(err):
			price := product.Price
			if in.UnitPrice.Valid {
				price = in.UnitPrice.Decimal
			}
			price = price.Round(2)
			item = &models.CartItem{
				CartID:     c.ID,
				ProductID:  in.ProductID,
				Quantity:   in.Quantity,
				Price:      price,
				TotalPrice: lineTotal(price, in.Quantity),
			}
			if err := tx.CreateCartItem(ctx, item); err != nil {
				return err
			}
		default:
			return err
		}

		if err := recompute(ctx, tx, c); err != nil {
			return err
		}
		cart, line = c, item
		return nil
	})
	if err != nil {
		l.Warn("add_to_cart_failed", "error", err)
		return nil, nil, wrapStorage("add to cart", err)
	}

	publish(ctx, s.Events, topicCart, strconv.FormatUint(uint64(userID), 10), CartEvent{
		Type: "cart_item_added", UserID: userID, CartID: cart.ID,
		ProductID: in.ProductID, Quantity: line.Quantity, Total: cart.TotalPrice,
	})
	l.Info("add_to_cart_success", "quantity", line.Quantity, "total", cart.TotalPrice.String())
	return line, cart, nil
}

// UpdateCart sets absolute quantities. A zero quantity removes the line.
func (s *CartService) UpdateCart(ctx context.Context, userID uint, updates []LineUpdate) (*models.Cart, error) {
	l := logging.FromContext(ctx).With("svc", "cart.update", "user_id", userID)

	if len(updates) == 0 {
		return nil, fmt.Errorf("no items to update: %w", ErrInvalidArgument)
	}
	seen := make(map[uint]struct{}, len(updates))
	for _, u := range updates {
		if u.Quantity < 0 {
			return nil, fmt.Errorf("quantity for product %d is negative: %w", u.ProductID, ErrInvalidArgument)
		}
		if u.Quantity > MaxLineQuantity {
			return nil, fmt.Errorf("quantity for product %d exceeds %d: %w", u.ProductID, MaxLineQuantity, ErrInvalidArgument)
		}
		if _, dup := seen[u.ProductID]; dup {
			return nil, fmt.Errorf("product %d listed twice: %w", u.ProductID, ErrInvalidArgument)
		}
		seen[u.ProductID] = struct{}{}
	}

	var cart *models.Cart
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		c, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		for _, u := range updates {
			item, err := tx.CartItemByProduct(ctx, c.ID, u.ProductID)
			if err != nil {
				if repo.IsNotFound(err) {
					return fmt.Errorf("product %d is not in the cart: %w", u.ProductID, ErrNotFound)
				}
				return err
			}
			if u.Quantity == 0 {
				if err := tx.DeleteCartItem(ctx, item.ID); err != nil {
					return err
				}
				continue
			}
			item.Quantity = u.Quantity
			item.TotalPrice = lineTotal(item.Price, item.Quantity)
			if err := tx.SetCartItemQuantity(ctx, item); err != nil {
				return err
			}
		}

		if err := recompute(ctx, tx, c); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		l.Warn("update_cart_failed", "error", err)
		return nil, wrapStorage("update cart", err)
	}

	publish(ctx, s.Events, topicCart, strconv.FormatUint(uint64(userID), 10), CartEvent{
		Type: "cart_updated", UserID: userID, CartID: cart.ID, Total: cart.TotalPrice,
	})
	return cart, nil
}

// RemoveItem drops the whole line for the product.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) (*models.Cart, error) {
	var cart *models.Cart
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		c, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		item, err := tx.CartItemByProduct(ctx, c.ID, productID)
		if err != nil {
			if repo.IsNotFound(err) {
				return fmt.Errorf("product %d is not in the cart: %w", productID, ErrNotFound)
			}
			return err
		}
		if err := tx.DeleteCartItem(ctx, item.ID); err != nil {
			return err
		}
		if err := recompute(ctx, tx, c); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, wrapStorage("remove cart item", err)
	}

	publish(ctx, s.Events, topicCart, strconv.FormatUint(uint64(userID), 10), CartEvent{
		Type: "cart_item_removed", UserID: userID, CartID: cart.ID, ProductID: productID, Total: cart.TotalPrice,
	})
	return cart, nil
}

// DeleteCart removes the cart and its items. The next read recreates an empty one.
func (s *CartService) DeleteCart(ctx context.Context, userID uint) error {
	var cartID uint
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		c, err := tx.LockCartByUser(ctx, userID)
		if err != nil {
			if repo.IsNotFound(err) {
				return fmt.Errorf("cart of user %d: %w", userID, ErrNotFound)
			}
			return err
		}
		cartID = c.ID
		if err := tx.DeleteCartItems(ctx, c.ID); err != nil {
			return err
		}
		return tx.DeleteCart(ctx, c.ID)
	})
	if err != nil {
		return wrapStorage("delete cart", err)
	}

	publish(ctx, s.Events, topicCart, strconv.FormatUint(uint64(userID), 10), CartEvent{
		Type: "cart_deleted", UserID: userID, CartID: cartID, Total: decimal.Zero,
	})
	return nil
}

// Checkout turns the cart into a pending order and empties the cart.
func (s *CartService) Checkout(ctx context.Context, userID uint) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "cart.checkout", "user_id", userID)

	var order *models.Order
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		c, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := recompute(ctx, tx, c); err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return fmt.Errorf("cart is empty: %w", ErrInvalidArgument)
		}

		o := &models.Order{
			UserID:      userID,
			TotalAmount: c.TotalPrice,
			Status:      models.OrderStatusPendingPayment,
			Items:       make([]models.OrderItem, 0, len(c.Items)),
		}
		for _, it := range c.Items {
			o.Items = append(o.Items, models.OrderItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
			})
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}

		if err := tx.DeleteCartItems(ctx, c.ID); err != nil {
			return err
		}
		if err := recompute(ctx, tx, c); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		l.Warn("checkout_failed", "error", err)
		return nil, wrapStorage("checkout", err)
	}

	publish(ctx, s.Events, topicOrder, strconv.FormatUint(uint64(order.ID), 10), OrderEvent{
		Type: "order_created", OrderID: order.ID, UserID: userID, Total: order.TotalAmount,
	})
	l.Info("checkout_success", "order_id", order.ID, "total", order.TotalAmount.String())
	return order, nil
}

func (s *CartService) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	orders, err := s.Repo.OrdersByUser(ctx, userID)
	if err != nil {
		return nil, wrapStorage("list orders", err)
	}
	return orders, nil
}

func (s *CartService) ListCarts(ctx context.Context, offset, limit int) (int64, []models.Cart, error) {
	total, carts, err := s.Repo.ListCarts(ctx, offset, limit)
	if err != nil {
		return 0, nil, wrapStorage("list carts", err)
	}
	return total, carts, nil
}

// dropProduct removes a deleted product from every cart holding it and
// recomputes those carts. Runs inside the caller's transaction.
func dropProduct(ctx context.Context, tx *repo.GormRepo, productID uint) error {
	ids, err := tx.CartIDsWithProduct(ctx, productID)
	if err != nil {
		return err
	}
	carts := make([]*models.Cart, 0, len(ids))
	for _, id := range ids {
		c, err := tx.LockCartByID(ctx, id)
		if err != nil {
			return err
		}
		carts = append(carts, c)
	}
	if err := tx.DeleteCartItemsByProduct(ctx, productID); err != nil {
		return err
	}
	for _, c := range carts {
		if err := recompute(ctx, tx, c); err != nil {
			return err
		}
	}
	return nil
}
