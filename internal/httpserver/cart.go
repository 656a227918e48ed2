package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	cart, err := h.Svc.GetOrCreateCart(ctx, authmw.CurrentUser(c).ID)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

// AddToCart never takes a price from the client; the line is priced from the catalog.
func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_to_cart_error", "invalid body", err)
	}

	item, cart, err := h.Svc.AddToCart(ctx, authmw.CurrentUser(c).ID, service.AddItem{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return fail(l, "add_to_cart_error", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": item, "cart": cart})
}

func (h *CartHTTP) UpdateCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update")

	var req struct {
		Items []service.LineUpdate `json:"items"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_cart_error", "invalid body", err)
	}

	cart, err := h.Svc.UpdateCart(ctx, authmw.CurrentUser(c).ID, req.Items)
	if err != nil {
		return fail(l, "update_cart_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	productID, err := paramID(c, "product_id")
	if err != nil {
		return badRequest(l, "remove_item_error", err.Error(), err)
	}

	cart, err := h.Svc.RemoveItem(ctx, authmw.CurrentUser(c).ID, productID)
	if err != nil {
		return fail(l, "remove_item_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) DeleteCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.delete")

	if err := h.Svc.DeleteCart(ctx, authmw.CurrentUser(c).ID); err != nil {
		return fail(l, "delete_cart_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	order, err := h.Svc.Checkout(ctx, authmw.CurrentUser(c).ID)
	if err != nil {
		return fail(l, "checkout_error", err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *CartHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list")

	orders, err := h.Svc.ListOrders(ctx, authmw.CurrentUser(c).ID)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *CartHTTP) ListCarts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "carts.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, carts, err := h.Svc.ListCarts(ctx, offset, limit)
	if err != nil {
		return fail(l, "list_carts_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": carts, "meta": util.Meta(page, offset, limit, total)})
}
