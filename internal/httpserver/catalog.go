package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_product_error", err.Error(), err)
	}
	product, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	var categoryID *uint
	if raw := c.QueryParam("category_id"); raw != "" {
		v := util.ParseIntDefault(raw, 0)
		if v <= 0 {
			return badRequest(l, "list_products_error", "category_id must be a positive integer", nil)
		}
		id := uint(v)
		categoryID = &id
	}

	total, items, err := h.Svc.ListProducts(ctx, categoryID, offset, limit)
	if err != nil {
		return fail(l, "list_products_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "meta": util.Meta(page, offset, limit, total)})
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, items, err := h.Svc.SearchProducts(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(l, "search_products_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "meta": util.Meta(page, offset, limit, total)})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req service.ProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_product_error", "invalid body", err)
	}

	product, err := h.Svc.CreateProduct(ctx, authmw.CurrentUser(c), req)
	if err != nil {
		return fail(l, "create_product_error", err)
	}
	l.Info("create_product_success", "product_id", product.ID)
	return c.JSON(http.StatusCreated, product)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "patch_product_error", err.Error(), err)
	}
	var patch service.ProductPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(l, "patch_product_error", "invalid body", err)
	}

	product, err := h.Svc.PatchProduct(ctx, authmw.CurrentUser(c), id, patch)
	if err != nil {
		return fail(l, "patch_product_error", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "delete_product_error", err.Error(), err)
	}
	if err := h.Svc.DeleteProduct(ctx, authmw.CurrentUser(c), id); err != nil {
		return fail(l, "delete_product_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.Svc.ListCategories(ctx)
	if err != nil {
		return fail(logging.FromContext(ctx), "list_categories_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.get")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_category_error", err.Error(), err)
	}
	cat, err := h.Svc.GetCategory(ctx, id)
	if err != nil {
		return fail(l, "get_category_error", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create")

	var req service.CategoryInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_category_error", "invalid body", err)
	}
	cat, err := h.Svc.CreateCategory(ctx, authmw.CurrentUser(c), req)
	if err != nil {
		return fail(l, "create_category_error", err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHTTP) PatchCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.patch")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "patch_category_error", err.Error(), err)
	}
	var patch service.CategoryPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(l, "patch_category_error", "invalid body", err)
	}
	cat, err := h.Svc.PatchCategory(ctx, authmw.CurrentUser(c), id, patch)
	if err != nil {
		return fail(l, "patch_category_error", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.delete")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "delete_category_error", err.Error(), err)
	}
	if err := h.Svc.DeleteCategory(ctx, authmw.CurrentUser(c), id); err != nil {
		return fail(l, "delete_category_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) ListShops(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.Svc.ListShops(ctx)
	if err != nil {
		return fail(logging.FromContext(ctx), "list_shops_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) GetShop(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.get")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_shop_error", err.Error(), err)
	}
	shop, err := h.Svc.GetShop(ctx, id)
	if err != nil {
		return fail(l, "get_shop_error", err)
	}
	return c.JSON(http.StatusOK, shop)
}

func (h *CatalogHTTP) CreateShop(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.create")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_shop_error", "invalid body", err)
	}
	shop, err := h.Svc.CreateShop(ctx, authmw.CurrentUser(c), req.Name)
	if err != nil {
		return fail(l, "create_shop_error", err)
	}
	return c.JSON(http.StatusCreated, shop)
}

func (h *CatalogHTTP) RenameShop(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.rename")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "rename_shop_error", err.Error(), err)
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "rename_shop_error", "invalid body", err)
	}
	shop, err := h.Svc.RenameShop(ctx, authmw.CurrentUser(c), id, req.Name)
	if err != nil {
		return fail(l, "rename_shop_error", err)
	}
	return c.JSON(http.StatusOK, shop)
}

func (h *CatalogHTTP) DeleteShop(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.delete")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "delete_shop_error", err.Error(), err)
	}
	if err := h.Svc.DeleteShop(ctx, authmw.CurrentUser(c), id); err != nil {
		return fail(l, "delete_shop_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}
