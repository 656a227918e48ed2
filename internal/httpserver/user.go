package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
)

type UserHTTP struct {
	Svc           *service.UserService
	SecureCookies bool
}

func (h *UserHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, users, err := h.Svc.List(ctx, offset, limit)
	if err != nil {
		return fail(l, "list_users_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": users, "meta": util.Meta(page, offset, limit, total)})
}

// Get lets a user read their own record; administrators read any.
func (h *UserHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.get")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_user_error", err.Error(), err)
	}
	me := authmw.CurrentUser(c)
	if me.ID != id && !me.IsAdmin {
		l.Warn("get_user_error", "status", 403, "reason", "foreign account")
		return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
	}

	user, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_user_error", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.update_me")

	var patch service.UserPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(l, "update_user_error", "invalid body", err)
	}

	user, err := h.Svc.Update(ctx, authmw.CurrentUser(c).ID, patch)
	if err != nil {
		return fail(l, "update_user_error", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) DeleteMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.delete_me")

	if err := h.Svc.Delete(ctx, authmw.CurrentUser(c).ID); err != nil {
		return fail(l, "delete_user_error", err)
	}
	c.SetCookie(DeleteCookie(authmw.AccessCookie, "/", h.SecureCookies))
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.delete")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "delete_user_error", err.Error(), err)
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "delete_user_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}
