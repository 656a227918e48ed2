package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
	// SecureCookies marks the access cookie Secure. Off only for plain-HTTP development.
	SecureCookies bool
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (h *AuthHTTP) issue(c echo.Context, res *service.LoginResult) error {
	c.SetCookie(CreateCookie(authmw.AccessCookie, res.AccessToken, "/", res.ExpiresAt, h.SecureCookies))
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt.Unix(),
	})
}

func (h *AuthHTTP) SignUp(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var req service.SignUpInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "signup_error", "invalid body", err)
	}

	user, err := h.Svc.SignUp(ctx, req)
	if err != nil {
		return fail(l, "signup_error", err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.verify")

	user, err := h.Svc.VerifyEmail(ctx, c.QueryParam("token"))
	if err != nil {
		return fail(l, "verify_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified", "user_id": user.ID})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req struct {
		Email    string `json:"email" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_error", "invalid body", err)
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_error", err)
	}
	return h.issue(c, res)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	c.SetCookie(DeleteCookie(authmw.AccessCookie, "/", h.SecureCookies))
	logging.FromContext(c.Request().Context()).Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.forgot_password")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "forgot_password_error", "invalid body", err)
	}
	if err := h.Svc.ForgotPassword(ctx, req.Email); err != nil {
		return fail(l, "forgot_password_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the account exists, a reset link has been sent"})
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.reset_password")

	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "reset_password_error", "invalid body", err)
	}
	if err := h.Svc.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return fail(l, "reset_password_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, authmw.CurrentUser(c))
}
