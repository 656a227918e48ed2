package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
)

type Deps struct {
	Auth    *AuthHTTP
	OAuth   *OAuthHTTP
	Cart    *CartHTTP
	Users   *UserHTTP
	Catalog *CatalogHTTP
	AuthMW  *authmw.Middleware

	// Ready reports whether backing stores answer. Nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	mw := d.AuthMW
	api := e.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/signup", d.Auth.SignUp)
	auth.GET("/verify", d.Auth.VerifyEmail)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/logout", d.Auth.Logout)
	auth.POST("/forgot-password", d.Auth.ForgotPassword)
	auth.POST("/reset-password", d.Auth.ResetPassword)
	auth.GET("/me", d.Auth.Me, mw.RequireAuth)
	if d.OAuth != nil {
		auth.GET("/google/login", d.OAuth.Login)
		auth.GET("/google/callback", d.OAuth.Callback)
	}

	cart := api.Group("/cart", mw.RequireAuth)
	cart.GET("", d.Cart.GetCart)
	cart.PUT("", d.Cart.UpdateCart)
	cart.DELETE("", d.Cart.DeleteCart)
	cart.POST("/items", d.Cart.AddToCart)
	cart.DELETE("/items/:product_id", d.Cart.RemoveItem)
	cart.POST("/checkout", d.Cart.Checkout)
	api.GET("/orders", d.Cart.ListOrders, mw.RequireAuth)
	api.GET("/carts", d.Cart.ListCarts, mw.RequireAdmin)

	users := api.Group("/users")
	users.GET("", d.Users.List, mw.RequireAdmin)
	users.PATCH("/me", d.Users.UpdateMe, mw.RequireAuth)
	users.DELETE("/me", d.Users.DeleteMe, mw.RequireAuth)
	users.GET("/:id", d.Users.Get, mw.RequireAuth)
	users.DELETE("/:id", d.Users.Delete, mw.RequireAdmin)

	products := api.Group("/products")
	products.GET("", d.Catalog.ListProducts, mw.OptionalAuth)
	products.GET("/search", d.Catalog.SearchProducts, mw.OptionalAuth)
	products.GET("/:id", d.Catalog.GetProduct, mw.OptionalAuth)
	products.POST("", d.Catalog.CreateProduct, mw.RequireAuth)
	products.PATCH("/:id", d.Catalog.PatchProduct, mw.RequireAuth)
	products.DELETE("/:id", d.Catalog.DeleteProduct, mw.RequireAuth)

	categories := api.Group("/categories")
	categories.GET("", d.Catalog.ListCategories, mw.OptionalAuth)
	categories.GET("/:id", d.Catalog.GetCategory, mw.OptionalAuth)
	categories.POST("", d.Catalog.CreateCategory, mw.RequireAdmin)
	categories.PATCH("/:id", d.Catalog.PatchCategory, mw.RequireAdmin)
	categories.DELETE("/:id", d.Catalog.DeleteCategory, mw.RequireAdmin)

	shops := api.Group("/shops")
	shops.GET("", d.Catalog.ListShops, mw.OptionalAuth)
	shops.GET("/:id", d.Catalog.GetShop, mw.OptionalAuth)
	shops.POST("", d.Catalog.CreateShop, mw.RequireOwner)
	shops.PATCH("/:id", d.Catalog.RenameShop, mw.RequireAuth)
	shops.DELETE("/:id", d.Catalog.DeleteShop, mw.RequireAuth)
}
