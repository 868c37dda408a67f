package social

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	accounts "github.com/counselgpt/go-accounts"
)

// Controller exposes the federated login flow over HTTP. Callback failures
// never surface as structured API errors; the browser is redirected back to
// the frontend with a generic error flag so provider details stay server
// side.
type Controller struct {
	Auth        *Authenticator
	FrontendURL string
	Logger      accounts.Logger
}

// NewController creates the Google login HTTP surface.
func NewController(auth *Authenticator, frontendURL string) *Controller {
	return &Controller{
		Auth:        auth,
		FrontendURL: frontendURL,
		Logger:      accounts.DefaultLogger(),
	}
}

// WithLogger overrides the controller logger.
func (c *Controller) WithLogger(logger accounts.Logger) *Controller {
	if logger != nil {
		c.Logger = logger
	}
	return c
}

// RegisterRoutes mounts the authorize and callback endpoints.
func (c *Controller) RegisterRoutes(app fiber.Router) {
	google := app.Group("/auth/google")
	google.Get("/authorize", c.Authorize)
	google.Get("/callback", c.Callback)
}

// Authorize handles GET /auth/google/authorize.
func (c *Controller) Authorize(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"authorization_url": c.Auth.AuthorizationURL(ctx.Query("state")),
	})
}

// Callback handles GET /auth/google/callback.
func (c *Controller) Callback(ctx *fiber.Ctx) error {
	code := ctx.Query("code")

	session, err := c.Auth.CompleteLogin(ctx.Context(), code)
	if err != nil {
		c.Logger.Error("google callback failed", "error", err)
		return ctx.Redirect(
			fmt.Sprintf("%s/auth/login?error=authentication_failed", c.FrontendURL),
			fiber.StatusTemporaryRedirect,
		)
	}

	return ctx.Redirect(
		fmt.Sprintf("%s/auth/callback?token=%s", c.FrontendURL, session.Token),
		fiber.StatusTemporaryRedirect,
	)
}
