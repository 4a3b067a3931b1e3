package middleware

import (
	"errors"
	"net/url"

	"toyshop/internal/logging"
	"toyshop/internal/models"
	"toyshop/internal/services"
	"toyshop/internal/session"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const identityKey = "toyshop.identity"

// LoadIdentity resolves the session principal. A customer whose record
// vanished or is no longer approved is treated as anonymous.
func LoadIdentity(authService *services.AuthService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := session.From(c)
		if sess == nil {
			return c.Next()
		}
		userID, isAdmin, ok := sess.Identity()
		if !ok {
			return c.Next()
		}

		if isAdmin {
			c.Locals(identityKey, models.Identity(authService.Administrator()))
			return c.Next()
		}

		customer, err := authService.LoadCustomer(c.UserContext(), userID)
		switch {
		case err == nil:
			c.Locals(identityKey, models.Identity(customer))
		case errors.Is(err, services.ErrAccountNotFound), errors.Is(err, services.ErrPendingApproval):
			sess.ClearIdentity()
		default:
			logging.Error(c.UserContext(), logger, "failed to load session customer", zap.String("user_id", userID), zap.Error(err))
		}
		return c.Next()
	}
}

// CurrentIdentity returns the request principal or nil.
func CurrentIdentity(c *fiber.Ctx) models.Identity {
	id, _ := c.Locals(identityKey).(models.Identity)
	return id
}

// CurrentCustomer returns the logged-in customer, if any.
func CurrentCustomer(c *fiber.Ctx) (models.Customer, bool) {
	customer, ok := c.Locals(identityKey).(models.Customer)
	return customer, ok
}

// RequireCustomer sends visitors to the login page with a next parameter.
func RequireCustomer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentCustomer(c); ok {
			return c.Next()
		}
		sess := session.From(c)
		if id := CurrentIdentity(c); id != nil && id.IsAdmin() {
			sess.AddFlash(session.FlashWarning, "Administrators cannot use customer pages.")
			return c.Redirect("/admin/dashboard", fiber.StatusFound)
		}
		sess.AddFlash(session.FlashInfo, "You need to log in to access this page.")
		return c.Redirect("/auth/login?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
	}
}

// RequireAdmin sends customers to their dashboard and visitors to the
// admin login.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := CurrentIdentity(c)
		if id != nil && id.IsAdmin() {
			return c.Next()
		}
		sess := session.From(c)
		if id != nil {
			sess.AddFlash(session.FlashDanger, "Admin access required for this page.")
			return c.Redirect("/customer/dashboard", fiber.StatusFound)
		}
		sess.AddFlash(session.FlashWarning, "You need to log in as an admin to access this page.")
		return c.Redirect("/auth/admin_login", fiber.StatusFound)
	}
}
