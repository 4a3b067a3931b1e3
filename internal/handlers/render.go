package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"toyshop/internal/middleware"
	"toyshop/internal/services"
	"toyshop/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CSRFContextKey is where the csrf middleware leaves the request token.
const CSRFContextKey = "csrf"

// newValidator reports field errors under their form names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Must be at least %s characters long.", e.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters long.", e.Param())
	case "eqfield":
		return "Field must be equal to password."
	case "oneof":
		return "Not a valid choice."
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
}

// validationFailed answers 400 with a field -> message map.
func validationFailed(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	var validationErrors validator.ValidationErrors
	var serviceErr *services.ValidationError
	status := fiber.StatusBadRequest
	switch {
	case errors.As(err, &validationErrors):
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fieldMessage(e)
		}
	case errors.As(err, &serviceErr):
		for field, msg := range serviceErr.Fields {
			errorMessages[field] = msg
		}
		if serviceErr.Conflict {
			status = fiber.StatusConflict
		}
	default:
		errorMessages["form"] = err.Error()
	}
	return c.Status(status).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// render answers a page view model. Pending flashes are consumed.
func render(c *fiber.Ctx, title string, data fiber.Map) error {
	sess := session.From(c)
	out := fiber.Map{
		"title":           title,
		"flashes":         sess.PopFlashes(),
		"csrf_token":      csrfToken(c),
		"identity":        identityView(c),
		"cart_item_count": 0,
	}
	if _, ok := middleware.CurrentCustomer(c); ok {
		out["cart_item_count"] = sess.Cart().ItemCount()
	}
	for k, v := range data {
		out[k] = v
	}
	return c.JSON(out)
}

func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals(CSRFContextKey).(string)
	return token
}

func identityView(c *fiber.Ctx) fiber.Map {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		return fiber.Map{"authenticated": false}
	}
	return fiber.Map{
		"authenticated": true,
		"id":            id.ID(),
		"name":          id.DisplayName(),
		"is_admin":      id.IsAdmin(),
	}
}

func flash(c *fiber.Ctx, category, message string) {
	session.From(c).AddFlash(category, message)
}

// redirect finishes a form post.
func redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusSeeOther)
}

// safeNext accepts only local absolute paths.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
