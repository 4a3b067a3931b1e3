package handlers

import (
	"errors"
	"fmt"
	"net/url"

	"toyshop/internal/logging"
	"toyshop/internal/middleware"
	"toyshop/internal/services"
	"toyshop/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    newValidator(),
		logger:      logger,
	}
}

// RegisterRoutes registers the authentication routes. loginLimiter guards
// the credential checks.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, loginLimiter fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Get("/login", h.ShowLogin)
	authRoutes.Post("/login", loginLimiter, h.HandleLogin)
	authRoutes.Get("/signup", h.ShowSignup)
	authRoutes.Post("/signup", h.HandleSignup)
	authRoutes.Get("/admin_login", h.ShowAdminLogin)
	authRoutes.Post("/admin_login", loginLimiter, h.HandleAdminLogin)
	authRoutes.Get("/logout", h.HandleLogout)
}

// LoginForm represents the customer login form.
type LoginForm struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
	Next     string `json:"next" form:"next"`
}

// SignupForm represents the customer registration form.
type SignupForm struct {
	Username        string `json:"username" form:"username" validate:"required,min=3,max=20"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=Password"`
	Address         string `json:"address" form:"address" validate:"max=200"`
	Phone           string `json:"phone" form:"phone" validate:"omitempty,min=10,max=15"`
}

// AdminLoginForm represents the administrator login form.
type AdminLoginForm struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// redirectIfLoggedIn sends authenticated users to their dashboard.
func redirectIfLoggedIn(c *fiber.Ctx) (bool, error) {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		return false, nil
	}
	if id.IsAdmin() {
		return true, c.Redirect("/admin/dashboard", fiber.StatusFound)
	}
	return true, c.Redirect("/customer/dashboard", fiber.StatusFound)
}

// ShowLogin renders the login page.
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	if done, err := redirectIfLoggedIn(c); done {
		return err
	}
	return render(c, "Login", fiber.Map{"next": safeNext(c.Query("next"), "")})
}

// HandleLogin authenticates a customer.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var form LoginForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, err)
	}
	if err := h.validate.Struct(form); err != nil {
		return validationFailed(c, err)
	}

	back := "/auth/login"
	if next := safeNext(form.Next, ""); next != "" {
		back += "?next=" + url.QueryEscape(next)
	}

	customer, err := h.authService.Authenticate(c.UserContext(), form.Email, form.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrPendingApproval):
		flash(c, session.FlashWarning, "Your account is pending admin approval. Please wait.")
		return redirect(c, back)
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrAccountNotFound):
		flash(c, session.FlashDanger, "Login unsuccessful. Please check email and password.")
		return redirect(c, back)
	default:
		logging.Error(c.UserContext(), h.logger, "login failed", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	if err := session.From(c).Login(customer.ID(), false); err != nil {
		logging.Error(c.UserContext(), h.logger, "failed to start session", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	logging.Info(c.UserContext(), h.logger, "customer logged in", zap.String("user_id", customer.ID()))
	flash(c, session.FlashSuccess, "Login successful!")
	return redirect(c, safeNext(form.Next, "/customer/dashboard"))
}

// ShowSignup renders the signup page.
func (h *AuthHandler) ShowSignup(c *fiber.Ctx) error {
	if done, err := redirectIfLoggedIn(c); done {
		return err
	}
	return render(c, "Sign Up", nil)
}

// HandleSignup registers a new, unapproved customer.
func (h *AuthHandler) HandleSignup(c *fiber.Ctx) error {
	var form SignupForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, err)
	}
	if err := h.validate.Struct(form); err != nil {
		return validationFailed(c, err)
	}

	_, err := h.authService.Register(c.UserContext(), services.SignupInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		Address:  form.Address,
		Phone:    form.Phone,
	})
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return validationFailed(c, err)
		}
		logging.Error(c.UserContext(), h.logger, "error registering user", zap.Error(err))
		flash(c, session.FlashDanger, "Account creation failed due to a server issue. Please try again.")
		return redirect(c, "/auth/signup")
	}

	flash(c, session.FlashSuccess, "Account created successfully! Please wait for admin approval.")
	return redirect(c, "/auth/login")
}

// ShowAdminLogin renders the administrator login page.
func (h *AuthHandler) ShowAdminLogin(c *fiber.Ctx) error {
	if id := middleware.CurrentIdentity(c); id != nil {
		if id.IsAdmin() {
			return c.Redirect("/admin/dashboard", fiber.StatusFound)
		}
		flash(c, session.FlashWarning, "Customers cannot access the admin login page.")
		return c.Redirect("/customer/dashboard", fiber.StatusFound)
	}
	return render(c, "Admin Login", nil)
}

// HandleAdminLogin checks the configured administrator credentials.
func (h *AuthHandler) HandleAdminLogin(c *fiber.Ctx) error {
	var form AdminLoginForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, err)
	}
	if err := h.validate.Struct(form); err != nil {
		return validationFailed(c, err)
	}

	admin, err := h.authService.AuthenticateAdmin(form.Username, form.Password)
	if err != nil {
		logging.Warn(c.UserContext(), h.logger, "failed admin login", zap.String("ip", c.IP()))
		flash(c, session.FlashDanger, "Invalid admin credentials.")
		return redirect(c, "/auth/admin_login")
	}
	if err := session.From(c).Login(admin.ID(), true); err != nil {
		logging.Error(c.UserContext(), h.logger, "failed to start session", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	flash(c, session.FlashSuccess, "Admin login successful!")
	return redirect(c, "/admin/dashboard")
}

// HandleLogout clears the whole session, cart included.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	id := middleware.CurrentIdentity(c)
	sess := session.From(c)
	if err := sess.Logout(); err != nil {
		logging.Error(c.UserContext(), h.logger, "failed to reset session", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	switch {
	case id == nil:
	case id.IsAdmin():
		sess.AddFlash(session.FlashInfo, fmt.Sprintf("Admin %s logged out successfully.", id.DisplayName()))
	default:
		sess.AddFlash(session.FlashInfo, fmt.Sprintf("%s, you have been logged out.", id.DisplayName()))
	}
	if id != nil && !id.IsAdmin() {
		logging.Info(c.UserContext(), h.logger, "customer logged out", zap.String("user_id", id.ID()))
	}
	return c.Redirect("/", fiber.StatusFound)
}
