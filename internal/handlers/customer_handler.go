package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"toyshop/internal/cart"
	"toyshop/internal/logging"
	"toyshop/internal/metrics"
	"toyshop/internal/middleware"
	"toyshop/internal/repositories"
	"toyshop/internal/services"
	"toyshop/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CustomerHandler serves the profile, cart, checkout and history pages.
type CustomerHandler struct {
	authService     *services.AuthService
	cartService     *services.CartService
	checkoutService *services.CheckoutService
	orderService    *services.OrderService
	tokens          *services.CheckoutTokens
	validate        *validator.Validate
	logger          *zap.Logger
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(
	authService *services.AuthService,
	cartService *services.CartService,
	checkoutService *services.CheckoutService,
	orderService *services.OrderService,
	tokens *services.CheckoutTokens,
	logger *zap.Logger,
) *CustomerHandler {
	return &CustomerHandler{
		authService:     authService,
		cartService:     cartService,
		checkoutService: checkoutService,
		orderService:    orderService,
		tokens:          tokens,
		validate:        newValidator(),
		logger:          logger,
	}
}

// RegisterRoutes registers the customer-only routes.
func (h *CustomerHandler) RegisterRoutes(router fiber.Router) {
	requireCustomer := middleware.RequireCustomer()
	customer := router.Group("/customer")
	customer.Get("/dashboard", requireCustomer, h.HandleDashboard)
	customer.Get("/profile", requireCustomer, h.ShowProfile)
	customer.Post("/profile", requireCustomer, h.HandleProfile)
	customer.Get("/cart", requireCustomer, h.HandleViewCart)
	customer.Post("/cart/add/:id", requireCustomer, h.HandleAddToCart)
	customer.Post("/cart/update/:id", requireCustomer, h.HandleUpdateCart)
	customer.Post("/cart/remove/:id", requireCustomer, h.HandleRemoveFromCart)
	customer.Get("/checkout", requireCustomer, h.ShowCheckout)
	customer.Post("/checkout", requireCustomer, h.HandleCheckout)
	customer.Get("/order_confirmation/:id", requireCustomer, h.HandleOrderConfirmation)
	customer.Get("/orders", requireCustomer, h.HandleOrderHistory)
}

// ProfileForm represents the address and phone form.
type ProfileForm struct {
	Address string `json:"address" form:"address" validate:"required,max=200"`
	Phone   string `json:"phone" form:"phone" validate:"required,min=10,max=15"`
}

// CheckoutForm is ProfileForm plus the checkout token.
type CheckoutForm struct {
	Address       string `json:"address" form:"address" validate:"required,max=200"`
	Phone         string `json:"phone" form:"phone" validate:"required,min=10,max=15"`
	CheckoutToken string `json:"checkout_token" form:"checkout_token"`
}

// CartLine is a cart entry as shown on the cart page.
type CartLine struct {
	ToyID     string `json:"toy_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	ImagePath string `json:"image_path"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

func cartView(c cart.Cart) fiber.Map {
	lines := make([]CartLine, 0, len(c.Items))
	for _, item := range c.Lines() {
		lines = append(lines, CartLine{
			ToyID:     item.ToyID,
			Name:      item.Name,
			Price:     item.Price.StringFixed(2),
			ImagePath: item.ImagePath,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal().StringFixed(2),
		})
	}
	return fiber.Map{"cart_items": lines, "total_price": c.Total().StringFixed(2)}
}

// HandleDashboard shows the customer profile.
func (h *CustomerHandler) HandleDashboard(c *fiber.Ctx) error {
	customer, _ := middleware.CurrentCustomer(c)
	return render(c, "Customer Dashboard", fiber.Map{"user": customer.User})
}

// ShowProfile renders the profile form prefilled from the account.
func (h *CustomerHandler) ShowProfile(c *fiber.Ctx) error {
	customer, _ := middleware.CurrentCustomer(c)
	return render(c, "Update Profile", fiber.Map{
		"address": customer.User.Address,
		"phone":   customer.User.Phone,
	})
}

// HandleProfile updates address and phone.
func (h *CustomerHandler) HandleProfile(c *fiber.Ctx) error {
	customer, _ := middleware.CurrentCustomer(c)
	var form ProfileForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, err)
	}
	if err := h.validate.Struct(form); err != nil {
		return validationFailed(c, err)
	}

	if err := h.authService.UpdateProfile(c.UserContext(), customer.ID(), form.Address, form.Phone); err != nil {
		logging.Error(c.UserContext(), h.logger, "error updating profile", zap.String("user_id", customer.ID()), zap.Error(err))
		flash(c, session.FlashDanger, "Error updating profile.")
		return redirect(c, "/customer/profile")
	}
	flash(c, session.FlashSuccess, "Profile updated successfully!")
	return redirect(c, "/customer/dashboard")
}

// HandleViewCart shows the cart with totals recomputed from the snapshots.
func (h *CustomerHandler) HandleViewCart(c *fiber.Ctx) error {
	return render(c, "Shopping Cart", cartView(session.From(c).Cart()))
}

func (h *CustomerHandler) saveCart(c *fiber.Ctx, updated cart.Cart) error {
	if err := session.From(c).SetCart(updated); err != nil {
		logging.Error(c.UserContext(), h.logger, "failed to store cart", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return nil
}

// HandleAddToCart adds a toy to the session cart.
func (h *CustomerHandler) HandleAddToCart(c *fiber.Ctx) error {
	sess := session.From(c)
	quantity, err := strconv.Atoi(strings.TrimSpace(c.FormValue("quantity", "1")))
	if err != nil {
		quantity = 1
	}

	updated, notice, err := h.cartService.AddItem(c.UserContext(), sess.Cart(), c.Params("id"), quantity)
	if err != nil {
		var rej *services.CartRejection
		switch {
		case errors.Is(err, repositories.ErrToyNotFound):
			flash(c, session.FlashDanger, "Toy not found.")
			return redirect(c, "/customer/toys")
		case errors.As(err, &rej):
			flash(c, session.FlashWarning, rej.Message)
			return redirect(c, "/customer/cart")
		default:
			logging.Error(c.UserContext(), h.logger, "error adding to cart", zap.Error(err))
			return fiber.ErrInternalServerError
		}
	}
	if err := h.saveCart(c, updated); err != nil {
		return err
	}
	flash(c, notice.Level, notice.Message)
	return redirect(c, "/customer/cart")
}

// HandleUpdateCart sets the quantity of a cart line.
func (h *CustomerHandler) HandleUpdateCart(c *fiber.Ctx) error {
	sess := session.From(c)
	quantity, err := strconv.Atoi(strings.TrimSpace(c.FormValue("quantity")))
	if err != nil {
		flash(c, session.FlashDanger, "Invalid quantity.")
		return redirect(c, "/customer/cart")
	}

	updated, notice, err := h.cartService.UpdateItem(c.UserContext(), sess.Cart(), c.Params("id"), quantity)
	if err != nil {
		var rej *services.CartRejection
		switch {
		case errors.Is(err, services.ErrNotInCart):
			flash(c, session.FlashDanger, "Item not found in cart.")
		case errors.As(err, &rej):
			flash(c, session.FlashWarning, rej.Message)
		default:
			logging.Error(c.UserContext(), h.logger, "error updating cart", zap.Error(err))
			return fiber.ErrInternalServerError
		}
		return redirect(c, "/customer/cart")
	}
	if err := h.saveCart(c, updated); err != nil {
		return err
	}
	flash(c, notice.Level, notice.Message)
	return redirect(c, "/customer/cart")
}

// HandleRemoveFromCart drops a cart line.
func (h *CustomerHandler) HandleRemoveFromCart(c *fiber.Ctx) error {
	updated, notice := h.cartService.RemoveItem(session.From(c).Cart(), c.Params("id"))
	if err := h.saveCart(c, updated); err != nil {
		return err
	}
	flash(c, notice.Level, notice.Message)
	return redirect(c, "/customer/cart")
}

// ShowCheckout renders the checkout form and issues a checkout token for
// the current cart.
func (h *CustomerHandler) ShowCheckout(c *fiber.Ctx) error {
	customer, _ := middleware.CurrentCustomer(c)
	current := session.From(c).Cart()
	if current.IsEmpty() {
		flash(c, session.FlashWarning, "Your cart is empty.")
		return c.Redirect("/customer/cart", fiber.StatusFound)
	}

	token, err := h.tokens.Issue(customer.ID(), current)
	if err != nil {
		logging.Error(c.UserContext(), h.logger, "failed to issue checkout token", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	if customer.User.Address == "" || customer.User.Phone == "" {
		flash(c, session.FlashInfo, "Please provide your shipping address and phone number.")
	}

	data := cartView(current)
	data["address"] = customer.User.Address
	data["phone"] = customer.User.Phone
	data["payment_method"] = "Cash on Delivery"
	data["checkout_token"] = token
	return render(c, "Checkout", data)
}

// HandleCheckout places the order.
func (h *CustomerHandler) HandleCheckout(c *fiber.Ctx) error {
	customer, _ := middleware.CurrentCustomer(c)
	sess := session.From(c)
	current := sess.Cart()
	if current.IsEmpty() {
		flash(c, session.FlashWarning, "Your cart is empty.")
		return redirect(c, "/customer/cart")
	}

	var form CheckoutForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, err)
	}
	if err := h.validate.Struct(form); err != nil {
		return validationFailed(c, err)
	}

	ctx := c.UserContext()
	if err := h.tokens.Redeem(ctx, form.CheckoutToken, customer.ID(), current); err != nil {
		metrics.RecordCheckout(metrics.OutcomeTokenRejected)
		logging.Warn(c.UserContext(), h.logger, "checkout token rejected", zap.String("user_id", customer.ID()), zap.Error(err))
		if errors.Is(err, services.ErrStaleCheckoutToken) {
			flash(c, session.FlashWarning, "Your cart changed. Please review your order and confirm again.")
		} else {
			flash(c, session.FlashWarning, "This checkout has expired or was already submitted. Please review your order and confirm again.")
		}
		return redirect(c, "/customer/checkout")
	}

	order, err := h.checkoutService.PlaceOrder(ctx, services.CheckoutRequest{
		UserID:  customer.ID(),
		Cart:    current,
		Address: strings.TrimSpace(form.Address),
		Phone:   strings.TrimSpace(form.Phone),
	})

	var stockErr *services.StockValidationError
	var recErr *services.ReconciliationError
	switch {
	case err == nil:
		sess.ClearCart()
		flash(c, session.FlashSuccess, "Order placed successfully! Payment via Cash on Delivery.")
		return redirect(c, "/customer/order_confirmation/"+order.ID)
	case errors.As(err, &stockErr):
		flash(c, session.FlashDanger, stockErr.Error())
		return redirect(c, "/customer/cart")
	case errors.As(err, &recErr):
		for _, f := range recErr.Failures {
			flash(c, session.FlashDanger, fmt.Sprintf("Error updating stock for %s. Please contact support regarding order %s.", f.Name, recErr.OrderID))
		}
		return redirect(c, "/customer/order_confirmation/"+recErr.OrderID)
	case errors.Is(err, services.ErrEmptyCart):
		flash(c, session.FlashWarning, "Your cart is empty.")
		return redirect(c, "/customer/cart")
	default:
		logging.Error(c.UserContext(), h.logger, "error placing order", zap.String("user_id", customer.ID()), zap.Error(err))
		flash(c, session.FlashDanger, "There was an error placing your order. Please try again.")
		return redirect(c, "/customer/checkout")
	}
}

// HandleOrderConfirmation shows an order to its owner.
func (h *CustomerHandler) HandleOrderConfirmation(c *fiber.Ctx) error {
	customer, _ := middleware.CurrentCustomer(c)
	order, err := h.orderService.GetForUser(c.UserContext(), customer.ID(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			flash(c, session.FlashWarning, "Order not found or access denied.")
			return c.Redirect("/customer/orders", fiber.StatusFound)
		}
		logging.Error(c.UserContext(), h.logger, "error loading order", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return render(c, "Order Confirmation", fiber.Map{"order": order})
}

// HandleOrderHistory lists the customer's orders, newest first.
func (h *CustomerHandler) HandleOrderHistory(c *fiber.Ctx) error {
	customer, _ := middleware.CurrentCustomer(c)
	orders, err := h.orderService.ListForUser(c.UserContext(), customer.ID())
	if err != nil {
		logging.Error(c.UserContext(), h.logger, "error listing orders", zap.String("user_id", customer.ID()), zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return render(c, "My Orders", fiber.Map{"orders": orders})
}
