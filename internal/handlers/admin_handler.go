package handlers

import (
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"toyshop/internal/logging"
	"toyshop/internal/middleware"
	"toyshop/internal/models"
	"toyshop/internal/repositories"
	"toyshop/internal/services"
	"toyshop/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdminHandler serves the back office.
type AdminHandler struct {
	authService  *services.AuthService
	toyService   *services.ToyService
	orderService *services.OrderService
	statsService *services.StatsService
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	authService *services.AuthService,
	toyService *services.ToyService,
	orderService *services.OrderService,
	statsService *services.StatsService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		authService:  authService,
		toyService:   toyService,
		orderService: orderService,
		statsService: statsService,
		validate:     newValidator(),
		logger:       logger,
	}
}

// RegisterRoutes registers the admin routes behind RequireAdmin.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	admin := router.Group("/admin", middleware.RequireAdmin())
	admin.Get("/dashboard", h.HandleDashboard)
	admin.Get("/stats", h.HandleStats)

	admin.Get("/toys", h.HandleListToys)
	admin.Get("/toys/add", h.ShowAddToy)
	admin.Post("/toys/add", h.HandleAddToy)
	admin.Get("/toys/edit/:id", h.ShowEditToy)
	admin.Post("/toys/edit/:id", h.HandleEditToy)
	admin.Post("/toys/delete/:id", h.HandleDeleteToy)

	admin.Get("/orders", h.HandleListOrders)
	admin.Get("/orders/reconciliation", h.HandleReconciliationQueue)
	admin.Get("/orders/view/:id", h.HandleViewOrder)
	admin.Post("/orders/update_status/:id", h.HandleUpdateStatus)
	admin.Post("/orders/reconcile/:id", h.HandleReconcile)

	admin.Get("/users", h.HandleListUsers)
	admin.Post("/users/approve/:id", h.HandleApproveUser)
}

// ToyForm represents the add/edit toy form. Price and stock arrive as text.
type ToyForm struct {
	Name        string `form:"name" validate:"required,max=100"`
	Description string `form:"description" validate:"required"`
	Price       string `form:"price" validate:"required"`
	Stock       string `form:"stock" validate:"required"`
}

// StatusForm represents the order status form.
type StatusForm struct {
	Status string `form:"status" validate:"required,oneof=Pending Accepted Shipped Delivered Cancelled"`
}

// ReconcileForm carries the operator's resolution note.
type ReconcileForm struct {
	Note string `form:"note" validate:"max=500"`
}

// HandleDashboard shows the statistics overview.
func (h *AdminHandler) HandleDashboard(c *fiber.Ctx) error {
	return render(c, "Admin Dashboard", fiber.Map{"stats": h.statsService.Stats(c.UserContext())})
}

// HandleStats returns the raw counters.
func (h *AdminHandler) HandleStats(c *fiber.Ctx) error {
	return c.JSON(h.statsService.Stats(c.UserContext()))
}

// HandleListToys lists every toy, including those out of stock.
func (h *AdminHandler) HandleListToys(c *fiber.Ctx) error {
	toys, err := h.toyService.ListAll(c.UserContext())
	if err != nil {
		logging.Error(c.UserContext(), h.logger, "error listing toys", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return render(c, "Manage Toys", fiber.Map{"toys": toys})
}

// ShowAddToy renders the empty toy form.
func (h *AdminHandler) ShowAddToy(c *fiber.Ctx) error {
	return render(c, "Add New Toy", fiber.Map{"legend": "New Toy"})
}

func (h *AdminHandler) parseToyForm(c *fiber.Ctx) (services.ToyInput, *multipart.FileHeader, error) {
	var form ToyForm
	if err := c.BodyParser(&form); err != nil {
		return services.ToyInput{}, nil, err
	}
	if err := h.validate.Struct(form); err != nil {
		return services.ToyInput{}, nil, err
	}

	fields := map[string]string{}
	price, err := decimal.NewFromString(strings.TrimSpace(form.Price))
	if err != nil {
		fields["price"] = "Not a valid decimal value."
	}
	stock, err := strconv.Atoi(strings.TrimSpace(form.Stock))
	if err != nil {
		fields["stock"] = "Not a valid integer value."
	}
	if len(fields) > 0 {
		return services.ToyInput{}, nil, &services.ValidationError{Fields: fields}
	}

	// A missing file or a non-multipart body both mean "no new image".
	image, err := c.FormFile("image")
	if err != nil {
		image = nil
	}
	return services.ToyInput{
		Name:        form.Name,
		Description: form.Description,
		Price:       price,
		Stock:       stock,
	}, image, nil
}

// HandleAddToy creates a toy from a multipart form.
func (h *AdminHandler) HandleAddToy(c *fiber.Ctx) error {
	input, image, err := h.parseToyForm(c)
	if err != nil {
		return validationFailed(c, err)
	}

	toy, err := h.toyService.Create(c.UserContext(), input, image)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return validationFailed(c, err)
		}
		logging.Error(c.UserContext(), h.logger, "error adding toy", zap.Error(err))
		flash(c, session.FlashDanger, "Error adding toy to database.")
		return redirect(c, "/admin/toys/add")
	}
	logging.Info(c.UserContext(), h.logger, "toy added", zap.String("toy_id", toy.ID))
	flash(c, session.FlashSuccess, "New toy added successfully!")
	return redirect(c, "/admin/toys")
}

func (h *AdminHandler) toyNotFound(c *fiber.Ctx, status int) error {
	flash(c, session.FlashDanger, "Toy not found.")
	return c.Redirect("/admin/toys", status)
}

// ShowEditToy renders the toy form prefilled.
func (h *AdminHandler) ShowEditToy(c *fiber.Ctx) error {
	toy, err := h.toyService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrToyNotFound) {
			return h.toyNotFound(c, fiber.StatusFound)
		}
		logging.Error(c.UserContext(), h.logger, "error loading toy", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return render(c, "Edit Toy", fiber.Map{"legend": "Edit Toy", "toy": toy})
}

// HandleEditToy updates a toy; the image is optional.
func (h *AdminHandler) HandleEditToy(c *fiber.Ctx) error {
	input, image, err := h.parseToyForm(c)
	if err != nil {
		return validationFailed(c, err)
	}

	id := c.Params("id")
	if _, err := h.toyService.Update(c.UserContext(), id, input, image); err != nil {
		var verr *services.ValidationError
		switch {
		case errors.Is(err, repositories.ErrToyNotFound):
			return h.toyNotFound(c, fiber.StatusSeeOther)
		case errors.As(err, &verr):
			return validationFailed(c, err)
		}
		logging.Error(c.UserContext(), h.logger, "error updating toy", zap.String("toy_id", id), zap.Error(err))
		flash(c, session.FlashDanger, "Error updating toy in database.")
		return redirect(c, "/admin/toys/edit/"+id)
	}
	flash(c, session.FlashSuccess, "Toy updated successfully!")
	return redirect(c, "/admin/toys")
}

// HandleDeleteToy removes a toy and its image.
func (h *AdminHandler) HandleDeleteToy(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.toyService.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, repositories.ErrToyNotFound) {
			return h.toyNotFound(c, fiber.StatusSeeOther)
		}
		logging.Error(c.UserContext(), h.logger, "error deleting toy", zap.String("toy_id", id), zap.Error(err))
		flash(c, session.FlashDanger, "Error deleting toy from database.")
		return redirect(c, "/admin/toys")
	}
	flash(c, session.FlashSuccess, "Toy deleted successfully!")
	return redirect(c, "/admin/toys")
}

// HandleListOrders lists orders, optionally filtered by ?status=.
func (h *AdminHandler) HandleListOrders(c *fiber.Ctx) error {
	status := c.Query("status")
	orders, err := h.orderService.ListAll(c.UserContext(), status)
	if err != nil {
		logging.Error(c.UserContext(), h.logger, "error listing orders", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	if !models.IsValidStatus(status) {
		status = ""
	}
	return render(c, "Manage Orders", fiber.Map{
		"orders":         orders,
		"statuses":       models.OrderStatuses,
		"current_filter": status,
	})
}

func (h *AdminHandler) orderNotFound(c *fiber.Ctx, status int) error {
	flash(c, session.FlashDanger, "Order not found.")
	return c.Redirect("/admin/orders", status)
}

// HandleViewOrder shows one order with the statuses it can move to.
func (h *AdminHandler) HandleViewOrder(c *fiber.Ctx) error {
	order, err := h.orderService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return h.orderNotFound(c, fiber.StatusFound)
		}
		logging.Error(c.UserContext(), h.logger, "error loading order", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return render(c, "Order Details", fiber.Map{
		"order":    order,
		"statuses": models.OrderStatuses,
	})
}

// HandleUpdateStatus sets the order status.
func (h *AdminHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	var form StatusForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, err)
	}
	if err := h.validate.Struct(form); err != nil {
		return validationFailed(c, err)
	}

	id := c.Params("id")
	if _, err := h.orderService.SetStatus(c.UserContext(), id, form.Status); err != nil {
		switch {
		case errors.Is(err, repositories.ErrOrderNotFound):
			return h.orderNotFound(c, fiber.StatusSeeOther)
		case errors.Is(err, services.ErrInvalidStatus):
			return validationFailed(c, &services.ValidationError{Fields: map[string]string{"status": "Not a valid choice."}})
		}
		logging.Error(c.UserContext(), h.logger, "error updating order status", zap.String("order_id", id), zap.Error(err))
		flash(c, session.FlashDanger, "Failed to update order status.")
		return redirect(c, "/admin/orders/view/"+id)
	}
	flash(c, session.FlashSuccess, "Order status updated to "+form.Status+".")
	return redirect(c, "/admin/orders/view/"+id)
}

// HandleReconciliationQueue lists orders needing a stock fix.
func (h *AdminHandler) HandleReconciliationQueue(c *fiber.Ctx) error {
	orders, err := h.orderService.ListReconciliation(c.UserContext())
	if err != nil {
		logging.Error(c.UserContext(), h.logger, "error listing reconciliation queue", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return render(c, "Stock Reconciliation", fiber.Map{"orders": orders})
}

// HandleReconcile closes a reconciliation case.
func (h *AdminHandler) HandleReconcile(c *fiber.Ctx) error {
	var form ReconcileForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, err)
	}
	if err := h.validate.Struct(form); err != nil {
		return validationFailed(c, err)
	}

	id := c.Params("id")
	if _, err := h.orderService.MarkReconciled(c.UserContext(), id, form.Note); err != nil {
		switch {
		case errors.Is(err, repositories.ErrOrderNotFound):
			return h.orderNotFound(c, fiber.StatusSeeOther)
		case errors.Is(err, services.ErrNotReconcilable):
			flash(c, session.FlashWarning, "This order does not need reconciliation.")
		default:
			logging.Error(c.UserContext(), h.logger, "error reconciling order", zap.String("order_id", id), zap.Error(err))
			flash(c, session.FlashDanger, "Failed to mark order as reconciled.")
		}
		return redirect(c, "/admin/orders/reconciliation")
	}
	flash(c, session.FlashSuccess, "Order marked as reconciled.")
	return redirect(c, "/admin/orders/reconciliation")
}

// HandleListUsers shows pending and approved customers, oldest first.
func (h *AdminHandler) HandleListUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	pending, err := h.authService.ListPending(ctx)
	if err != nil {
		logging.Error(c.UserContext(), h.logger, "error listing pending users", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	approved, err := h.authService.ListApproved(ctx)
	if err != nil {
		logging.Error(c.UserContext(), h.logger, "error listing approved users", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return render(c, "Manage Users", fiber.Map{
		"pending_users":  pending,
		"approved_users": approved,
	})
}

// HandleApproveUser approves a pending customer.
func (h *AdminHandler) HandleApproveUser(c *fiber.Ctx) error {
	if err := h.authService.Approve(c.UserContext(), c.Params("id")); err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			flash(c, session.FlashDanger, "User not found.")
		} else {
			logging.Error(c.UserContext(), h.logger, "error approving user", zap.String("user_id", c.Params("id")), zap.Error(err))
			flash(c, session.FlashDanger, "Error approving user.")
		}
		return redirect(c, "/admin/users")
	}
	flash(c, session.FlashSuccess, "User approved successfully!")
	return redirect(c, "/admin/users")
}
