package handlers

import (
	"errors"

	"toyshop/internal/logging"
	"toyshop/internal/repositories"
	"toyshop/internal/services"
	"toyshop/internal/session"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CatalogHandler serves the public toy pages.
type CatalogHandler struct {
	toyService *services.ToyService
	logger     *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(toyService *services.ToyService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{toyService: toyService, logger: logger}
}

// RegisterRoutes registers the browsing routes.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleHome)
	router.Get("/customer/toys", h.HandleListToys)
	router.Get("/customer/toy/:id", h.HandleToyDetail)
}

func (h *CatalogHandler) inStock(c *fiber.Ctx, title string) error {
	toys, err := h.toyService.ListInStock(c.UserContext())
	if err != nil {
		logging.Error(c.UserContext(), h.logger, "error listing toys", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return render(c, title, fiber.Map{"toys": toys})
}

// HandleHome lists in-stock toys.
func (h *CatalogHandler) HandleHome(c *fiber.Ctx) error {
	return h.inStock(c, "Welcome to the Toy Shop")
}

// HandleListToys lists in-stock toys.
func (h *CatalogHandler) HandleListToys(c *fiber.Ctx) error {
	return h.inStock(c, "All Toys")
}

// HandleToyDetail shows one toy; out-of-stock toys are hidden.
func (h *CatalogHandler) HandleToyDetail(c *fiber.Ctx) error {
	toy, err := h.toyService.GetAvailable(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrToyNotFound) {
			flash(c, session.FlashWarning, "Toy not found or unavailable.")
			return c.Redirect("/customer/toys", fiber.StatusFound)
		}
		logging.Error(c.UserContext(), h.logger, "error loading toy", zap.String("toy_id", c.Params("id")), zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return render(c, toy.Name, fiber.Map{"toy": toy})
}
