// Package session keeps identity, cart and flash messages in the fiber
// session store.
package session

import (
	"encoding/json"
	"time"

	"toyshop/internal/cart"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

const (
	localsKey = "toyshop.session"

	keyUserID  = "user_id"
	keyIsAdmin = "is_admin"
	keyCart    = "cart"
	keyFlashes = "flashes"
)

// Flash categories.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Config tunes the session cookie.
type Config struct {
	Expiration time.Duration
	Secure     bool
	Storage    fiber.Storage // nil keeps sessions in memory
}

// Manager owns the session store.
type Manager struct {
	store  *session.Store
	logger *zap.Logger
}

// NewManager builds the session store.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	store := session.New(session.Config{
		Expiration:     cfg.Expiration,
		Storage:        cfg.Storage,
		KeyLookup:      "cookie:toyshop_session",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.Secure,
		CookieSameSite: "Lax",
	})
	return &Manager{store: store, logger: logger}
}

// Middleware loads the session once per request and saves it after the
// handler chain ran.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := m.store.Get(c)
		if err != nil {
			m.logger.Error("failed to load session", zap.Error(err))
			return fiber.ErrInternalServerError
		}
		s := &Session{raw: raw, logger: m.logger}
		c.Locals(localsKey, s)

		chainErr := c.Next()

		if err := raw.Save(); err != nil {
			m.logger.Error("failed to save session", zap.Error(err))
			if chainErr == nil {
				return fiber.ErrInternalServerError
			}
		}
		return chainErr
	}
}

// From returns the session loaded by Middleware.
func From(c *fiber.Ctx) *Session {
	s, _ := c.Locals(localsKey).(*Session)
	return s
}

// Session wraps the fiber session with typed accessors.
type Session struct {
	raw    *session.Session
	logger *zap.Logger
}

// Identity returns the stored principal id and role.
func (s *Session) Identity() (userID string, isAdmin bool, ok bool) {
	userID, _ = s.raw.Get(keyUserID).(string)
	isAdmin, _ = s.raw.Get(keyIsAdmin).(bool)
	return userID, isAdmin, userID != ""
}

// Login stores the principal under a fresh session id.
func (s *Session) Login(userID string, isAdmin bool) error {
	if err := s.raw.Regenerate(); err != nil {
		return err
	}
	s.raw.Set(keyUserID, userID)
	s.raw.Set(keyIsAdmin, isAdmin)
	return nil
}

// Logout drops identity, cart and flashes and issues a new session id.
func (s *Session) Logout() error {
	return s.raw.Reset()
}

// ClearIdentity forgets the principal but keeps the rest of the session.
func (s *Session) ClearIdentity() {
	s.raw.Delete(keyUserID)
	s.raw.Delete(keyIsAdmin)
}

// Cart returns the session cart. A corrupt value yields an empty cart.
func (s *Session) Cart() cart.Cart {
	raw, _ := s.raw.Get(keyCart).(string)
	c, err := cart.Decode(raw)
	if err != nil {
		s.logger.Warn("discarding unreadable cart", zap.Error(err))
	}
	return c
}

// SetCart stores the cart; an empty cart removes the key.
func (s *Session) SetCart(c cart.Cart) error {
	if c.IsEmpty() {
		s.raw.Delete(keyCart)
		return nil
	}
	raw, err := c.Encode()
	if err != nil {
		return err
	}
	s.raw.Set(keyCart, raw)
	return nil
}

// ClearCart empties the cart.
func (s *Session) ClearCart() {
	s.raw.Delete(keyCart)
}

// AddFlash queues a message for the next page.
func (s *Session) AddFlash(category, message string) {
	flashes := s.peekFlashes()
	flashes = append(flashes, Flash{Category: category, Message: message})
	b, err := json.Marshal(flashes)
	if err != nil {
		s.logger.Warn("failed to encode flashes", zap.Error(err))
		return
	}
	s.raw.Set(keyFlashes, string(b))
}

// PopFlashes returns and clears the queued messages.
func (s *Session) PopFlashes() []Flash {
	flashes := s.peekFlashes()
	s.raw.Delete(keyFlashes)
	return flashes
}

func (s *Session) peekFlashes() []Flash {
	raw, _ := s.raw.Get(keyFlashes).(string)
	flashes := []Flash{}
	if raw == "" {
		return flashes
	}
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		return []Flash{}
	}
	return flashes
}
