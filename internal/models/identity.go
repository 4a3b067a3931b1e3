package models

// AdminID is the fixed identifier of the configured administrator.
const AdminID = "admin"

// Identity is the authenticated principal of a session.
type Identity interface {
	ID() string
	IsAdmin() bool
	DisplayName() string
}

// Administrator is the single configured operator account.
type Administrator struct {
	Username string
}

func (a Administrator) ID() string          { return AdminID }
func (a Administrator) IsAdmin() bool       { return true }
func (a Administrator) DisplayName() string { return a.Username }

// Customer is an approved account from the user store.
type Customer struct {
	User *User
}

func (c Customer) ID() string          { return c.User.ID }
func (c Customer) IsAdmin() bool       { return false }
func (c Customer) DisplayName() string { return c.User.Username }

var (
	_ Identity = Administrator{}
	_ Identity = Customer{}
)
