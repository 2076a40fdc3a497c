package user

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "Google"

	RoleUser = "user"

	DefaultPhoto = "default.png"
)

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	Role         string     `json:"role"`
	Photo        string     `json:"photo"`
	Verified     bool       `json:"verified"`
	Provider     string     `json:"provider"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// IsFederated reports whether the account was created through an external
// identity provider and so has no usable local password.
func (u User) IsFederated() bool {
	return u.Provider != "" && u.Provider != ProviderLocal
}

// View is the only representation of a user that leaves the service.
type View struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Verified  bool       `json:"verified"`
	Photo     string     `json:"photo"`
	Provider  string     `json:"provider"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func ToView(u User) View {
	return View{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Verified:  u.Verified,
		Photo:     u.Photo,
		Provider:  u.Provider,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Bounds follow the users table columns and bcrypt's 72 byte input limit.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
