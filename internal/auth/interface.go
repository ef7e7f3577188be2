package auth

import "github.com/inkwell-social/inkwell/internal/models"

// ServiceInterface defines the contract for authentication operations.
// This enables mocking for unit tests without requiring a real database.
type ServiceInterface interface {
	Register(req RegisterRequest) (*AuthResponse, error)
	Login(req LoginRequest) (*AuthResponse, error)

	FindUserByEmail(email string) (*models.User, error)

	GenerateTokenForUser(user *models.User) (*AuthResponse, error)
	ValidateToken(tokenString string) (*models.User, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
