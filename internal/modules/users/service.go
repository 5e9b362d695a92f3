package users

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrUsernameTaken is returned when registering an existing username.
var ErrUsernameTaken = fmt.Errorf("username already taken")

// ErrInvalidCredentials is returned on any login failure. Unknown username
// and wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = fmt.Errorf("invalid username or password")

// Service implements registration and login with per-user salted SHA-256
// password hashes.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a users service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "users_service").Logger(),
	}
}

// Register creates a new account and returns its id.
func (s *Service) Register(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return "", fmt.Errorf("username must be at least 3 characters")
	}
	if len(password) < 6 {
		return "", fmt.Errorf("password must be at least 6 characters")
	}

	existing, err := s.repo.GetByUsername(username)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrUsernameTaken
	}

	saltBytes := make([]byte, 16)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt := hex.EncodeToString(saltBytes)

	user := User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hashPassword(password, salt),
		Salt:         salt,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(user); err != nil {
		return "", err
	}

	s.log.Info().Str("username", username).Msg("User registered")
	return user.ID, nil
}

// Authenticate verifies credentials and returns the account id.
func (s *Service) Authenticate(username, password string) (string, error) {
	user, err := s.repo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	computed := hashPassword(password, user.Salt)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(user.PasswordHash)) != 1 {
		return "", ErrInvalidCredentials
	}
	return user.ID, nil
}

func hashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}
