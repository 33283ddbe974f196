package server

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finfolio/finfolio/internal/common"
	"github.com/finfolio/finfolio/internal/models"
)

// --- JWT helpers ---

// signJWT creates a signed HMAC-SHA256 JWT for the given user.
func signJWT(user *models.User, config *common.AuthConfig) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.UserID,
		"name":  user.Username,
		"email": user.Email,
		"iss":   "finfolio-server",
		"iat":   now.Unix(),
		"exp":   now.Add(config.GetTokenExpiry()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret))
}

// validateJWT parses and validates a JWT token string using the given secret.
func validateJWT(tokenString string, secret []byte) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// hashPassword bcrypt-hashes a password at cost 10. bcrypt ignores input
// past 72 bytes, so longer passwords are truncated explicitly rather than
// silently.
func hashPassword(password string) (string, error) {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	hash, err := bcrypt.GenerateFromPassword(b, 10)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkPassword compares a bcrypt hash against a candidate password.
func checkPassword(hash, password string) bool {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), b) == nil
}

// userSummary is the profile shape returned by auth endpoints.
type userSummary struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func summarize(user *models.User) userSummary {
	return userSummary{UserID: user.UserID, Username: user.Username, Email: user.Email}
}

// handleAuthRegister handles POST /api/auth/register. Account creation is
// synchronous: a 201 means the user exists and can log in immediately. Only
// the welcome email is fire-and-forget.
func (s *Server) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Username == "" {
		WriteError(w, http.StatusBadRequest, "Username is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		WriteError(w, http.StatusBadRequest, "A valid email address is required")
		return
	}
	if len(req.Password) < 8 {
		WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	users := s.app.Storage.UserStore()

	// Friendly pre-checks; the store's unique indexes are the backstop
	// against a registration race.
	if existing, err := users.GetByIdentifier(ctx, req.Username); err == nil && existing != nil {
		WriteError(w, http.StatusConflict, "Username is already taken")
		return
	}
	if existing, err := users.GetByIdentifier(ctx, req.Email); err == nil && existing != nil {
		WriteError(w, http.StatusConflict, "Email is already registered")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	user := &models.User{
		UserID:       uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("username", req.Username).Msg("Failed to create user")
		WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	s.logger.Info().Str("user_id", user.UserID).Str("username", user.Username).Msg("User registered")

	// Welcome email never affects the stored account.
	if s.app.Mail != nil {
		go func(email, username string) {
			mailCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.app.Mail.SendWelcome(mailCtx, email, username); err != nil {
				s.logger.Warn().Err(err).Str("email", email).Msg("Failed to send welcome email")
			}
		}(user.Email, user.Username)
	}

	WriteJSON(w, http.StatusCreated, summarize(user))
}

// handleAuthLogin handles POST /api/auth/login. The identifier matches
// username or email.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "Identifier and password are required")
		return
	}

	user, err := s.app.Storage.UserStore().GetByIdentifier(r.Context(), req.Identifier)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to look up account")
		return
	}
	if user == nil || !checkPassword(user.PasswordHash, req.Password) {
		// Same response for unknown identifier and bad password.
		WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := signJWT(user, &s.app.Config.Auth)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign token")
		WriteError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_in": int(s.app.Config.Auth.GetTokenExpiry().Seconds()),
		"user":       summarize(user),
	})
}
