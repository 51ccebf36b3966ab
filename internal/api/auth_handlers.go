package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/example/store-catalog/internal/api/middleware"
	"github.com/example/store-catalog/internal/auth"
	"github.com/example/store-catalog/internal/infrastructure/store"
)

// AuthHandlers handles store-owner authentication
type AuthHandlers struct {
	store      store.CatalogStore
	jwtService *auth.JWTService
	validate   *validator.Validate
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(st store.CatalogStore, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{
		store:      st,
		jwtService: jwtService,
		validate:   validator.New(),
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// OwnerResponse represents owner data in responses
type OwnerResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Owner       OwnerResponse `json:"owner"`
	AccessToken string        `json:"access_token"`
	Message     string        `json:"message,omitempty"`
}

// Register creates a new owner account with a fresh tenant
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	owner := &store.Owner{
		ID:           uuid.New().String(),
		TenantID:     uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         "owner",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.store.CreateOwner(r.Context(), owner); err != nil {
		if errors.Is(err, store.ErrOwnerExists) {
			respondJSONError(w, "Email already registered", http.StatusConflict)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	accessToken := h.setAuthCookies(w, r, owner)

	respondJSON(w, http.StatusCreated, AuthResponse{
		Owner:       ownerResponse(owner),
		AccessToken: accessToken,
		Message:     "Registration successful",
	})
}

// Login authenticates an owner
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	owner, err := h.store.OwnerByEmail(r.Context(), req.Email)
	if err != nil {
		respondJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if !owner.IsActive {
		respondJSONError(w, "Account is deactivated", http.StatusForbidden)
		return
	}
	if !auth.CheckPassword(req.Password, owner.PasswordHash) {
		respondJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	accessToken := h.setAuthCookies(w, r, owner)

	respondJSON(w, http.StatusOK, AuthResponse{
		Owner:       ownerResponse(owner),
		AccessToken: accessToken,
		Message:     "Login successful",
	})
}

// Logout clears the auth cookies
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

// Refresh issues a fresh token pair from a valid refresh token
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshCookie, err := r.Cookie("refresh_token")
	if err != nil {
		respondJSONError(w, "No refresh token", http.StatusUnauthorized)
		return
	}

	ownerID, err := h.jwtService.ValidateRefreshToken(refreshCookie.Value)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	owner, err := h.store.OwnerByID(r.Context(), ownerID)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "Owner not found", http.StatusUnauthorized)
		return
	}
	if !owner.IsActive {
		h.clearAuthCookies(w)
		respondJSONError(w, "Account is deactivated", http.StatusForbidden)
		return
	}

	accessToken := h.setAuthCookies(w, r, owner)

	respondJSON(w, http.StatusOK, AuthResponse{
		Owner:       ownerResponse(owner),
		AccessToken: accessToken,
		Message:     "Token refreshed",
	})
}

// Me returns the current authenticated owner's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetOwnerFromContext(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	owner, err := h.store.OwnerByID(r.Context(), claims.OwnerID)
	if err != nil {
		respondJSONError(w, "Owner not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, ownerResponse(owner))
}

// Helper methods

func ownerResponse(owner *store.Owner) OwnerResponse {
	return OwnerResponse{
		ID:        owner.ID,
		TenantID:  owner.TenantID,
		Email:     owner.Email,
		Role:      owner.Role,
		CreatedAt: owner.CreatedAt,
	}
}

func (h *AuthHandlers) setAuthCookies(w http.ResponseWriter, r *http.Request, owner *store.Owner) string {
	accessToken, accessExpiry, _ := h.jwtService.GenerateAccessToken(owner.ID, owner.TenantID, owner.Email, owner.Role)
	refreshToken, refreshExpiry, _ := h.jwtService.GenerateRefreshToken(owner.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/auth/refresh",
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	return accessToken
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/auth/refresh",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
