package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/tasklist/apiserver/internal/services"
	"github.com/tasklist/apiserver/internal/store"
	"go.uber.org/zap"
)

const (
	detailNotAuthenticated = "Not authenticated"
	detailBadCredentials   = "Incorrect email or password"
)

// AuthHandler provides the Basic credential guard and registration.
type AuthHandler struct {
	userService *services.UserService
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		validate:    newFormValidator(),
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
}

// RequireAuth checks Basic credentials on every request and stores the
// resolved user in the request context. Unknown emails and wrong passwords
// produce identical responses.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			writeUnauthorized(w, detailNotAuthenticated)
			return
		}

		user, err := h.userService.Authenticate(r.Context(), email, password)
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				writeUnauthorized(w, detailBadCredentials)
				return
			}
			h.logger.Error("authenticate failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// RegisterForm is the registration payload. Fields are only checked for
// presence.
type RegisterForm struct {
	Email     string `form:"email" validate:"required"`
	Password  string `form:"password" validate:"required"`
	FirstName string `form:"first_name" validate:"required"`
	LastName  string `form:"last_name" validate:"required"`
}

// RegisterResponse acknowledges a registration.
type RegisterResponse struct {
	Message string `json:"message"`
}

// Register creates a new user account. It does not log the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}

	form := RegisterForm{
		Email:     r.PostForm.Get("email"),
		Password:  r.PostForm.Get("password"),
		FirstName: r.PostForm.Get("first_name"),
		LastName:  r.PostForm.Get("last_name"),
	}
	if err := h.validate.Struct(form); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	_, err := h.userService.Register(r.Context(), services.RegisterInput{
		Email:     form.Email,
		Password:  form.Password,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		if errors.Is(err, store.ErrInvalidValue) {
			writeError(w, http.StatusUnprocessableEntity, "registration fields contain characters that cannot be stored")
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{Message: "User registered successfully"})
}
