package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/tasklist/apiserver/types"
)

const maxFormMemory = 1 << 20

type contextKey string

const contextUserKey contextKey = "user"

// ErrorResponse is the error payload returned for every failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// UserFromContext returns the user resolved by RequireAuth.
func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	if !ok || user.ID < 1 {
		return types.User{}, false
	}
	return user, true
}

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Detail: message})
}

// writeUnauthorized sends 401 with a Basic challenge so browsers prompt.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Basic")
	writeError(w, http.StatusUnauthorized, message)
}

// parseForm accepts urlencoded and multipart bodies alike.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

// formValue reports the first value of key and whether it was sent with a
// non-empty value. An empty field reads as omitted, the way HTML forms send
// inputs the user left blank.
func formValue(r *http.Request, key string) (string, bool) {
	values := r.PostForm[key]
	if len(values) == 0 || values[0] == "" {
		return "", false
	}
	return values[0], true
}

// errTaskIDOutOfRange marks an id that is numeric but cannot name a stored
// task; tasks.id is a 32-bit serial.
var errTaskIDOutOfRange = errors.New("task id out of range")

func parseTaskID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "taskID")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, errTaskIDOutOfRange
		}
		return 0, errors.New("invalid task id")
	}
	return int(id), nil
}

// parseFormBool accepts the spellings HTML forms and JS clients send.
func parseFormBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on", "t", "y":
		return true, nil
	case "false", "0", "no", "off", "f", "n":
		return false, nil
	default:
		return false, errors.New("invalid boolean")
	}
}

// newFormValidator reports field errors under their form names.
func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validationDetail names the fields that failed validation.
func validationDetail(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "invalid request"
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields = append(fields, fieldError.Field())
	}
	return "missing required fields: " + strings.Join(fields, ", ")
}
