package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tasklist/apiserver/internal/storage"
	"github.com/tasklist/apiserver/internal/web"
	"github.com/tasklist/apiserver/types"
	"go.uber.org/zap"
)

// PageHandler renders the HTML views and serves static assets.
type PageHandler struct {
	templates *template.Template
	assets    *storage.Storage
	logger    *zap.Logger
}

// NewPageHandler parses the embedded templates.
func NewPageHandler(assets *storage.Storage, logger *zap.Logger) (*PageHandler, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, err
	}
	return &PageHandler{templates: templates, assets: assets, logger: logger}, nil
}

// PageRouter registers the views and /static/*. The index view requires
// authentication; login and register do not.
func PageRouter(r chi.Router, handler *PageHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Get("/", handler.Index)
	r.Get("/login", handler.Login)
	r.Get("/register", handler.Register)
	r.Get("/static/*", handler.Static)
}

type indexPage struct {
	User types.User
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailNotAuthenticated)
		return
	}
	h.render(w, web.PageIndex, indexPage{User: user})
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, web.PageLogin, nil)
}

func (h *PageHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.render(w, web.PageRegister, nil)
}

// render executes into a buffer so a template error never leaves a
// half-written page.
func (h *PageHandler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("render template failed", zap.String("template", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) Static(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	object, err := h.assets.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		h.logger.Error("load asset failed", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", storage.ContentType(key))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, object); err != nil {
		h.logger.Warn("stream asset interrupted", zap.String("key", key), zap.Error(err))
	}
}

const healthPingTimeout = time.Second

// Healthz reports whether the database answers a ping.
func Healthz(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
			defer cancel()
			if err := ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
