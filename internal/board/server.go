package board

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"stealthnote/internal/domain"
	"stealthnote/internal/provider"
	"stealthnote/internal/services/verifier"
)

// maxSubmissionBytes bounds a POST /messages body.
const maxSubmissionBytes = 64 << 10

// ReadAuthHeader carries a member's read authorization for internal
// messages: the unpadded base64url JSON of a domain.ReadAuth.
const ReadAuthHeader = "X-StealthNote-Read"

// maxReadAuthBytes bounds the decoded ReadAuthHeader value.
const maxReadAuthBytes = 16 << 10

// ReadyCheck reports whether a dependency is usable.
type ReadyCheck func(ctx context.Context) error

// Server holds the board's HTTP handlers.
type Server struct {
	verifier *verifier.Service
	store    domain.MessageStore
	registry *provider.Registry
	metrics  *Metrics
	ready    []ReadyCheck
	log      *slog.Logger

	draining atomic.Bool
}

// NewServer returns a board server. metrics may be nil.
func NewServer(
	v *verifier.Service,
	store domain.MessageStore,
	reg *provider.Registry,
	metrics *Metrics,
	log *slog.Logger,
	ready ...ReadyCheck,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{verifier: v, store: store, registry: reg, metrics: metrics, ready: ready, log: log}
}

// Handler returns the router with middleware and every route mounted.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	mux.Group(func(r chi.Router) {
		r.Use(s.requestLogger)
		s.RegisterRoutes(r)
	})

	mux.Get("/livez", s.handleLivez)
	mux.Get("/readyz", s.handleReadyz)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// RegisterRoutes mounts the board API on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/messages", s.handleSubmit)
	r.Get("/messages", s.handleList)
	r.Get("/messages/{id}", s.handleGet)
	r.Get("/groups/{slug}/{groupID}", s.handleGroup)
}

// SetDraining marks the server not ready, e.g. before shutdown.
func (s *Server) SetDraining(on bool) { s.draining.Store(on) }

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
	var signed domain.SignedMessageWithProof
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&signed); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	bm, err := s.verifier.Accept(r.Context(), signed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bm)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if q.Internal {
		if err := s.verifier.VerifyRead(r.Context(), q); err != nil {
			s.log.Info("internal read refused", "code", domain.Code(err), "err", err)
			writeError(w, err)
			return
		}
	}
	msgs, err := s.store.ListMessages(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.BoardMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) parseQuery(r *http.Request) (domain.MessageQuery, error) {
	v := r.URL.Query()
	var q domain.MessageQuery
	if p := strings.TrimSpace(v.Get("provider")); p != "" {
		cfg, err := s.lookupProvider(p)
		if err != nil {
			return q, err
		}
		q.ProviderID = cfg.ID
	}
	q.GroupID = domain.GroupID(strings.TrimSpace(v.Get("group")))
	if q.GroupID != "" && q.ProviderID == "" {
		return q, fmt.Errorf("%w: group requires provider", errBadRequest)
	}
	if q.GroupID != "" {
		if err := s.registry.ValidGroup(q.ProviderID, q.GroupID); err != nil {
			return q, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if raw := v.Get("internal"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("%w: internal: %v", errBadRequest, err)
		}
		q.Internal = b
	}
	if q.Internal && q.GroupID == "" {
		return q, fmt.Errorf("%w: internal messages are listed per group", errBadRequest)
	}
	auth, err := readAuth(r)
	if err != nil {
		return q, err
	}
	q.Auth = auth
	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest)
		}
		q.Limit = n
	}
	if raw := v.Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return q, fmt.Errorf("%w: before: %v", errBadRequest, err)
		}
		q.Before = t
	}
	return q, nil
}

// readAuth decodes ReadAuthHeader. A missing header yields nil.
func readAuth(r *http.Request) (*domain.ReadAuth, error) {
	raw := r.Header.Get(ReadAuthHeader)
	if raw == "" {
		return nil, nil
	}
	if base64.RawURLEncoding.DecodedLen(len(raw)) > maxReadAuthBytes {
		return nil, fmt.Errorf("%w: read authorization too large", errBadRequest)
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: read authorization: %v", errBadRequest, err)
	}
	var auth domain.ReadAuth
	if err := json.Unmarshal(b, &auth); err != nil {
		return nil, fmt.Errorf("%w: read authorization: %v", errBadRequest, err)
	}
	return &auth, nil
}

// lookupProvider accepts either a slug ("google") or an id ("google-oauth").
func (s *Server) lookupProvider(name string) (domain.ProviderConfig, error) {
	if cfg, err := s.registry.BySlug(name); err == nil {
		return cfg, nil
	}
	return s.registry.Resolve(domain.ProviderID(name))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	bm, err := s.store.GetMessage(r.Context(), domain.MessageID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	if m := bm.Signed.Message; m.Internal {
		auth, err := readAuth(r)
		if err != nil {
			writeError(w, err)
			return
		}
		q := domain.MessageQuery{ProviderID: m.ProviderID, GroupID: m.GroupID, Internal: true, Auth: auth}
		if err := s.verifier.VerifyRead(r.Context(), q); err != nil {
			s.log.Info("internal read refused", "code", domain.Code(err), "err", err)
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, bm)
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.registry.BySlug(chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := s.registry.Group(cfg.ID, domain.GroupID(chi.URLParam(r, "groupID")))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrNotFound, err))
		return
	}
	writeJSON(w, http.StatusOK, GroupInfo{Group: g, Provider: cfg.Slug})
}

func (s *Server) handleLivez(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	for _, check := range s.ready {
		if err := check(r.Context()); err != nil {
			s.log.Warn("readiness check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// requestLogger logs one line per request with its status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		// The route pattern, not the path, so ids and groups stay out of logs.
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.log.Info("http request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
