package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rabbithaven.tw/internal/audit"
	"rabbithaven.tw/internal/auth"
	"rabbithaven.tw/internal/config"
	"rabbithaven.tw/internal/donation"
	"rabbithaven.tw/internal/obs"
	"rabbithaven.tw/internal/stream"
)

// ReadyProbe checks backing-store readiness (a DB ping when Postgres is
// configured; always ready in memory mode).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the donation lifecycle.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	donations donation.Service
	users     auth.UserStore
	auditor   *audit.Recorder
	auditLog  audit.Store
	stream    *stream.Stream
	features  config.Features

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, donations donation.Service, users auth.UserStore, auditLog audit.Store, st *stream.Stream, features config.Features, rateBurst, ratePerSec int) *API {
	if rateBurst <= 0 {
		rateBurst = 60
	}
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		donations:  donations,
		users:      users,
		auditor:    audit.NewRecorder(auditLog),
		auditLog:   auditLog,
		stream:     st,
		features:   features,
		rateBurst:  rateBurst,
		ratePerSec: ratePerSec,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// public donor surface
	a.mux.HandleFunc("/v1/donations/report", a.handleReport)
	a.mux.HandleFunc("/v1/donations/lookup", a.handleLookup)
	a.mux.HandleFunc("/v1/donations/", a.handleDonationResource)

	// staff
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	if features.DonationConsole {
		a.mux.HandleFunc("/v1/admin/donations", RequireRole(auth.StaffRoles()...)(http.HandlerFunc(a.handleAdminDonations)).ServeHTTP)
		a.mux.HandleFunc("/v1/admin/donations/", RequireRole(auth.StaffRoles()...)(http.HandlerFunc(a.handleAdminDonationAction)).ServeHTTP)
	}
	if features.AuditConsole {
		a.mux.HandleFunc("/v1/admin/audit", RequireRole(auth.StaffRoles()...)(http.HandlerFunc(a.handleAuditLog)).ServeHTTP)
	}
	if features.LiveDashboard {
		a.mux.HandleFunc("/v1/admin/stream", RequireRole(auth.StaffRoles()...)(http.HandlerFunc(a.Stream)).ServeHTTP)
	}
	a.mux.HandleFunc("/v1/admin/users", RequireRole(auth.RoleAdmin)(http.HandlerFunc(a.handleUsers)).ServeHTTP)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "rabbithaven-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "rabbithaven-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// audit records a staff mutation through the best-effort recorder.
func (a *API) audit(ctx context.Context, action, resourceType, resourceID string, details map[string]string) {
	if a.auditor == nil {
		return
	}
	a.auditor.Record(ctx, action, resourceType, resourceID, details)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between 1 and 1000")
	}
	return val, nil
}

func handleDonationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, donation.ErrInvalidReport),
		errors.Is(err, donation.ErrInvalidLookup),
		errors.Is(err, donation.ErrReasonRequired):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, donation.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
