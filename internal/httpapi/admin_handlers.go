package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"rabbithaven.tw/internal/audit"
	"rabbithaven.tw/internal/donation"
	"rabbithaven.tw/internal/obs"
	"rabbithaven.tw/internal/stream"
)

type listDonationsResponse struct {
	Items []donation.Record `json:"items"`
	AsOf  time.Time         `json:"as_of"`
}

type flagRequest struct {
	Reason string `json:"reason"`
}

type auditEntryView struct {
	audit.Entry
	ActorName  string `json:"actor_name,omitempty"`
	ActorEmail string `json:"actor_email,omitempty"`
	ActorRole  string `json:"actor_role,omitempty"`
	Summary    string `json:"summary"`
}

type auditLogResponse struct {
	Items []auditEntryView `json:"items"`
	AsOf  time.Time        `json:"as_of"`
}

// handleAdminDonations lists reports for the reconciliation console, full
// records including the staff note, newest first.
func (a *API) handleAdminDonations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := donation.Status(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", donation.StatusPending, donation.StatusVerified, donation.StatusIssue:
	default:
		writeError(w, r, http.StatusBadRequest, "status must be pending, verified or issue")
		return
	}

	items, err := a.donations.List(r.Context(), limit, status)
	if err != nil {
		handleDonationError(w, r, err)
		return
	}
	if items == nil {
		items = []donation.Record{}
	}
	writeJSON(w, http.StatusOK, listDonationsResponse{Items: items, AsOf: time.Now().UTC()})
}

// handleAdminDonationAction routes /v1/admin/donations/{id}/(verify|flag|revert).
func (a *API) handleAdminDonationAction(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/admin/donations/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	id, action := parts[0], parts[1]
	switch action {
	case "verify":
		a.verifyDonation(w, r, id)
	case "flag":
		a.flagDonation(w, r, id)
	case "revert":
		a.revertDonation(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) verifyDonation(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := a.donations.Verify(r.Context(), id)
	if err != nil {
		handleDonationError(w, r, err)
		return
	}

	details := map[string]string{
		"amount": strconv.FormatInt(rec.Amount, 10),
	}
	if rec.ReceiptNo != nil {
		details["receipt_no"] = *rec.ReceiptNo
	}
	a.audit(r.Context(), audit.ActionVerifyDonation, "donation", rec.ID, details)
	obs.CountDonationAction("verify")
	a.publish(stream.KindDonationVerified, rec)

	writeJSON(w, http.StatusOK, rec)
}

func (a *API) flagDonation(w http.ResponseWriter, r *http.Request, id string) {
	var req flagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := a.donations.Flag(r.Context(), id, req.Reason)
	if err != nil {
		handleDonationError(w, r, err)
		return
	}

	a.audit(r.Context(), audit.ActionFlagDonation, "donation", rec.ID, map[string]string{
		"reason": strings.TrimSpace(req.Reason),
	})
	obs.CountDonationAction("flag")
	a.publish(stream.KindDonationFlagged, rec)

	writeJSON(w, http.StatusOK, rec)
}

func (a *API) revertDonation(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := a.donations.Revert(r.Context(), id)
	if err != nil {
		handleDonationError(w, r, err)
		return
	}

	a.audit(r.Context(), audit.ActionRevertDonation, "donation", rec.ID, nil)
	obs.CountDonationAction("revert")
	a.publish(stream.KindDonationReverted, rec)

	writeJSON(w, http.StatusOK, rec)
}

func (a *API) publish(kind string, rec donation.Record) {
	if a.stream == nil {
		return
	}
	a.stream.Publish(stream.Event{
		Kind:       kind,
		DonationID: rec.ID,
		Status:     string(rec.Status),
		Amount:     rec.Amount,
	})
}

// handleAuditLog serves the staff audit console: entries newest first, with
// the actor name joined in and a human-readable summary.
func (a *API) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.auditLog == nil {
		writeError(w, r, http.StatusServiceUnavailable, "audit log unavailable")
		return
	}

	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := a.auditLog.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	type actorMeta struct {
		name, email, role string
	}
	actors := map[string]actorMeta{}
	items := make([]auditEntryView, 0, len(entries))
	for _, e := range entries {
		meta, ok := actors[e.ActorID]
		if !ok && a.users != nil {
			if u, err := a.users.Find(r.Context(), e.ActorID); err == nil {
				meta = actorMeta{name: u.Name, email: u.Email, role: u.Role}
			}
			actors[e.ActorID] = meta
		}
		items = append(items, auditEntryView{
			Entry:      e,
			ActorName:  meta.name,
			ActorEmail: meta.email,
			ActorRole:  meta.role,
			Summary:    audit.Describe(e),
		})
	}
	writeJSON(w, http.StatusOK, auditLogResponse{Items: items, AsOf: time.Now().UTC()})
}
