package httpapi

import (
	"net/http"
	"strings"
	"time"

	"rabbithaven.tw/internal/donation"
	"rabbithaven.tw/internal/receipt"
	"rabbithaven.tw/internal/stream"
)

type reportRequest struct {
	DonorName    string `json:"donor_name"`
	DonorPhone   string `json:"donor_phone"`
	DonorEmail   string `json:"donor_email"`
	DonorTaxID   string `json:"donor_tax_id"`
	Amount       int64  `json:"amount"`
	TransferDate string `json:"transfer_date"`
	Last5        string `json:"last5"`
	ProofImage   string `json:"proof_image"`
	Note         string `json:"note"`
	MailAddress  string `json:"mail_address"`
}

type lookupResponse struct {
	Items []donation.PublicView `json:"items"`
	AsOf  time.Time             `json:"as_of"`
}

// handleReport accepts a donor's self-reported bank transfer. No
// authentication: donors are anonymous to the API.
func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := a.donations.SubmitReport(r.Context(), donation.Report{
		DonorName:    req.DonorName,
		DonorPhone:   req.DonorPhone,
		DonorEmail:   req.DonorEmail,
		DonorTaxID:   req.DonorTaxID,
		Amount:       req.Amount,
		TransferDate: req.TransferDate,
		Last5:        req.Last5,
		ProofImage:   req.ProofImage,
		Note:         req.Note,
		MailAddress:  req.MailAddress,
	})
	if err != nil {
		handleDonationError(w, r, err)
		return
	}

	if a.stream != nil {
		a.stream.Publish(stream.Event{
			Kind:       stream.KindReportSubmitted,
			DonationID: rec.ID,
			Status:     string(rec.Status),
			Amount:     rec.Amount,
		})
	}

	w.Header().Set("Location", "/v1/donations/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec.Public())
}

// handleLookup serves the donor-facing status check. Matching needs the
// donor name plus the last-5 digits or transfer date; results are the public
// projection only.
func (a *API) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	q := r.URL.Query()
	recs, err := a.donations.Lookup(r.Context(), donation.LookupQuery{
		DonorName:    q.Get("donor_name"),
		Last5:        q.Get("last5"),
		TransferDate: q.Get("transfer_date"),
	})
	if err != nil {
		handleDonationError(w, r, err)
		return
	}

	items := make([]donation.PublicView, 0, len(recs))
	for _, rec := range recs {
		items = append(items, rec.Public())
	}
	writeJSON(w, http.StatusOK, lookupResponse{
		Items: items,
		AsOf:  time.Now().UTC(),
	})
}

// handleDonationResource routes /v1/donations/{id}/receipt.
func (a *API) handleDonationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/donations/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/receipt") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/receipt"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "donation not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getReceipt(w, r, id)
		return
	}

	writeError(w, r, http.StatusNotFound, "resource not found")
}

// getReceipt renders the receipt for a verified donation. Unverified and
// unknown donations are indistinguishable to the caller.
func (a *API) getReceipt(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := a.donations.Get(r.Context(), id)
	if err != nil {
		handleDonationError(w, r, err)
		return
	}
	if rec.Status != donation.StatusVerified || rec.ReceiptNo == nil {
		writeError(w, r, http.StatusNotFound, "donation not found")
		return
	}

	doc := receipt.Render(receipt.Input{
		ReceiptNo: *rec.ReceiptNo,
		Date:      rec.TransferDate,
		DonorName: rec.DonorName,
		TaxID:     rec.DonorTaxID,
		Amount:    uint64(rec.Amount),
	})

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(doc.Text()))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
