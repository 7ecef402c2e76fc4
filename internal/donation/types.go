package donation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the verification state of a self-reported transfer.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusIssue    Status = "issue"
)

// Record is one donor-submitted bank-transfer report. Reported fields are
// immutable after creation; only Status, ReceiptNo and AdminNote move, and
// only through Verify/Flag/Revert. Records are never deleted.
type Record struct {
	ID           string    `json:"id"`
	DonorName    string    `json:"donor_name"`
	DonorPhone   string    `json:"donor_phone"`
	DonorEmail   string    `json:"donor_email,omitempty"`
	DonorTaxID   string    `json:"donor_tax_id,omitempty"`
	Amount       int64     `json:"amount"` // smallest currency unit, always > 0
	TransferDate time.Time `json:"transfer_date"`
	Last5        string    `json:"last5"`
	ProofImage   string    `json:"proof_image,omitempty"`
	Note         string    `json:"note,omitempty"`
	MailAddress  string    `json:"mail_address,omitempty"`
	SubmitterID  string    `json:"submitter_id,omitempty"`
	Status       Status    `json:"status"`
	ReceiptNo    *string   `json:"receipt_no,omitempty"`
	AdminNote    *string   `json:"admin_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicView is the donor-facing projection of a record. It never carries
// the staff note or audit history.
type PublicView struct {
	ID               string    `json:"id"`
	DonorName        string    `json:"donor_name"`
	Amount           int64     `json:"amount"`
	TransferDate     string    `json:"transfer_date"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	ReceiptAvailable bool      `json:"receipt_available"`
}

// Public returns the donor-safe projection.
func (r Record) Public() PublicView {
	return PublicView{
		ID:               r.ID,
		DonorName:        r.DonorName,
		Amount:           r.Amount,
		TransferDate:     r.TransferDate.Format(DateLayout),
		Status:           r.Status,
		CreatedAt:        r.CreatedAt,
		ReceiptAvailable: r.Status == StatusVerified,
	}
}

// DateLayout is the calendar-date wire format for transfer dates.
const DateLayout = "2006-01-02"

// Report is the donor-supplied submission payload.
type Report struct {
	DonorName    string
	DonorPhone   string
	DonorEmail   string
	DonorTaxID   string
	Amount       int64
	TransferDate string // DateLayout
	Last5        string
	ProofImage   string
	Note         string
	MailAddress  string
	SubmitterID  string
}

var (
	ErrNotFound       = errors.New("donation not found")
	ErrInvalidReport  = errors.New("invalid donation report")
	ErrReasonRequired = errors.New("issue reason is required")
	ErrInvalidLookup  = errors.New("invalid lookup query")
)

// Validate checks the required reported fields. Called before any record is
// created, so a failed submission leaves no trace.
func (r Report) Validate() error {
	if strings.TrimSpace(r.DonorName) == "" {
		return fmt.Errorf("%w: donor name is required", ErrInvalidReport)
	}
	if strings.TrimSpace(r.DonorPhone) == "" {
		return fmt.Errorf("%w: donor phone is required", ErrInvalidReport)
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be a positive integer", ErrInvalidReport)
	}
	if _, err := r.ParsedDate(); err != nil {
		return fmt.Errorf("%w: transfer date must be %s", ErrInvalidReport, DateLayout)
	}
	if len([]rune(strings.TrimSpace(r.Last5))) != 5 {
		return fmt.Errorf("%w: last5 must be exactly 5 characters", ErrInvalidReport)
	}
	return nil
}

// ParsedDate parses the reported calendar date.
func (r Report) ParsedDate() (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(r.TransferDate))
}

// LookupQuery is the donor-facing status query: name match is
// case-insensitive, and either the last-5 digits or the transfer date must
// be supplied as the verifying credential.
type LookupQuery struct {
	DonorName    string
	Last5        string
	TransferDate string // DateLayout, optional when Last5 set
}

// Validate ensures the query carries a name plus at least one credential.
func (q LookupQuery) Validate() error {
	if strings.TrimSpace(q.DonorName) == "" {
		return fmt.Errorf("%w: donor name is required", ErrInvalidLookup)
	}
	if strings.TrimSpace(q.Last5) == "" && strings.TrimSpace(q.TransferDate) == "" {
		return fmt.Errorf("%w: last5 or transfer date is required", ErrInvalidLookup)
	}
	if strings.TrimSpace(q.TransferDate) != "" {
		if _, err := time.Parse(DateLayout, strings.TrimSpace(q.TransferDate)); err != nil {
			return fmt.Errorf("%w: transfer date must be %s", ErrInvalidLookup, DateLayout)
		}
	}
	return nil
}
