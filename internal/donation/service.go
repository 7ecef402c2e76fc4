package donation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rabbithaven.tw/internal/ids"
)

// Service defines the donation record store and lifecycle engine.
//
// Verify, Flag and Revert are the only writers of the verification fields.
// Each applies its field set as one atomic write: a reader never observes
// status=verified with a nil receipt number, or status=pending with a stale
// one. Across staff sessions last-writer-wins is accepted; administrative
// correction is rare and human-mediated.
type Service interface {
	SubmitReport(ctx context.Context, report Report) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Lookup(ctx context.Context, query LookupQuery) ([]Record, error)
	List(ctx context.Context, limit int, status Status) ([]Record, error)

	// Verify re-stamps any existing record: re-verifying an already verified
	// or issue-flagged donation is permitted and mints a fresh receipt
	// number. AdminNote is left untouched.
	Verify(ctx context.Context, id string) (Record, error)
	// Flag requires a non-empty reason. A receipt number from an earlier
	// verification is left in place.
	Flag(ctx context.Context, id, reason string) (Record, error)
	// Revert resets to pending and clears both receipt number and note.
	// Idempotent: reverting a pending record is a no-op write that succeeds.
	Revert(ctx context.Context, id string) (Record, error)
}

// InMemory implements Service with in-process concurrency safety. It backs
// tests and DSN-less development runs; production uses the Postgres store.
type InMemory struct {
	mu   sync.RWMutex
	recs map[string]*Record
	now  func() time.Time
}

var _ Service = (*InMemory)(nil)

// NewInMemory creates an empty donation store.
func NewInMemory() *InMemory {
	return &InMemory{
		recs: make(map[string]*Record),
		now:  time.Now,
	}
}

// SetClock overrides the verification clock, for tests that pin the
// receipt-number month stamp.
func (s *InMemory) SetClock(now func() time.Time) { s.now = now }

func (s *InMemory) SubmitReport(ctx context.Context, report Report) (Record, error) {
	if err := report.Validate(); err != nil {
		return Record{}, err
	}
	date, err := report.ParsedDate()
	if err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{
		ID:           ids.New(),
		DonorName:    strings.TrimSpace(report.DonorName),
		DonorPhone:   strings.TrimSpace(report.DonorPhone),
		DonorEmail:   strings.TrimSpace(report.DonorEmail),
		DonorTaxID:   strings.TrimSpace(report.DonorTaxID),
		Amount:       report.Amount,
		TransferDate: date,
		Last5:        strings.TrimSpace(report.Last5),
		ProofImage:   strings.TrimSpace(report.ProofImage),
		Note:         strings.TrimSpace(report.Note),
		MailAddress:  strings.TrimSpace(report.MailAddress),
		SubmitterID:  strings.TrimSpace(report.SubmitterID),
		Status:       StatusPending,
		CreatedAt:    s.now().UTC(),
	}
	s.recs[rec.ID] = rec
	return *rec, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

func (s *InMemory) Lookup(ctx context.Context, query LookupQuery) ([]Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	name := strings.ToLower(strings.TrimSpace(query.DonorName))
	last5 := strings.TrimSpace(query.Last5)
	dateStr := strings.TrimSpace(query.TransferDate)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []Record
	for _, rec := range s.recs {
		if strings.ToLower(rec.DonorName) != name {
			continue
		}
		match := false
		if last5 != "" && rec.Last5 == last5 {
			match = true
		}
		if !match && dateStr != "" && rec.TransferDate.Format(DateLayout) == dateStr {
			match = true
		}
		if match {
			res = append(res, *rec)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (s *InMemory) List(ctx context.Context, limit int, status Status) ([]Record, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []Record
	for _, rec := range s.recs {
		if status != "" && rec.Status != status {
			continue
		}
		res = append(res, *rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *InMemory) Verify(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	no := NewReceiptNo(s.now())
	rec.Status = StatusVerified
	rec.ReceiptNo = &no
	return *rec, nil
}

func (s *InMemory) Flag(ctx context.Context, id, reason string) (Record, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Record{}, ErrReasonRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Status = StatusIssue
	rec.AdminNote = &reason
	return *rec, nil
}

func (s *InMemory) Revert(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Status = StatusPending
	rec.ReceiptNo = nil
	rec.AdminNote = nil
	return *rec, nil
}
