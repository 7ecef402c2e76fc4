package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"rabbithaven.tw/internal/donation"
	"rabbithaven.tw/internal/ids"
)

// Store implements donation.Service on PostgreSQL. Every lifecycle
// transition is a single UPDATE of the verification fields, so per-row
// atomicity gives the no-intermediate-state guarantee without an explicit
// transaction; last-writer-wins across staff sessions is accepted.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ donation.Service = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewStore(db), nil
}

// NewStore wraps an existing handle; used by tests with sqlmock.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// SetClock overrides the verification clock, for tests that pin the
// receipt-number month stamp.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

const donationColumns = `id, donor_name, donor_phone, donor_email, donor_tax_id, amount,
	transfer_date, last5, proof_image, note, mail_address, submitter_id,
	status, receipt_no, admin_note, created_at`

func (s *Store) SubmitReport(ctx context.Context, report donation.Report) (donation.Record, error) {
	if err := report.Validate(); err != nil {
		return donation.Record{}, err
	}
	date, err := report.ParsedDate()
	if err != nil {
		return donation.Record{}, err
	}

	id := ids.New()
	var submitter sql.NullString
	if v := strings.TrimSpace(report.SubmitterID); v != "" {
		submitter = sql.NullString{String: v, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		insert into donations(
			id, donor_name, donor_phone, donor_email, donor_tax_id, amount,
			transfer_date, last5, proof_image, note, mail_address, submitter_id
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		returning `+donationColumns,
		id,
		strings.TrimSpace(report.DonorName),
		strings.TrimSpace(report.DonorPhone),
		strings.TrimSpace(report.DonorEmail),
		strings.TrimSpace(report.DonorTaxID),
		report.Amount,
		date,
		strings.TrimSpace(report.Last5),
		strings.TrimSpace(report.ProofImage),
		strings.TrimSpace(report.Note),
		strings.TrimSpace(report.MailAddress),
		submitter,
	)
	return scanDonation(row)
}

func (s *Store) Get(ctx context.Context, id string) (donation.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+donationColumns+` from donations where id=$1`, id)
	return scanDonation(row)
}

func (s *Store) Lookup(ctx context.Context, query donation.LookupQuery) ([]donation.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	clauses := []string{`lower(donor_name) = lower($1)`}
	args := []any{strings.TrimSpace(query.DonorName)}
	var creds []string
	if last5 := strings.TrimSpace(query.Last5); last5 != "" {
		args = append(args, last5)
		creds = append(creds, `last5 = $2`)
	}
	if dateStr := strings.TrimSpace(query.TransferDate); dateStr != "" {
		date, err := time.Parse(donation.DateLayout, dateStr)
		if err != nil {
			return nil, donation.ErrInvalidLookup
		}
		args = append(args, date)
		if len(args) == 3 {
			creds = append(creds, `transfer_date = $3`)
		} else {
			creds = append(creds, `transfer_date = $2`)
		}
	}
	clauses = append(clauses, `(`+strings.Join(creds, ` or `)+`)`)

	rows, err := s.db.QueryContext(ctx,
		`select `+donationColumns+` from donations where `+strings.Join(clauses, ` and `)+` order by created_at desc`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDonations(rows)
}

func (s *Store) List(ctx context.Context, limit int, status donation.Status) ([]donation.Record, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		rows, err = s.db.QueryContext(ctx,
			`select `+donationColumns+` from donations where status=$1 order by created_at desc limit $2`,
			string(status), limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`select `+donationColumns+` from donations order by created_at desc limit $1`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDonations(rows)
}

func (s *Store) Verify(ctx context.Context, id string) (donation.Record, error) {
	no := donation.NewReceiptNo(s.now())
	// status and receipt_no move together in one statement; a reader never
	// sees one without the other.
	row := s.db.QueryRowContext(ctx, `
		update donations set status='verified', receipt_no=$2
		where id=$1
		returning `+donationColumns,
		id, no)
	return scanDonation(row)
}

func (s *Store) Flag(ctx context.Context, id, reason string) (donation.Record, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return donation.Record{}, donation.ErrReasonRequired
	}
	row := s.db.QueryRowContext(ctx, `
		update donations set status='issue', admin_note=$2
		where id=$1
		returning `+donationColumns,
		id, reason)
	return scanDonation(row)
}

func (s *Store) Revert(ctx context.Context, id string) (donation.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		update donations set status='pending', receipt_no=null, admin_note=null
		where id=$1
		returning `+donationColumns,
		id)
	return scanDonation(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(row rowScanner) (donation.Record, error) {
	var (
		rec       donation.Record
		submitter sql.NullString
		receiptNo sql.NullString
		adminNote sql.NullString
	)
	err := row.Scan(
		&rec.ID, &rec.DonorName, &rec.DonorPhone, &rec.DonorEmail, &rec.DonorTaxID,
		&rec.Amount, &rec.TransferDate, &rec.Last5, &rec.ProofImage, &rec.Note,
		&rec.MailAddress, &submitter, &rec.Status, &receiptNo, &adminNote, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return donation.Record{}, donation.ErrNotFound
	}
	if err != nil {
		return donation.Record{}, err
	}
	if submitter.Valid {
		rec.SubmitterID = submitter.String
	}
	if receiptNo.Valid {
		rec.ReceiptNo = &receiptNo.String
	}
	if adminNote.Valid {
		rec.AdminNote = &adminNote.String
	}
	return rec, nil
}

func collectDonations(rows *sql.Rows) ([]donation.Record, error) {
	var res []donation.Record
	for rows.Next() {
		rec, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
