package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"rabbithaven.tw/internal/donation"
)

var donationCols = []string{
	"id", "donor_name", "donor_phone", "donor_email", "donor_tax_id", "amount",
	"transfer_date", "last5", "proof_image", "note", "mail_address", "submitter_id",
	"status", "receipt_no", "admin_note", "created_at",
}

func donationRow(id string, status string, receiptNo, adminNote any) *sqlmock.Rows {
	return sqlmock.NewRows(donationCols).AddRow(
		id, "王小明", "0912345678", "", "", int64(1000),
		time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), "12345", "", "", "", nil,
		status, receiptNo, adminNote, time.Now().UTC(),
	)
}

func TestVerifyUpdatesStatusAndReceiptTogether(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)
	store.SetClock(func() time.Time { return time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC) })

	mock.ExpectQuery(regexp.QuoteMeta(`update donations set status='verified', receipt_no=$2`)).
		WithArgs("don-1", sqlmock.AnyArg()).
		WillReturnRows(donationRow("don-1", "verified", "R202405-0042", nil))

	rec, err := store.Verify(context.Background(), "don-1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rec.Status != donation.StatusVerified {
		t.Fatalf("status = %q, want verified", rec.Status)
	}
	if rec.ReceiptNo == nil || !donation.ValidReceiptNo(*rec.ReceiptNo) {
		t.Fatalf("receipt_no = %v, want minted receipt number", rec.ReceiptNo)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyUnknownIDIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`update donations set status='verified'`)).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(donationCols))

	if _, err := store.Verify(context.Background(), "missing"); !errors.Is(err, donation.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFlagRequiresReason(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	if _, err := store.Flag(context.Background(), "don-1", "   "); !errors.Is(err, donation.ErrReasonRequired) {
		t.Fatalf("err = %v, want ErrReasonRequired", err)
	}
}

func TestRevertClearsVerificationFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`update donations set status='pending', receipt_no=null, admin_note=null`)).
		WithArgs("don-1").
		WillReturnRows(donationRow("don-1", "pending", nil, nil))

	rec, err := store.Revert(context.Background(), "don-1")
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if rec.Status != donation.StatusPending || rec.ReceiptNo != nil || rec.AdminNote != nil {
		t.Fatalf("record = %+v, want pending with cleared fields", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSubmitReportRejectsInvalidBeforeTouchingDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	_, err = store.SubmitReport(context.Background(), donation.Report{DonorName: "王小明"})
	if !errors.Is(err, donation.ErrInvalidReport) {
		t.Fatalf("err = %v, want ErrInvalidReport", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLookupMatchesNameCaseInsensitively(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`lower(donor_name) = lower($1)`)).
		WithArgs("王小明", "12345").
		WillReturnRows(donationRow("don-1", "verified", "R202405-0042", nil))

	recs, err := store.Lookup(context.Background(), donation.LookupQuery{DonorName: "王小明", Last5: "12345"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "don-1" {
		t.Fatalf("records = %+v, want single don-1", recs)
	}
}
