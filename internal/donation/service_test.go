package donation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func validReport() Report {
	return Report{
		DonorName:    "王小明",
		DonorPhone:   "0912345678",
		Amount:       1000,
		TransferDate: "2024-05-01",
		Last5:        "12345",
	}
}

func TestSubmitReportCreatesPendingRecord(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec, err := s.SubmitReport(ctx, validReport())
	if err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	if rec.Status != StatusPending {
		t.Fatalf("expected pending, got %s", rec.Status)
	}
	if rec.ReceiptNo != nil || rec.AdminNote != nil {
		t.Fatalf("fresh record must carry no verification fields: %+v", rec)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Fatalf("missing identity or timestamp: %+v", rec)
	}
	if rec.TransferDate.Format(DateLayout) != "2024-05-01" {
		t.Fatalf("unexpected transfer date: %v", rec.TransferDate)
	}
}

func TestSubmitReportValidation(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	cases := map[string]Report{
		"missing name":  {DonorPhone: "09", Amount: 1, TransferDate: "2024-05-01", Last5: "12345"},
		"missing phone": {DonorName: "a", Amount: 1, TransferDate: "2024-05-01", Last5: "12345"},
		"zero amount":   {DonorName: "a", DonorPhone: "09", TransferDate: "2024-05-01", Last5: "12345"},
		"bad date":      {DonorName: "a", DonorPhone: "09", Amount: 1, TransferDate: "05/01", Last5: "12345"},
		"short last5":   {DonorName: "a", DonorPhone: "09", Amount: 1, TransferDate: "2024-05-01", Last5: "1234"},
		"long last5":    {DonorName: "a", DonorPhone: "09", Amount: 1, TransferDate: "2024-05-01", Last5: "123456"},
	}
	for name, report := range cases {
		if _, err := s.SubmitReport(ctx, report); !errors.Is(err, ErrInvalidReport) {
			t.Fatalf("%s: expected ErrInvalidReport, got %v", name, err)
		}
	}
	if recs, _ := s.List(ctx, 10, ""); len(recs) != 0 {
		t.Fatalf("rejected submissions must not create records, found %d", len(recs))
	}
}

func TestVerifyMintsReceiptAndHoldsInvariant(t *testing.T) {
	s := NewInMemory()
	s.SetClock(func() time.Time { return time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	rec, _ := s.SubmitReport(ctx, validReport())
	got, err := s.Verify(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Status != StatusVerified {
		t.Fatalf("expected verified, got %s", got.Status)
	}
	if got.ReceiptNo == nil || !ValidReceiptNo(*got.ReceiptNo) {
		t.Fatalf("verified record must carry a well-formed receipt number: %+v", got.ReceiptNo)
	}
	if !strings.HasPrefix(*got.ReceiptNo, "R202405-") {
		t.Fatalf("receipt stamped with wrong month: %s", *got.ReceiptNo)
	}
	if got.AdminNote != nil {
		t.Fatal("Verify must not touch the admin note")
	}
	// Reported fields are untouched by transitions.
	if got.DonorName != rec.DonorName || got.Amount != rec.Amount || got.Last5 != rec.Last5 {
		t.Fatalf("reported fields mutated: %+v", got)
	}
}

func TestReVerifyMintsFreshReceipt(t *testing.T) {
	// No guard prevents re-verifying; each call re-stamps the record.
	s := NewInMemory()
	ctx := context.Background()

	rec, _ := s.SubmitReport(ctx, validReport())
	first, err := s.Verify(ctx, rec.ID)
	if err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	second, err := s.Verify(ctx, rec.ID)
	if err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if second.Status != StatusVerified || second.ReceiptNo == nil {
		t.Fatalf("re-verify broke the invariant: %+v", second)
	}
	_ = first // suffixes are random; equal values are possible, so only shape is asserted
	if !ValidReceiptNo(*second.ReceiptNo) {
		t.Fatalf("malformed re-minted receipt: %s", *second.ReceiptNo)
	}
}

func TestFlagRequiresReason(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec, _ := s.SubmitReport(ctx, validReport())
	if _, err := s.Flag(ctx, rec.ID, "   "); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	got, _ := s.Get(ctx, rec.ID)
	if got.Status != StatusPending || got.AdminNote != nil {
		t.Fatalf("rejected flag must not mutate the record: %+v", got)
	}
}

func TestFlagSetsIssueAndKeepsReceipt(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec, _ := s.SubmitReport(ctx, validReport())
	verified, _ := s.Verify(ctx, rec.ID)

	got, err := s.Flag(ctx, rec.ID, "截圖模糊")
	if err != nil {
		t.Fatalf("Flag: %v", err)
	}
	if got.Status != StatusIssue {
		t.Fatalf("expected issue, got %s", got.Status)
	}
	if got.AdminNote == nil || *got.AdminNote != "截圖模糊" {
		t.Fatalf("unexpected admin note: %v", got.AdminNote)
	}
	// Flagging a verified donation leaves the old receipt number in place.
	if got.ReceiptNo == nil || *got.ReceiptNo != *verified.ReceiptNo {
		t.Fatalf("flag must not clear the receipt number: %+v", got.ReceiptNo)
	}
}

func TestVerifyAfterFlagWithoutRevert(t *testing.T) {
	// Deliberate permissiveness: Verify overwrites an issue state directly.
	s := NewInMemory()
	ctx := context.Background()

	rec, _ := s.SubmitReport(ctx, validReport())
	if _, err := s.Flag(ctx, rec.ID, "截圖模糊"); err != nil {
		t.Fatalf("Flag: %v", err)
	}
	got, err := s.Verify(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Verify after Flag: %v", err)
	}
	if got.Status != StatusVerified || got.ReceiptNo == nil {
		t.Fatalf("expected verified with receipt: %+v", got)
	}
	if got.AdminNote == nil || *got.AdminNote != "截圖模糊" {
		t.Fatalf("Verify must leave the note untouched: %v", got.AdminNote)
	}
}

func TestRevertIsIdempotent(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec, _ := s.SubmitReport(ctx, validReport())
	if _, err := s.Verify(ctx, rec.ID); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := s.Revert(ctx, rec.ID)
		if err != nil {
			t.Fatalf("Revert #%d: %v", i+1, err)
		}
		if got.Status != StatusPending || got.ReceiptNo != nil || got.AdminNote != nil {
			t.Fatalf("Revert #%d left verification fields: %+v", i+1, got)
		}
	}
}

func TestFlagRevertVerifyRoundTrip(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec, _ := s.SubmitReport(ctx, validReport())
	if _, err := s.Flag(ctx, rec.ID, "金額不符"); err != nil {
		t.Fatalf("Flag: %v", err)
	}
	if _, err := s.Revert(ctx, rec.ID); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	got, err := s.Verify(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Status != StatusVerified || got.ReceiptNo == nil {
		t.Fatalf("expected fresh verification: %+v", got)
	}
	if got.AdminNote != nil {
		t.Fatalf("note must stay cleared after revert: %v", *got.AdminNote)
	}
}

func TestLifecycleRejectsUnknownID(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if _, err := s.Verify(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Verify: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Flag(ctx, "missing", "reason"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Flag: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Revert(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Revert: expected ErrNotFound, got %v", err)
	}
}

func TestLookupMatchesCaseInsensitiveNameWithCredential(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec, _ := s.SubmitReport(ctx, Report{
		DonorName: "Amy Chen", DonorPhone: "0911222333",
		Amount: 500, TransferDate: "2024-06-02", Last5: "54321",
	})

	byLast5, err := s.Lookup(ctx, LookupQuery{DonorName: "amy chen", Last5: "54321"})
	if err != nil || len(byLast5) != 1 || byLast5[0].ID != rec.ID {
		t.Fatalf("lookup by last5 failed: %v %v", byLast5, err)
	}
	byDate, err := s.Lookup(ctx, LookupQuery{DonorName: "AMY CHEN", TransferDate: "2024-06-02"})
	if err != nil || len(byDate) != 1 {
		t.Fatalf("lookup by date failed: %v %v", byDate, err)
	}
	miss, err := s.Lookup(ctx, LookupQuery{DonorName: "amy chen", Last5: "00000"})
	if err != nil || len(miss) != 0 {
		t.Fatalf("credential mismatch must not match: %v %v", miss, err)
	}
	if _, err := s.Lookup(ctx, LookupQuery{DonorName: "amy chen"}); !errors.Is(err, ErrInvalidLookup) {
		t.Fatalf("name without credential must be rejected, got %v", err)
	}
}

func TestLookupReflectsVerification(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec, _ := s.SubmitReport(ctx, validReport())
	query := LookupQuery{DonorName: "王小明", Last5: "12345"}

	before, _ := s.Lookup(ctx, query)
	if len(before) != 1 || before[0].Public().Status != StatusPending || before[0].Public().ReceiptAvailable {
		t.Fatalf("pre-verification lookup wrong: %+v", before)
	}

	if _, err := s.Verify(ctx, rec.ID); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	after, _ := s.Lookup(ctx, query)
	if len(after) != 1 || after[0].Public().Status != StatusVerified || !after[0].Public().ReceiptAvailable {
		t.Fatalf("post-verification lookup wrong: %+v", after)
	}
}

func TestPublicViewHidesAdminNote(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec, _ := s.SubmitReport(ctx, validReport())
	s.Flag(ctx, rec.ID, "內部備註")

	got, _ := s.Get(ctx, rec.ID)
	view := got.Public()
	if view.Status != StatusIssue {
		t.Fatalf("unexpected status: %s", view.Status)
	}
	// PublicView has no note field at all; assert the projection carries
	// exactly the donor-safe data.
	if view.DonorName != "王小明" || view.Amount != 1000 || view.TransferDate != "2024-05-01" {
		t.Fatalf("unexpected public view: %+v", view)
	}
}

func TestConcurrentTransitionsKeepRecordCoherent(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	rec, _ := s.SubmitReport(ctx, validReport())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				_, _ = s.Verify(ctx, rec.ID)
			case 1:
				_, _ = s.Flag(ctx, rec.ID, "reason")
			default:
				_, _ = s.Revert(ctx, rec.ID)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Whichever writer won, each state's own field set must be coherent.
	// (An issue record may keep a receipt number from an earlier win of
	// Verify; that is the documented Flag behavior, not a race artifact.)
	switch got.Status {
	case StatusVerified:
		if got.ReceiptNo == nil || !ValidReceiptNo(*got.ReceiptNo) {
			t.Fatalf("verified record without receipt: %+v", got)
		}
	case StatusIssue:
		if got.AdminNote == nil || *got.AdminNote == "" {
			t.Fatalf("issue record without note: %+v", got)
		}
	case StatusPending:
		if got.ReceiptNo != nil || got.AdminNote != nil {
			t.Fatalf("pending record carries stale fields: %+v", got)
		}
	}
}
