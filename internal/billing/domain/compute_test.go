package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validRecord() *BillingRecord {
	return &BillingRecord{
		ID:                    1,
		StudentID:             10,
		SchoolSiteID:          20,
		ClassID:               30,
		AcademicYear:          "2026/2027",
		PeriodType:            PeriodTypeTerm,
		PeriodNumber:          1,
		BalanceBroughtForward: decimal.NewFromInt(500),
		PeriodBill:            decimal.NewFromInt(1000),
		Currency:              "NGN",
	}
}

func TestRecomputeDerivesTotals(t *testing.T) {
	record := validRecord()
	record.AdditionalCharges = []AdditionalCharge{
		{Category: "late_fee", Amount: decimal.NewFromInt(100)},
		{Category: "damage", Amount: decimal.NewFromInt(50)},
	}
	record.LinkedPayments = []PaymentSnapshot{
		{PaymentID: 100, Amount: decimal.NewFromInt(600)},
		{PaymentID: 101, Amount: decimal.NewFromInt(200)},
	}

	record.Recompute()

	if !record.AddedChargesTotal.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("added charges total = %s, want 150", record.AddedChargesTotal)
	}
	if !record.TotalBilled.Equal(decimal.NewFromInt(1650)) {
		t.Fatalf("total billed = %s, want 1650", record.TotalBilled)
	}
	if !record.TotalPaid.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("total paid = %s, want 800", record.TotalPaid)
	}
	if !record.CurrentBalance.Equal(decimal.NewFromInt(850)) {
		t.Fatalf("current balance = %s, want 850", record.CurrentBalance)
	}
}

func TestRecomputeStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		paid int64
		want BillingStatus
	}{
		{"unpaid balance is owing", 0, StatusOwing},
		{"exact payment is clear", 1500, StatusClear},
		{"excess payment is overpaid", 2000, StatusOverpaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := validRecord()
			if tc.paid > 0 {
				record.LinkedPayments = []PaymentSnapshot{
					{PaymentID: 100, Amount: decimal.NewFromInt(tc.paid)},
				}
			}
			record.Recompute()
			if record.Status != tc.want {
				t.Fatalf("status = %s, want %s", record.Status, tc.want)
			}
		})
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	record := validRecord()
	record.LinkedPayments = []PaymentSnapshot{{PaymentID: 100, Amount: decimal.NewFromInt(300)}}

	record.Recompute()
	first := *record
	record.Recompute()

	if !record.CurrentBalance.Equal(first.CurrentBalance) || record.Status != first.Status {
		t.Fatalf("second recompute changed the record: %s vs %s", record.CurrentBalance, first.CurrentBalance)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*BillingRecord)
		want   error
	}{
		{"zero student", func(r *BillingRecord) { r.StudentID = 0 }, ErrInvalidStudent},
		{"zero site", func(r *BillingRecord) { r.SchoolSiteID = 0 }, ErrInvalidSite},
		{"empty year", func(r *BillingRecord) { r.AcademicYear = "" }, ErrInvalidYear},
		{"bad period type", func(r *BillingRecord) { r.PeriodType = "quarter" }, ErrInvalidPeriod},
		{"zero period number", func(r *BillingRecord) { r.PeriodNumber = 0 }, ErrInvalidPeriod},
		{"negative total billed", func(r *BillingRecord) { r.TotalBilled = decimal.NewFromInt(-1) }, ErrNegativeTotalBilled},
		{"negative total paid", func(r *BillingRecord) { r.TotalPaid = decimal.NewFromInt(-1) }, ErrNegativeTotalPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := validRecord()
			record.Recompute()
			tc.mutate(record)
			if err := record.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("validate = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateAllowsNegativeBalance(t *testing.T) {
	record := validRecord()
	record.LinkedPayments = []PaymentSnapshot{{PaymentID: 100, Amount: decimal.NewFromInt(5000)}}
	record.Recompute()

	if !record.CurrentBalance.IsNegative() {
		t.Fatalf("expected negative balance, got %s", record.CurrentBalance)
	}
	if err := record.Validate(); err != nil {
		t.Fatalf("overpaid record must validate, got %v", err)
	}
}

func TestAppendTrailTracksModifier(t *testing.T) {
	record := validRecord()
	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	record.AppendTrail("payment_linked", "bursar-1", at, "payment 100", "", "600")

	if len(record.AuditTrail) != 1 {
		t.Fatalf("trail length = %d, want 1", len(record.AuditTrail))
	}
	entry := record.AuditTrail[0]
	if entry.Action != "payment_linked" || entry.PerformedBy != "bursar-1" || !entry.PerformedAt.Equal(at) {
		t.Fatalf("unexpected trail entry: %+v", entry)
	}
	if record.LastModifiedBy != "bursar-1" {
		t.Fatalf("last modified by = %q, want bursar-1", record.LastModifiedBy)
	}
}

func TestHasPayments(t *testing.T) {
	record := validRecord()
	record.Recompute()
	if record.HasPayments() {
		t.Fatal("record without snapshots must not report payments")
	}

	record.LinkedPayments = []PaymentSnapshot{{PaymentID: 100, Amount: decimal.NewFromInt(1)}}
	record.Recompute()
	if !record.HasPayments() {
		t.Fatal("record with a snapshot must report payments")
	}
}

func TestSnapshotFor(t *testing.T) {
	record := validRecord()
	record.LinkedPayments = []PaymentSnapshot{
		{PaymentID: 100, Amount: decimal.NewFromInt(10)},
		{PaymentID: 101, Amount: decimal.NewFromInt(20)},
	}

	snapshot, found := record.SnapshotFor(101)
	if !found || !snapshot.Amount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("snapshot lookup failed: found=%v amount=%s", found, snapshot.Amount)
	}
	if _, found := record.SnapshotFor(999); found {
		t.Fatal("lookup of unlinked payment must miss")
	}
}
