package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/classbridge/feeledger/internal/audit/domain"
	auditrepository "github.com/classbridge/feeledger/internal/audit/repository"
	auditservice "github.com/classbridge/feeledger/internal/audit/service"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	billingrepository "github.com/classbridge/feeledger/internal/billing/repository"
	"github.com/classbridge/feeledger/internal/chain"
	"github.com/classbridge/feeledger/internal/clock"
	"github.com/classbridge/feeledger/internal/deletion/domain"
	"github.com/classbridge/feeledger/internal/events"
	paymentdomain "github.com/classbridge/feeledger/internal/payment/domain"
	paymentrepository "github.com/classbridge/feeledger/internal/payment/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type harness struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
	site snowflake.ID
}

func setupHarness(t *testing.T) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&billingdomain.BillingRecord{},
		&paymentdomain.Payment{},
		&auditdomain.AuditLog{},
		&events.BillingEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	log := zap.NewNop()
	clk := clock.Fixed(time.Date(2026, 12, 20, 9, 0, 0, 0, time.UTC))
	billingRepo := billingrepository.Provide()
	paymentRepo := paymentrepository.Provide()
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  auditrepository.Provide(),
	})
	chainMgr := chain.NewManager(chain.Params{
		DB:          db,
		Log:         log,
		Clock:       clk,
		BillingRepo: billingRepo,
		PaymentRepo: paymentRepo,
	})

	h := &harness{db: db, node: node, site: node.Generate()}
	h.svc = NewService(Params{
		DB:          db,
		Log:         log,
		BillingRepo: billingRepo,
		Chain:       chainMgr,
		AuditSvc:    auditSvc,
		Outbox:      events.NewOutbox(db, node, clk),
	})
	return h
}

func (h *harness) addRecord(t *testing.T, periodNumber int, paid int64) *billingdomain.BillingRecord {
	t.Helper()
	record := &billingdomain.BillingRecord{
		ID:           h.node.Generate(),
		StudentID:    h.node.Generate(),
		SchoolID:     h.site,
		SchoolSiteID: h.site,
		ClassID:      h.node.Generate(),
		AcademicYear: "2026/2027",
		PeriodType:   billingdomain.PeriodTypeTerm,
		PeriodNumber: periodNumber,
		PeriodBill:   decimal.NewFromInt(1000),
		IsCurrent:    true,
		Currency:     "NGN",
	}
	if paid > 0 {
		record.LinkedPayments = []billingdomain.PaymentSnapshot{
			{PaymentID: h.node.Generate(), Amount: decimal.NewFromInt(paid)},
		}
	}
	record.Recompute()
	if err := h.db.Create(record).Error; err != nil {
		t.Fatalf("create record: %v", err)
	}
	return record
}

func (h *harness) request(force bool) domain.Request {
	return domain.Request{
		SchoolSiteID: h.site.String(),
		AcademicYear: "2026/2027",
		PeriodType:   billingdomain.PeriodTypeTerm,
		PeriodNumber: 1,
		Force:        force,
		DeletedBy:    "admin-1",
	}
}

func (h *harness) count(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := h.db.Model(&billingdomain.BillingRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestBulkDeleteRemovesUnpaidRecords(t *testing.T) {
	h := setupHarness(t)
	h.addRecord(t, 1, 0)
	h.addRecord(t, 1, 0)

	result, err := h.svc.BulkDelete(context.Background(), h.request(false))
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if result.Blocked || result.Deleted != 2 || len(result.Errors) != 0 {
		t.Fatalf("result = %+v, want two deleted", result)
	}
	if h.count(t) != 0 {
		t.Fatal("records remain after bulk delete")
	}
}

func TestBulkDeleteBlocksOnPayments(t *testing.T) {
	h := setupHarness(t)
	h.addRecord(t, 1, 0)
	paid := h.addRecord(t, 1, 400)

	result, err := h.svc.BulkDelete(context.Background(), h.request(false))
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if !result.Blocked {
		t.Fatal("run with paid records must be blocked without force")
	}
	if result.Deleted != 0 || h.count(t) != 2 {
		t.Fatal("blocked run must delete nothing")
	}
	if len(result.AtRisk) != 1 || result.AtRisk[0].BillingID != paid.ID.String() {
		t.Fatalf("at-risk list = %+v", result.AtRisk)
	}
	if !result.AtRisk[0].TotalPaid.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("at-risk total paid = %s, want 400", result.AtRisk[0].TotalPaid)
	}

	var audits int64
	if err := h.db.Model(&auditdomain.AuditLog{}).
		Where("action = ?", auditdomain.ActionBulkDeleteBlocked).
		Count(&audits).Error; err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if audits != 1 {
		t.Fatalf("blocked audit rows = %d, want 1", audits)
	}
}

func TestBulkDeleteForceRemovesPaidRecords(t *testing.T) {
	h := setupHarness(t)
	h.addRecord(t, 1, 0)
	h.addRecord(t, 1, 400)

	result, err := h.svc.BulkDelete(context.Background(), h.request(true))
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if result.Blocked || result.Deleted != 2 {
		t.Fatalf("result = %+v, want forced deletion of both", result)
	}
	if h.count(t) != 0 {
		t.Fatal("records remain after forced delete")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("forced run must warn about orphaned payments")
	}

	var audits int64
	if err := h.db.Model(&auditdomain.AuditLog{}).
		Where("action = ?", auditdomain.ActionBulkDeleteExecuted).
		Count(&audits).Error; err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if audits != 1 {
		t.Fatalf("executed audit rows = %d, want 1", audits)
	}
}

func TestBulkDeleteRestoresPredecessor(t *testing.T) {
	h := setupHarness(t)
	predecessor := h.addRecord(t, 1, 0)
	successor := h.addRecord(t, 2, 0)

	successor.StudentID = predecessor.StudentID
	successor.CarriedForwardFrom = &predecessor.ID
	if err := h.db.Save(successor).Error; err != nil {
		t.Fatalf("save successor: %v", err)
	}
	predecessor.CarriedForwardTo = &successor.ID
	predecessor.IsCurrent = false
	if err := h.db.Save(predecessor).Error; err != nil {
		t.Fatalf("save predecessor: %v", err)
	}

	req := h.request(false)
	req.PeriodNumber = 2
	result, err := h.svc.BulkDelete(context.Background(), req)
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("deleted = %d, want 1", result.Deleted)
	}

	var reloaded billingdomain.BillingRecord
	if err := h.db.First(&reloaded, "id = ?", predecessor.ID).Error; err != nil {
		t.Fatalf("reload predecessor: %v", err)
	}
	if !reloaded.IsCurrent {
		t.Fatal("predecessor must be current again after successor deletion")
	}
	if reloaded.CarriedForwardTo != nil {
		t.Fatal("predecessor must not point at the deleted successor")
	}
}

func TestBulkDeleteResetsSuccessorBroughtForward(t *testing.T) {
	h := setupHarness(t)
	predecessor := h.addRecord(t, 1, 0)
	successor := h.addRecord(t, 2, 0)

	successor.StudentID = predecessor.StudentID
	successor.CarriedForwardFrom = &predecessor.ID
	successor.BalanceBroughtForward = decimal.NewFromInt(600)
	successor.Recompute()
	if err := h.db.Save(successor).Error; err != nil {
		t.Fatalf("save successor: %v", err)
	}
	predecessor.CarriedForwardTo = &successor.ID
	predecessor.IsCurrent = false
	if err := h.db.Save(predecessor).Error; err != nil {
		t.Fatalf("save predecessor: %v", err)
	}

	result, err := h.svc.BulkDelete(context.Background(), h.request(false))
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("deleted = %d, want 1", result.Deleted)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("reset of a brought-forward balance must be reported")
	}

	var reloaded billingdomain.BillingRecord
	if err := h.db.First(&reloaded, "id = ?", successor.ID).Error; err != nil {
		t.Fatalf("reload successor: %v", err)
	}
	if !reloaded.BalanceBroughtForward.IsZero() {
		t.Fatalf("brought forward = %s, want 0 after predecessor deletion", reloaded.BalanceBroughtForward)
	}
	if reloaded.CarriedForwardFrom != nil {
		t.Fatal("successor must not point at the deleted predecessor")
	}
	if !reloaded.TotalBilled.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("total billed = %s, want 1000 after recompute", reloaded.TotalBilled)
	}
}

func TestBulkDeleteValidatesScope(t *testing.T) {
	h := setupHarness(t)

	req := h.request(false)
	req.SchoolSiteID = "nonsense"
	if _, err := h.svc.BulkDelete(context.Background(), req); !errors.Is(err, domain.ErrInvalidSite) {
		t.Fatalf("bulk delete = %v, want %v", err, domain.ErrInvalidSite)
	}

	req = h.request(false)
	req.AcademicYear = ""
	if _, err := h.svc.BulkDelete(context.Background(), req); !errors.Is(err, domain.ErrInvalidYear) {
		t.Fatalf("bulk delete = %v, want %v", err, domain.ErrInvalidYear)
	}

	req = h.request(false)
	req.ClassID = "not-a-class"
	if _, err := h.svc.BulkDelete(context.Background(), req); !errors.Is(err, domain.ErrInvalidClass) {
		t.Fatalf("bulk delete = %v, want %v", err, domain.ErrInvalidClass)
	}
}

func TestBulkDeleteScopedToClass(t *testing.T) {
	h := setupHarness(t)
	keep := h.addRecord(t, 1, 0)
	drop := h.addRecord(t, 1, 0)

	req := h.request(false)
	req.ClassID = drop.ClassID.String()
	result, err := h.svc.BulkDelete(context.Background(), req)
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("deleted = %d, want 1", result.Deleted)
	}

	var remaining billingdomain.BillingRecord
	if err := h.db.First(&remaining, "id = ?", keep.ID).Error; err != nil {
		t.Fatalf("record outside the class scope was deleted: %v", err)
	}
}
