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
	"github.com/classbridge/feeledger/internal/billing/domain"
	billingrepository "github.com/classbridge/feeledger/internal/billing/repository"
	"github.com/classbridge/feeledger/internal/chain"
	"github.com/classbridge/feeledger/internal/clock"
	"github.com/classbridge/feeledger/internal/events"
	paymentdomain "github.com/classbridge/feeledger/internal/payment/domain"
	paymentrepository "github.com/classbridge/feeledger/internal/payment/repository"
	studentdomain "github.com/classbridge/feeledger/internal/student/domain"
	studentrepository "github.com/classbridge/feeledger/internal/student/repository"
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
		&domain.BillingRecord{},
		&paymentdomain.Payment{},
		&studentdomain.Student{},
		&auditdomain.AuditLog{},
		&events.BillingEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(6)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	log := zap.NewNop()
	clk := clock.Fixed(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))

	h := &harness{db: db, node: node, site: node.Generate()}
	billingRepo := billingrepository.Provide()
	h.svc = NewService(Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Repo:        billingRepo,
		StudentRepo: studentrepository.Provide(),
		Chain: chain.NewManager(chain.Params{
			DB:          db,
			Log:         log,
			Clock:       clk,
			BillingRepo: billingRepo,
			PaymentRepo: paymentrepository.Provide(),
		}),
		AuditSvc: auditservice.NewService(auditservice.Params{
			DB:    db,
			Log:   log,
			GenID: node,
			Clock: clk,
			Repo:  auditrepository.Provide(),
		}),
		Outbox: events.NewOutbox(db, node, clk),
	})
	return h
}

func (h *harness) addStudent(t *testing.T) snowflake.ID {
	t.Helper()
	student := studentdomain.Student{
		ID:           h.node.Generate(),
		SchoolID:     h.site,
		SchoolSiteID: h.site,
		ClassID:      h.node.Generate(),
		FullName:     "Test Student",
		Status:       studentdomain.StatusActive,
	}
	if err := h.db.Create(&student).Error; err != nil {
		t.Fatalf("create student: %v", err)
	}
	return student.ID
}

func (h *harness) createRequest(studentID snowflake.ID) domain.CreateRecordRequest {
	return domain.CreateRecordRequest{
		StudentID:    studentID.String(),
		SchoolSiteID: h.site.String(),
		ClassID:      h.node.Generate().String(),
		AcademicYear: "2026/2027",
		PeriodType:   domain.PeriodTypeTerm,
		PeriodNumber: 1,
		PeriodBill:   decimal.NewFromInt(1000),
		FeeBreakdown: []domain.FeeLineItem{
			{Determinant: "tuition", Description: "Tuition fee", Amount: decimal.NewFromInt(1000)},
		},
		Currency:  "ngn",
		CreatedBy: "registrar-1",
	}
}

func TestCreateDerivesTotalsAndPersists(t *testing.T) {
	h := setupHarness(t)
	studentID := h.addStudent(t)

	record, err := h.svc.Create(context.Background(), h.createRequest(studentID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !record.TotalBilled.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("total billed = %s, want 1000", record.TotalBilled)
	}
	if record.Status != domain.StatusOwing {
		t.Fatalf("status = %s, want owing", record.Status)
	}
	if record.Currency != "NGN" {
		t.Fatalf("currency = %q, want normalized NGN", record.Currency)
	}
	if !record.IsCurrent {
		t.Fatal("new record must be current")
	}

	reloaded, err := h.svc.GetByID(context.Background(), record.ID.String())
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if reloaded.ID != record.ID {
		t.Fatal("persisted record does not round-trip")
	}
	if len(reloaded.AuditTrail) != 1 || reloaded.AuditTrail[0].Action != "created" {
		t.Fatalf("creation trail missing: %+v", reloaded.AuditTrail)
	}
}

func TestCreateRejectsUnknownStudent(t *testing.T) {
	h := setupHarness(t)
	req := h.createRequest(h.node.Generate())

	_, err := h.svc.Create(context.Background(), req)
	if !errors.Is(err, studentdomain.ErrStudentNotFound) {
		t.Fatalf("create = %v, want %v", err, studentdomain.ErrStudentNotFound)
	}
}

func TestCreateRejectsDuplicatePeriod(t *testing.T) {
	h := setupHarness(t)
	studentID := h.addStudent(t)
	req := h.createRequest(studentID)

	if _, err := h.svc.Create(context.Background(), req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := h.svc.Create(context.Background(), req)
	if !errors.Is(err, domain.ErrDuplicateRecord) {
		t.Fatalf("second create = %v, want %v", err, domain.ErrDuplicateRecord)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	h := setupHarness(t)
	studentID := h.addStudent(t)

	cases := []struct {
		name   string
		mutate func(*domain.CreateRecordRequest)
		want   error
	}{
		{"bad student id", func(r *domain.CreateRecordRequest) { r.StudentID = "abc" }, domain.ErrInvalidStudent},
		{"bad site id", func(r *domain.CreateRecordRequest) { r.SchoolSiteID = "" }, domain.ErrInvalidSite},
		{"empty year", func(r *domain.CreateRecordRequest) { r.AcademicYear = "  " }, domain.ErrInvalidYear},
		{"bad period type", func(r *domain.CreateRecordRequest) { r.PeriodType = "quarter" }, domain.ErrInvalidPeriod},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := h.createRequest(studentID)
			tc.mutate(&req)
			if _, err := h.svc.Create(context.Background(), req); !errors.Is(err, tc.want) {
				t.Fatalf("create = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateDemotesPriorCurrentRecord(t *testing.T) {
	h := setupHarness(t)
	studentID := h.addStudent(t)

	first, err := h.svc.Create(context.Background(), h.createRequest(studentID))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	next := h.createRequest(studentID)
	next.PeriodNumber = 2
	second, err := h.svc.Create(context.Background(), next)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	var current int64
	if err := h.db.Model(&domain.BillingRecord{}).
		Where("student_id = ? AND school_site_id = ? AND is_current = ?", studentID, h.site, true).
		Count(&current).Error; err != nil {
		t.Fatalf("count current: %v", err)
	}
	if current != 1 {
		t.Fatalf("current records = %d, want exactly 1", current)
	}

	reloaded, err := h.svc.GetByID(context.Background(), first.ID.String())
	if err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if reloaded.IsCurrent {
		t.Fatal("first record still current after a newer record was created")
	}
	if reloaded.CarriedForwardTo == nil || *reloaded.CarriedForwardTo != second.ID {
		t.Fatalf("first record forward pointer = %v, want %s", reloaded.CarriedForwardTo, second.ID)
	}
	if second.CarriedForwardFrom == nil || *second.CarriedForwardFrom != first.ID {
		t.Fatalf("second record back pointer = %v, want %s", second.CarriedForwardFrom, first.ID)
	}
	if !second.IsCurrent {
		t.Fatal("newest record must be current")
	}
}

func TestCreateWritesAuditAndOutbox(t *testing.T) {
	h := setupHarness(t)
	studentID := h.addStudent(t)

	record, err := h.svc.Create(context.Background(), h.createRequest(studentID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var audit auditdomain.AuditLog
	if err := h.db.First(&audit, "action = ?", auditdomain.ActionBillingCreated).Error; err != nil {
		t.Fatalf("audit row missing: %v", err)
	}
	if audit.TargetID == nil || *audit.TargetID != record.ID.String() {
		t.Fatalf("audit target = %v, want %s", audit.TargetID, record.ID)
	}

	var event events.BillingEvent
	if err := h.db.First(&event, "event_type = ?", events.EventBillingCreated).Error; err != nil {
		t.Fatalf("outbox row missing: %v", err)
	}
}

func TestGetByIDUnknownRecord(t *testing.T) {
	h := setupHarness(t)
	_, err := h.svc.GetByID(context.Background(), h.node.Generate().String())
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("get = %v, want %v", err, domain.ErrRecordNotFound)
	}
}

func TestListByScope(t *testing.T) {
	h := setupHarness(t)
	studentID := h.addStudent(t)
	otherStudent := h.addStudent(t)

	if _, err := h.svc.Create(context.Background(), h.createRequest(studentID)); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := h.createRequest(otherStudent)
	other.PeriodNumber = 2
	if _, err := h.svc.Create(context.Background(), other); err != nil {
		t.Fatalf("create other: %v", err)
	}

	records, err := h.svc.ListByScope(context.Background(), domain.Scope{
		SchoolSiteID: h.site,
		AcademicYear: "2026/2027",
		PeriodType:   domain.PeriodTypeTerm,
		PeriodNumber: 1,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].StudentID != studentID {
		t.Fatalf("records = %+v, want the term 1 record only", records)
	}

	if _, err := h.svc.ListByScope(context.Background(), domain.Scope{}); !errors.Is(err, domain.ErrInvalidScope) {
		t.Fatalf("empty scope = %v, want %v", err, domain.ErrInvalidScope)
	}
}
