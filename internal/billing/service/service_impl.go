package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/classbridge/feeledger/internal/audit/domain"
	"github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/classbridge/feeledger/internal/chain"
	"github.com/classbridge/feeledger/internal/clock"
	"github.com/classbridge/feeledger/internal/events"
	studentdomain "github.com/classbridge/feeledger/internal/student/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	StudentRepo studentdomain.Repository
	Chain       *chain.Manager
	AuditSvc    auditdomain.Service
	Outbox      *events.Outbox
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	studentRepo studentdomain.Repository
	chain       *chain.Manager
	auditSvc    auditdomain.Service
	outbox      *events.Outbox
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("billing.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		studentRepo: p.StudentRepo,
		chain:       p.Chain,
		auditSvc:    p.AuditSvc,
		outbox:      p.Outbox,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRecordRequest) (*domain.BillingRecord, error) {
	studentID, err := parseID(req.StudentID, domain.ErrInvalidStudent)
	if err != nil {
		return nil, err
	}
	siteID, err := parseID(req.SchoolSiteID, domain.ErrInvalidSite)
	if err != nil {
		return nil, err
	}
	classID, err := parseID(req.ClassID, domain.ErrInvalidScope)
	if err != nil {
		return nil, err
	}

	student, err := s.studentRepo.FindByID(ctx, s.db, studentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	createdBy := strings.TrimSpace(req.CreatedBy)
	if createdBy == "" {
		createdBy = "system"
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "NGN"
	}

	record := &domain.BillingRecord{
		ID:                    s.genID.Generate(),
		StudentID:             studentID,
		SchoolID:              student.SchoolID,
		SchoolSiteID:          siteID,
		ClassID:               classID,
		AcademicYear:          strings.TrimSpace(req.AcademicYear),
		PeriodType:            req.PeriodType,
		PeriodNumber:          req.PeriodNumber,
		BalanceBroughtForward: req.BalanceBroughtForward,
		PeriodBill:            req.PeriodBill,
		FeeBreakdown:          req.FeeBreakdown,
		AdditionalCharges:     req.AdditionalCharges,
		PaymentDueDate:        req.PaymentDueDate,
		Currency:              currency,
		CreatedBy:             createdBy,
		IsCurrent:             true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	record.Recompute()
	if err := record.Validate(); err != nil {
		return nil, err
	}
	record.AppendTrail("created", createdBy, now, "record created directly", "", "")

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A student+site pair holds at most one current record. Any existing
		// current record is demoted through the chain manager before this one
		// is inserted.
		current, err := s.repo.FindCurrent(ctx, tx, studentID, siteID)
		if err != nil {
			return err
		}
		if current != nil {
			if err := s.chain.Attach(ctx, tx, current, record, createdBy); err != nil {
				return err
			}
		}
		if err := s.repo.Insert(ctx, tx, record); err != nil {
			return err
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionBillingCreated,
			TargetType: auditdomain.TargetTypeBillingRecord,
			TargetID:   record.ID.String(),
			Metadata: map[string]any{
				"student_id":    record.StudentID.String(),
				"academic_year": record.AcademicYear,
				"period_number": record.PeriodNumber,
			},
		}); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type:      events.EventBillingCreated,
			Payload:   map[string]any{"billing_id": record.ID.String()},
			DedupeKey: "billing_created:" + record.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("billing record created",
		zap.String("billing_id", record.ID.String()),
		zap.String("student_id", record.StudentID.String()),
	)
	return record, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.BillingRecord, error) {
	recordID, err := parseID(id, domain.ErrRecordNotFound)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, s.db, recordID)
}

func (s *Service) ListByScope(ctx context.Context, scope domain.Scope) ([]domain.BillingRecord, error) {
	if scope.SchoolSiteID == 0 || scope.AcademicYear == "" || scope.PeriodNumber <= 0 {
		return nil, domain.ErrInvalidScope
	}
	return s.repo.ListByScope(ctx, s.db, scope)
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
