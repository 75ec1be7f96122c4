package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/classbridge/feeledger/internal/audit/domain"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/classbridge/feeledger/internal/chain"
	"github.com/classbridge/feeledger/internal/clock"
	"github.com/classbridge/feeledger/internal/events"
	feeconfigdomain "github.com/classbridge/feeledger/internal/feeconfig/domain"
	"github.com/classbridge/feeledger/internal/generation/domain"
	studentdomain "github.com/classbridge/feeledger/internal/student/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	BillingRepo   billingdomain.Repository
	StudentRepo   studentdomain.Repository
	FeeConfigRepo feeconfigdomain.Repository
	Chain         *chain.Manager
	AuditSvc      auditdomain.Service
	Outbox        *events.Outbox
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	billingRepo   billingdomain.Repository
	studentRepo   studentdomain.Repository
	feeConfigRepo feeconfigdomain.Repository
	chain         *chain.Manager
	auditSvc      auditdomain.Service
	outbox        *events.Outbox
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("generation.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		billingRepo:   p.BillingRepo,
		studentRepo:   p.StudentRepo,
		feeConfigRepo: p.FeeConfigRepo,
		chain:         p.Chain,
		auditSvc:      p.AuditSvc,
		outbox:        p.Outbox,
	}
}

// Generate bulk-creates records class by class. Per-class and per-student
// failures are recorded and never abort the run; only scope-level failures
// (bad input, unreachable store) return an error.
func (s *Service) Generate(ctx context.Context, req domain.Request) (*domain.Report, error) {
	siteID, err := snowflake.ParseString(strings.TrimSpace(req.SchoolSiteID))
	if err != nil || siteID == 0 {
		return nil, domain.ErrInvalidSite
	}
	year := strings.TrimSpace(req.AcademicYear)
	if year == "" {
		return nil, domain.ErrInvalidYear
	}
	if req.PeriodType != billingdomain.PeriodTypeTerm && req.PeriodType != billingdomain.PeriodTypeSemester {
		return nil, domain.ErrInvalidPeriod
	}
	if req.PeriodNumber <= 0 {
		return nil, domain.ErrInvalidPeriod
	}
	createdBy := strings.TrimSpace(req.CreatedBy)
	if createdBy == "" {
		createdBy = "system"
	}

	classes, err := s.resolveClasses(ctx, siteID, req)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, domain.ErrNoClasses
	}

	report := &domain.Report{
		Classes: make([]domain.ClassResult, 0, len(classes)),
		Errors:  []domain.StudentError{},
	}

	for _, class := range classes {
		result := domain.ClassResult{ClassID: class.ID.String(), ClassName: class.Name}

		cfg, err := s.feeConfigRepo.FindByKey(ctx, s.db, feeconfigdomain.LookupKey{
			SchoolSiteID: siteID,
			ClassID:      class.ID,
			AcademicYear: year,
			PeriodType:   req.PeriodType,
			PeriodNumber: req.PeriodNumber,
		})
		if err != nil {
			if errors.Is(err, feeconfigdomain.ErrConfigNotFound) {
				// Missing configuration for one class never aborts the run.
				result.SkipReason = domain.SkipReasonNoFeeConfig
				report.Classes = append(report.Classes, result)
				s.log.Warn("class skipped: no fee configuration",
					zap.String("class_id", class.ID.String()),
					zap.String("academic_year", year),
				)
				continue
			}
			return nil, err
		}

		students, err := s.studentRepo.ListActiveByClass(ctx, s.db, siteID, class.ID)
		if err != nil {
			return nil, err
		}

		for i := range students {
			student := &students[i]
			generated, err := s.generateForStudent(ctx, student, class.ID, siteID, year, req.PeriodType, req.PeriodNumber, cfg, createdBy)
			switch {
			case err != nil:
				report.Errors = append(report.Errors, domain.StudentError{
					StudentID: student.ID.String(),
					ClassID:   class.ID.String(),
					Reason:    err.Error(),
				})
			case generated:
				result.Generated++
			default:
				result.Skipped++
			}
		}

		report.Generated += result.Generated
		report.Skipped += result.Skipped
		report.Classes = append(report.Classes, result)
	}

	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionBillingGenerated,
		TargetType: auditdomain.TargetTypeBillingScope,
		TargetID:   siteID.String(),
		Metadata: map[string]any{
			"academic_year": year,
			"period_type":   string(req.PeriodType),
			"period_number": req.PeriodNumber,
			"generated":     report.Generated,
			"skipped":       report.Skipped,
			"errors":        len(report.Errors),
			"created_by":    createdBy,
		},
	}); err != nil {
		s.log.Error("failed to audit generation run", zap.Error(err))
	}
	if err := s.outbox.Publish(ctx, events.Event{
		Type: events.EventBillingGenerated,
		Payload: map[string]any{
			"school_site_id": siteID.String(),
			"academic_year":  year,
			"period_number":  req.PeriodNumber,
			"generated":      report.Generated,
			"skipped":        report.Skipped,
		},
	}); err != nil {
		s.log.Error("failed to publish generation event", zap.Error(err))
	}

	s.log.Info("generation run complete",
		zap.String("school_site_id", siteID.String()),
		zap.String("academic_year", year),
		zap.Int("generated", report.Generated),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// generateForStudent creates one record inside its own transaction so a bad
// row never blocks the rest of the cohort. Returns false with no error when
// the record already existed.
func (s *Service) generateForStudent(
	ctx context.Context,
	student *studentdomain.Student,
	classID, siteID snowflake.ID,
	year string,
	periodType billingdomain.PeriodType,
	periodNumber int,
	cfg *feeconfigdomain.FeeConfiguration,
	createdBy string,
) (bool, error) {
	key := billingdomain.PeriodKey{
		StudentID:    student.ID,
		SchoolSiteID: siteID,
		AcademicYear: year,
		PeriodType:   periodType,
		PeriodNumber: periodNumber,
	}
	if _, err := s.billingRepo.FindByPeriodKey(ctx, s.db, key); err == nil {
		return false, nil
	} else if !errors.Is(err, billingdomain.ErrRecordNotFound) {
		return false, err
	}

	generated := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		predecessor, err := s.billingRepo.FindCurrent(ctx, tx, student.ID, siteID)
		if err != nil {
			return err
		}

		broughtForward := decimal.Zero
		if predecessor != nil {
			// Only a positive balance is carried; an overpayment stays
			// on the predecessor record.
			if predecessor.CurrentBalance.IsPositive() {
				broughtForward = predecessor.CurrentBalance
			}
		} else if student.OnboardingBalance.IsPositive() {
			broughtForward = student.OnboardingBalance
		}

		now := s.clock.Now()
		record := &billingdomain.BillingRecord{
			ID:                    s.genID.Generate(),
			StudentID:             student.ID,
			SchoolID:              student.SchoolID,
			SchoolSiteID:          siteID,
			ClassID:               classID,
			AcademicYear:          year,
			PeriodType:            periodType,
			PeriodNumber:          periodNumber,
			BalanceBroughtForward: broughtForward,
			PeriodBill:            cfg.Total,
			FeeBreakdown:          append([]billingdomain.FeeLineItem(nil), cfg.LineItems...),
			FeeConfigID:           cfg.ID,
			PaymentDueDate:        cfg.DueDate,
			Currency:              cfg.Currency,
			CreatedBy:             createdBy,
			IsCurrent:             true,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		record.Recompute()
		if err := record.Validate(); err != nil {
			return err
		}
		record.AppendTrail("created", createdBy, now, "record generated for period", "", record.TotalBilled.String())

		// Predecessor is flipped before the successor lands so there is
		// never a window with two current records.
		if predecessor != nil {
			if err := s.chain.Attach(ctx, tx, predecessor, record, createdBy); err != nil {
				return err
			}
		}

		if err := s.billingRepo.Insert(ctx, tx, record); err != nil {
			return err
		}
		generated = true
		return nil
	})
	if err != nil {
		// A concurrent run winning the insert race is a skip, not a failure.
		if errors.Is(err, billingdomain.ErrDuplicateRecord) {
			return false, nil
		}
		return false, err
	}
	return generated, nil
}

func (s *Service) resolveClasses(ctx context.Context, siteID snowflake.ID, req domain.Request) ([]studentdomain.SchoolClass, error) {
	if len(req.ClassIDs) > 0 {
		ids := make([]snowflake.ID, 0, len(req.ClassIDs))
		for _, raw := range req.ClassIDs {
			id, err := snowflake.ParseString(strings.TrimSpace(raw))
			if err != nil || id == 0 {
				return nil, domain.ErrInvalidClass
			}
			ids = append(ids, id)
		}
		return s.studentRepo.FindClasses(ctx, s.db, siteID, ids)
	}
	if dept := strings.TrimSpace(req.DepartmentID); dept != "" {
		departmentID, err := snowflake.ParseString(dept)
		if err != nil || departmentID == 0 {
			return nil, domain.ErrInvalidDepartment
		}
		return s.studentRepo.ListActiveClassesByDepartment(ctx, s.db, siteID, departmentID)
	}
	return s.studentRepo.ListActiveClasses(ctx, s.db, siteID)
}
