package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/classbridge/feeledger/internal/audit/domain"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/classbridge/feeledger/internal/chain"
	"github.com/classbridge/feeledger/internal/deletion/domain"
	"github.com/classbridge/feeledger/internal/events"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	BillingRepo billingdomain.Repository
	Chain       *chain.Manager
	AuditSvc    auditdomain.Service
	Outbox      *events.Outbox
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	billingRepo billingdomain.Repository
	chain       *chain.Manager
	auditSvc    auditdomain.Service
	outbox      *events.Outbox
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("deletion.service"),
		billingRepo: p.BillingRepo,
		chain:       p.Chain,
		auditSvc:    p.AuditSvc,
		outbox:      p.Outbox,
	}
}

// BulkDelete removes every record in scope. Records carrying payments block
// the whole run unless force is set; a forced run deliberately orphans those
// payments and says so in the warnings.
func (s *Service) BulkDelete(ctx context.Context, req domain.Request) (*domain.Result, error) {
	scope, deletedBy, err := s.parseRequest(req)
	if err != nil {
		return nil, err
	}

	records, err := s.billingRepo.ListByScope(ctx, s.db, scope)
	if err != nil {
		return nil, err
	}

	result := &domain.Result{
		Errors:   []domain.ItemError{},
		Warnings: []string{},
	}

	var atRisk []domain.AtRiskRecord
	for _, record := range records {
		if record.HasPayments() {
			atRisk = append(atRisk, domain.AtRiskRecord{
				BillingID:      record.ID.String(),
				StudentID:      record.StudentID.String(),
				TotalPaid:      record.TotalPaid,
				LinkedPayments: len(record.LinkedPayments),
			})
		}
	}

	if len(atRisk) > 0 && !req.Force {
		result.Blocked = true
		result.AtRisk = atRisk
		if err := s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionBulkDeleteBlocked,
			TargetType: auditdomain.TargetTypeBillingScope,
			TargetID:   scope.SchoolSiteID.String(),
			Metadata: map[string]any{
				"academic_year": scope.AcademicYear,
				"period_number": scope.PeriodNumber,
				"at_risk":       len(atRisk),
				"deleted_by":    deletedBy,
			},
		}); err != nil {
			s.log.Error("failed to audit blocked bulk delete", zap.Error(err))
		}
		s.log.Warn("bulk delete blocked by payment safeguard",
			zap.String("school_site_id", scope.SchoolSiteID.String()),
			zap.Int("at_risk", len(atRisk)),
		)
		return result, nil
	}

	if len(atRisk) > 0 {
		result.AtRisk = atRisk
		result.Warnings = append(result.Warnings,
			"force deletion orphans the payments linked to the at-risk records")
	}

	for _, record := range records {
		record := record
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// The row goes first: re-promoting the predecessor while the
			// doomed record still holds the current flag would trip the
			// single-current index.
			if err := s.billingRepo.Delete(ctx, tx, record.ID); err != nil {
				return err
			}
			warnings, err := s.chain.Detach(ctx, tx, &record, deletedBy)
			if err != nil {
				return err
			}
			result.Warnings = append(result.Warnings, warnings...)
			return nil
		})
		if err != nil {
			result.Errors = append(result.Errors, domain.ItemError{
				BillingID: record.ID.String(),
				Reason:    err.Error(),
			})
			continue
		}
		result.Deleted++
	}

	repair, err := s.chain.Repair(ctx, scope)
	if err != nil {
		return nil, err
	}
	result.ChainRepair = repair
	result.Warnings = append(result.Warnings, repair.Warnings...)

	// Forced destruction of financial data is an elevated-risk action and is
	// always recorded with the actor behind it.
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionBulkDeleteExecuted,
		TargetType: auditdomain.TargetTypeBillingScope,
		TargetID:   scope.SchoolSiteID.String(),
		Metadata: map[string]any{
			"academic_year": scope.AcademicYear,
			"period_number": scope.PeriodNumber,
			"deleted":       result.Deleted,
			"forced":        req.Force,
			"at_risk":       len(atRisk),
			"deleted_by":    deletedBy,
		},
	}); err != nil {
		s.log.Error("failed to audit bulk delete", zap.Error(err))
	}
	if err := s.outbox.Publish(ctx, events.Event{
		Type: events.EventBillingBulkDelete,
		Payload: map[string]any{
			"school_site_id": scope.SchoolSiteID.String(),
			"academic_year":  scope.AcademicYear,
			"period_number":  scope.PeriodNumber,
			"deleted":        result.Deleted,
		},
	}); err != nil {
		s.log.Error("failed to publish bulk delete event", zap.Error(err))
	}

	s.log.Info("bulk delete complete",
		zap.String("school_site_id", scope.SchoolSiteID.String()),
		zap.Int("deleted", result.Deleted),
		zap.Int("errors", len(result.Errors)),
		zap.Bool("forced", req.Force),
	)
	return result, nil
}

func (s *Service) parseRequest(req domain.Request) (billingdomain.Scope, string, error) {
	siteID, err := snowflake.ParseString(strings.TrimSpace(req.SchoolSiteID))
	if err != nil || siteID == 0 {
		return billingdomain.Scope{}, "", domain.ErrInvalidSite
	}
	year := strings.TrimSpace(req.AcademicYear)
	if year == "" {
		return billingdomain.Scope{}, "", domain.ErrInvalidYear
	}
	if req.PeriodType != billingdomain.PeriodTypeTerm && req.PeriodType != billingdomain.PeriodTypeSemester {
		return billingdomain.Scope{}, "", domain.ErrInvalidPeriod
	}
	if req.PeriodNumber <= 0 {
		return billingdomain.Scope{}, "", domain.ErrInvalidPeriod
	}

	scope := billingdomain.Scope{
		SchoolSiteID: siteID,
		AcademicYear: year,
		PeriodType:   req.PeriodType,
		PeriodNumber: req.PeriodNumber,
	}
	if raw := strings.TrimSpace(req.ClassID); raw != "" {
		classID, err := snowflake.ParseString(raw)
		if err != nil || classID == 0 {
			return billingdomain.Scope{}, "", domain.ErrInvalidClass
		}
		scope.ClassID = &classID
	}

	deletedBy := strings.TrimSpace(req.DeletedBy)
	if deletedBy == "" {
		deletedBy = "system"
	}
	return scope, deletedBy, nil
}
