package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	feeconfigdomain "github.com/classbridge/feeledger/internal/feeconfig/domain"
	"github.com/classbridge/feeledger/internal/integrity/domain"
	paymentdomain "github.com/classbridge/feeledger/internal/payment/domain"
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
	BillingRepo   billingdomain.Repository
	PaymentRepo   paymentdomain.Repository
	StudentRepo   studentdomain.Repository
	FeeConfigRepo feeconfigdomain.Repository
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	billingRepo   billingdomain.Repository
	paymentRepo   paymentdomain.Repository
	studentRepo   studentdomain.Repository
	feeConfigRepo feeconfigdomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("integrity.service"),
		billingRepo:   p.BillingRepo,
		paymentRepo:   p.PaymentRepo,
		studentRepo:   p.StudentRepo,
		feeConfigRepo: p.FeeConfigRepo,
	}
}

// Validate runs every check against the scope. Data-quality findings are
// results; only infrastructure failures surface as errors.
func (s *Service) Validate(ctx context.Context, scope billingdomain.Scope) (*domain.Report, error) {
	if scope.SchoolSiteID == 0 || scope.AcademicYear == "" || scope.PeriodNumber <= 0 {
		return nil, billingdomain.ErrInvalidScope
	}

	records, err := s.billingRepo.ListByScope(ctx, s.db, scope)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.ListByScope(ctx, s.db, scope)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{}
	report.Checks = append(report.Checks, s.checkCalculationIntegrity(records))

	orphaned, err := s.checkOrphanedRecords(ctx, records)
	if err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, orphaned)

	report.Checks = append(report.Checks,
		s.checkDuplicates(records),
		s.checkNegative(records, domain.CheckNegativeTotalBilled),
		s.checkNegative(records, domain.CheckNegativeTotalPaid),
		s.checkStatusConsistency(records),
		s.checkUnlinkedPayments(records, payments),
	)

	withoutBilling, err := s.checkStudentsWithoutBilling(ctx, scope, records)
	if err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, withoutBilling)

	drift, err := s.checkFeeConfigDrift(ctx, records)
	if err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, drift)

	report.Summary = summarize(records)
	report.OverallStatus = overallStatus(report.Checks)
	return report, nil
}

// checkCalculationIntegrity verifies totalBilled and currentBalance against
// their components.
func (s *Service) checkCalculationIntegrity(records []billingdomain.BillingRecord) domain.Check {
	var bad []string
	for _, record := range records {
		expectedBilled := record.BalanceBroughtForward.Add(record.PeriodBill).Add(record.AddedChargesTotal)
		expectedBalance := record.TotalBilled.Sub(record.TotalPaid)
		if !record.TotalBilled.Equal(expectedBilled) || !record.CurrentBalance.Equal(expectedBalance) {
			bad = append(bad, record.ID.String())
		}
	}
	return check(domain.CheckCalculationIntegrity, domain.SeverityError, len(bad) == 0, map[string]any{
		"inconsistent_records": bad,
		"count":                len(bad),
	})
}

func (s *Service) checkOrphanedRecords(ctx context.Context, records []billingdomain.BillingRecord) (domain.Check, error) {
	var orphaned []string
	seen := map[snowflake.ID]bool{}
	for _, record := range records {
		exists, cached := seen[record.StudentID]
		if !cached {
			var err error
			exists, err = s.studentRepo.Exists(ctx, s.db, record.StudentID)
			if err != nil {
				return domain.Check{}, err
			}
			seen[record.StudentID] = exists
		}
		if !exists {
			orphaned = append(orphaned, record.ID.String())
		}
	}
	return check(domain.CheckOrphanedRecords, domain.SeverityError, len(orphaned) == 0, map[string]any{
		"orphaned_records": orphaned,
		"count":            len(orphaned),
	}), nil
}

func (s *Service) checkDuplicates(records []billingdomain.BillingRecord) domain.Check {
	groups := map[billingdomain.PeriodKey][]string{}
	for _, record := range records {
		key := record.Key()
		groups[key] = append(groups[key], record.ID.String())
	}
	var duplicates [][]string
	for _, ids := range groups {
		if len(ids) > 1 {
			duplicates = append(duplicates, ids)
		}
	}
	return check(domain.CheckDuplicateRecords, domain.SeverityError, len(duplicates) == 0, map[string]any{
		"duplicate_groups": len(duplicates),
		"groups":           duplicates,
	})
}

func (s *Service) checkNegative(records []billingdomain.BillingRecord, name string) domain.Check {
	var bad []string
	for _, record := range records {
		value := record.TotalBilled
		if name == domain.CheckNegativeTotalPaid {
			value = record.TotalPaid
		}
		if value.IsNegative() {
			bad = append(bad, record.ID.String())
		}
	}
	return check(name, domain.SeverityError, len(bad) == 0, map[string]any{
		"records": bad,
		"count":   len(bad),
	})
}

func (s *Service) checkStatusConsistency(records []billingdomain.BillingRecord) domain.Check {
	var bad []string
	for _, record := range records {
		var expected billingdomain.BillingStatus
		switch record.CurrentBalance.Sign() {
		case 0:
			expected = billingdomain.StatusClear
		case 1:
			expected = billingdomain.StatusOwing
		default:
			expected = billingdomain.StatusOverpaid
		}
		if record.Status != expected {
			bad = append(bad, record.ID.String())
		}
	}
	return check(domain.CheckStatusConsistency, domain.SeverityError, len(bad) == 0, map[string]any{
		"inconsistent_records": bad,
		"count":                len(bad),
	})
}

func (s *Service) checkUnlinkedPayments(records []billingdomain.BillingRecord, payments []paymentdomain.Payment) domain.Check {
	linked := map[snowflake.ID]struct{}{}
	for _, record := range records {
		for _, snapshot := range record.LinkedPayments {
			linked[snapshot.PaymentID] = struct{}{}
		}
	}
	var unlinked []string
	for _, payment := range payments {
		if _, ok := linked[payment.ID]; !ok {
			unlinked = append(unlinked, payment.ID.String())
		}
	}
	return check(domain.CheckUnlinkedPayments, domain.SeverityWarning, len(unlinked) == 0, map[string]any{
		"unlinked_payments": unlinked,
		"count":             len(unlinked),
	})
}

func (s *Service) checkStudentsWithoutBilling(ctx context.Context, scope billingdomain.Scope, records []billingdomain.BillingRecord) (domain.Check, error) {
	current := map[snowflake.ID]struct{}{}
	for _, record := range records {
		if record.IsCurrent {
			current[record.StudentID] = struct{}{}
		}
	}

	classes, err := s.studentRepo.ListActiveClasses(ctx, s.db, scope.SchoolSiteID)
	if err != nil {
		return domain.Check{}, err
	}
	var missing []string
	for _, class := range classes {
		if scope.ClassID != nil && class.ID != *scope.ClassID {
			continue
		}
		students, err := s.studentRepo.ListActiveByClass(ctx, s.db, scope.SchoolSiteID, class.ID)
		if err != nil {
			return domain.Check{}, err
		}
		for _, student := range students {
			if _, ok := current[student.ID]; !ok {
				missing = append(missing, student.ID.String())
			}
		}
	}
	return check(domain.CheckStudentsWithoutBills, domain.SeverityWarning, len(missing) == 0, map[string]any{
		"students": missing,
		"count":    len(missing),
	}), nil
}

// checkFeeConfigDrift flags records whose period bill no longer equals the
// linked configuration's current total, meaning the catalog changed after
// generation.
func (s *Service) checkFeeConfigDrift(ctx context.Context, records []billingdomain.BillingRecord) (domain.Check, error) {
	totals := map[snowflake.ID]*decimal.Decimal{}
	var drifted []string
	for _, record := range records {
		if record.FeeConfigID == 0 {
			continue
		}
		total, cached := totals[record.FeeConfigID]
		if !cached {
			cfg, err := s.feeConfigRepo.FindByID(ctx, s.db, record.FeeConfigID)
			if err != nil {
				if errors.Is(err, feeconfigdomain.ErrConfigNotFound) {
					totals[record.FeeConfigID] = nil
					continue
				}
				return domain.Check{}, err
			}
			total = &cfg.Total
			totals[record.FeeConfigID] = total
		}
		if total != nil && !record.PeriodBill.Equal(*total) {
			drifted = append(drifted, record.ID.String())
		}
	}
	return check(domain.CheckFeeConfigDrift, domain.SeverityWarning, len(drifted) == 0, map[string]any{
		"drifted_records": drifted,
		"count":           len(drifted),
	}), nil
}

func summarize(records []billingdomain.BillingRecord) domain.Summary {
	summary := domain.Summary{Records: len(records)}
	summary.TotalBilled = decimal.Zero
	summary.TotalPaid = decimal.Zero
	summary.TotalOutstanding = decimal.Zero
	for _, record := range records {
		summary.TotalBilled = summary.TotalBilled.Add(record.TotalBilled)
		summary.TotalPaid = summary.TotalPaid.Add(record.TotalPaid)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(record.CurrentBalance)
	}
	return summary
}

func overallStatus(checks []domain.Check) string {
	status := domain.StatusPassed
	for _, c := range checks {
		if c.IsValid {
			continue
		}
		if c.Severity == domain.SeverityError {
			return domain.StatusFailed
		}
		if c.Severity == domain.SeverityWarning {
			status = domain.StatusWarnings
		}
	}
	return status
}

func check(name string, severity domain.Severity, valid bool, details map[string]any) domain.Check {
	return domain.Check{
		Name:     name,
		IsValid:  valid,
		Severity: severity,
		Details:  details,
	}
}
