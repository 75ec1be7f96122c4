// Package chain centralizes every mutation of the carry-forward pointers so
// mutual chain consistency is enforced in one place. Generation and deletion
// never write these pointers directly.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/classbridge/feeledger/internal/clock"
	paymentdomain "github.com/classbridge/feeledger/internal/payment/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RepairReport summarizes a repair pass.
type RepairReport struct {
	DanglingCleared  int      `json:"dangling_cleared"`
	OrphanedPayments int      `json:"orphaned_payments"`
	Warnings         []string `json:"warnings,omitempty"`
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	BillingRepo billingdomain.Repository
	PaymentRepo paymentdomain.Repository
}

// Manager owns the carry-forward chain invariants.
type Manager struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	billingRepo billingdomain.Repository
	paymentRepo paymentdomain.Repository
}

func NewManager(p Params) *Manager {
	return &Manager{
		db:          p.DB,
		log:         p.Log.Named("chain.manager"),
		clock:       p.Clock,
		billingRepo: p.BillingRepo,
		paymentRepo: p.PaymentRepo,
	}
}

// Attach links a predecessor to a not-yet-inserted successor. The predecessor
// is persisted through tx before the caller inserts the successor, so there is
// no window with two current records. The successor's back pointer is set in
// memory for the caller's insert.
func (m *Manager) Attach(ctx context.Context, tx *gorm.DB, predecessor, successor *billingdomain.BillingRecord, actor string) error {
	now := m.clock.Now()

	successor.CarriedForwardFrom = &predecessor.ID

	predecessor.CarriedForwardTo = &successor.ID
	predecessor.IsCurrent = false
	predecessor.AppendTrail("carried_forward", actor, now,
		fmt.Sprintf("balance carried into record %s", successor.ID),
		"", successor.CurrentBalance.String())
	predecessor.UpdatedAt = now

	return m.billingRepo.Update(ctx, tx, predecessor)
}

// Detach repairs a deleted record's neighbors. The caller deletes the record
// row first, in the same transaction, so re-promoting the predecessor never
// coexists with the deleted record's current flag. The predecessor becomes
// current again; the successor loses its brought-forward balance deliberately
// rather than keeping a stale amount. Returned warnings name the affected
// students.
func (m *Manager) Detach(ctx context.Context, tx *gorm.DB, record *billingdomain.BillingRecord, actor string) ([]string, error) {
	now := m.clock.Now()
	var warnings []string

	if record.CarriedForwardFrom != nil {
		predecessor, err := m.billingRepo.FindByID(ctx, tx, *record.CarriedForwardFrom)
		if err == nil {
			predecessor.CarriedForwardTo = nil
			predecessor.IsCurrent = true
			predecessor.AppendTrail("successor_deleted", actor, now,
				fmt.Sprintf("successor record %s deleted, record is current again", record.ID), "", "")
			predecessor.UpdatedAt = now
			if err := m.billingRepo.Update(ctx, tx, predecessor); err != nil {
				return warnings, err
			}
		} else if !errors.Is(err, billingdomain.ErrRecordNotFound) {
			return warnings, err
		}
	}

	if record.CarriedForwardTo != nil {
		successor, err := m.billingRepo.FindByID(ctx, tx, *record.CarriedForwardTo)
		if err == nil {
			previous := successor.BalanceBroughtForward.String()
			successor.CarriedForwardFrom = nil
			successor.BalanceBroughtForward = decimal.Zero
			successor.Recompute()
			successor.AppendTrail("predecessor_deleted", actor, now,
				fmt.Sprintf("predecessor record %s deleted, brought-forward balance reset", record.ID),
				previous, "0")
			successor.UpdatedAt = now
			if err := m.billingRepo.Update(ctx, tx, successor); err != nil {
				return warnings, err
			}
			warnings = append(warnings, fmt.Sprintf(
				"student %s: brought-forward balance of %s reset on record %s after predecessor deletion",
				successor.StudentID, previous, successor.ID))
		} else if !errors.Is(err, billingdomain.ErrRecordNotFound) {
			return warnings, err
		}
	}

	return warnings, nil
}

// Repair scans a scope for chain pointers referencing deleted records and
// clears them, and reports payments with no billing record in the scope.
// Orphaned payments are detected only; a payment without a ledger entry needs
// human judgement.
func (m *Manager) Repair(ctx context.Context, scope billingdomain.Scope) (RepairReport, error) {
	report := RepairReport{}

	records, err := m.billingRepo.ListByScope(ctx, m.db, scope)
	if err != nil {
		return report, err
	}

	existing := make(map[snowflake.ID]struct{}, len(records))
	linked := make(map[snowflake.ID]struct{})
	for _, record := range records {
		existing[record.ID] = struct{}{}
		for _, snapshot := range record.LinkedPayments {
			linked[snapshot.PaymentID] = struct{}{}
		}
	}

	now := m.clock.Now()
	for i := range records {
		record := &records[i]
		changed := false

		if record.CarriedForwardFrom != nil {
			if ok, err := m.recordExists(ctx, *record.CarriedForwardFrom, existing); err != nil {
				return report, err
			} else if !ok {
				record.CarriedForwardFrom = nil
				changed = true
			}
		}
		if record.CarriedForwardTo != nil {
			if ok, err := m.recordExists(ctx, *record.CarriedForwardTo, existing); err != nil {
				return report, err
			} else if !ok {
				record.CarriedForwardTo = nil
				changed = true
			}
		}

		if changed {
			record.AppendTrail("chain_repaired", "system", now, "dangling chain pointer cleared", "", "")
			record.UpdatedAt = now
			if err := m.billingRepo.Update(ctx, m.db, record); err != nil {
				return report, err
			}
			report.DanglingCleared++
			m.log.Warn("cleared dangling chain pointer",
				zap.String("billing_id", record.ID.String()),
				zap.String("student_id", record.StudentID.String()),
			)
		}
	}

	payments, err := m.paymentRepo.ListByScope(ctx, m.db, scope)
	if err != nil {
		return report, err
	}
	for _, payment := range payments {
		if _, ok := linked[payment.ID]; !ok {
			report.OrphanedPayments++
		}
	}
	if report.OrphanedPayments > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%d payment(s) in scope have no matching billing record", report.OrphanedPayments))
	}

	return report, nil
}

// recordExists consults the in-scope index first; chain pointers may cross
// periods, so misses fall back to a lookup.
func (m *Manager) recordExists(ctx context.Context, id snowflake.ID, inScope map[snowflake.ID]struct{}) (bool, error) {
	if _, ok := inScope[id]; ok {
		return true, nil
	}
	_, err := m.billingRepo.FindByID(ctx, m.db, id)
	if errors.Is(err, billingdomain.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var Module = fx.Module("chain.manager",
	fx.Provide(NewManager),
)
