package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/classbridge/feeledger/internal/audit/domain"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/classbridge/feeledger/internal/clock"
	"github.com/classbridge/feeledger/internal/events"
	paymentdomain "github.com/classbridge/feeledger/internal/payment/domain"
	"github.com/classbridge/feeledger/internal/paymentlink/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	BillingRepo billingdomain.Repository
	PaymentRepo paymentdomain.Repository
	AuditSvc    auditdomain.Service
	Outbox      *events.Outbox
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	billingRepo billingdomain.Repository
	paymentRepo paymentdomain.Repository
	auditSvc    auditdomain.Service
	outbox      *events.Outbox
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("paymentlink.service"),
		clock:       p.Clock,
		billingRepo: p.BillingRepo,
		paymentRepo: p.PaymentRepo,
		auditSvc:    p.AuditSvc,
		outbox:      p.Outbox,
	}
}

// Link validates the payment against the record, appends a snapshot and
// re-derives the totals. The snapshot is deliberate: later external changes
// to the payment do not move the ledger until re-linked.
func (s *Service) Link(ctx context.Context, billingID, paymentID, actorID string) (*billingdomain.BillingRecord, error) {
	recordID, err := parseID(billingID, billingdomain.ErrRecordNotFound)
	if err != nil {
		return nil, err
	}
	payID, err := parseID(paymentID, paymentdomain.ErrPaymentNotFound)
	if err != nil {
		return nil, err
	}
	actor := normalizeActor(actorID)

	var record *billingdomain.BillingRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err = s.billingRepo.FindByID(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if record.IsLocked {
			return billingdomain.ErrRecordLocked
		}

		payment, err := s.paymentRepo.FindByID(ctx, tx, payID)
		if err != nil {
			return err
		}
		if payment.StudentID != record.StudentID {
			return domain.ErrStudentMismatch
		}
		if _, linked := record.SnapshotFor(int64(payID)); linked {
			return domain.ErrAlreadyLinked
		}

		now := s.clock.Now()
		record.LinkedPayments = append(record.LinkedPayments, payment.Snapshot())
		record.AppendTrail("payment_linked", actor, now,
			fmt.Sprintf("payment %s (receipt %s)", payment.ID, payment.ReceiptNumber),
			"", payment.Amount.String())
		record.Recompute()
		if err := record.Validate(); err != nil {
			return err
		}
		record.UpdatedAt = now

		if err := s.billingRepo.Update(ctx, tx, record); err != nil {
			return err
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionPaymentLinked,
			TargetType: auditdomain.TargetTypeBillingRecord,
			TargetID:   record.ID.String(),
			Metadata: map[string]any{
				"payment_id": payment.ID.String(),
				"amount":     payment.Amount.String(),
			},
		}); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventPaymentLinked,
			Payload: map[string]any{
				"billing_id": record.ID.String(),
				"payment_id": payment.ID.String(),
			},
			DedupeKey: fmt.Sprintf("payment_linked:%s:%s", record.ID, payment.ID),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment linked",
		zap.String("billing_id", record.ID.String()),
		zap.String("payment_id", payID.String()),
	)
	return record, nil
}

// Unlink removes the snapshot and re-derives the totals. The audit trail
// keeps the removed amount.
func (s *Service) Unlink(ctx context.Context, billingID, paymentID, actorID string) error {
	recordID, err := parseID(billingID, billingdomain.ErrRecordNotFound)
	if err != nil {
		return err
	}
	payID, err := parseID(paymentID, paymentdomain.ErrPaymentNotFound)
	if err != nil {
		return err
	}
	actor := normalizeActor(actorID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.billingRepo.FindByID(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if record.IsLocked {
			return billingdomain.ErrRecordLocked
		}

		removed, found := record.SnapshotFor(int64(payID))
		if !found {
			return domain.ErrNotLinked
		}

		kept := record.LinkedPayments[:0]
		for _, snapshot := range record.LinkedPayments {
			if snapshot.PaymentID != payID {
				kept = append(kept, snapshot)
			}
		}
		record.LinkedPayments = kept

		now := s.clock.Now()
		record.AppendTrail("payment_unlinked", actor, now,
			fmt.Sprintf("payment %s (receipt %s)", removed.PaymentID, removed.ReceiptNumber),
			removed.Amount.String(), "")
		record.Recompute()
		if err := record.Validate(); err != nil {
			return err
		}
		record.UpdatedAt = now

		if err := s.billingRepo.Update(ctx, tx, record); err != nil {
			return err
		}
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionPaymentUnlinked,
			TargetType: auditdomain.TargetTypeBillingRecord,
			TargetID:   record.ID.String(),
			Metadata: map[string]any{
				"payment_id": payID.String(),
				"amount":     removed.Amount.String(),
			},
		}); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventPaymentUnlinked,
			Payload: map[string]any{
				"billing_id": record.ID.String(),
				"payment_id": payID.String(),
			},
		})
	})
}

// ListLinked joins the record's snapshots with the live payment rows.
func (s *Service) ListLinked(ctx context.Context, billingID string) (*domain.ListLinkedResponse, error) {
	recordID, err := parseID(billingID, billingdomain.ErrRecordNotFound)
	if err != nil {
		return nil, err
	}
	record, err := s.billingRepo.FindByID(ctx, s.db, recordID)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(record.LinkedPayments))
	for _, snapshot := range record.LinkedPayments {
		ids = append(ids, snapshot.PaymentID)
	}
	payments, err := s.paymentRepo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]*paymentdomain.Payment, len(payments))
	for i := range payments {
		byID[payments[i].ID] = &payments[i]
	}

	resp := &domain.ListLinkedResponse{
		BillingID: record.ID.String(),
		Payments:  make([]domain.LinkedPayment, 0, len(record.LinkedPayments)),
		TotalPaid: record.TotalPaid,
		Currency:  record.Currency,
	}
	for _, snapshot := range record.LinkedPayments {
		resp.Payments = append(resp.Payments, domain.LinkedPayment{
			Snapshot: snapshot,
			Payment:  byID[snapshot.PaymentID],
		})
	}
	return resp, nil
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func normalizeActor(actorID string) string {
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return "system"
	}
	return actor
}
