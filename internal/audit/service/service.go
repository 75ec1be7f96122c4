package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/classbridge/feeledger/internal/audit/domain"
	"github.com/classbridge/feeledger/internal/auditcontext"
	"github.com/classbridge/feeledger/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry domain.Entry) error {
	return s.RecordTx(ctx, s.db, entry)
}

func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, entry domain.Entry) error {
	row, err := s.buildRow(ctx, entry)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, tx, row); err != nil {
		s.log.Error("failed to write audit log",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) buildRow(ctx context.Context, entry domain.Entry) (*domain.AuditLog, error) {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return nil, domain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		return nil, domain.ErrInvalidTarget
	}

	actor := auditcontext.ActorFromContext(ctx)
	if actor == "" {
		actor = "system"
	}

	row := &domain.AuditLog{
		ID:         s.genID.Generate(),
		ActorID:    actor,
		Action:     action,
		TargetType: targetType,
		CreatedAt:  s.clock.Now(),
	}
	if target := strings.TrimSpace(entry.TargetID); target != "" {
		row.TargetID = &target
	}
	if len(entry.Metadata) > 0 {
		row.Metadata = datatypes.JSONMap(entry.Metadata)
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		row.IPAddress = &ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		row.UserAgent = &ua
	}
	return row, nil
}
