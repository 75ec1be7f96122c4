package audit

import (
	"github.com/classbridge/feeledger/internal/audit/repository"
	"github.com/classbridge/feeledger/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
