package billing

import (
	"github.com/classbridge/feeledger/internal/billing/repository"
	"github.com/classbridge/feeledger/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
