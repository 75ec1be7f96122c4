package integrity

import (
	"github.com/classbridge/feeledger/internal/integrity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("integrity.service",
	fx.Provide(service.NewService),
)
