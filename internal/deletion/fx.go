package deletion

import (
	"github.com/classbridge/feeledger/internal/deletion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deletion.service",
	fx.Provide(service.NewService),
)
