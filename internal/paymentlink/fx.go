package paymentlink

import (
	"github.com/classbridge/feeledger/internal/paymentlink/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentlink.service",
	fx.Provide(service.NewService),
)
