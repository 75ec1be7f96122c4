package payment

import (
	"github.com/classbridge/feeledger/internal/payment/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.store",
	fx.Provide(repository.Provide),
)
