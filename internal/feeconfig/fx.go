package feeconfig

import (
	"github.com/classbridge/feeledger/internal/feeconfig/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("feeconfig.reader",
	fx.Provide(repository.Provide),
)
