package student

import (
	"github.com/classbridge/feeledger/internal/student/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("student.directory",
	fx.Provide(repository.Provide),
)
