package enrollment

import (
	"github.com/smallbiznis/tutorly/internal/enrollment/repository"
	"github.com/smallbiznis/tutorly/internal/enrollment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("enrollment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
