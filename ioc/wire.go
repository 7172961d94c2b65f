//go:build wireinject

package ioc

import (
	"github.com/ecodeclub/eshop/internal/order"
	"github.com/ecodeclub/eshop/internal/payment"
	"github.com/google/wire"
)

var BaseSet = wire.NewSet(InitDB, InitCache, InitRedis, InitMQ, InitEmailService)

func InitApp() (*App, error) {
	wire.Build(wire.Struct(new(App), "*"),
		BaseSet,
		InitProductModule,
		InitOrderModule,
		InitPaymentModule,
		wire.FieldsOf(new(*order.Module), "Hdl", "AdminHdl"),
		wire.FieldsOf(new(*payment.Module), "Hdl"),
		InitSession,
		initGinxServer,
		InitAdminServer,
		initCloseExpiredOrdersJob,
		initCronJobs)
	return new(App), nil
}
