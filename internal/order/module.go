// Copyright 2024 ecodeclub
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package order

import (
	"sync"
	"time"

	"github.com/ecodeclub/eshop/internal/order/internal/domain"
	"github.com/ecodeclub/eshop/internal/order/internal/job"
	"github.com/ecodeclub/eshop/internal/order/internal/repository/dao"
	"github.com/ecodeclub/eshop/internal/order/internal/service"
	"github.com/ecodeclub/eshop/internal/order/internal/web"
	"github.com/ego-component/egorm"
)

type (
	Handler          = web.Handler
	AdminHandler     = web.AdminHandler
	Service          = service.Service
	PaidNotifyConfig = service.PaidNotifyConfig

	Order         = domain.Order
	OrderItem     = domain.OrderItem
	History       = domain.History
	Actor         = domain.Actor
	OrderStatus   = domain.OrderStatus
	PaymentStatus = domain.PaymentStatus
	PaymentMethod = domain.PaymentMethod

	CloseExpiredOrdersJob = job.CloseExpiredOrdersJob
)

const (
	StatusPending   = domain.OrderStatusPending
	StatusConfirmed = domain.OrderStatusConfirmed
	StatusShipping  = domain.OrderStatusShipping
	StatusCompleted = domain.OrderStatusCompleted
	StatusCanceled  = domain.OrderStatusCanceled

	PaymentStatusUnpaid = domain.PaymentStatusUnpaid
	PaymentStatusPaid   = domain.PaymentStatusPaid

	PaymentMethodCOD     = domain.PaymentMethodCOD
	PaymentMethodBanking = domain.PaymentMethodBanking
	PaymentMethodVNPay   = domain.PaymentMethodVNPay
	PaymentMethodMoMo    = domain.PaymentMethodMoMo
)

var (
	ErrOrderNotFound     = service.ErrOrderNotFound
	ErrInvalidTransition = service.ErrInvalidTransition
)

type Module struct {
	Svc      Service
	Hdl      *Handler
	AdminHdl *AdminHandler
}

func NewCloseExpiredOrdersJob(svc Service, limit int, timeout time.Duration) *CloseExpiredOrdersJob {
	return job.NewCloseExpiredOrdersJob(svc, limit, timeout)
}

var once = &sync.Once{}

func InitTablesOnce(db *egorm.Component) dao.OrderDAO {
	once.Do(func() {
		_ = dao.InitTables(db)
	})
	return dao.NewOrderGORMDAO(db)
}
