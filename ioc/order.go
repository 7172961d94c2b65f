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

package ioc

import (
	"github.com/ecodeclub/ecache"
	"github.com/ecodeclub/eshop/internal/email"
	"github.com/ecodeclub/eshop/internal/order"
	"github.com/ecodeclub/eshop/internal/product"
	"github.com/ecodeclub/mq-api"
	"github.com/ego-component/egorm"
	"github.com/gotomicro/ego/core/econf"
)

func InitOrderModule(db *egorm.Component,
	ec ecache.Cache,
	q mq.MQ,
	emailSvc email.Service,
	pm *product.Module) *order.Module {
	var notify order.PaidNotifyConfig
	err := econf.UnmarshalKey("order.paidNotify", &notify)
	if err != nil {
		panic(err)
	}
	res, err := order.InitModule(db, ec, q, emailSvc, pm.Svc, notify)
	if err != nil {
		panic(err)
	}
	return res
}
