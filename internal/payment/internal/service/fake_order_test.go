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

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ecodeclub/eshop/internal/order"
)

// fakeOrderService 内存版订单服务, 条件写语义与真实存储一致,
// 供对账与发起支付的单元测试使用
type fakeOrderService struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

var _ order.Service = (*fakeOrderService)(nil)

func newFakeOrderService(orders ...order.Order) *fakeOrderService {
	f := &fakeOrderService{orders: make(map[string]*order.Order, len(orders))}
	for i := range orders {
		o := orders[i]
		f.orders[o.SN] = &o
	}
	return f
}

func (f *fakeOrderService) snapshot(sn string) order.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return order.Order{}
	}
	return *o
}

func (f *fakeOrderService) CreateOrder(_ context.Context, o order.Order) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.SN] = &o
	return o, nil
}

func (f *fakeOrderService) FindOrder(_ context.Context, sn string, buyerID int64) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok || o.BuyerID != buyerID {
		return order.Order{}, order.ErrOrderNotFound
	}
	return *o, nil
}

func (f *fakeOrderService) FindOrderBySN(_ context.Context, sn string) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return order.Order{}, order.ErrOrderNotFound
	}
	return *o, nil
}

func (f *fakeOrderService) ListOrders(_ context.Context, _, _ int, _ int64) ([]order.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeOrderService) CancelOrder(_ context.Context, _ string, _ int64) error {
	return nil
}

func (f *fakeOrderService) Transition(_ context.Context, _ string, _ order.OrderStatus, _ order.Actor) error {
	return nil
}

func (f *fakeOrderService) MarkPaidByProvider(_ context.Context, ord order.Order, txnID string, payload map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[ord.SN]
	if !ok {
		return false, order.ErrOrderNotFound
	}
	f.mergeMetaLocked(o, o.PaymentMethod.MetaKey(), payload)
	if o.PaymentStatus == order.PaymentStatusPaid || o.Status == order.StatusCanceled {
		return false, nil
	}
	o.PaymentStatus = order.PaymentStatusPaid
	if o.PaidAt == 0 {
		o.PaidAt = time.Now().UnixMilli()
	}
	o.Histories = append(o.Histories, order.History{
		From:  o.Status.String(),
		To:    o.Status.String(),
		Actor: order.Actor{Role: "provider"},
		Note:  fmt.Sprintf("支付成功, 渠道交易号=%s", txnID),
		Ctime: time.Now().UnixMilli(),
	})
	return true, nil
}

func (f *fakeOrderService) CancelByProvider(_ context.Context, ord order.Order, note string, payload map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[ord.SN]
	if !ok {
		return false, order.ErrOrderNotFound
	}
	f.mergeMetaLocked(o, o.PaymentMethod.MetaKey(), payload)
	if o.Status != order.StatusPending || o.PaymentStatus == order.PaymentStatusPaid {
		return false, nil
	}
	from := o.Status.String()
	o.Status = order.StatusCanceled
	o.Histories = append(o.Histories, order.History{
		From:  from,
		To:    o.Status.String(),
		Actor: order.Actor{Role: "provider"},
		Note:  note,
		Ctime: time.Now().UnixMilli(),
	})
	return true, nil
}

func (f *fakeOrderService) MergeCallbackMeta(_ context.Context, sn string, method order.PaymentMethod, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return order.ErrOrderNotFound
	}
	f.mergeMetaLocked(o, method.MetaKey(), payload)
	return nil
}

func (f *fakeOrderService) EnsurePaymentDeadline(_ context.Context, sn string, deadline int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.ExpiresAt == 0 {
		o.ExpiresAt = deadline
	}
	return nil
}

func (f *fakeOrderService) ConfirmPaymentManually(_ context.Context, _ string, _ int64) error {
	return nil
}

func (f *fakeOrderService) RevokePaymentManually(_ context.Context, _ string, _ int64) error {
	return nil
}

func (f *fakeOrderService) ListExpiredOrders(_ context.Context, _, _ int, _ int64) ([]order.Order, error) {
	return nil, nil
}

func (f *fakeOrderService) CloseExpiredOrder(_ context.Context, ord order.Order) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[ord.SN]
	if !ok {
		return false, order.ErrOrderNotFound
	}
	if o.Status != order.StatusPending || o.PaymentStatus == order.PaymentStatusPaid {
		return false, nil
	}
	from := o.Status.String()
	o.Status = order.StatusCanceled
	o.Histories = append(o.Histories, order.History{
		From:  from,
		To:    o.Status.String(),
		Actor: order.Actor{Role: "system"},
		Note:  "payment window expired",
		Ctime: time.Now().UnixMilli(),
	})
	return true, nil
}

func (f *fakeOrderService) mergeMetaLocked(o *order.Order, metaKey string, payload map[string]any) {
	if len(payload) == 0 {
		return
	}
	if o.PaymentMeta == nil {
		o.PaymentMeta = make(map[string]map[string]any)
	}
	if o.PaymentMeta[metaKey] == nil {
		o.PaymentMeta[metaKey] = make(map[string]any)
	}
	for k, v := range payload {
		o.PaymentMeta[metaKey][k] = v
	}
}
