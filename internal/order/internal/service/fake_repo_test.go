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

	"github.com/ecodeclub/eshop/internal/email"
	"github.com/ecodeclub/eshop/internal/order/internal/domain"
	"github.com/ecodeclub/eshop/internal/order/internal/event"
	"github.com/ecodeclub/eshop/internal/order/internal/repository"
)

// fakeRepo 内存版仓储, 条件写语义与 DAO 保持一致,
// 所有方法都在同一把锁下执行, 模拟行锁串行化
type fakeRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[string]*domain.Order)}
}

func (f *fakeRepo) CreateOrder(_ context.Context, order domain.Order) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	order.ID = f.nextID
	now := time.Now().UnixMilli()
	order.Ctime, order.Utime = now, now
	order.Histories = []domain.History{{
		To:    order.Status.String(),
		Actor: domain.Actor{Role: domain.ActorRoleUser, ID: order.BuyerID},
		Note:  "订单创建",
		Ctime: now,
	}}
	cp := order
	f.orders[order.SN] = &cp
	return order, nil
}

func (f *fakeRepo) FindOrderBySN(_ context.Context, sn string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: sn=%s", repository.ErrOrderNotFound, sn)
	}
	return *o, nil
}

func (f *fakeRepo) FindOrderBySNAndBuyerID(_ context.Context, sn string, buyerID int64) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok || o.BuyerID != buyerID {
		return domain.Order{}, fmt.Errorf("%w: sn=%s", repository.ErrOrderNotFound, sn)
	}
	return *o, nil
}

func (f *fakeRepo) ListOrdersByUID(_ context.Context, offset, limit int, buyerID int64) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.Order
	for _, o := range f.orders {
		if o.BuyerID == buyerID {
			res = append(res, *o)
		}
	}
	if offset >= len(res) {
		return nil, nil
	}
	end := offset + limit
	if end > len(res) {
		end = len(res)
	}
	return res[offset:end], nil
}

func (f *fakeRepo) TotalOrders(_ context.Context, buyerID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, o := range f.orders {
		if o.BuyerID == buyerID {
			total++
		}
	}
	return total, nil
}

func (f *fakeRepo) MarkPaid(_ context.Context, sn string, paidAt int64, method domain.PaymentMethod, payload map[string]any, h domain.History) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return false, fmt.Errorf("%w: sn=%s", repository.ErrOrderNotFound, sn)
	}
	if len(payload) > 0 {
		f.mergeMetaLocked(o, method, payload)
	}
	if o.PaymentStatus == domain.PaymentStatusPaid || o.Status == domain.OrderStatusCanceled {
		return false, nil
	}
	o.PaymentStatus = domain.PaymentStatusPaid
	if o.PaidAt == 0 {
		o.PaidAt = paidAt
	}
	f.appendHistoryLocked(o, h)
	return true, nil
}

func (f *fakeRepo) MarkUnpaid(_ context.Context, sn string, h domain.History) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return false, fmt.Errorf("%w: sn=%s", repository.ErrOrderNotFound, sn)
	}
	if o.PaymentStatus != domain.PaymentStatusPaid {
		return false, nil
	}
	// paid_at 保留作审计
	o.PaymentStatus = domain.PaymentStatusUnpaid
	f.appendHistoryLocked(o, h)
	return true, nil
}

func (f *fakeRepo) CancelPending(_ context.Context, sn string, h domain.History) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return false, fmt.Errorf("%w: sn=%s", repository.ErrOrderNotFound, sn)
	}
	if o.Status != domain.OrderStatusPending || o.PaymentStatus == domain.PaymentStatusPaid {
		return false, nil
	}
	o.Status = domain.OrderStatusCanceled
	f.appendHistoryLocked(o, h)
	return true, nil
}

func (f *fakeRepo) UpdateOrderStatus(_ context.Context, sn string, from, to domain.OrderStatus, h domain.History) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return false, fmt.Errorf("%w: sn=%s", repository.ErrOrderNotFound, sn)
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	f.appendHistoryLocked(o, h)
	return true, nil
}

func (f *fakeRepo) SetExpiresAtIfAbsent(_ context.Context, sn string, deadline int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return false, fmt.Errorf("%w: sn=%s", repository.ErrOrderNotFound, sn)
	}
	if o.ExpiresAt != 0 {
		return false, nil
	}
	o.ExpiresAt = deadline
	return true, nil
}

func (f *fakeRepo) MergePaymentMeta(_ context.Context, sn string, method domain.PaymentMethod, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sn]
	if !ok {
		return fmt.Errorf("%w: sn=%s", repository.ErrOrderNotFound, sn)
	}
	f.mergeMetaLocked(o, method, payload)
	return nil
}

func (f *fakeRepo) ListExpiredOrders(_ context.Context, offset, limit int, now int64) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.Order
	for _, o := range f.orders {
		if o.Status == domain.OrderStatusPending &&
			o.PaymentStatus == domain.PaymentStatusUnpaid &&
			o.ExpiresAt > 0 && o.ExpiresAt <= now {
			res = append(res, *o)
		}
	}
	if offset >= len(res) {
		return nil, nil
	}
	end := offset + limit
	if end > len(res) {
		end = len(res)
	}
	return res[offset:end], nil
}

func (f *fakeRepo) mergeMetaLocked(o *domain.Order, method domain.PaymentMethod, payload map[string]any) {
	if o.PaymentMeta == nil {
		o.PaymentMeta = make(map[string]map[string]any, 1)
	}
	sub := o.PaymentMeta[method.MetaKey()]
	if sub == nil {
		sub = make(map[string]any, len(payload))
	}
	for k, v := range payload {
		sub[k] = v
	}
	o.PaymentMeta[method.MetaKey()] = sub
}

func (f *fakeRepo) appendHistoryLocked(o *domain.Order, h domain.History) {
	h.Ctime = time.Now().UnixMilli()
	o.Histories = append(o.Histories, h)
}

func (f *fakeRepo) snapshot(sn string) domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.orders[sn]
}

type fakeProducer struct {
	events chan event.OrderPaidEvent
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{events: make(chan event.OrderPaidEvent, 16)}
}

func (f *fakeProducer) Produce(_ context.Context, evt event.OrderPaidEvent) error {
	f.events <- evt
	return nil
}

type fakeEmail struct {
	mails chan email.Mail
}

func newFakeEmail() *fakeEmail {
	return &fakeEmail{mails: make(chan email.Mail, 16)}
}

func (f *fakeEmail) SendMail(_ context.Context, mail email.Mail) error {
	f.mails <- mail
	return nil
}
