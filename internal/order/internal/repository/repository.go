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

package repository

import (
	"context"

	"github.com/ecodeclub/ekit/slice"
	"github.com/ecodeclub/ekit/sqlx"
	"github.com/ecodeclub/eshop/internal/order/internal/domain"
	"github.com/ecodeclub/eshop/internal/order/internal/repository/dao"
)

var ErrOrderNotFound = dao.ErrOrderNotFound

type OrderRepository interface {
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	FindOrderBySN(ctx context.Context, sn string) (domain.Order, error)
	FindOrderBySNAndBuyerID(ctx context.Context, sn string, buyerID int64) (domain.Order, error)
	ListOrdersByUID(ctx context.Context, offset, limit int, buyerID int64) ([]domain.Order, error)
	TotalOrders(ctx context.Context, buyerID int64) (int64, error)

	MarkPaid(ctx context.Context, sn string, paidAt int64, method domain.PaymentMethod, payload map[string]any, h domain.History) (bool, error)
	MarkUnpaid(ctx context.Context, sn string, h domain.History) (bool, error)
	CancelPending(ctx context.Context, sn string, h domain.History) (bool, error)
	UpdateOrderStatus(ctx context.Context, sn string, from, to domain.OrderStatus, h domain.History) (bool, error)
	SetExpiresAtIfAbsent(ctx context.Context, sn string, deadline int64) (bool, error)
	MergePaymentMeta(ctx context.Context, sn string, method domain.PaymentMethod, payload map[string]any) error

	ListExpiredOrders(ctx context.Context, offset, limit int, now int64) ([]domain.Order, error)
}

func NewRepository(d dao.OrderDAO) OrderRepository {
	return &orderRepository{d: d}
}

type orderRepository struct {
	d dao.OrderDAO
}

func (o *orderRepository) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	h := o.toHistoryEntity(domain.History{
		To:    order.Status.String(),
		Actor: domain.Actor{Role: domain.ActorRoleUser, ID: order.BuyerID},
		Note:  "订单创建",
	})
	oid, err := o.d.Create(ctx, o.toOrderEntity(order), o.toItemEntities(order.Items), h)
	if err != nil {
		return domain.Order{}, err
	}
	order.ID = oid
	return order, nil
}

func (o *orderRepository) FindOrderBySN(ctx context.Context, sn string) (domain.Order, error) {
	order, err := o.d.FindBySN(ctx, sn)
	if err != nil {
		return domain.Order{}, err
	}
	return o.assemble(ctx, order)
}

func (o *orderRepository) FindOrderBySNAndBuyerID(ctx context.Context, sn string, buyerID int64) (domain.Order, error) {
	order, err := o.d.FindBySNAndBuyerID(ctx, sn, buyerID)
	if err != nil {
		return domain.Order{}, err
	}
	return o.assemble(ctx, order)
}

func (o *orderRepository) assemble(ctx context.Context, order dao.Order) (domain.Order, error) {
	items, err := o.d.FindItemsByOrderID(ctx, order.Id)
	if err != nil {
		return domain.Order{}, err
	}
	histories, err := o.d.FindHistoriesByOrderID(ctx, order.Id)
	if err != nil {
		return domain.Order{}, err
	}
	return o.toOrderDomain(order, items, histories), nil
}

func (o *orderRepository) ListOrdersByUID(ctx context.Context, offset, limit int, buyerID int64) ([]domain.Order, error) {
	os, err := o.d.List(ctx, offset, limit, buyerID)
	if err != nil {
		return nil, err
	}
	return slice.Map(os, func(idx int, src dao.Order) domain.Order {
		return o.toOrderDomain(src, nil, nil)
	}), nil
}

func (o *orderRepository) TotalOrders(ctx context.Context, buyerID int64) (int64, error) {
	return o.d.Count(ctx, buyerID)
}

func (o *orderRepository) MarkPaid(ctx context.Context, sn string, paidAt int64, method domain.PaymentMethod, payload map[string]any, h domain.History) (bool, error) {
	return o.d.MarkPaidIfUnpaid(ctx, sn, paidAt, method.MetaKey(), payload, o.toHistoryEntity(h))
}

func (o *orderRepository) MarkUnpaid(ctx context.Context, sn string, h domain.History) (bool, error) {
	return o.d.MarkUnpaidIfPaid(ctx, sn, o.toHistoryEntity(h))
}

func (o *orderRepository) CancelPending(ctx context.Context, sn string, h domain.History) (bool, error) {
	return o.d.CancelIfPending(ctx, sn, o.toHistoryEntity(h))
}

func (o *orderRepository) UpdateOrderStatus(ctx context.Context, sn string, from, to domain.OrderStatus, h domain.History) (bool, error) {
	return o.d.UpdateStatus(ctx, sn, from.ToUint8(), to.ToUint8(), o.toHistoryEntity(h))
}

func (o *orderRepository) SetExpiresAtIfAbsent(ctx context.Context, sn string, deadline int64) (bool, error) {
	return o.d.SetExpiresAtIfAbsent(ctx, sn, deadline)
}

func (o *orderRepository) MergePaymentMeta(ctx context.Context, sn string, method domain.PaymentMethod, payload map[string]any) error {
	return o.d.MergePaymentMeta(ctx, sn, method.MetaKey(), payload)
}

func (o *orderRepository) ListExpiredOrders(ctx context.Context, offset, limit int, now int64) ([]domain.Order, error) {
	os, err := o.d.ListExpired(ctx, offset, limit, now)
	if err != nil {
		return nil, err
	}
	return slice.Map(os, func(idx int, src dao.Order) domain.Order {
		return o.toOrderDomain(src, nil, nil)
	}), nil
}

func (o *orderRepository) toOrderEntity(order domain.Order) dao.Order {
	return dao.Order{
		Id:            order.ID,
		SN:            order.SN,
		BuyerId:       order.BuyerID,
		TotalAmount:   order.TotalAmount,
		Status:        order.Status.ToUint8(),
		PaymentStatus: order.PaymentStatus.ToUint8(),
		PaymentMethod: order.PaymentMethod.ToUint8(),
		PaymentMeta: sqlx.JsonColumn[map[string]map[string]any]{
			Val:   order.PaymentMeta,
			Valid: len(order.PaymentMeta) > 0,
		},
		ExpiresAt: order.ExpiresAt,
		PaidAt:    order.PaidAt,
	}
}

func (o *orderRepository) toItemEntities(items []domain.OrderItem) []dao.OrderItem {
	return slice.Map(items, func(idx int, src domain.OrderItem) dao.OrderItem {
		return dao.OrderItem{
			SKUSN:    src.SKUSN,
			SKUName:  src.SKUName,
			SKUPrice: src.SKUPrice,
			Quantity: src.Quantity,
		}
	})
}

func (o *orderRepository) toHistoryEntity(h domain.History) dao.OrderHistory {
	return dao.OrderHistory{
		FromState: h.From,
		ToState:   h.To,
		ActorRole: h.Actor.Role,
		ActorId:   h.Actor.ID,
		Note:      h.Note,
	}
}

func (o *orderRepository) toOrderDomain(order dao.Order, items []dao.OrderItem, histories []dao.OrderHistory) domain.Order {
	return domain.Order{
		ID:            order.Id,
		SN:            order.SN,
		BuyerID:       order.BuyerId,
		TotalAmount:   order.TotalAmount,
		Status:        domain.OrderStatus(order.Status),
		PaymentStatus: domain.PaymentStatus(order.PaymentStatus),
		PaymentMethod: domain.PaymentMethod(order.PaymentMethod),
		PaymentMeta:   order.PaymentMeta.Val,
		ExpiresAt:     order.ExpiresAt,
		PaidAt:        order.PaidAt,
		Items: slice.Map(items, func(idx int, src dao.OrderItem) domain.OrderItem {
			return domain.OrderItem{
				OrderID:  src.OrderId,
				SKUSN:    src.SKUSN,
				SKUName:  src.SKUName,
				SKUPrice: src.SKUPrice,
				Quantity: src.Quantity,
			}
		}),
		Histories: slice.Map(histories, func(idx int, src dao.OrderHistory) domain.History {
			return domain.History{
				From:  src.FromState,
				To:    src.ToState,
				Actor: domain.Actor{Role: src.ActorRole, ID: src.ActorId},
				Note:  src.Note,
				Ctime: src.Ctime,
			}
		}),
		Ctime: order.Ctime,
		Utime: order.Utime,
	}
}
