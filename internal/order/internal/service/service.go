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
	"errors"
	"fmt"
	"time"

	"github.com/ecodeclub/eshop/internal/email"
	"github.com/ecodeclub/eshop/internal/order/internal/domain"
	"github.com/ecodeclub/eshop/internal/order/internal/event"
	"github.com/ecodeclub/eshop/internal/order/internal/repository"
	"github.com/gotomicro/ego/core/elog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrOrderNotFound     = repository.ErrOrderNotFound
	ErrPermissionDenied  = errors.New("无权限操作该订单")
	ErrInvalidTransition = domain.ErrInvalidTransition
	ErrMethodNotAllowed  = errors.New("该支付方式不支持人工确认支付")
)

//go:generate mockgen -source=./service.go -package=svcmocks -destination=./mocks/service.mock.go -typed Service
type Service interface {
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	// FindOrder 任何读路径都会先做惰性超时检查, 见 sweepIfExpired
	FindOrder(ctx context.Context, sn string, buyerID int64) (domain.Order, error)
	FindOrderBySN(ctx context.Context, sn string) (domain.Order, error)
	ListOrders(ctx context.Context, offset, limit int, buyerID int64) ([]domain.Order, int64, error)
	CancelOrder(ctx context.Context, sn string, buyerID int64) error

	// Transition 履约状态流转, 唯一入口, 全部过状态机
	Transition(ctx context.Context, sn string, to domain.OrderStatus, actor domain.Actor) error

	// MarkPaidByProvider 渠道对账成功后的原子落账,
	// 返回 false 表示本次回调输掉了竞争(已经 PAID), 不是错误
	MarkPaidByProvider(ctx context.Context, order domain.Order, txnID string, payload map[string]any) (bool, error)
	// CancelByProvider 渠道明确报告用户取消/中止
	CancelByProvider(ctx context.Context, order domain.Order, note string, payload map[string]any) (bool, error)
	MergeCallbackMeta(ctx context.Context, sn string, method domain.PaymentMethod, payload map[string]any) error
	// EnsurePaymentDeadline 只在尚未设置时写入支付截止时间
	EnsurePaymentDeadline(ctx context.Context, sn string, deadline int64) error

	// ConfirmPaymentManually 管理员人工确认收款, 仅限 COD/银行转账
	ConfirmPaymentManually(ctx context.Context, sn string, adminID int64) error
	RevokePaymentManually(ctx context.Context, sn string, adminID int64) error

	ListExpiredOrders(ctx context.Context, offset, limit int, now int64) ([]domain.Order, error)
	// CloseExpiredOrder 超时关单, 与支付成功回调竞争同一个条件写
	CloseExpiredOrder(ctx context.Context, order domain.Order) (bool, error)
}

type PaidNotifyConfig struct {
	From string
	To   string
}

func NewService(repo repository.OrderRepository,
	producer event.OrderPaidEventProducer,
	emailSvc email.Service,
	notify PaidNotifyConfig) Service {
	return &service{
		repo:     repo,
		producer: producer,
		emailSvc: emailSvc,
		notify:   notify,
		l:        elog.DefaultLogger,
	}
}

type service struct {
	repo     repository.OrderRepository
	producer event.OrderPaidEventProducer
	emailSvc email.Service
	notify   PaidNotifyConfig
	l        *elog.Component
}

func (s *service) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	order.Status = domain.OrderStatusPending
	order.PaymentStatus = domain.PaymentStatusUnpaid
	return s.repo.CreateOrder(ctx, order)
}

func (s *service) FindOrder(ctx context.Context, sn string, buyerID int64) (domain.Order, error) {
	order, err := s.repo.FindOrderBySNAndBuyerID(ctx, sn, buyerID)
	if err != nil {
		return domain.Order{}, err
	}
	return s.sweepIfExpired(ctx, order)
}

func (s *service) FindOrderBySN(ctx context.Context, sn string) (domain.Order, error) {
	order, err := s.repo.FindOrderBySN(ctx, sn)
	if err != nil {
		return domain.Order{}, err
	}
	return s.sweepIfExpired(ctx, order)
}

// sweepIfExpired 惰性超时检查: 支付窗口已过的待处理订单在被读到时当场关单。
// 与迟到的支付成功回调竞争同一个条件写, 输掉的一方落空
func (s *service) sweepIfExpired(ctx context.Context, order domain.Order) (domain.Order, error) {
	if !order.PaymentWindowClosed(time.Now().UnixMilli()) {
		return order, nil
	}
	if _, err := s.CloseExpiredOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}
	// 无论关单还是输给了迟到的支付成功回调, 都重新读一次拿到真实状态
	return s.repo.FindOrderBySN(ctx, order.SN)
}

func (s *service) CloseExpiredOrder(ctx context.Context, order domain.Order) (bool, error) {
	applied, err := s.repo.CancelPending(ctx, order.SN, domain.History{
		From:  domain.OrderStatusPending.String(),
		To:    domain.OrderStatusCanceled.String(),
		Actor: domain.Actor{Role: domain.ActorRoleSystem},
		Note:  "payment window expired",
	})
	if err != nil {
		return false, fmt.Errorf("超时关单失败: %w", err)
	}
	if !applied {
		s.l.Info("超时关单落空, 订单已被并发修改",
			elog.String("sn", order.SN))
	}
	return applied, nil
}

func (s *service) ListOrders(ctx context.Context, offset, limit int, buyerID int64) ([]domain.Order, int64, error) {
	var (
		eg    errgroup.Group
		os    []domain.Order
		total int64
	)
	eg.Go(func() error {
		var err error
		os, err = s.repo.ListOrdersByUID(ctx, offset, limit, buyerID)
		return err
	})
	eg.Go(func() error {
		var err error
		total, err = s.repo.TotalOrders(ctx, buyerID)
		return err
	})
	return os, total, eg.Wait()
}

func (s *service) CancelOrder(ctx context.Context, sn string, buyerID int64) error {
	order, err := s.repo.FindOrderBySNAndBuyerID(ctx, sn, buyerID)
	if err != nil {
		return err
	}
	applied, err := s.repo.CancelPending(ctx, order.SN, domain.History{
		From:  domain.OrderStatusPending.String(),
		To:    domain.OrderStatusCanceled.String(),
		Actor: domain.Actor{Role: domain.ActorRoleUser, ID: buyerID},
		Note:  "用户取消订单",
	})
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("%w: 订单当前状态不允许取消", ErrInvalidTransition)
	}
	return nil
}

func (s *service) Transition(ctx context.Context, sn string, to domain.OrderStatus, actor domain.Actor) error {
	order, err := s.repo.FindOrderBySN(ctx, sn)
	if err != nil {
		return err
	}
	if !domain.ValidateTransition(order.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
	}
	if order.Status == to {
		// 无操作, 不追加流水
		return nil
	}
	applied, err := s.repo.UpdateOrderStatus(ctx, order.SN, order.Status, to, domain.History{
		From:  order.Status.String(),
		To:    to.String(),
		Actor: actor,
	})
	if err != nil {
		return err
	}
	if !applied {
		s.l.Info("履约流转落空, 订单已被并发修改",
			elog.String("sn", sn),
			elog.String("from", order.Status.String()),
			elog.String("to", to.String()))
	}
	return nil
}

func (s *service) MarkPaidByProvider(ctx context.Context, order domain.Order, txnID string, payload map[string]any) (bool, error) {
	applied, err := s.repo.MarkPaid(ctx, order.SN, time.Now().UnixMilli(), order.PaymentMethod, payload, domain.History{
		From:  domain.PaymentStatusUnpaid.String(),
		To:    domain.PaymentStatusPaid.String(),
		Actor: domain.Actor{Role: domain.ActorRoleProvider},
		Note:  fmt.Sprintf("支付成功, 渠道交易号=%s", txnID),
	})
	if err != nil {
		return false, fmt.Errorf("支付落账失败: %w", err)
	}
	if applied {
		s.notifyPaid(order)
	} else {
		s.l.Info("支付落账落空, 订单已是已支付状态",
			elog.String("sn", order.SN),
			elog.String("txnID", txnID))
	}
	return applied, nil
}

func (s *service) CancelByProvider(ctx context.Context, order domain.Order, note string, payload map[string]any) (bool, error) {
	if len(payload) > 0 {
		if err := s.repo.MergePaymentMeta(ctx, order.SN, order.PaymentMethod, payload); err != nil {
			return false, err
		}
	}
	applied, err := s.repo.CancelPending(ctx, order.SN, domain.History{
		From:  domain.OrderStatusPending.String(),
		To:    domain.OrderStatusCanceled.String(),
		Actor: domain.Actor{Role: domain.ActorRoleProvider},
		Note:  note,
	})
	if err != nil {
		return false, fmt.Errorf("渠道取消落库失败: %w", err)
	}
	return applied, nil
}

func (s *service) MergeCallbackMeta(ctx context.Context, sn string, method domain.PaymentMethod, payload map[string]any) error {
	return s.repo.MergePaymentMeta(ctx, sn, method, payload)
}

func (s *service) EnsurePaymentDeadline(ctx context.Context, sn string, deadline int64) error {
	_, err := s.repo.SetExpiresAtIfAbsent(ctx, sn, deadline)
	return err
}

func (s *service) ConfirmPaymentManually(ctx context.Context, sn string, adminID int64) error {
	order, err := s.repo.FindOrderBySN(ctx, sn)
	if err != nil {
		return err
	}
	if order.PaymentMethod != domain.PaymentMethodCOD &&
		order.PaymentMethod != domain.PaymentMethodBanking {
		return fmt.Errorf("%w: method=%d", ErrMethodNotAllowed, order.PaymentMethod)
	}
	applied, err := s.repo.MarkPaid(ctx, order.SN, time.Now().UnixMilli(), order.PaymentMethod, nil, domain.History{
		From:  domain.PaymentStatusUnpaid.String(),
		To:    domain.PaymentStatusPaid.String(),
		Actor: domain.Actor{Role: domain.ActorRoleAdmin, ID: adminID},
		Note:  "管理员人工确认收款",
	})
	if err != nil {
		return err
	}
	// 银行转账确认后通知买家, 货到付款在配送环节收款, 没有通知
	if applied && order.PaymentMethod == domain.PaymentMethodBanking {
		s.notifyPaid(order)
	}
	return nil
}

func (s *service) RevokePaymentManually(ctx context.Context, sn string, adminID int64) error {
	order, err := s.repo.FindOrderBySN(ctx, sn)
	if err != nil {
		return err
	}
	if order.PaymentMethod != domain.PaymentMethodCOD &&
		order.PaymentMethod != domain.PaymentMethodBanking {
		return fmt.Errorf("%w: method=%d", ErrMethodNotAllowed, order.PaymentMethod)
	}
	_, err = s.repo.MarkUnpaid(ctx, order.SN, domain.History{
		From:  domain.PaymentStatusPaid.String(),
		To:    domain.PaymentStatusUnpaid.String(),
		Actor: domain.Actor{Role: domain.ActorRoleAdmin, ID: adminID},
		Note:  "管理员撤销收款确认",
	})
	return err
}

func (s *service) ListExpiredOrders(ctx context.Context, offset, limit int, now int64) ([]domain.Order, error) {
	return s.repo.ListExpiredOrders(ctx, offset, limit, now)
}

// notifyPaid 通知属于尽力而为的副作用, 失败只记日志, 不影响落账结果
func (s *service) notifyPaid(order domain.Order) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.producer.Produce(ctx, event.OrderPaidEvent{
			OrderSN: order.SN,
			BuyerID: order.BuyerID,
			Amount:  order.TotalAmount,
			Channel: order.PaymentMethod.ToUint8(),
		}); err != nil {
			s.l.Error("发送订单支付成功事件失败",
				elog.FieldErr(err),
				elog.String("sn", order.SN))
		}
		if err := s.emailSvc.SendMail(ctx, email.Mail{
			From:    s.notify.From,
			To:      s.notify.To,
			Subject: fmt.Sprintf("订单支付成功: %s", order.SN),
			Body:    []byte(fmt.Sprintf("订单 %s 已支付, 金额 %d, 请安排履约", order.SN, order.TotalAmount)),
		}); err != nil {
			s.l.Error("发送订单支付成功邮件失败",
				elog.FieldErr(err),
				elog.String("sn", order.SN))
		}
	}()
}
