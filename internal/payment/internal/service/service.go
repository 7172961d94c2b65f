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

	"github.com/ecodeclub/eshop/internal/order"
	"github.com/ecodeclub/eshop/internal/payment/internal/domain"
	"github.com/ecodeclub/eshop/internal/payment/internal/service/provider"
	"github.com/gotomicro/ego/core/elog"
)

var (
	ErrOrderNotFound    = order.ErrOrderNotFound
	ErrNotPayable       = errors.New("订单当前不可支付")
	ErrChannelMismatch  = errors.New("支付渠道与订单支付方式不符")
	ErrUnknownChannel   = errors.New("未知的支付渠道")
	ErrAmountMismatch   = errors.New("回调金额与订单金额不一致")
	ErrProviderError    = errors.New("支付渠道调用失败")
	ErrMissingSignature = provider.ErrMissingSignature
	ErrInvalidSignature = provider.ErrInvalidSignature
)

//go:generate mockgen -source=./service.go -package=svcmocks -destination=./mocks/service.mock.go -typed Service
type Service interface {
	// Initiate 发起支付会话, 前置条件按顺序检查, 第一个不满足的直接返回
	Initiate(ctx context.Context, orderSN string, buyerID int64,
		channel domain.Channel, clientIP string) (domain.Session, error)
	// HandleCallback 服务端回调与浏览器回跳共用的对账入口, 幂等
	HandleCallback(ctx context.Context, channel domain.Channel,
		fields map[string]string) (domain.Outcome, error)
	// HandleReturn 浏览器回跳, 没带签名就只当作尽力而为的触发器, 不改单
	HandleReturn(ctx context.Context, channel domain.Channel,
		fields map[string]string) (domain.Outcome, error)
}

type service struct {
	orderSvc  order.Service
	providers map[domain.Channel]provider.Provider
	payWindow time.Duration
	l         *elog.Component
}

func NewService(orderSvc order.Service,
	providers []provider.Provider,
	payWindow time.Duration) Service {
	m := make(map[domain.Channel]provider.Provider, len(providers))
	for _, p := range providers {
		m[p.Channel()] = p
	}
	return &service{
		orderSvc:  orderSvc,
		providers: m,
		payWindow: payWindow,
		l:         elog.DefaultLogger,
	}
}

func (s *service) Initiate(ctx context.Context, orderSN string, buyerID int64,
	channel domain.Channel, clientIP string) (domain.Session, error) {
	p, ok := s.providers[channel]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %d", ErrUnknownChannel, channel)
	}
	ord, err := s.orderSvc.FindOrder(ctx, orderSN, buyerID)
	if err != nil {
		return domain.Session{}, err
	}
	if ord.PaymentStatus == order.PaymentStatusPaid {
		return domain.Session{}, fmt.Errorf("%w: 已支付", ErrNotPayable)
	}
	if ord.Status != order.StatusPending {
		return domain.Session{}, fmt.Errorf("%w: 订单状态 %s", ErrNotPayable, ord.Status)
	}
	now := time.Now()
	if ord.ExpiresAt > 0 && now.UnixMilli() >= ord.ExpiresAt {
		return domain.Session{}, fmt.Errorf("%w: 已超过支付截止时间", ErrNotPayable)
	}
	if ord.PaymentMethod.ToUint8() != channel.ToUint8() {
		return domain.Session{}, ErrChannelMismatch
	}
	session, err := p.CreateSession(ctx, domain.SessionRequest{
		OrderSN:     ord.SN,
		Amount:      ord.TotalAmount,
		Description: fmt.Sprintf("Thanh toan don hang %s", ord.SN),
		ClientIP:    clientIP,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	if err = s.orderSvc.MergeCallbackMeta(ctx, ord.SN, ord.PaymentMethod, session.Correlation); err != nil {
		return domain.Session{}, err
	}
	if ord.ExpiresAt == 0 {
		deadline := now.Add(s.payWindow).UnixMilli()
		if err = s.orderSvc.EnsurePaymentDeadline(ctx, ord.SN, deadline); err != nil {
			return domain.Session{}, err
		}
	}
	return session, nil
}

func (s *service) HandleCallback(ctx context.Context, channel domain.Channel,
	fields map[string]string) (domain.Outcome, error) {
	p, ok := s.providers[channel]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownChannel, channel)
	}
	// 先验签, 验签不过的回调一个字段都不能信
	cb, err := p.ParseCallback(fields)
	if err != nil {
		return 0, err
	}
	ord, err := s.orderSvc.FindOrderBySN(ctx, cb.OrderSN)
	if err != nil {
		return 0, err
	}
	if ord.PaymentMethod.ToUint8() != channel.ToUint8() {
		// 签名合法但渠道对不上, 疑似跨渠道伪造
		s.l.Warn("回调渠道与订单支付方式不符",
			elog.String("orderSN", ord.SN),
			elog.String("channel", channel.String()),
			elog.String("paymentMethod", ord.PaymentMethod.MetaKey()))
		return 0, ErrChannelMismatch
	}
	if cb.Amount != ord.TotalAmount*p.AmountScale() {
		// 金额对不上按欺诈信号处理, 拒绝且不留任何变更
		s.l.Warn("回调金额与订单金额不一致",
			elog.String("orderSN", ord.SN),
			elog.Int64("callbackAmount", cb.Amount),
			elog.Int64("expectedAmount", ord.TotalAmount*p.AmountScale()))
		return 0, ErrAmountMismatch
	}
	if ord.PaymentStatus == order.PaymentStatusPaid {
		// 幂等短路: 已支付只合并留痕, 绝不重放副作用
		if err = s.orderSvc.MergeCallbackMeta(ctx, ord.SN, ord.PaymentMethod, cb.Raw); err != nil {
			return 0, err
		}
		return domain.OutcomeAlreadyPaid, nil
	}
	switch cb.Kind {
	case domain.CallbackKindSuccess:
		applied, err := s.orderSvc.MarkPaidByProvider(ctx, ord, cb.TxnID, cb.Raw)
		if err != nil {
			return 0, err
		}
		if applied {
			return domain.OutcomeApplied, nil
		}
		// 条件写没落下去, 重读一次区分是输给了并发的成功回调还是超时关单
		cur, err := s.orderSvc.FindOrderBySN(ctx, ord.SN)
		if err != nil {
			return 0, err
		}
		if cur.PaymentStatus == order.PaymentStatusPaid {
			return domain.OutcomeAlreadyPaid, nil
		}
		return domain.OutcomeIgnored, nil
	case domain.CallbackKindCanceled:
		if ord.Status == order.StatusCanceled {
			if err = s.orderSvc.MergeCallbackMeta(ctx, ord.SN, ord.PaymentMethod, cb.Raw); err != nil {
				return 0, err
			}
			return domain.OutcomeIgnored, nil
		}
		note := fmt.Sprintf("渠道报告用户取消支付, 渠道交易号=%s", cb.TxnID)
		applied, err := s.orderSvc.CancelByProvider(ctx, ord, note, cb.Raw)
		if err != nil {
			return 0, err
		}
		if !applied {
			return domain.OutcomeIgnored, nil
		}
		return domain.OutcomeCanceled, nil
	default:
		// 其余状态码只留痕不改单
		if err = s.orderSvc.MergeCallbackMeta(ctx, ord.SN, ord.PaymentMethod, cb.Raw); err != nil {
			return 0, err
		}
		return domain.OutcomeIgnored, nil
	}
}

func (s *service) HandleReturn(ctx context.Context, channel domain.Channel,
	fields map[string]string) (domain.Outcome, error) {
	outcome, err := s.HandleCallback(ctx, channel, fields)
	if errors.Is(err, provider.ErrMissingSignature) {
		s.l.Info("浏览器回跳未携带签名, 忽略",
			elog.String("channel", channel.String()))
		return domain.OutcomeIgnored, nil
	}
	return outcome, err
}
