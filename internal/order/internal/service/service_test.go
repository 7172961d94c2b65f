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
	"testing"
	"time"

	"github.com/ecodeclub/eshop/internal/email"
	"github.com/ecodeclub/eshop/internal/order/internal/domain"
	"github.com/ecodeclub/eshop/internal/order/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBuyerID = int64(7)

func newTestService(t *testing.T) (Service, *fakeRepo, *fakeProducer, *fakeEmail) {
	t.Helper()
	repo := newFakeRepo()
	producer := newFakeProducer()
	mailer := newFakeEmail()
	svc := NewService(repo, producer, mailer, PaidNotifyConfig{
		From: "no-reply@notify.eshop.local",
		To:   "ops@eshop.local",
	})
	return svc, repo, producer, mailer
}

func createOrder(t *testing.T, svc Service, sn string, method domain.PaymentMethod, expiresAt int64) domain.Order {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), domain.Order{
		SN:            sn,
		BuyerID:       testBuyerID,
		TotalAmount:   450000,
		PaymentMethod: method,
		ExpiresAt:     expiresAt,
		Items: []domain.OrderItem{
			{SKUSN: "SKU-001", SKUName: "机械键盘", SKUPrice: 450000, Quantity: 1},
		},
	})
	require.NoError(t, err)
	return order
}

func waitMail(t *testing.T, ch chan email.Mail) email.Mail {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("等待支付成功邮件超时")
		return email.Mail{}
	}
}

func waitEvent(t *testing.T, ch chan event.OrderPaidEvent) event.OrderPaidEvent {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("等待支付成功事件超时")
		return event.OrderPaidEvent{}
	}
}

func assertNoMail(t *testing.T, ch chan email.Mail) {
	t.Helper()
	select {
	case m := <-ch:
		t.Fatalf("不应该发送邮件: %#v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestService_CreateOrder(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), domain.Order{
		SN:      "OrderSN-create-001",
		BuyerID: testBuyerID,
		// 调用方伪造的状态会被覆盖
		Status:        domain.OrderStatusCompleted,
		PaymentStatus: domain.PaymentStatusPaid,
		TotalAmount:   450000,
		PaymentMethod: domain.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, order.PaymentStatus)

	got := repo.snapshot(order.SN)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	require.Len(t, got.Histories, 1)
	assert.Equal(t, "PENDING", got.Histories[0].To)
}

func TestService_FindOrder_LazySweep(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newTestService(t)
	expired := time.Now().Add(-time.Minute).UnixMilli()
	createOrder(t, svc, "OrderSN-sweep-001", domain.PaymentMethodVNPay, expired)

	got, err := svc.FindOrder(context.Background(), "OrderSN-sweep-001", testBuyerID)
	require.NoError(t, err)
	// 读到即关单, 支付状态保持 UNPAID
	assert.Equal(t, domain.OrderStatusCanceled, got.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, got.PaymentStatus)

	snap := repo.snapshot("OrderSN-sweep-001")
	last := snap.Histories[len(snap.Histories)-1]
	assert.Equal(t, "CANCELLED", last.To)
	assert.Equal(t, domain.ActorRoleSystem, last.Actor.Role)
	assert.Equal(t, "payment window expired", last.Note)
}

func TestService_FindOrder_NoSweep(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		prepare func(t *testing.T, svc Service, repo *fakeRepo) string
	}{
		{
			// 窗口未过
			name: "未到截止时间",
			prepare: func(t *testing.T, svc Service, _ *fakeRepo) string {
				createOrder(t, svc, "OrderSN-nosweep-001", domain.PaymentMethodVNPay,
					time.Now().Add(time.Hour).UnixMilli())
				return "OrderSN-nosweep-001"
			},
		},
		{
			name: "没有截止时间",
			prepare: func(t *testing.T, svc Service, _ *fakeRepo) string {
				createOrder(t, svc, "OrderSN-nosweep-002", domain.PaymentMethodCOD, 0)
				return "OrderSN-nosweep-002"
			},
		},
		{
			// 已支付的订单即使过了截止时间也不能被关
			name: "已支付",
			prepare: func(t *testing.T, svc Service, repo *fakeRepo) string {
				order := createOrder(t, svc, "OrderSN-nosweep-003", domain.PaymentMethodMoMo,
					time.Now().Add(-time.Minute).UnixMilli())
				_, err := repo.MarkPaid(context.Background(), order.SN,
					time.Now().UnixMilli(), order.PaymentMethod, nil, domain.History{
						From: "UNPAID", To: "PAID",
						Actor: domain.Actor{Role: domain.ActorRoleProvider},
					})
				require.NoError(t, err)
				return order.SN
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, repo, _, _ := newTestService(t)
			sn := tc.prepare(t, svc, repo)
			got, err := svc.FindOrder(context.Background(), sn, testBuyerID)
			require.NoError(t, err)
			assert.NotEqual(t, domain.OrderStatusCanceled, got.Status)
		})
	}
}

func TestService_CancelOrder(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newTestService(t)
	createOrder(t, svc, "OrderSN-cancel-001", domain.PaymentMethodBanking, 0)

	t.Run("买家不匹配", func(t *testing.T) {
		err := svc.CancelOrder(context.Background(), "OrderSN-cancel-001", testBuyerID+1)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("待处理订单可以取消", func(t *testing.T) {
		err := svc.CancelOrder(context.Background(), "OrderSN-cancel-001", testBuyerID)
		require.NoError(t, err)
		snap := repo.snapshot("OrderSN-cancel-001")
		assert.Equal(t, domain.OrderStatusCanceled, snap.Status)
		last := snap.Histories[len(snap.Histories)-1]
		assert.Equal(t, domain.ActorRoleUser, last.Actor.Role)
		assert.Equal(t, testBuyerID, last.Actor.ID)
	})

	t.Run("已取消订单重复取消报错", func(t *testing.T) {
		err := svc.CancelOrder(context.Background(), "OrderSN-cancel-001", testBuyerID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestService_Transition(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newTestService(t)
	createOrder(t, svc, "OrderSN-trans-001", domain.PaymentMethodCOD, 0)
	admin := domain.Actor{Role: domain.ActorRoleAdmin, ID: 1}

	t.Run("非法流转被状态机拦截", func(t *testing.T) {
		err := svc.Transition(context.Background(), "OrderSN-trans-001", domain.OrderStatusCompleted, admin)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("合法流转逐级推进", func(t *testing.T) {
		for _, to := range []domain.OrderStatus{
			domain.OrderStatusConfirmed,
			domain.OrderStatusShipping,
			domain.OrderStatusCompleted,
		} {
			require.NoError(t, svc.Transition(context.Background(), "OrderSN-trans-001", to, admin))
		}
		snap := repo.snapshot("OrderSN-trans-001")
		assert.Equal(t, domain.OrderStatusCompleted, snap.Status)
		// 创建 + 三次流转
		assert.Len(t, snap.Histories, 4)
	})

	t.Run("同状态流转无操作不追加流水", func(t *testing.T) {
		before := len(repo.snapshot("OrderSN-trans-001").Histories)
		require.NoError(t, svc.Transition(context.Background(), "OrderSN-trans-001", domain.OrderStatusCompleted, admin))
		assert.Len(t, repo.snapshot("OrderSN-trans-001").Histories, before)
	})

	t.Run("终态不允许再流转", func(t *testing.T) {
		err := svc.Transition(context.Background(), "OrderSN-trans-001", domain.OrderStatusShipping, admin)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestService_MarkPaidByProvider(t *testing.T) {
	t.Parallel()
	svc, repo, producer, mailer := newTestService(t)
	order := createOrder(t, svc, "OrderSN-paid-001", domain.PaymentMethodMoMo, 0)

	applied, err := svc.MarkPaidByProvider(context.Background(), order, "2147483648",
		map[string]any{"transId": "2147483648"})
	require.NoError(t, err)
	assert.True(t, applied)

	snap := repo.snapshot(order.SN)
	assert.Equal(t, domain.PaymentStatusPaid, snap.PaymentStatus)
	assert.NotZero(t, snap.PaidAt)
	assert.Equal(t, "2147483648", snap.PaymentMeta["momo"]["transId"])
	last := snap.Histories[len(snap.Histories)-1]
	assert.Equal(t, domain.ActorRoleProvider, last.Actor.Role)
	assert.Contains(t, last.Note, "2147483648")

	evt := waitEvent(t, producer.events)
	assert.Equal(t, order.SN, evt.OrderSN)
	assert.Equal(t, int64(450000), evt.Amount)
	mail := waitMail(t, mailer.mails)
	assert.Contains(t, mail.Subject, order.SN)

	t.Run("重复落账落空且不再通知", func(t *testing.T) {
		applied, err = svc.MarkPaidByProvider(context.Background(), order, "2147483648", nil)
		require.NoError(t, err)
		assert.False(t, applied)
		assertNoMail(t, mailer.mails)
	})
}

func TestService_ConfirmPaymentManually(t *testing.T) {
	t.Parallel()

	t.Run("银行转账确认后通知买家", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, mailer := newTestService(t)
		createOrder(t, svc, "OrderSN-manual-001", domain.PaymentMethodBanking, 0)

		err := svc.ConfirmPaymentManually(context.Background(), "OrderSN-manual-001", 42)
		require.NoError(t, err)
		snap := repo.snapshot("OrderSN-manual-001")
		assert.Equal(t, domain.PaymentStatusPaid, snap.PaymentStatus)
		last := snap.Histories[len(snap.Histories)-1]
		assert.Equal(t, domain.ActorRoleAdmin, last.Actor.Role)
		assert.Equal(t, int64(42), last.Actor.ID)
		waitMail(t, mailer.mails)
	})

	t.Run("货到付款确认后不发通知", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, mailer := newTestService(t)
		createOrder(t, svc, "OrderSN-manual-002", domain.PaymentMethodCOD, 0)

		err := svc.ConfirmPaymentManually(context.Background(), "OrderSN-manual-002", 42)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPaid, repo.snapshot("OrderSN-manual-002").PaymentStatus)
		assertNoMail(t, mailer.mails)
	})

	t.Run("线上渠道不允许人工确认", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, _ := newTestService(t)
		createOrder(t, svc, "OrderSN-manual-003", domain.PaymentMethodVNPay, 0)

		err := svc.ConfirmPaymentManually(context.Background(), "OrderSN-manual-003", 42)
		assert.ErrorIs(t, err, ErrMethodNotAllowed)
		assert.Equal(t, domain.PaymentStatusUnpaid, repo.snapshot("OrderSN-manual-003").PaymentStatus)
	})

	t.Run("重复确认幂等且PaidAt不变", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, mailer := newTestService(t)
		createOrder(t, svc, "OrderSN-manual-004", domain.PaymentMethodBanking, 0)

		require.NoError(t, svc.ConfirmPaymentManually(context.Background(), "OrderSN-manual-004", 42))
		waitMail(t, mailer.mails)
		paidAt := repo.snapshot("OrderSN-manual-004").PaidAt

		require.NoError(t, svc.ConfirmPaymentManually(context.Background(), "OrderSN-manual-004", 43))
		assert.Equal(t, paidAt, repo.snapshot("OrderSN-manual-004").PaidAt)
		assertNoMail(t, mailer.mails)
	})
}

func TestService_RevokePaymentManually(t *testing.T) {
	t.Parallel()
	svc, repo, _, mailer := newTestService(t)
	createOrder(t, svc, "OrderSN-revoke-001", domain.PaymentMethodBanking, 0)
	require.NoError(t, svc.ConfirmPaymentManually(context.Background(), "OrderSN-revoke-001", 42))
	waitMail(t, mailer.mails)
	paidAt := repo.snapshot("OrderSN-revoke-001").PaidAt

	err := svc.RevokePaymentManually(context.Background(), "OrderSN-revoke-001", 42)
	require.NoError(t, err)
	snap := repo.snapshot("OrderSN-revoke-001")
	assert.Equal(t, domain.PaymentStatusUnpaid, snap.PaymentStatus)
	// paid_at 保留作审计
	assert.Equal(t, paidAt, snap.PaidAt)
	last := snap.Histories[len(snap.Histories)-1]
	assert.Equal(t, "UNPAID", last.To)
	assert.Equal(t, domain.ActorRoleAdmin, last.Actor.Role)
}

func TestService_EnsurePaymentDeadline(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newTestService(t)
	createOrder(t, svc, "OrderSN-deadline-001", domain.PaymentMethodVNPay, 0)

	deadline := time.Now().Add(30 * time.Minute).UnixMilli()
	require.NoError(t, svc.EnsurePaymentDeadline(context.Background(), "OrderSN-deadline-001", deadline))
	assert.Equal(t, deadline, repo.snapshot("OrderSN-deadline-001").ExpiresAt)

	// 已有截止时间不会被覆盖
	require.NoError(t, svc.EnsurePaymentDeadline(context.Background(), "OrderSN-deadline-001",
		time.Now().Add(time.Hour).UnixMilli()))
	assert.Equal(t, deadline, repo.snapshot("OrderSN-deadline-001").ExpiresAt)
}

func TestService_CloseExpiredOrder_LosesToLatePayment(t *testing.T) {
	t.Parallel()
	svc, repo, _, mailer := newTestService(t)
	order := createOrder(t, svc, "OrderSN-race-001", domain.PaymentMethodMoMo,
		time.Now().Add(-time.Minute).UnixMilli())

	// 迟到的支付成功先落账
	applied, err := svc.MarkPaidByProvider(context.Background(), order, "txn-1", nil)
	require.NoError(t, err)
	require.True(t, applied)
	waitMail(t, mailer.mails)

	// 随后的超时关单必须落空
	closed, err := svc.CloseExpiredOrder(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, closed)
	snap := repo.snapshot(order.SN)
	assert.Equal(t, domain.OrderStatusPending, snap.Status)
	assert.Equal(t, domain.PaymentStatusPaid, snap.PaymentStatus)
}

func TestService_ListOrders(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)
	for _, sn := range []string{"OrderSN-list-001", "OrderSN-list-002", "OrderSN-list-003"} {
		createOrder(t, svc, sn, domain.PaymentMethodCOD, 0)
	}

	orders, total, err := svc.ListOrders(context.Background(), 0, 2, testBuyerID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 2)
}
