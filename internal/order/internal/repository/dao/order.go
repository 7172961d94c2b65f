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

package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecodeclub/ekit/sqlx"
	"github.com/ego-component/egorm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound = errors.New("订单不存在")
)

type OrderDAO interface {
	Create(ctx context.Context, o Order, items []OrderItem, h OrderHistory) (int64, error)
	FindBySN(ctx context.Context, sn string) (Order, error)
	FindBySNAndBuyerID(ctx context.Context, sn string, buyerID int64) (Order, error)
	FindItemsByOrderID(ctx context.Context, oid int64) ([]OrderItem, error)
	FindHistoriesByOrderID(ctx context.Context, oid int64) ([]OrderHistory, error)
	List(ctx context.Context, offset, limit int, buyerID int64) ([]Order, error)
	Count(ctx context.Context, buyerID int64) (int64, error)

	// MarkPaidIfUnpaid 满足 payment_status <> PAID 且订单未取消时才落库,
	// 竞争失败方什么都不会写(除了渠道元数据合并), applied 为 false
	MarkPaidIfUnpaid(ctx context.Context, sn string, paidAt int64, metaKey string, payload map[string]any, h OrderHistory) (bool, error)
	// MarkUnpaidIfPaid 管理员将 PAID 修正回 UNPAID, paid_at 保留作审计
	MarkUnpaidIfPaid(ctx context.Context, sn string, h OrderHistory) (bool, error)
	// CancelIfPending 满足 status = PENDING 且未支付时取消, 支付状态保持 UNPAID
	CancelIfPending(ctx context.Context, sn string, h OrderHistory) (bool, error)
	// UpdateStatus 带前置状态过滤的履约流转
	UpdateStatus(ctx context.Context, sn string, from, to uint8, h OrderHistory) (bool, error)
	// SetExpiresAtIfAbsent 只在尚未设置截止时间时写入, 永不清除
	SetExpiresAtIfAbsent(ctx context.Context, sn string, deadline int64) (bool, error)
	// MergePaymentMeta 按渠道子键增量合并, 不整体覆盖
	MergePaymentMeta(ctx context.Context, sn string, metaKey string, payload map[string]any) error

	ListExpired(ctx context.Context, offset, limit int, now int64) ([]Order, error)
}

func NewOrderGORMDAO(db *egorm.Component) OrderDAO {
	return &orderDAO{db: db}
}

type orderDAO struct {
	db *egorm.Component
}

func (g *orderDAO) Create(ctx context.Context, o Order, items []OrderItem, h OrderHistory) (int64, error) {
	var id int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UnixMilli()
		o.Ctime, o.Utime = now, now
		if err := tx.Create(&o).Error; err != nil {
			return err
		}
		id = o.Id
		for i := range items {
			items[i].OrderId = id
			items[i].Ctime, items[i].Utime = now, now
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		h.OrderId = id
		h.Ctime, h.Utime = now, now
		return tx.Create(&h).Error
	})
	return id, err
}

func (g *orderDAO) FindBySN(ctx context.Context, sn string) (Order, error) {
	var res Order
	err := g.db.WithContext(ctx).Where("sn = ?", sn).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, fmt.Errorf("%w: sn=%s", ErrOrderNotFound, sn)
	}
	return res, err
}

func (g *orderDAO) FindBySNAndBuyerID(ctx context.Context, sn string, buyerID int64) (Order, error) {
	var res Order
	err := g.db.WithContext(ctx).Where("sn = ? AND buyer_id = ?", sn, buyerID).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, fmt.Errorf("%w: sn=%s", ErrOrderNotFound, sn)
	}
	return res, err
}

func (g *orderDAO) FindItemsByOrderID(ctx context.Context, oid int64) ([]OrderItem, error) {
	var res []OrderItem
	err := g.db.WithContext(ctx).Where("order_id = ?", oid).Find(&res).Error
	return res, err
}

func (g *orderDAO) FindHistoriesByOrderID(ctx context.Context, oid int64) ([]OrderHistory, error) {
	var res []OrderHistory
	err := g.db.WithContext(ctx).Where("order_id = ?", oid).Order("id ASC").Find(&res).Error
	return res, err
}

func (g *orderDAO) List(ctx context.Context, offset, limit int, buyerID int64) ([]Order, error) {
	var res []Order
	err := g.db.WithContext(ctx).Where("buyer_id = ?", buyerID).
		Order("id DESC").Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (g *orderDAO) Count(ctx context.Context, buyerID int64) (int64, error) {
	var res int64
	err := g.db.WithContext(ctx).Model(&Order{}).Where("buyer_id = ?", buyerID).Count(&res).Error
	return res, err
}

func (g *orderDAO) MarkPaidIfUnpaid(ctx context.Context, sn string, paidAt int64, metaKey string, payload map[string]any, h OrderHistory) (bool, error) {
	var applied bool
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := g.lockBySN(tx, sn)
		if err != nil {
			return err
		}
		now := time.Now().UnixMilli()
		// 已取消的订单不允许再落账, 防止迟到的成功回调
		// 在超时关单之后把订单改成 CANCELLED + PAID 的矛盾态
		res := tx.Model(&Order{}).
			Where("id = ? AND payment_status <> ? AND status <> ?",
				o.Id, uint8(paymentStatusPaid), uint8(orderStatusCanceled)).
			Updates(map[string]any{
				"payment_status": uint8(paymentStatusPaid),
				// paid_at 只在第一次成功时写入
				"paid_at": gorm.Expr("(CASE WHEN paid_at = 0 THEN ? ELSE paid_at END)", paidAt),
				"utime":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0
		if len(payload) > 0 {
			if err = g.mergeMeta(tx, o, metaKey, payload, now); err != nil {
				return err
			}
		}
		if !applied {
			return nil
		}
		h.OrderId = o.Id
		h.Ctime, h.Utime = now, now
		return tx.Create(&h).Error
	})
	return applied, err
}

func (g *orderDAO) MarkUnpaidIfPaid(ctx context.Context, sn string, h OrderHistory) (bool, error) {
	return g.conditionalUpdate(ctx, sn, h,
		"payment_status = ?", []any{uint8(paymentStatusPaid)},
		map[string]any{"payment_status": uint8(paymentStatusUnpaid)})
}

func (g *orderDAO) CancelIfPending(ctx context.Context, sn string, h OrderHistory) (bool, error) {
	return g.conditionalUpdate(ctx, sn, h,
		"status = ? AND payment_status <> ?", []any{uint8(orderStatusPending), uint8(paymentStatusPaid)},
		map[string]any{"status": uint8(orderStatusCanceled)})
}

func (g *orderDAO) UpdateStatus(ctx context.Context, sn string, from, to uint8, h OrderHistory) (bool, error) {
	return g.conditionalUpdate(ctx, sn, h,
		"status = ?", []any{from},
		map[string]any{"status": to})
}

// conditionalUpdate 带前置条件的状态写入, 条件不再满足时静默落空,
// 流水只在真正写入时追加
func (g *orderDAO) conditionalUpdate(ctx context.Context, sn string, h OrderHistory,
	cond string, condArgs []any, updates map[string]any) (bool, error) {
	var applied bool
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := g.lockBySN(tx, sn)
		if err != nil {
			return err
		}
		now := time.Now().UnixMilli()
		updates["utime"] = now
		args := append([]any{o.Id}, condArgs...)
		res := tx.Model(&Order{}).Where("id = ? AND "+cond, args...).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0
		if !applied {
			return nil
		}
		h.OrderId = o.Id
		h.Ctime, h.Utime = now, now
		return tx.Create(&h).Error
	})
	return applied, err
}

func (g *orderDAO) SetExpiresAtIfAbsent(ctx context.Context, sn string, deadline int64) (bool, error) {
	res := g.db.WithContext(ctx).Model(&Order{}).
		Where("sn = ? AND expires_at = 0", sn).
		Updates(map[string]any{
			"expires_at": deadline,
			"utime":      time.Now().UnixMilli(),
		})
	return res.RowsAffected > 0, res.Error
}

func (g *orderDAO) MergePaymentMeta(ctx context.Context, sn string, metaKey string, payload map[string]any) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := g.lockBySN(tx, sn)
		if err != nil {
			return err
		}
		return g.mergeMeta(tx, o, metaKey, payload, time.Now().UnixMilli())
	})
}

// lockBySN 行锁, 保证同一订单上的元数据合并与条件写入串行化
func (g *orderDAO) lockBySN(tx *gorm.DB, sn string) (Order, error) {
	var o Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("sn = ?", sn).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, fmt.Errorf("%w: sn=%s", ErrOrderNotFound, sn)
	}
	return o, err
}

func (g *orderDAO) mergeMeta(tx *gorm.DB, o Order, metaKey string, payload map[string]any, now int64) error {
	meta := o.PaymentMeta.Val
	if meta == nil {
		meta = make(map[string]map[string]any, 1)
	}
	sub := meta[metaKey]
	if sub == nil {
		sub = make(map[string]any, len(payload))
	}
	for k, v := range payload {
		sub[k] = v
	}
	meta[metaKey] = sub
	return tx.Model(&Order{}).Where("id = ?", o.Id).Updates(map[string]any{
		"payment_meta": sqlx.JsonColumn[map[string]map[string]any]{Val: meta, Valid: true},
		"utime":        now,
	}).Error
}

func (g *orderDAO) ListExpired(ctx context.Context, offset, limit int, now int64) ([]Order, error) {
	var res []Order
	err := g.db.WithContext(ctx).
		Where("status = ? AND payment_status = ? AND expires_at > 0 AND expires_at <= ?",
			uint8(orderStatusPending), uint8(paymentStatusUnpaid), now).
		Order("id ASC").Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

// 与 domain 中的取值保持一致, DAO 不反向依赖 domain
const (
	orderStatusPending  = 1
	orderStatusCanceled = 5

	paymentStatusUnpaid = 1
	paymentStatusPaid   = 2
)

type Order struct {
	Id          int64  `gorm:"primaryKey;autoIncrement;comment:订单自增ID"`
	SN          string `gorm:"type:varchar(255);not null;uniqueIndex:uniq_order_sn;comment:订单序列号"`
	BuyerId     int64  `gorm:"not null;index:idx_buyer_id;comment:购买者ID"`
	TotalAmount int64  `gorm:"not null;comment:应付总价;最小货币单位"`
	Status      uint8  `gorm:"type:tinyint unsigned;not null;default:1;comment:订单状态 1=待处理 2=已确认 3=配送中 4=已完成 5=已取消"`
	// PaymentStatus 3=EXPIRED 是保留值, 不会有写入路径
	PaymentStatus uint8                                      `gorm:"type:tinyint unsigned;not null;default:1;comment:支付状态 1=未支付 2=已支付 3=已超时"`
	PaymentMethod uint8                                      `gorm:"type:tinyint unsigned;not null;comment:支付方式 1=货到付款 2=银行转账 3=VNPay 4=MoMo"`
	PaymentMeta   sqlx.JsonColumn[map[string]map[string]any] `gorm:"type:json;comment:渠道名=>渠道会话及回调元数据"`
	ExpiresAt     int64                                      `gorm:"not null;default:0;index:idx_expires_at;comment:支付截止时间,0表示无截止"`
	PaidAt        int64                                      `gorm:"not null;default:0;comment:首次支付成功时间"`
	Ctime         int64
	Utime         int64
}

type OrderItem struct {
	Id       int64  `gorm:"primaryKey;autoIncrement;comment:订单项自增ID"`
	OrderId  int64  `gorm:"not null;index:idx_order_id;comment:订单自增ID"`
	SKUSN    string `gorm:"type:varchar(255);not null;comment:SKU序列号"`
	SKUName  string `gorm:"type:varchar(255);not null;comment:SKU名称"`
	SKUPrice int64  `gorm:"not null;comment:成交单价;最小货币单位"`
	Quantity int64  `gorm:"not null;comment:购买数量"`
	Ctime    int64
	Utime    int64
}

// OrderHistory 只追加的审计流水, 没有任何更新路径
type OrderHistory struct {
	Id        int64  `gorm:"primaryKey;autoIncrement;comment:流水自增ID"`
	OrderId   int64  `gorm:"not null;index:idx_order_id;comment:订单自增ID"`
	FromState string `gorm:"type:varchar(31);comment:变更前状态"`
	ToState   string `gorm:"type:varchar(31);not null;comment:变更后状态"`
	ActorRole string `gorm:"type:varchar(31);not null;comment:操作者角色 user/admin/provider/system"`
	ActorId   int64  `gorm:"not null;default:0;comment:操作者ID,系统及渠道为0"`
	Note      string `gorm:"type:varchar(512);comment:备注"`
	Ctime     int64
	Utime     int64
}
