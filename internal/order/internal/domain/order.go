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

package domain

type OrderStatus uint8

func (s OrderStatus) ToUint8() uint8 {
	return uint8(s)
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "PENDING"
	case OrderStatusConfirmed:
		return "CONFIRMED"
	case OrderStatusShipping:
		return "SHIPPING"
	case OrderStatusCompleted:
		return "COMPLETED"
	case OrderStatusCanceled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

const (
	OrderStatusPending   OrderStatus = 1
	OrderStatusConfirmed OrderStatus = 2
	OrderStatusShipping  OrderStatus = 3
	OrderStatusCompleted OrderStatus = 4
	OrderStatusCanceled  OrderStatus = 5
)

type PaymentStatus uint8

func (s PaymentStatus) ToUint8() uint8 {
	return uint8(s)
}

func (s PaymentStatus) String() string {
	switch s {
	case PaymentStatusUnpaid:
		return "UNPAID"
	case PaymentStatusPaid:
		return "PAID"
	case PaymentStatusExpired:
		return "EXPIRED"
	}
	return "UNKNOWN"
}

const (
	PaymentStatusUnpaid PaymentStatus = 1
	PaymentStatusPaid   PaymentStatus = 2
	// PaymentStatusExpired 保留值。超时订单统一走 CANCELLED + UNPAID,
	// 任何写入路径都不会写这个值
	PaymentStatusExpired PaymentStatus = 3
)

type PaymentMethod uint8

func (m PaymentMethod) ToUint8() uint8 {
	return uint8(m)
}

// MetaKey 每个渠道在 PaymentMeta 里的独立子键, 渠道之间互不覆盖
func (m PaymentMethod) MetaKey() string {
	switch m {
	case PaymentMethodCOD:
		return "cod"
	case PaymentMethodBanking:
		return "banking"
	case PaymentMethodVNPay:
		return "vnpay"
	case PaymentMethodMoMo:
		return "momo"
	}
	return "unknown"
}

const (
	PaymentMethodCOD     PaymentMethod = 1
	PaymentMethodBanking PaymentMethod = 2
	PaymentMethodVNPay   PaymentMethod = 3
	PaymentMethodMoMo    PaymentMethod = 4
)

const (
	ActorRoleUser     = "user"
	ActorRoleAdmin    = "admin"
	ActorRoleProvider = "provider"
	ActorRoleSystem   = "system"
)

type Order struct {
	ID      int64
	SN      string
	BuyerID int64
	// TotalAmount 应付总价, 最小货币单位
	TotalAmount   int64
	Status        OrderStatus
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod
	// PaymentMeta 渠道名 => 渠道回调/会话元数据, 只增量合并
	PaymentMeta map[string]map[string]any
	// ExpiresAt 支付截止时间, 0 表示没有截止时间
	ExpiresAt int64
	// PaidAt 首次支付成功时间, 只会被设置一次
	PaidAt    int64
	Items     []OrderItem
	Histories []History
	Ctime     int64
	Utime     int64
}

// PaymentWindowClosed 支付窗口是否已过, 只对待处理且未支付的订单有意义
func (o Order) PaymentWindowClosed(now int64) bool {
	return o.Status == OrderStatusPending &&
		o.PaymentStatus == PaymentStatusUnpaid &&
		o.ExpiresAt > 0 && now >= o.ExpiresAt
}

type OrderItem struct {
	OrderID  int64
	SKUSN    string
	SKUName  string
	SKUPrice int64
	Quantity int64
}

type Actor struct {
	Role string
	ID   int64
}

// History 审计流水, 每次状态变更追加一条, 追加后不可变
type History struct {
	From  string
	To    string
	Actor Actor
	Note  string
	Ctime int64
}
