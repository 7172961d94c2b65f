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

package web

import (
	"github.com/ecodeclub/ekit/slice"
	"github.com/ecodeclub/eshop/internal/order/internal/domain"
)

// CreateOrderReq 创建订单请求
type CreateOrderReq struct {
	RequestID string `json:"requestID"` // 请求去重, 防止订单重复提交
	SKUs      []SKU  `json:"skus"`
	// PaymentMethod 1=货到付款 2=银行转账 3=VNPay 4=MoMo, 创建后不可变
	PaymentMethod uint8 `json:"paymentMethod"`
}

type SKU struct {
	SN       string `json:"sn"`
	Name     string `json:"name,omitempty"`
	Price    int64  `json:"price,omitempty"`
	Quantity int64  `json:"quantity"`
}

type CreateOrderResp struct {
	OrderSN string `json:"orderSN"`
}

// RetrieveOrderDetailReq 获取订单详情, 读路径会触发惰性超时检查
type RetrieveOrderDetailReq struct {
	OrderSN string `json:"sn"`
}

type RetrieveOrderDetailResp struct {
	Order Order `json:"order"`
}

type ListOrdersReq struct {
	Offset int `json:"offset,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

type ListOrdersResp struct {
	Total  int64   `json:"total,omitempty"`
	Orders []Order `json:"orders,omitempty"`
}

type CancelOrderReq struct {
	OrderSN string `json:"sn"`
}

// UpdateOrderStatusReq 管理端履约流转
type UpdateOrderStatusReq struct {
	OrderSN string `json:"sn"`
	Status  uint8  `json:"status"`
}

// ConfirmPaymentReq 管理端人工确认/撤销收款, 仅限货到付款与银行转账
type ConfirmPaymentReq struct {
	OrderSN string `json:"sn"`
}

type Order struct {
	SN            string      `json:"sn"`
	TotalAmount   int64       `json:"totalAmount"`
	Status        uint8       `json:"status"`
	PaymentStatus uint8       `json:"paymentStatus"`
	PaymentMethod uint8       `json:"paymentMethod"`
	ExpiresAt     int64       `json:"expiresAt,omitempty"`
	PaidAt        int64       `json:"paidAt,omitempty"`
	Items         []SKU       `json:"items,omitempty"`
	Histories     []History   `json:"histories,omitempty"`
	Ctime         int64       `json:"ctime"`
	Utime         int64       `json:"utime"`
}

type History struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to"`
	Role  string `json:"role"`
	Note  string `json:"note,omitempty"`
	Ctime int64  `json:"ctime"`
}

func toOrderVO(src domain.Order) Order {
	return Order{
		SN:            src.SN,
		TotalAmount:   src.TotalAmount,
		Status:        src.Status.ToUint8(),
		PaymentStatus: src.PaymentStatus.ToUint8(),
		PaymentMethod: src.PaymentMethod.ToUint8(),
		ExpiresAt:     src.ExpiresAt,
		PaidAt:        src.PaidAt,
		Items: slice.Map(src.Items, func(idx int, it domain.OrderItem) SKU {
			return SKU{
				SN:       it.SKUSN,
				Name:     it.SKUName,
				Price:    it.SKUPrice,
				Quantity: it.Quantity,
			}
		}),
		Histories: slice.Map(src.Histories, func(idx int, h domain.History) History {
			return History{
				From:  h.From,
				To:    h.To,
				Role:  h.Actor.Role,
				Note:  h.Note,
				Ctime: h.Ctime,
			}
		}),
		Ctime: src.Ctime,
		Utime: src.Utime,
	}
}
