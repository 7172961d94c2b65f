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

package event

const OrderPaidEventName = "order_paid_events"

// OrderPaidEvent 订单支付成功事件, 下游(履约/营销)据此触发后续动作
type OrderPaidEvent struct {
	OrderSN string `json:"orderSN"`
	BuyerID int64  `json:"buyerID"`
	Amount  int64  `json:"amount"`
	// Channel 支付方式, 取值与订单模块 PaymentMethod 一致
	Channel uint8 `json:"channel"`
}
