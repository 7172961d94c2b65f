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

// Channel 支付渠道, 取值与订单模块的支付方式保持一致
type Channel uint8

const (
	ChannelVNPay Channel = 3
	ChannelMoMo  Channel = 4
)

func (c Channel) ToUint8() uint8 {
	return uint8(c)
}

func (c Channel) String() string {
	switch c {
	case ChannelVNPay:
		return "vnpay"
	case ChannelMoMo:
		return "momo"
	default:
		return "unknown"
	}
}

// CallbackKind 回调分类, 渠道侧五花八门的结果码统一归到这三类
type CallbackKind uint8

const (
	// CallbackKindSuccess 支付成功
	CallbackKindSuccess CallbackKind = iota + 1
	// CallbackKindCanceled 用户主动取消/中止支付
	CallbackKindCanceled
	// CallbackKindOther 其余状态码, 只留痕不改单
	CallbackKindOther
)

// Callback 验签通过后的回调数据, 验签不过不会产出这个结构体
type Callback struct {
	Channel Channel
	// OrderSN 渠道回调里携带的订单关联号
	OrderSN string
	// TxnID 渠道侧交易号
	TxnID string
	// Amount 渠道申报的金额, 未做单位换算, 对账时乘 AmountScale 比较
	Amount int64
	Kind   CallbackKind
	// Raw 原始回调字段, 合并进订单 paymentMeta 留作审计
	Raw map[string]any
}

// SessionRequest 发起支付会话的入参
type SessionRequest struct {
	OrderSN     string
	Amount      int64
	Description string
	ClientIP    string
}

// Session 渠道侧创建好的支付会话
type Session struct {
	Channel Channel
	// PayURL 引导用户跳转的收银台地址
	PayURL string
	// Correlation 渠道关联信息, 写入订单 paymentMeta.<channel>
	Correlation map[string]any
}

// Outcome 对账结果, 用于决定给渠道回什么确认
type Outcome uint8

const (
	// OutcomeApplied 本次回调把订单标成了 PAID
	OutcomeApplied Outcome = iota + 1
	// OutcomeAlreadyPaid 订单早已 PAID, 本次只合并了留痕
	OutcomeAlreadyPaid
	// OutcomeCanceled 本次回调把订单取消了
	OutcomeCanceled
	// OutcomeIgnored 未产生状态变更
	OutcomeIgnored
)
