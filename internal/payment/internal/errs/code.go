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

package errs

type ErrorCode struct {
	Code int
	Msg  string
}

var (
	SystemError      = ErrorCode{Code: 504001, Msg: "系统错误"}
	OrderNotFound    = ErrorCode{Code: 504002, Msg: "订单未找到"}
	OrderNotPayable  = ErrorCode{Code: 504003, Msg: "订单当前不可支付"}
	ChannelMismatch  = ErrorCode{Code: 504004, Msg: "支付渠道与订单不匹配"}
	UnknownChannel   = ErrorCode{Code: 504005, Msg: "未知的支付渠道"}
	ProviderError    = ErrorCode{Code: 504006, Msg: "支付渠道暂不可用"}
	PaymentCanceled  = ErrorCode{Code: 504007, Msg: "支付未完成"}
	DuplicateRequest = ErrorCode{Code: 504008, Msg: "请勿重复提交"}
)
