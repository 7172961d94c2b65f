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

var (
	SystemError       = ErrorCode{Code: 503001, Msg: "系统错误"}
	OrderNotFound     = ErrorCode{Code: 503002, Msg: "订单不存在"}
	PermissionDenied  = ErrorCode{Code: 503003, Msg: "无权限操作该订单"}
	InvalidTransition = ErrorCode{Code: 503004, Msg: "订单状态不允许该操作"}
	MethodNotAllowed  = ErrorCode{Code: 503005, Msg: "该支付方式不支持人工确认"}
)

type ErrorCode struct {
	Code int
	Msg  string
}
