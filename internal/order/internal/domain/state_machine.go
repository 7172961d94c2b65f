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

import "errors"

var ErrInvalidTransition = errors.New("非法的订单状态流转")

// allowedEdges 订单履约状态的唯一流转表, 所有修改 Status 的路径都必须先过这张表
var allowedEdges = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCanceled},
	OrderStatusConfirmed: {OrderStatusShipping, OrderStatusCanceled},
	OrderStatusShipping:  {OrderStatusCompleted},
	OrderStatusCompleted: {},
	OrderStatusCanceled:  {},
}

// ValidateTransition 同状态流转永远合法, 视为无操作, 调用方不追加流水
func ValidateTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	for _, next := range allowedEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func AllowedNext(current OrderStatus) []OrderStatus {
	next := allowedEdges[current]
	res := make([]OrderStatus, len(next))
	copy(res, next)
	return res
}
