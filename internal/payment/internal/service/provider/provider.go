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

package provider

import (
	"context"
	"errors"

	"github.com/ecodeclub/eshop/internal/payment/internal/domain"
)

var (
	// ErrMissingSignature 回调里没有签名字段, 浏览器回跳路径常见
	ErrMissingSignature = errors.New("回调缺少签名")
	// ErrInvalidSignature 验签失败, 安全相关事件, 调用方必须整体拒绝
	ErrInvalidSignature = errors.New("回调签名非法")
)

// Provider 支付渠道的策略接口.
// 每个渠道自带一套规范化+签名方案, 发起支付时用它签名出站请求,
// 收到回调时用它验签并把渠道结果码归类成统一的 CallbackKind.
//
//go:generate mockgen -source=./provider.go -package=providermocks -destination=./mocks/provider.mock.go -typed Provider
type Provider interface {
	Channel() domain.Channel
	// AmountScale 渠道申报金额相对订单金额的倍数
	AmountScale() int64
	// CreateSession 调用渠道创建支付会话, 非幂等, 每次调用可能在渠道侧
	// 新开一笔交易
	CreateSession(ctx context.Context, req domain.SessionRequest) (domain.Session, error)
	// ParseCallback 先验签后解析, 验签失败时不返回任何可信字段
	ParseCallback(fields map[string]string) (domain.Callback, error)
}
