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

package job

import (
	"context"
	"fmt"
	"time"

	"github.com/ecodeclub/eshop/internal/order/internal/service"
)

// CloseExpiredOrdersJob 兜底批处理: 惰性检查只在订单被读到时触发,
// 没人读的超时订单由它来关
type CloseExpiredOrdersJob struct {
	svc     service.Service
	limit   int
	timeout time.Duration
}

func NewCloseExpiredOrdersJob(svc service.Service, limit int, timeout time.Duration) *CloseExpiredOrdersJob {
	return &CloseExpiredOrdersJob{svc: svc, limit: limit, timeout: timeout}
}

func (c *CloseExpiredOrdersJob) Name() string {
	return "CloseExpiredOrdersJob"
}

func (c *CloseExpiredOrdersJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	now := time.Now().UnixMilli()
	for {
		// 每一单都走同一个条件写, 与迟到的支付成功回调竞争是安全的,
		// 所以这里不需要任何锁
		orders, err := c.svc.ListExpiredOrders(ctx, 0, c.limit, now)
		if err != nil {
			return fmt.Errorf("获取超时订单失败: %w", err)
		}
		for i := range orders {
			if _, err = c.svc.CloseExpiredOrder(ctx, orders[i]); err != nil {
				return fmt.Errorf("关闭超时订单失败: sn=%s, %w", orders[i].SN, err)
			}
		}
		if len(orders) < c.limit {
			return nil
		}
	}
}
