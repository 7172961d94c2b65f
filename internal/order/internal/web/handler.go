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
	"context"
	"errors"
	"fmt"

	"github.com/ecodeclub/ecache"
	"github.com/ecodeclub/ekit/slice"
	"github.com/ecodeclub/eshop/internal/order/internal/domain"
	"github.com/ecodeclub/eshop/internal/order/internal/service"
	"github.com/ecodeclub/eshop/internal/pkg/sequencenumber"
	"github.com/ecodeclub/eshop/internal/product"
	"github.com/ecodeclub/ginx"
	"github.com/ecodeclub/ginx/session"
	"github.com/gin-gonic/gin"
)

var _ ginx.Handler = &Handler{}

type Handler struct {
	svc         service.Service
	productSvc  product.Service
	snGenerator *sequencenumber.Generator
	cache       ecache.Cache
}

func NewHandler(svc service.Service, productSvc product.Service,
	snGenerator *sequencenumber.Generator, cache ecache.Cache) *Handler {
	return &Handler{svc: svc, productSvc: productSvc, snGenerator: snGenerator, cache: cache}
}

func (h *Handler) PrivateRoutes(server *gin.Engine) {
	g := server.Group("/order")
	g.POST("/create", ginx.BS[CreateOrderReq](h.CreateOrder))
	g.POST("/detail", ginx.BS[RetrieveOrderDetailReq](h.RetrieveOrderDetail))
	g.POST("/list", ginx.BS[ListOrdersReq](h.ListOrders))
	g.POST("/cancel", ginx.BS[CancelOrderReq](h.CancelOrder))
}

func (h *Handler) PublicRoutes(_ *gin.Engine) {}

func (h *Handler) CreateOrder(ctx *ginx.Context, req CreateOrderReq, sess session.Session) (ginx.Result, error) {
	if err := h.checkRequestID(ctx.Request.Context(), req.RequestID); err != nil {
		return systemErrorResult, fmt.Errorf("请求ID错误: %w", err)
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if method.MetaKey() == "unknown" {
		return systemErrorResult, fmt.Errorf("非法的支付方式: %d", req.PaymentMethod)
	}

	uid := sess.Claims().Uid
	items, totalAmount, err := h.toOrderItems(ctx.Request.Context(), req.SKUs)
	if err != nil {
		return systemErrorResult, fmt.Errorf("商品信息非法: %w", err)
	}

	orderSN, err := h.snGenerator.Generate(uid)
	if err != nil {
		return systemErrorResult, fmt.Errorf("生成订单序列号失败: %w", err)
	}

	order, err := h.svc.CreateOrder(ctx.Request.Context(), domain.Order{
		SN:            orderSN,
		BuyerID:       uid,
		TotalAmount:   totalAmount,
		PaymentMethod: method,
		Items:         items,
	})
	if err != nil {
		return systemErrorResult, fmt.Errorf("创建订单失败: %w", err)
	}
	return ginx.Result{
		Data: CreateOrderResp{OrderSN: order.SN},
	}, nil
}

func (h *Handler) checkRequestID(ctx context.Context, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("请求ID为空")
	}
	key := fmt.Sprintf("order:create:%s", requestID)
	val := h.cache.Get(ctx, key)
	if !val.KeyNotFound() {
		return fmt.Errorf("重复请求")
	}
	if err := h.cache.Set(ctx, key, requestID, 0); err != nil {
		return fmt.Errorf("缓存请求ID失败: %w", err)
	}
	return nil
}

func (h *Handler) toOrderItems(ctx context.Context, skus []SKU) ([]domain.OrderItem, int64, error) {
	if len(skus) == 0 {
		return nil, 0, fmt.Errorf("商品信息为空")
	}
	items := make([]domain.OrderItem, 0, len(skus))
	var totalAmount int64
	for _, s := range skus {
		spu, err := h.productSvc.FindSKUBySN(ctx, s.SN)
		if err != nil {
			return nil, 0, fmt.Errorf("商品SKU序列号非法: %w", err)
		}
		sku := spu.SKUs[0]
		if s.Quantity < 1 || s.Quantity > sku.Stock {
			return nil, 0, fmt.Errorf("要购买的商品数量非法")
		}
		items = append(items, domain.OrderItem{
			SKUSN:    sku.SN,
			SKUName:  sku.Name,
			SKUPrice: sku.Price,
			Quantity: s.Quantity,
		})
		totalAmount += sku.Price * s.Quantity
	}
	return items, totalAmount, nil
}

func (h *Handler) RetrieveOrderDetail(ctx *ginx.Context, req RetrieveOrderDetailReq, sess session.Session) (ginx.Result, error) {
	order, err := h.svc.FindOrder(ctx.Request.Context(), req.OrderSN, sess.Claims().Uid)
	if errors.Is(err, service.ErrOrderNotFound) {
		return orderNotFoundResult, err
	}
	if err != nil {
		return systemErrorResult, fmt.Errorf("获取订单详情失败: %w", err)
	}
	return ginx.Result{
		Data: RetrieveOrderDetailResp{Order: toOrderVO(order)},
	}, nil
}

func (h *Handler) ListOrders(ctx *ginx.Context, req ListOrdersReq, sess session.Session) (ginx.Result, error) {
	orders, total, err := h.svc.ListOrders(ctx.Request.Context(), req.Offset, req.Limit, sess.Claims().Uid)
	if err != nil {
		return systemErrorResult, fmt.Errorf("获取订单列表失败: %w", err)
	}
	return ginx.Result{
		Data: ListOrdersResp{
			Total: total,
			Orders: slice.Map(orders, func(idx int, src domain.Order) Order {
				return toOrderVO(src)
			}),
		},
	}, nil
}

func (h *Handler) CancelOrder(ctx *ginx.Context, req CancelOrderReq, sess session.Session) (ginx.Result, error) {
	err := h.svc.CancelOrder(ctx.Request.Context(), req.OrderSN, sess.Claims().Uid)
	switch {
	case err == nil:
		return ginx.Result{Msg: "OK"}, nil
	case errors.Is(err, service.ErrOrderNotFound):
		return orderNotFoundResult, err
	case errors.Is(err, service.ErrInvalidTransition):
		return invalidTransitionResult, err
	default:
		return systemErrorResult, fmt.Errorf("取消订单失败: %w", err)
	}
}
