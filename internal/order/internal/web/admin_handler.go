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
	"errors"
	"fmt"

	"github.com/ecodeclub/eshop/internal/order/internal/domain"
	"github.com/ecodeclub/eshop/internal/order/internal/service"
	"github.com/ecodeclub/ginx"
	"github.com/ecodeclub/ginx/session"
	"github.com/gin-gonic/gin"
)

var _ ginx.Handler = &AdminHandler{}

type AdminHandler struct {
	svc service.Service
}

func NewAdminHandler(svc service.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) PublicRoutes(_ *gin.Engine) {}

func (h *AdminHandler) PrivateRoutes(server *gin.Engine) {
	g := server.Group("/order")
	g.POST("/detail", ginx.B[RetrieveOrderDetailReq](h.Detail))
	g.POST("/status", ginx.BS[UpdateOrderStatusReq](h.UpdateStatus))
	g.POST("/payment/confirm", ginx.BS[ConfirmPaymentReq](h.ConfirmPayment))
	g.POST("/payment/revoke", ginx.BS[ConfirmPaymentReq](h.RevokePayment))
}

func (h *AdminHandler) Detail(ctx *ginx.Context, req RetrieveOrderDetailReq) (ginx.Result, error) {
	order, err := h.svc.FindOrderBySN(ctx.Request.Context(), req.OrderSN)
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

// UpdateStatus 履约流转, 和其余所有路径一样必须过状态机
func (h *AdminHandler) UpdateStatus(ctx *ginx.Context, req UpdateOrderStatusReq, sess session.Session) (ginx.Result, error) {
	err := h.svc.Transition(ctx.Request.Context(), req.OrderSN,
		domain.OrderStatus(req.Status),
		domain.Actor{Role: domain.ActorRoleAdmin, ID: sess.Claims().Uid})
	switch {
	case err == nil:
		return ginx.Result{Msg: "OK"}, nil
	case errors.Is(err, service.ErrOrderNotFound):
		return orderNotFoundResult, err
	case errors.Is(err, service.ErrInvalidTransition):
		return invalidTransitionResult, err
	default:
		return systemErrorResult, fmt.Errorf("订单状态流转失败: %w", err)
	}
}

func (h *AdminHandler) ConfirmPayment(ctx *ginx.Context, req ConfirmPaymentReq, sess session.Session) (ginx.Result, error) {
	err := h.svc.ConfirmPaymentManually(ctx.Request.Context(), req.OrderSN, sess.Claims().Uid)
	return h.toPaymentResult(err)
}

func (h *AdminHandler) RevokePayment(ctx *ginx.Context, req ConfirmPaymentReq, sess session.Session) (ginx.Result, error) {
	err := h.svc.RevokePaymentManually(ctx.Request.Context(), req.OrderSN, sess.Claims().Uid)
	return h.toPaymentResult(err)
}

func (h *AdminHandler) toPaymentResult(err error) (ginx.Result, error) {
	switch {
	case err == nil:
		return ginx.Result{Msg: "OK"}, nil
	case errors.Is(err, service.ErrOrderNotFound):
		return orderNotFoundResult, err
	case errors.Is(err, service.ErrMethodNotAllowed):
		return methodNotAllowedResult, err
	default:
		return systemErrorResult, fmt.Errorf("人工确认收款操作失败: %w", err)
	}
}
