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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ecodeclub/ecache"
	"github.com/ecodeclub/eshop/internal/payment/internal/domain"
	"github.com/ecodeclub/eshop/internal/payment/internal/service"
	"github.com/ecodeclub/ginx"
	"github.com/ecodeclub/ginx/session"
	"github.com/gin-gonic/gin"
	"github.com/gotomicro/ego/core/elog"
)

var _ ginx.Handler = &Handler{}

type Handler struct {
	svc   service.Service
	cache ecache.Cache
	l     *elog.Component
}

func NewHandler(svc service.Service, cache ecache.Cache) *Handler {
	return &Handler{svc: svc, cache: cache, l: elog.DefaultLogger}
}

func (h *Handler) PrivateRoutes(server *gin.Engine) {
	server.POST("/pay/initiate", ginx.BS[InitiateReq](h.Initiate))
}

// PublicRoutes 渠道回调三条路径.
// 服务端回调的确认报文必须严格按渠道要求来, 所以不走 ginx.Result 包装.
func (h *Handler) PublicRoutes(server *gin.Engine) {
	g := server.Group("/pay")
	g.POST("/momo/webhook", h.MoMoWebhook)
	g.GET("/momo/return", ginx.W(h.MoMoReturn))
	g.GET("/vnpay/webhook", h.VNPayWebhook)
	g.GET("/vnpay/return", ginx.W(h.VNPayReturn))
}

func (h *Handler) Initiate(ctx *ginx.Context, req InitiateReq, sess session.Session) (ginx.Result, error) {
	if err := h.checkRequestID(ctx.Request.Context(), req.RequestID); err != nil {
		return duplicateRequestResult, err
	}
	paySession, err := h.svc.Initiate(ctx.Request.Context(), req.OrderSN,
		sess.Claims().Uid, domain.Channel(req.Channel), ctx.ClientIP())
	switch {
	case err == nil:
		return ginx.Result{Data: InitiateResp{PayURL: paySession.PayURL}}, nil
	case errors.Is(err, service.ErrOrderNotFound):
		return orderNotFoundResult, err
	case errors.Is(err, service.ErrNotPayable):
		return orderNotPayableResult, err
	case errors.Is(err, service.ErrChannelMismatch):
		return channelMismatchResult, err
	case errors.Is(err, service.ErrUnknownChannel):
		return unknownChannelResult, err
	case errors.Is(err, service.ErrProviderError):
		return providerErrorResult, err
	default:
		return systemErrorResult, fmt.Errorf("发起支付失败: %w", err)
	}
}

func (h *Handler) checkRequestID(ctx context.Context, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("请求ID为空")
	}
	key := fmt.Sprintf("payment:initiate:%s", requestID)
	val := h.cache.Get(ctx, key)
	if !val.KeyNotFound() {
		return fmt.Errorf("重复请求")
	}
	if err := h.cache.Set(ctx, key, requestID, 0); err != nil {
		return fmt.Errorf("缓存请求ID失败: %w", err)
	}
	return nil
}

// MoMoWebhook MoMo IPN, 收妥回 204, 拒绝回 400,
// 内部故障回 500 让渠道按自己的策略重试
func (h *Handler) MoMoWebhook(ctx *gin.Context) {
	fields, err := momoFields(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	_, err = h.svc.HandleCallback(ctx.Request.Context(), domain.ChannelMoMo, fields)
	switch {
	case err == nil:
		ctx.Status(http.StatusNoContent)
	case errors.Is(err, service.ErrMissingSignature),
		errors.Is(err, service.ErrInvalidSignature):
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "invalid signature"})
	case errors.Is(err, service.ErrAmountMismatch):
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "amount mismatch"})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrChannelMismatch):
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "order not found"})
	default:
		h.l.Error("处理 MoMo 回调失败", elog.FieldErr(err))
		ctx.Status(http.StatusInternalServerError)
	}
}

func (h *Handler) MoMoReturn(ctx *ginx.Context) (ginx.Result, error) {
	outcome, err := h.svc.HandleReturn(ctx.Request.Context(),
		domain.ChannelMoMo, queryFields(ctx.Request))
	return h.toReturnResult(outcome, err)
}

// VNPayWebhook VNPay IPN, 无论哪个分支都回 200 + RspCode 报文
func (h *Handler) VNPayWebhook(ctx *gin.Context) {
	outcome, err := h.svc.HandleCallback(ctx.Request.Context(),
		domain.ChannelVNPay, queryFields(ctx.Request))
	ctx.JSON(http.StatusOK, h.toVNPayAck(outcome, err))
}

func (h *Handler) toVNPayAck(outcome domain.Outcome, err error) vnpayAck {
	switch {
	case err == nil:
		if outcome == domain.OutcomeAlreadyPaid {
			return vnpayAck{RspCode: "02", Message: "Order already confirmed"}
		}
		return vnpayAck{RspCode: "00", Message: "Confirm Success"}
	case errors.Is(err, service.ErrMissingSignature),
		errors.Is(err, service.ErrInvalidSignature):
		return vnpayAck{RspCode: "97", Message: "Invalid Checksum"}
	case errors.Is(err, service.ErrAmountMismatch):
		return vnpayAck{RspCode: "04", Message: "Invalid Amount"}
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrChannelMismatch):
		return vnpayAck{RspCode: "01", Message: "Order Not Found"}
	default:
		h.l.Error("处理 VNPay 回调失败", elog.FieldErr(err))
		return vnpayAck{RspCode: "99", Message: "Unknown Error"}
	}
}

func (h *Handler) VNPayReturn(ctx *ginx.Context) (ginx.Result, error) {
	outcome, err := h.svc.HandleReturn(ctx.Request.Context(),
		domain.ChannelVNPay, queryFields(ctx.Request))
	return h.toReturnResult(outcome, err)
}

// toReturnResult 回跳页面只给用户看笼统结论, 不泄露内部错误和签名细节
func (h *Handler) toReturnResult(outcome domain.Outcome, err error) (ginx.Result, error) {
	switch {
	case err == nil:
		switch outcome {
		case domain.OutcomeApplied, domain.OutcomeAlreadyPaid:
			return ginx.Result{Msg: "支付成功"}, nil
		case domain.OutcomeCanceled:
			return paymentCanceledResult, nil
		default:
			return ginx.Result{Msg: "支付结果确认中"}, nil
		}
	case errors.Is(err, service.ErrMissingSignature),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrChannelMismatch):
		return paymentCanceledResult, err
	default:
		return systemErrorResult, fmt.Errorf("处理支付回跳失败: %w", err)
	}
}

// momoFields 把 JSON 回调体拍平成字符串字段, 数字保持原始字面量以免破坏验签
func momoFields(ctx *gin.Context) (map[string]string, error) {
	decoder := json.NewDecoder(ctx.Request.Body)
	decoder.UseNumber()
	var body map[string]any
	if err := decoder.Decode(&body); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(body))
	for k, v := range body {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		default:
			fields[k] = fmt.Sprint(val)
		}
	}
	return fields, nil
}

func queryFields(req *http.Request) map[string]string {
	values := req.URL.Query()
	fields := make(map[string]string, len(values))
	for k := range values {
		fields[k] = values.Get(k)
	}
	return fields
}
