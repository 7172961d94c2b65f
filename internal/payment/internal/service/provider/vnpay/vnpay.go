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

package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ecodeclub/eshop/internal/payment/internal/domain"
	"github.com/ecodeclub/eshop/internal/payment/internal/service/provider"
	"github.com/gotomicro/ego/core/elog"
)

const (
	version = "2.1.0"

	secureHashField     = "vnp_SecureHash"
	secureHashTypeField = "vnp_SecureHashType"

	// VNPay 只认成功码 00, 24 是用户在收银台放弃支付
	responseCodeSuccess = "00"
	responseCodeCancel  = "24"

	createDateLayout = "20060102150405"
)

// VNPay 网关按 GMT+7 解释时间戳
var gatewayZone = time.FixedZone("ICT", 7*60*60)

type Config struct {
	TmnCode    string
	HashSecret string
	// PayURL 形如 https://sandbox.vnpayment.vn/paymentv2/vpcpay.html
	PayURL    string
	ReturnURL string
}

var _ provider.Provider = (*Provider)(nil)

type Provider struct {
	cfg Config
	l   *elog.Component
}

func NewProvider(cfg Config) *Provider {
	return &Provider{cfg: cfg, l: elog.DefaultLogger}
}

func (p *Provider) Channel() domain.Channel {
	return domain.ChannelVNPay
}

// AmountScale VNPay 的申报金额是订单金额的一百倍
func (p *Provider) AmountScale() int64 {
	return 100
}

// CreateSession VNPay 不需要服务端预下单, 直接签出收银台跳转地址
func (p *Provider) CreateSession(_ context.Context, req domain.SessionRequest) (domain.Session, error) {
	now := time.Now().In(gatewayZone)
	params := map[string]string{
		"vnp_Version":    version,
		"vnp_Command":    "pay",
		"vnp_TmnCode":    p.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(req.Amount*p.AmountScale(), 10),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     req.OrderSN,
		"vnp_OrderInfo":  req.Description,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  p.cfg.ReturnURL,
		"vnp_IpAddr":     req.ClientIP,
		"vnp_CreateDate": now.Format(createDateLayout),
		"vnp_ExpireDate": now.Add(30 * time.Minute).Format(createDateLayout),
	}
	query := canonicalize(params)
	payURL := fmt.Sprintf("%s?%s&%s=%s", p.cfg.PayURL, query, secureHashField, p.sign(query))
	return domain.Session{
		Channel: domain.ChannelVNPay,
		PayURL:  payURL,
		Correlation: map[string]any{
			"vnpTxnRef":  req.OrderSN,
			"payUrl":     payURL,
			"createDate": params["vnp_CreateDate"],
			"createdAt":  time.Now().UnixMilli(),
		},
	}, nil
}

// ParseCallback 验签并归类回调, IPN 和浏览器回跳共用一套字段
func (p *Provider) ParseCallback(fields map[string]string) (domain.Callback, error) {
	provided, ok := fields[secureHashField]
	if !ok || provided == "" {
		return domain.Callback{}, provider.ErrMissingSignature
	}
	expected := p.sign(canonicalize(fields))
	if !hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected)) {
		p.l.Warn("VNPay 回调验签失败",
			elog.String("txnRef", fields["vnp_TxnRef"]),
			elog.String("transactionNo", fields["vnp_TransactionNo"]))
		return domain.Callback{}, provider.ErrInvalidSignature
	}
	amount, err := strconv.ParseInt(fields["vnp_Amount"], 10, 64)
	if err != nil {
		return domain.Callback{}, fmt.Errorf("vnpay 回调金额非法: %q", fields["vnp_Amount"])
	}
	return domain.Callback{
		Channel: domain.ChannelVNPay,
		OrderSN: fields["vnp_TxnRef"],
		TxnID:   fields["vnp_TransactionNo"],
		Amount:  amount,
		Kind:    classify(fields["vnp_ResponseCode"], fields["vnp_TransactionStatus"]),
		Raw:     rawPayload(fields),
	}, nil
}

func classify(responseCode, transactionStatus string) domain.CallbackKind {
	if responseCode == responseCodeSuccess && transactionStatus == responseCodeSuccess {
		return domain.CallbackKindSuccess
	}
	if responseCode == responseCodeCancel {
		return domain.CallbackKindCanceled
	}
	return domain.CallbackKindOther
}

func (p *Provider) sign(canonical string) string {
	mac := hmac.New(sha512.New, []byte(p.cfg.HashSecret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// canonicalize 按字典序拼 key=value, 值走 URL 转义(空格转 +),
// 跳过签名字段和空值字段
func canonicalize(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if k == secureHashField || k == secureHashTypeField || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+url.QueryEscape(fields[k]))
	}
	return strings.Join(pairs, "&")
}

func rawPayload(fields map[string]string) map[string]any {
	payload := make(map[string]any, len(fields))
	for k, v := range fields {
		payload[k] = v
	}
	return payload
}
