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

package momo

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ecodeclub/eshop/internal/payment/internal/domain"
	"github.com/ecodeclub/eshop/internal/payment/internal/service/provider"
	"github.com/gotomicro/ego/core/elog"
)

const (
	createPath  = "/v2/gateway/api/create"
	requestType = "captureWallet"

	signatureField = "signature"
)

// 用户在 MoMo 收银台主动放弃支付的结果码
var cancelResultCodes = map[string]struct{}{
	"1003": {},
	"1005": {},
	"1006": {},
}

// 部分网关版本不回固定结果码, 只能靠 message 文案兜底识别取消
var cancelMessagePattern = regexp.MustCompile(`(?i)cancel`)

type Config struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	// Endpoint 形如 https://test-payment.momo.vn
	Endpoint    string
	RedirectURL string
	IPNURL      string
}

var _ provider.Provider = (*Provider)(nil)

type Provider struct {
	cfg    Config
	client *http.Client
	node   *snowflake.Node
	l      *elog.Component
}

func NewProvider(cfg Config) (*Provider, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		node:   node,
		l:      elog.DefaultLogger,
	}, nil
}

func (p *Provider) Channel() domain.Channel {
	return domain.ChannelMoMo
}

// AmountScale MoMo 直接按最小货币单位申报金额
func (p *Provider) AmountScale() int64 {
	return 1
}

type createRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IpnURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type createResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
	Deeplink   string `json:"deeplink"`
	QRCodeURL  string `json:"qrCodeUrl"`
	RequestID  string `json:"requestId"`
}

func (p *Provider) CreateSession(ctx context.Context, req domain.SessionRequest) (domain.Session, error) {
	requestID := p.node.Generate().String()
	// 下单请求的签名串字段固定, 恰好就是这些字段按字典序的规范化结果
	sign := p.sign(map[string]string{
		"accessKey":   p.cfg.AccessKey,
		"amount":      strconv.FormatInt(req.Amount, 10),
		"extraData":   "",
		"ipnUrl":      p.cfg.IPNURL,
		"orderId":     req.OrderSN,
		"orderInfo":   req.Description,
		"partnerCode": p.cfg.PartnerCode,
		"redirectUrl": p.cfg.RedirectURL,
		"requestId":   requestID,
		"requestType": requestType,
	})
	body, err := json.Marshal(createRequest{
		PartnerCode: p.cfg.PartnerCode,
		RequestID:   requestID,
		Amount:      req.Amount,
		OrderID:     req.OrderSN,
		OrderInfo:   req.Description,
		RedirectURL: p.cfg.RedirectURL,
		IpnURL:      p.cfg.IPNURL,
		RequestType: requestType,
		ExtraData:   "",
		Lang:        "vi",
		Signature:   sign,
	})
	if err != nil {
		return domain.Session{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.Endpoint+createPath, bytes.NewReader(body))
	if err != nil {
		return domain.Session{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return domain.Session{}, fmt.Errorf("momo 下单请求失败: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()
	var resp createResponse
	if err = json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return domain.Session{}, fmt.Errorf("momo 下单响应解析失败: %w", err)
	}
	if resp.ResultCode != 0 {
		return domain.Session{}, fmt.Errorf("momo 下单被拒绝: resultCode=%d, message=%s",
			resp.ResultCode, resp.Message)
	}
	return domain.Session{
		Channel: domain.ChannelMoMo,
		PayURL:  resp.PayURL,
		Correlation: map[string]any{
			"momoOrderId": req.OrderSN,
			"requestId":   requestID,
			"payUrl":      resp.PayURL,
			"createdAt":   time.Now().UnixMilli(),
		},
	}, nil
}

// ParseCallback 验签并归类 IPN 回调.
// 规范串是除 signature 外全部字段按字典序的 key=value 用 & 连接, 值不做转义.
func (p *Provider) ParseCallback(fields map[string]string) (domain.Callback, error) {
	provided, ok := fields[signatureField]
	if !ok || provided == "" {
		return domain.Callback{}, provider.ErrMissingSignature
	}
	expected := p.sign(fields)
	// 十六进制摘要大小写不敏感
	if !hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected)) {
		p.l.Warn("MoMo 回调验签失败",
			elog.String("orderId", fields["orderId"]),
			elog.String("transId", fields["transId"]))
		return domain.Callback{}, provider.ErrInvalidSignature
	}
	amount, err := strconv.ParseInt(fields["amount"], 10, 64)
	if err != nil {
		return domain.Callback{}, fmt.Errorf("momo 回调金额非法: %q", fields["amount"])
	}
	return domain.Callback{
		Channel: domain.ChannelMoMo,
		OrderSN: fields["orderId"],
		TxnID:   fields["transId"],
		Amount:  amount,
		Kind:    p.classify(fields["resultCode"], fields["message"]),
		Raw:     rawPayload(fields),
	}, nil
}

func (p *Provider) classify(resultCode, message string) domain.CallbackKind {
	if resultCode == "0" {
		return domain.CallbackKindSuccess
	}
	if _, ok := cancelResultCodes[resultCode]; ok {
		return domain.CallbackKindCanceled
	}
	if cancelMessagePattern.MatchString(message) {
		return domain.CallbackKindCanceled
	}
	return domain.CallbackKindOther
}

func (p *Provider) sign(fields map[string]string) string {
	mac := hmac.New(sha256.New, []byte(p.cfg.SecretKey))
	mac.Write([]byte(canonicalize(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

func canonicalize(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == signatureField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
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
