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
	"net/url"
	"strings"
	"testing"

	"github.com/ecodeclub/eshop/internal/payment/internal/domain"
	"github.com/ecodeclub/eshop/internal/payment/internal/service/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider() *Provider {
	return NewProvider(Config{
		TmnCode:    "ESHOPTST",
		HashSecret: "test-hash-secret",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://eshop.example.com/pay/vnpay/return",
	})
}

func validCallbackFields(p *Provider) map[string]string {
	fields := map[string]string{
		"vnp_TmnCode":           "ESHOPTST",
		"vnp_TxnRef":            "OrderSN-vnpay-001",
		"vnp_Amount":            "45000000",
		"vnp_OrderInfo":         "Thanh toan don hang OrderSN-vnpay-001",
		"vnp_ResponseCode":      "00",
		"vnp_TransactionStatus": "00",
		"vnp_TransactionNo":     "14417392",
		"vnp_BankCode":          "NCB",
		"vnp_PayDate":           "20240601120000",
	}
	fields[secureHashField] = p.sign(canonicalize(fields))
	return fields
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()
	fields := map[string]string{
		secureHashField:     "excluded",
		secureHashTypeField: "excluded",
		"vnp_BankCode":      "",
		"vnp_TxnRef":        "sn-1",
		"vnp_OrderInfo":     "Thanh toan don hang sn-1",
	}
	// 空值和签名字段剔除, 空格转 +, 按字典序
	assert.Equal(t,
		"vnp_OrderInfo=Thanh+toan+don+hang+sn-1&vnp_TxnRef=sn-1",
		canonicalize(fields))
}

func TestProvider_ParseCallback(t *testing.T) {
	t.Parallel()
	p := newTestProvider()

	testCases := []struct {
		name     string
		fields   func() map[string]string
		wantErr  error
		wantKind domain.CallbackKind
	}{
		{
			name:     "支付成功",
			fields:   func() map[string]string { return validCallbackFields(p) },
			wantKind: domain.CallbackKindSuccess,
		},
		{
			name: "ResponseCode为00但TransactionStatus非00不算成功",
			fields: func() map[string]string {
				fields := validCallbackFields(p)
				fields["vnp_TransactionStatus"] = "02"
				fields[secureHashField] = p.sign(canonicalize(fields))
				return fields
			},
			wantKind: domain.CallbackKindOther,
		},
		{
			name: "用户取消",
			fields: func() map[string]string {
				fields := validCallbackFields(p)
				fields["vnp_ResponseCode"] = "24"
				fields["vnp_TransactionStatus"] = "02"
				fields[secureHashField] = p.sign(canonicalize(fields))
				return fields
			},
			wantKind: domain.CallbackKindCanceled,
		},
		{
			name: "签名大小写不敏感",
			fields: func() map[string]string {
				fields := validCallbackFields(p)
				fields[secureHashField] = strings.ToUpper(fields[secureHashField])
				return fields
			},
			wantKind: domain.CallbackKindSuccess,
		},
		{
			name: "篡改签名任意一个字符即拒绝",
			fields: func() map[string]string {
				fields := validCallbackFields(p)
				sig := fields[secureHashField]
				if sig[0] == 'a' {
					fields[secureHashField] = "b" + sig[1:]
				} else {
					fields[secureHashField] = "a" + sig[1:]
				}
				return fields
			},
			wantErr: provider.ErrInvalidSignature,
		},
		{
			name: "篡改金额导致验签失败",
			fields: func() map[string]string {
				fields := validCallbackFields(p)
				fields["vnp_Amount"] = "100"
				return fields
			},
			wantErr: provider.ErrInvalidSignature,
		},
		{
			name: "缺少签名",
			fields: func() map[string]string {
				fields := validCallbackFields(p)
				delete(fields, secureHashField)
				return fields
			},
			wantErr: provider.ErrMissingSignature,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cb, err := p.ParseCallback(tc.fields())
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.ChannelVNPay, cb.Channel)
			assert.Equal(t, "OrderSN-vnpay-001", cb.OrderSN)
			assert.Equal(t, "14417392", cb.TxnID)
			// 渠道按百倍申报, 不在这里换算
			assert.Equal(t, int64(45000000), cb.Amount)
			assert.Equal(t, tc.wantKind, cb.Kind)
		})
	}
}

func TestProvider_AmountScale(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(100), newTestProvider().AmountScale())
}

// 签出来的收银台地址必须能被同一套验签逻辑自验通过
func TestProvider_CreateSession(t *testing.T) {
	t.Parallel()
	p := newTestProvider()
	session, err := p.CreateSession(context.Background(), domain.SessionRequest{
		OrderSN:     "OrderSN-vnpay-001",
		Amount:      450000,
		Description: "Thanh toan don hang OrderSN-vnpay-001",
		ClientIP:    "203.0.113.7",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ChannelVNPay, session.Channel)
	assert.Equal(t, "OrderSN-vnpay-001", session.Correlation["vnpTxnRef"])

	parsed, err := url.Parse(session.PayURL)
	require.NoError(t, err)
	values, err := url.ParseQuery(parsed.RawQuery)
	require.NoError(t, err)

	fields := make(map[string]string, len(values))
	for k := range values {
		fields[k] = values.Get(k)
	}
	assert.Equal(t, version, fields["vnp_Version"])
	assert.Equal(t, "pay", fields["vnp_Command"])
	// 订单金额 450000, 渠道侧申报要乘一百
	assert.Equal(t, "45000000", fields["vnp_Amount"])

	cb, err := p.ParseCallback(fields)
	require.NoError(t, err)
	assert.Equal(t, "OrderSN-vnpay-001", cb.OrderSN)
	assert.Equal(t, domain.CallbackKindOther, cb.Kind)
}
