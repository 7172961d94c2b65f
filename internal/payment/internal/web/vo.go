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

type InitiateReq struct {
	// RequestID 客户端幂等号, 防止重复发起
	RequestID string `json:"requestId"`
	OrderSN   string `json:"sn"`
	Channel   uint8  `json:"channel"`
}

type InitiateResp struct {
	PayURL string `json:"payUrl"`
}

// vnpayAck VNPay IPN 要求的确认报文
type vnpayAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}
