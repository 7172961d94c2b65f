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

package payment

import (
	"time"

	"github.com/ecodeclub/eshop/internal/order"
	"github.com/ecodeclub/eshop/internal/payment/internal/domain"
	"github.com/ecodeclub/eshop/internal/payment/internal/service"
	"github.com/ecodeclub/eshop/internal/payment/internal/service/provider"
	"github.com/ecodeclub/eshop/internal/payment/internal/service/provider/momo"
	"github.com/ecodeclub/eshop/internal/payment/internal/service/provider/vnpay"
	"github.com/ecodeclub/eshop/internal/payment/internal/web"
)

type (
	Handler = web.Handler
	Service = service.Service
	Channel = domain.Channel
	Outcome = domain.Outcome
	Session = domain.Session
)

const (
	ChannelVNPay = domain.ChannelVNPay
	ChannelMoMo  = domain.ChannelMoMo
)

type Module struct {
	Svc Service
	Hdl *Handler
}

type MoMoConfig struct {
	PartnerCode string `yaml:"partnerCode"`
	AccessKey   string `yaml:"accessKey"`
	SecretKey   string `yaml:"secretKey"`
	Endpoint    string `yaml:"endpoint"`
	RedirectURL string `yaml:"redirectURL"`
	IPNURL      string `yaml:"ipnURL"`
}

type VNPayConfig struct {
	TmnCode    string `yaml:"tmnCode"`
	HashSecret string `yaml:"hashSecret"`
	PayURL     string `yaml:"payURL"`
	ReturnURL  string `yaml:"returnURL"`
}

type Config struct {
	MoMo  MoMoConfig  `yaml:"momo"`
	VNPay VNPayConfig `yaml:"vnpay"`
	// PayWindowMinutes 发起支付时给未设截止时间的订单补写的支付窗口
	PayWindowMinutes int `yaml:"payWindowMinutes"`
}

func initService(orderSvc order.Service, cfg Config) (service.Service, error) {
	momoProvider, err := momo.NewProvider(momo.Config{
		PartnerCode: cfg.MoMo.PartnerCode,
		AccessKey:   cfg.MoMo.AccessKey,
		SecretKey:   cfg.MoMo.SecretKey,
		Endpoint:    cfg.MoMo.Endpoint,
		RedirectURL: cfg.MoMo.RedirectURL,
		IPNURL:      cfg.MoMo.IPNURL,
	})
	if err != nil {
		return nil, err
	}
	vnpayProvider := vnpay.NewProvider(vnpay.Config{
		TmnCode:    cfg.VNPay.TmnCode,
		HashSecret: cfg.VNPay.HashSecret,
		PayURL:     cfg.VNPay.PayURL,
		ReturnURL:  cfg.VNPay.ReturnURL,
	})
	window := time.Duration(cfg.PayWindowMinutes) * time.Minute
	if window <= 0 {
		window = 30 * time.Minute
	}
	return service.NewService(orderSvc,
		[]provider.Provider{momoProvider, vnpayProvider}, window), nil
}
