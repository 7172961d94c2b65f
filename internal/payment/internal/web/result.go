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
	"github.com/ecodeclub/eshop/internal/payment/internal/errs"
	"github.com/ecodeclub/ginx"
)

var (
	systemErrorResult = ginx.Result{
		Code: errs.SystemError.Code,
		Msg:  errs.SystemError.Msg,
	}
	orderNotFoundResult = ginx.Result{
		Code: errs.OrderNotFound.Code,
		Msg:  errs.OrderNotFound.Msg,
	}
	orderNotPayableResult = ginx.Result{
		Code: errs.OrderNotPayable.Code,
		Msg:  errs.OrderNotPayable.Msg,
	}
	channelMismatchResult = ginx.Result{
		Code: errs.ChannelMismatch.Code,
		Msg:  errs.ChannelMismatch.Msg,
	}
	unknownChannelResult = ginx.Result{
		Code: errs.UnknownChannel.Code,
		Msg:  errs.UnknownChannel.Msg,
	}
	providerErrorResult = ginx.Result{
		Code: errs.ProviderError.Code,
		Msg:  errs.ProviderError.Msg,
	}
	paymentCanceledResult = ginx.Result{
		Code: errs.PaymentCanceled.Code,
		Msg:  errs.PaymentCanceled.Msg,
	}
	duplicateRequestResult = ginx.Result{
		Code: errs.DuplicateRequest.Code,
		Msg:  errs.DuplicateRequest.Msg,
	}
)
