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

package aliyun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dm20151123 "github.com/alibabacloud-go/dm-20151123/v2/client"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	credential "github.com/aliyun/credentials-go/credentials"

	"github.com/ecodeclub/eshop/internal/email"
)

// DirectMailService 阿里云邮件推送客户端, 承载订单支付成功通知
type DirectMailService struct {
	client      *dm20151123.Client
	accountName string
}

// NewDirectMailService
// accountName 是发信地址, 例如 noreply@mailer.eshop.example.com
func NewDirectMailService(accessKeyID, accessKeySecret, accountName string) (*DirectMailService, error) {
	cred, err := credential.NewCredential(&credential.Config{
		Type:            tea.String("access_key"),
		AccessKeyId:     tea.String(accessKeyID),
		AccessKeySecret: tea.String(accessKeySecret),
	})
	if err != nil {
		return nil, fmt.Errorf("创建阿里云凭据失败: %w", err)
	}
	client, err := dm20151123.NewClient(&openapi.Config{
		Credential: cred,
		Endpoint:   tea.String("dm.aliyuncs.com"),
	})
	if err != nil {
		return nil, fmt.Errorf("创建邮件推送客户端失败: %w", err)
	}
	return &DirectMailService{
		client:      client,
		accountName: accountName,
	}, nil
}

var _ email.Service = (*DirectMailService)(nil)

func (s *DirectMailService) SendMail(_ context.Context, mail email.Mail) error {
	request := &dm20151123.SingleSendMailAdvanceRequest{
		AccountName:    tea.String(s.accountName),
		FromAlias:      tea.String(mail.From),
		AddressType:    tea.Int32(1),
		ToAddress:      tea.String(mail.To),
		Subject:        tea.String(mail.Subject),
		HtmlBody:       tea.String(string(mail.Body)),
		ReplyToAddress: tea.Bool(false),
	}
	_, err := s.client.SingleSendMailAdvance(request, &util.RuntimeOptions{})
	if err != nil {
		return s.handleError(err)
	}
	return nil
}

func (s *DirectMailService) handleError(err error) error {
	var sdkError *tea.SDKError
	if errors.As(err, &sdkError) {
		var errorData any
		if sdkError.Data != nil {
			decoder := json.NewDecoder(strings.NewReader(tea.StringValue(sdkError.Data)))
			_ = decoder.Decode(&errorData)
		}
		errorMsg := fmt.Sprintf("阿里云邮件推送API错误: %s", tea.StringValue(sdkError.Message))
		if dataMap, ok := errorData.(map[string]any); ok {
			if recommend, exists := dataMap["Recommend"]; exists {
				errorMsg += fmt.Sprintf(" | 建议: %v", recommend)
			}
			if requestID, exists := dataMap["RequestId"]; exists {
				errorMsg += fmt.Sprintf(" | RequestId: %v", requestID)
			}
		}
		return errors.New(errorMsg)
	}
	return fmt.Errorf("邮件发送失败: %w", err)
}
