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

package service

import (
	"context"

	"github.com/ecodeclub/eshop/internal/product/internal/domain"
	"github.com/ecodeclub/eshop/internal/product/internal/repository"
)

var ErrProductNotFound = repository.ErrProductNotFound

//go:generate mockgen -source=./service.go -package=svcmocks -destination=./mocks/service.mock.go -typed Service
type Service interface {
	// FindSKUBySN 返回 SKU 及其所属 SPU, SKUs 里只含命中的那一个
	FindSKUBySN(ctx context.Context, sn string) (domain.SPU, error)
}

func NewService(repo repository.ProductRepository) Service {
	return &service{repo: repo}
}

type service struct {
	repo repository.ProductRepository
}

func (s *service) FindSKUBySN(ctx context.Context, sn string) (domain.SPU, error) {
	sku, err := s.repo.FindSKUBySN(ctx, sn)
	if err != nil {
		return domain.SPU{}, err
	}
	spu, err := s.repo.FindSPUByID(ctx, sku.SPUID)
	if err != nil {
		return domain.SPU{}, err
	}
	spu.SKUs = []domain.SKU{sku}
	return spu, nil
}
