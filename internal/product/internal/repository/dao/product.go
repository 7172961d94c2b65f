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

package dao

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ego-component/egorm"
	"gorm.io/gorm"
)

var ErrProductNotFound = errors.New("商品不存在")

// 与 domain.StatusOnShelf 对应
const statusOnShelf uint8 = 2

type ProductDAO interface {
	FindSPUByID(ctx context.Context, id int64) (SPU, error)
	FindSKUBySN(ctx context.Context, sn string) (SKU, error)
}

type productDAO struct {
	db *egorm.Component
}

func NewProductGORMDAO(db *egorm.Component) ProductDAO {
	return &productDAO{db: db}
}

func (g *productDAO) FindSPUByID(ctx context.Context, id int64) (SPU, error) {
	var spu SPU
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&spu).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SPU{}, ErrProductNotFound
	}
	return spu, err
}

func (g *productDAO) FindSKUBySN(ctx context.Context, sn string) (SKU, error) {
	var sku SKU
	err := g.db.WithContext(ctx).
		Where("sn = ? AND status = ?", sn, statusOnShelf).
		First(&sku).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SKU{}, ErrProductNotFound
	}
	return sku, err
}

func InitTables(db *egorm.Component) error {
	return db.AutoMigrate(&SPU{}, &SKU{})
}

type SPU struct {
	Id          int64  `gorm:"primaryKey,autoIncrement"`
	SN          string `gorm:"column:sn;type:varchar(255);not null;uniqueIndex:uniq_product_spu_sn"`
	Name        string `gorm:"type:varchar(255);not null"`
	Description string `gorm:"not null"`
	Status      uint8  `gorm:"type:tinyint unsigned;not null;default:1"`
	Ctime       int64
	Utime       int64
}

func (SPU) TableName() string {
	return "spus"
}

type SKU struct {
	Id          int64  `gorm:"primaryKey,autoIncrement"`
	SPUID       int64  `gorm:"column:spu_id;not null;index:idx_spu_id"`
	SN          string `gorm:"column:sn;type:varchar(255);not null;uniqueIndex:uniq_product_sku_sn"`
	Name        string `gorm:"type:varchar(255);not null"`
	Description string `gorm:"not null"`
	Price       int64  `gorm:"not null"`
	Stock       int64  `gorm:"not null"`
	StockLimit  int64  `gorm:"not null;default:0"`
	Attrs       sql.NullString
	Image       string `gorm:"type:varchar(512)"`
	Status      uint8  `gorm:"type:tinyint unsigned;not null;default:1"`
	Ctime       int64
	Utime       int64
}

func (SKU) TableName() string {
	return "skus"
}
