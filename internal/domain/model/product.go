package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                string          `gorm:"type:varchar(200);not null" json:"name"`
	Slug                string          `gorm:"type:varchar(220);not null;uniqueIndex" json:"slug"`
	CategoryID          *int64          `gorm:"index" json:"category_id"`
	Category            *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Price               decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	ShortDescription    string          `gorm:"type:varchar(300)" json:"short_description"`
	Description         string          `gorm:"type:text" json:"description"`
	ImageKey            string          `gorm:"type:varchar(255)" json:"image_key"`
	DigitalFileKey      string          `gorm:"type:varchar(255)" json:"-"`
	ExternalDownloadURL string          `gorm:"type:varchar(500)" json:"-"`
	Featured            bool            `gorm:"not null;default:false;index" json:"featured"`
	IsActive            bool            `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ファイルか外部URLのどちらかがあればダウンロード可能
func (p Product) IsDigital() bool {
	return strings.TrimSpace(p.DigitalFileKey) != "" || strings.TrimSpace(p.ExternalDownloadURL) != ""
}

func (p Product) IsFree() bool {
	return p.Price.IsZero()
}
