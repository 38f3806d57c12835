package model

import "time"

type RecentlyViewed struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:ux_recently_viewed,priority:1" json:"user_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:ux_recently_viewed,priority:2" json:"product_id"`
	ViewedAt  time.Time `gorm:"not null;index" json:"viewed_at"`
}

func (RecentlyViewed) TableName() string { return "recently_viewed" }
