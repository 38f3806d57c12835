package model

import "time"

type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomeDeclined  PaymentOutcome = "declined"
)

func (o PaymentOutcome) Valid() bool {
	return o == PaymentOutcomeSucceeded || o == PaymentOutcomeDeclined
}

// 決済コールバックの処理済み記録（event_id で重複排除）
type PaymentEvent struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID     string         `gorm:"type:varchar(100);not null;uniqueIndex" json:"event_id"`
	OrderID     int64          `gorm:"not null;index" json:"order_id"`
	Reference   string         `gorm:"type:varchar(100);not null" json:"reference"`
	Outcome     PaymentOutcome `gorm:"type:varchar(20);not null" json:"outcome"`
	ProcessedAt time.Time      `gorm:"not null" json:"processed_at"`
}
