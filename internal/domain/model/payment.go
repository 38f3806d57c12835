package model

import "github.com/shopspring/decimal"

// 決済開始時にゲートウェイへ渡す内容
type PaymentRequest struct {
	OrderID     int64
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// ゲートウェイが返す支払い情報
type PaymentIntent struct {
	Reference string `json:"reference"`
	// 支払い画面のURL（upi:// も含む）
	PaymentURL string `json:"payment_url"`
}

// 決済コールバックの本文
type PaymentCallback struct {
	EventID   string         `json:"event_id"`
	OrderID   int64          `json:"order_id"`
	Reference string         `json:"reference"`
	Outcome   PaymentOutcome `json:"outcome"`
}
