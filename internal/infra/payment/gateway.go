package payment

import (
	"context"
	"fmt"

	"digistore/internal/config"
	"digistore/internal/domain/model"
)

type Gateway interface {
	CreatePayment(ctx context.Context, req model.PaymentRequest) (model.PaymentIntent, error)
}

// PAYMENT_DRIVER で選ぶ
func New(cfg config.Config) (Gateway, error) {
	switch cfg.PaymentDriver {
	case "provider":
		return NewProviderGateway(cfg.PaymentAPIBase, cfg.PaymentAPIKey, nil), nil
	case "upi":
		return NewUPIGateway(cfg.UPIID, cfg.StoreName), nil
	default:
		return nil, fmt.Errorf("payment: unsupported driver %q", cfg.PaymentDriver)
	}
}
