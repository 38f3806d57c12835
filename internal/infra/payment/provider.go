package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"digistore/internal/domain/model"
)

// 外部決済プロバイダの REST API クライアント
type ProviderGateway struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewProviderGateway(baseURL string, apiKey string, client *http.Client) *ProviderGateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ProviderGateway{baseURL: baseURL, apiKey: apiKey, http: client}
}

type createPaymentBody struct {
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

type createPaymentResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

func (g *ProviderGateway) CreatePayment(ctx context.Context, req model.PaymentRequest) (model.PaymentIntent, error) {
	orderID := strconv.FormatInt(req.OrderID, 10)
	body, err := json.Marshal(createPaymentBody{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Description: req.Description,
		Metadata:    map[string]string{"order_id": orderID},
	})
	if err != nil {
		return model.PaymentIntent{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return model.PaymentIntent{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	// 同じ注文で再送してもプロバイダ側で1件にまとめてもらう
	httpReq.Header.Set("Idempotency-Key", "order-"+orderID)

	res, err := g.http.Do(httpReq)
	if err != nil {
		return model.PaymentIntent{}, fmt.Errorf("payment: create: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return model.PaymentIntent{}, fmt.Errorf("payment: create: status %d: %s", res.StatusCode, bytes.TrimSpace(msg))
	}

	var out createPaymentResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return model.PaymentIntent{}, fmt.Errorf("payment: decode: %w", err)
	}
	if out.ID == "" {
		return model.PaymentIntent{}, fmt.Errorf("payment: empty payment id")
	}

	return model.PaymentIntent{Reference: out.ID, PaymentURL: out.CheckoutURL}, nil
}
