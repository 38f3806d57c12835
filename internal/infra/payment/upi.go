package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"digistore/internal/domain/model"

	"github.com/google/uuid"
)

// UPI の collect 用URLを作るだけのドライバ。参照番号はこちらで採番する。
type UPIGateway struct {
	payeeVPA  string
	payeeName string
}

func NewUPIGateway(payeeVPA string, payeeName string) *UPIGateway {
	return &UPIGateway{payeeVPA: payeeVPA, payeeName: payeeName}
}

func (g *UPIGateway) CreatePayment(_ context.Context, req model.PaymentRequest) (model.PaymentIntent, error) {
	ref := "UPI" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])

	q := url.Values{}
	q.Set("pa", g.payeeVPA)
	q.Set("pn", g.payeeName)
	q.Set("am", req.Amount.StringFixed(2))
	q.Set("cu", req.Currency)
	q.Set("tr", ref)
	q.Set("tn", fmt.Sprintf("Order %d", req.OrderID))

	return model.PaymentIntent{
		Reference:  ref,
		PaymentURL: "upi://pay?" + q.Encode(),
	}, nil
}
