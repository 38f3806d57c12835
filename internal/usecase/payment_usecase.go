package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"digistore/internal/domain/model"
	"digistore/internal/metrics"
	repo "digistore/internal/repository"

	"go.uber.org/zap"
)

// コールバック本文の署名検証
type SignatureVerifier interface {
	Verify(body []byte, signature string) bool
}

type PaymentUsecase struct {
	tx       repo.TransactionManager
	verifier SignatureVerifier
	log      *zap.Logger
}

func NewPaymentUsecase(tx repo.TransactionManager, verifier SignatureVerifier, log *zap.Logger) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, verifier: verifier, log: log}
}

// applied: 状態が変わった / noop: 既に同じ状態 / replay: 処理済みの event_id
type CallbackResult struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
	Result  string `json:"result"`
}

const (
	callbackApplied  = "applied"
	callbackNoop     = "noop"
	callbackReplay   = "replay"
	callbackRejected = "rejected"
)

// 決済結果の通知を反映する。署名 → 本文 → 参照番号の順に確かめる
func (u *PaymentUsecase) HandleCallback(ctx context.Context, body []byte, signature string) (CallbackResult, error) {
	res, err := u.handle(ctx, body, signature)
	if err != nil {
		metrics.PaymentCallbacks.WithLabelValues(callbackRejected).Inc()
		u.log.Warn("payment callback rejected", zap.Error(err))
		return CallbackResult{}, err
	}
	metrics.PaymentCallbacks.WithLabelValues(res.Result).Inc()
	return res, nil
}

func (u *PaymentUsecase) handle(ctx context.Context, body []byte, signature string) (CallbackResult, error) {
	if !u.verifier.Verify(body, signature) {
		return CallbackResult{}, paymentVerification("invalid signature")
	}

	var cb model.PaymentCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return CallbackResult{}, validationError("invalid callback body")
	}
	cb.EventID = strings.TrimSpace(cb.EventID)
	cb.Reference = strings.TrimSpace(cb.Reference)
	if cb.EventID == "" || len(cb.EventID) > 100 {
		return CallbackResult{}, validationError("invalid event_id")
	}
	if cb.OrderID <= 0 {
		return CallbackResult{}, validationError("invalid order_id")
	}
	if cb.Reference == "" {
		return CallbackResult{}, paymentVerification("missing reference")
	}
	if !cb.Outcome.Valid() {
		return CallbackResult{}, validationError("invalid outcome")
	}

	target := model.OrderStatusFailed
	action := model.AuditActionDeclinePayment
	if cb.Outcome == model.PaymentOutcomeSucceeded {
		target = model.OrderStatusPaid
		action = model.AuditActionConfirmPayment
	}

	res := CallbackResult{OrderID: cb.OrderID}

	err := u.tx.WithinTx(ctx, func(r repo.TxScope) error {
		o, err := r.Orders().FindForUpdate(ctx, cb.OrderID)
		if err == repo.ErrNotFound {
			return paymentVerification("unknown order")
		}
		if err != nil {
			return dbError()
		}
		res.Status = string(o.Status)

		//保存済みの参照番号と一致しなければ何も変えない
		if !o.MatchesReference(cb.Reference) {
			return paymentVerification("payment reference mismatch")
		}

		inserted, err := r.PaymentEvents().Record(ctx, model.PaymentEvent{
			EventID:     cb.EventID,
			OrderID:     o.ID,
			Reference:   cb.Reference,
			Outcome:     cb.Outcome,
			ProcessedAt: time.Now(),
		})
		if err != nil {
			return dbError()
		}
		if !inserted {
			res.Result = callbackReplay
			return nil
		}

		//同じ状態への通知は何もしない
		if o.Status == target {
			res.Result = callbackNoop
			return nil
		}
		if !o.Status.CanTransitionTo(target) {
			return invalidTransition(string(o.Status), string(target))
		}

		if err := r.Orders().UpdateStatus(ctx, o.ID, target); err != nil {
			return dbError()
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  model.SystemActorID,
			Action:       action,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   statusJSON(o.Status, ""),
			AfterJSON:    statusJSON(target, cb.EventID),
			CreatedAt:    time.Now(),
		}); err != nil {
			return dbError()
		}

		res.Status = string(target)
		res.Result = callbackApplied
		return nil
	})
	if err != nil {
		return CallbackResult{}, err
	}

	if res.Result == callbackApplied {
		metrics.OrderTransitions.WithLabelValues(res.Status).Inc()
		u.log.Info("payment callback applied",
			zap.Int64("order_id", res.OrderID),
			zap.String("status", res.Status),
			zap.String("event_id", cb.EventID),
		)
	}
	return res, nil
}

func statusJSON(status model.OrderStatus, eventID string) string {
	m := map[string]string{"status": string(status)}
	if eventID != "" {
		m["event_id"] = eventID
	}
	b, _ := json.Marshal(m)
	return string(b)
}
