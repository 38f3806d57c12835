package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"digistore/internal/domain/model"
	"digistore/internal/metrics"
	repo "digistore/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
	log       *zap.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository, log *zap.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, auditRepo: auditRepo, log: log}
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.OrderFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, validationError("invalid page")
	}
	if f.Limit < 1 || f.Limit > maxPageLimit {
		return OrderListOutput{}, validationError("invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return OrderListOutput{}, validationError("invalid status")
	}

	out := OrderListOutput{Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxScope) error {
		orders, total, err := r.Orders().Search(ctx, f)
		if err != nil {
			return dbError()
		}

		out.Total = total
		out.Items = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return dbError()
			}
			out.Items = append(out.Items, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// 返金（paid → refunded のみ）。すでに refunded なら何もしない
func (u *AdminOrderUsecase) Refund(ctx context.Context, actorAdminUserID int64, orderID int64, reason string) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return OrderOutput{}, validationError("reason too long")
	}

	var out OrderOutput
	changed := false

	err := u.tx.WithinTx(ctx, func(r repo.TxScope) error {
		o, err := r.Orders().FindForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return notFound()
		}
		if err != nil {
			return dbError()
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError()
		}

		if o.Status == model.OrderStatusRefunded {
			out = toOrderOutput(o, items)
			return nil
		}
		if !o.Status.CanTransitionTo(model.OrderStatusRefunded) {
			return invalidTransition(string(o.Status), string(model.OrderStatusRefunded))
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusRefunded); err != nil {
			if err == repo.ErrNotFound {
				return notFound()
			}
			return dbError()
		}

		after, _ := json.Marshal(map[string]string{"status": string(model.OrderStatusRefunded), "reason": reason})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionRefundOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   statusJSON(o.Status, ""),
			AfterJSON:    string(after),
			CreatedAt:    time.Now(),
		}); err != nil {
			return dbError()
		}

		o.Status = model.OrderStatusRefunded
		out = toOrderOutput(o, items)
		changed = true
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if changed {
		metrics.OrderTransitions.WithLabelValues(string(model.OrderStatusRefunded)).Inc()
		u.log.Info("order refunded",
			zap.Int64("order_id", orderID),
			zap.Int64("actor_user_id", actorAdminUserID),
			zap.String("reason", reason),
		)
	}
	return out, nil
}

// 注文の監査ログ（新しい順）
func (u *AdminOrderUsecase) AuditTrail(ctx context.Context, orderID int64) ([]model.AuditLog, error) {
	if orderID <= 0 {
		return []model.AuditLog{}, validationError("invalid id")
	}
	rt := model.AuditResourceOrder
	logs, err := u.auditRepo.List(ctx, repo.AuditLogFilter{
		ResourceType: &rt,
		ResourceID:   &orderID,
		Limit:        maxPageLimit,
	})
	if err != nil {
		return []model.AuditLog{}, dbError()
	}
	return logs, nil
}
