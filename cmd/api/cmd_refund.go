package main

import (
	"fmt"

	infraRepo "digistore/internal/infra/repository"
	"digistore/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	refundActorID int64
	refundReason  string
)

// digistore refund <order_id>: 管理画面を通さない返金（監査ログは残る）
var refundCmd = &cobra.Command{
	Use:   "refund [order_id]",
	Short: "Mark a paid order as refunded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var orderID int64
		if _, err := fmt.Sscan(args[0], &orderID); err != nil || orderID <= 0 {
			return fmt.Errorf("invalid order id %q", args[0])
		}

		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		actor, err := infraRepo.NewUserGormRepository(a.db).FindByID(cmd.Context(), refundActorID)
		if err != nil {
			return err
		}
		if actor == nil || !actor.IsAdmin() {
			return fmt.Errorf("user %d is not an admin", refundActorID)
		}

		uc := usecase.NewAdminOrderUsecase(
			infraRepo.NewTxManagerGorm(a.db),
			infraRepo.NewAuditLogGormRepository(a.db),
			a.log.Named("admin"),
		)
		out, err := uc.Refund(cmd.Context(), refundActorID, orderID, refundReason)
		if err != nil {
			return err
		}

		a.log.Info("refund done", zap.Int64("order_id", out.ID), zap.String("status", out.Status))
		fmt.Fprintf(cmd.OutOrStdout(), "order #%d is %s\n", out.ID, out.Status)
		return nil
	},
}

func init() {
	refundCmd.Flags().Int64Var(&refundActorID, "actor", 0, "admin user id recorded in the audit log")
	refundCmd.Flags().StringVar(&refundReason, "reason", "", "refund reason")
	_ = refundCmd.MarkFlagRequired("actor")
}
