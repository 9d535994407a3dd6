package payments

import (
	"context"
	"fmt"

	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
)

// AccessRouter flips the purchased-access flag off the payment status. It
// only grants on approval and only tightens on risk signals: a refund or
// chargeback revokes access and sets the risk flag, and a later approval
// never reactivates a flagged payment.
type AccessRouter interface {
	Route(ctx context.Context, payment *models.Payment) error
}

type accessRouter struct {
	repo Repository
	logg *logger.Logger
}

func NewAccessRouter(repo Repository, logg *logger.Logger) (AccessRouter, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &accessRouter{repo: repo, logg: logg}, nil
}

func (a *accessRouter) Route(ctx context.Context, payment *models.Payment) error {
	if payment == nil {
		return fmt.Errorf("payment required")
	}
	ctx = a.logg.WithPaymentID(ctx, payment.MPPaymentID)

	switch payment.Status {
	case enums.PaymentStatusApproved:
		if payment.RiskFlagged != nil && *payment.RiskFlagged {
			a.logg.Warn(ctx, "approval on risk-flagged payment, access stays revoked")
			return nil
		}
		if payment.AccessActive {
			return nil
		}
		if err := a.repo.SetAccess(ctx, payment.MPPaymentID, true); err != nil {
			return err
		}
		payment.AccessActive = true
		a.logg.Info(ctx, "access activated")
		return nil

	case enums.PaymentStatusRefunded, enums.PaymentStatusChargeback:
		if err := a.repo.FlagRisk(ctx, payment.MPPaymentID); err != nil {
			return err
		}
		payment.AccessActive = false
		flagged := true
		payment.RiskFlagged = &flagged
		a.logg.Warn(ctx, fmt.Sprintf("access revoked, payment risk-flagged on %s", payment.Status))
		return nil

	default:
		// pending never grants, rejected and cancelled never had access
		return nil
	}
}
