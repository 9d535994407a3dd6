package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/internal/checkoutorders"
	"github.com/mercadito-dev/mercadito-backend/internal/drafts"
	"github.com/mercadito-dev/mercadito-backend/internal/orders"
	"github.com/mercadito-dev/mercadito-backend/internal/paymentattempts"
	"github.com/mercadito-dev/mercadito-backend/internal/payments"
	"github.com/mercadito-dev/mercadito-backend/internal/webhookevents"
	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
	pkgerrors "github.com/mercadito-dev/mercadito-backend/pkg/errors"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
	"github.com/mercadito-dev/mercadito-backend/pkg/mercadopago"
)

// StatusUnknown marks notifications that carried no usable correlation.
const StatusUnknown = "unknown"

// Next actions the verify endpoint hands to the storefront.
const (
	NextActionGoOrders      = "go_orders"
	NextActionPollOrWait    = "poll_or_wait"
	NextActionRetryCheckout = "retry_checkout"
	NextActionWait          = "wait"
	NextActionConfigError   = "config_error"
)

// PaymentFetcher is the slice of the gateway client the orchestrator needs.
type PaymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.PaymentView, error)
	GetMerchantOrder(ctx context.Context, merchantOrderID string) (*mercadopago.MerchantOrder, error)
}

// Outcome is the reconciliation result rendered by both the webhook handler
// and the verify endpoint.
type Outcome struct {
	Status           string
	OrderID          *uuid.UUID
	OrderNumber      *string
	AlreadyProcessed bool
}

// VerifyInput carries whatever correlation handles the returning browser has.
type VerifyInput struct {
	PaymentID       string
	PreferenceID    string
	MerchantOrderID string
}

// VerifyResult drives the storefront's post-checkout UX.
type VerifyResult struct {
	Success     bool       `json:"success"`
	OrderID     *uuid.UUID `json:"orderId,omitempty"`
	OrderNumber *string    `json:"orderNumber,omitempty"`
	Status      string     `json:"status"`
	Detail      string     `json:"detail,omitempty"`
	CanRetry    bool       `json:"canRetry"`
	NextAction  string     `json:"nextAction"`
}

// Service is the reconciliation orchestrator, the single state-transition
// function behind the push webhook, the pull verification, and the admin
// replay. Concurrency is tolerated through the ledger fences, not locks.
type Service interface {
	Reconcile(ctx context.Context, view *mercadopago.PaymentView) (*Outcome, error)
	ProcessWebhook(ctx context.Context, event *models.WebhookEvent) (*Outcome, error)
	VerifyPull(ctx context.Context, input VerifyInput) (*VerifyResult, error)
	RetryEvent(ctx context.Context, eventID uuid.UUID) (*Outcome, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires orchestrator dependencies.
type ServiceParams struct {
	Gateway        PaymentFetcher
	CheckoutOrders checkoutorders.Repository
	Drafts         drafts.Repository
	Attempts       paymentattempts.Repository
	Payments       payments.Repository
	Access         payments.AccessRouter
	Materializer   orders.Materializer
	Events         webhookevents.Service
	Tx             txRunner
	Logger         *logger.Logger
}

type service struct {
	gateway  PaymentFetcher
	cos      checkoutorders.Repository
	drafts   drafts.Repository
	attempts paymentattempts.Repository
	payments payments.Repository
	access   payments.AccessRouter
	mat      orders.Materializer
	events   webhookevents.Service
	tx       txRunner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Gateway == nil:
		return nil, fmt.Errorf("gateway client required")
	case params.CheckoutOrders == nil:
		return nil, fmt.Errorf("checkout orders repository required")
	case params.Drafts == nil:
		return nil, fmt.Errorf("drafts repository required")
	case params.Attempts == nil:
		return nil, fmt.Errorf("payment attempts repository required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payments repository required")
	case params.Access == nil:
		return nil, fmt.Errorf("access router required")
	case params.Materializer == nil:
		return nil, fmt.Errorf("order materializer required")
	case params.Events == nil:
		return nil, fmt.Errorf("webhook events service required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		gateway:  params.Gateway,
		cos:      params.CheckoutOrders,
		drafts:   params.Drafts,
		attempts: params.Attempts,
		payments: params.Payments,
		access:   params.Access,
		mat:      params.Materializer,
		events:   params.Events,
		tx:       params.Tx,
		logg:     params.Logger,
	}, nil
}

func (s *service) Reconcile(ctx context.Context, view *mercadopago.PaymentView) (*Outcome, error) {
	if view == nil {
		return &Outcome{Status: StatusUnknown}, nil
	}

	paymentID := view.PaymentID()
	if paymentID == "" || view.ExternalReference == "" {
		s.logg.Warn(ctx, "notification without payment id or external reference, ignoring")
		return &Outcome{Status: StatusUnknown}, nil
	}
	ctx = s.logg.WithPaymentID(ctx, paymentID)

	checkoutOrderID, err := uuid.Parse(view.ExternalReference)
	if err != nil {
		s.logg.Warn(ctx, "external reference is not a checkout order id, ignoring")
		return &Outcome{Status: StatusUnknown}, nil
	}
	ctx = s.logg.WithCheckoutOrderID(ctx, checkoutOrderID.String())

	mapped := MapCheckoutOrderStatus(view.Status)

	co, err := s.cos.FindByID(ctx, checkoutOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, "no checkout order for external reference, possibly foreign or racing notification")
			return &Outcome{Status: mapped.String()}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout order")
	}

	// mirror the gateway view and route access regardless of conversion state
	if err := s.syncPayment(ctx, view); err != nil {
		return nil, err
	}

	// idempotency short-circuit: attempt already ledgered and order converted
	if _, err := s.attempts.FindByPaymentID(ctx, paymentID); err == nil {
		if co.Status == enums.CheckoutOrderStatusApproved && co.Converted() {
			return &Outcome{
				Status:           co.Status.String(),
				OrderID:          co.ConvertedOrderID,
				OrderNumber:      co.OrderNumber,
				AlreadyProcessed: true,
			}, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment attempt")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		attempt := &models.PaymentAttempt{
			CheckoutOrderID: co.ID,
			PaymentID:       paymentID,
			PreferenceID:    co.PreferenceID,
			Status:          view.Status,
			Raw:             view.Raw,
		}
		if _, _, err := s.attempts.WithTx(tx).Record(ctx, attempt); err != nil {
			return fmt.Errorf("record payment attempt: %w", err)
		}
		if err := s.cos.WithTx(tx).UpdateStatus(ctx, co.ID, mapped); err != nil {
			return fmt.Errorf("update checkout order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ledger payment attempt")
	}
	co.Status = mapped

	if mapped == enums.CheckoutOrderStatusApproved && !co.Converted() {
		if err := s.materialize(ctx, co, paymentID); err != nil {
			return nil, err
		}
	}

	return &Outcome{
		Status:      co.Status.String(),
		OrderID:     co.ConvertedOrderID,
		OrderNumber: co.OrderNumber,
	}, nil
}

// materialize runs the draft conversion and folds the result back onto the
// checkout order, adopting an existing order when a parallel path won.
func (s *service) materialize(ctx context.Context, co *models.CheckoutOrder, paymentID string) error {
	draft, err := s.drafts.FindByID(ctx, co.DraftID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order draft")
	}

	result, err := s.mat.CreateFromDraft(ctx, draft, paymentID, co.PreferenceID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "materialize order")
	}

	var orderID uuid.UUID
	var orderNumber string
	switch {
	case result != nil:
		orderID, orderNumber = result.OrderID, result.OrderNumber
	default:
		// declined: reload and adopt if another path converted the draft
		refreshed, err := s.drafts.FindByID(ctx, co.DraftID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order draft")
		}
		if refreshed.ConvertedOrderID == nil || refreshed.OrderNumber == nil {
			// shortfall path: stays APPROVED without an order, operator review
			return nil
		}
		orderID, orderNumber = *refreshed.ConvertedOrderID, *refreshed.OrderNumber
	}

	won, err := s.cos.SetConverted(ctx, co.ID, orderID, orderNumber, enums.CheckoutOrderStatusApproved)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp converted order")
	}
	if !won {
		refreshed, err := s.cos.FindByID(ctx, co.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload checkout order")
		}
		*co = *refreshed
		return nil
	}

	co.Status = enums.CheckoutOrderStatusApproved
	co.ConvertedOrderID = &orderID
	co.OrderNumber = &orderNumber
	return nil
}

func (s *service) syncPayment(ctx context.Context, view *mercadopago.PaymentView) error {
	ref := view.ExternalReference
	payerEmail := view.Payer.Email

	payment := &models.Payment{
		MPPaymentID:  view.PaymentID(),
		Status:       MapPaymentStatus(view.Status),
		Amount:       view.TransactionAmount,
		Currency:     mapCurrency(view.CurrencyID),
		LastMPStatus: view.Status,
		LastSyncedAt: time.Now().UTC(),
	}
	if ref != "" {
		payment.ExternalReference = &ref
	}
	if payerEmail != "" {
		payment.PayerEmail = &payerEmail
	}

	stored, err := s.payments.Upsert(ctx, payment)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert payment")
	}
	if err := s.access.Route(ctx, stored); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "route access")
	}
	return nil
}

func mapCurrency(currencyID string) enums.Currency {
	if parsed, err := enums.ParseCurrency(currencyID); err == nil {
		return parsed
	}
	return enums.CurrencyARS
}

// ProcessWebhook is the push entry point: the event is already ledgered and
// signature-verified. Failures are persisted on the event, never returned to
// the gateway.
func (s *service) ProcessWebhook(ctx context.Context, event *models.WebhookEvent) (*Outcome, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	ctx = s.logg.WithEventID(ctx, event.EventID)

	if event.ResourceID == "" {
		s.logg.Warn(ctx, "event carries no resource id, marking processed as a no-op")
		if err := s.events.MarkProcessed(ctx, event.ID); err != nil {
			return nil, err
		}
		return &Outcome{Status: StatusUnknown}, nil
	}

	view, err := s.gateway.GetPayment(ctx, event.ResourceID)
	if err != nil {
		s.failEvent(ctx, event.ID, err)
		return nil, err
	}

	outcome, err := s.Reconcile(ctx, view)
	if err != nil {
		s.failEvent(ctx, event.ID, err)
		return nil, err
	}

	if err := s.events.MarkProcessed(ctx, event.ID); err != nil {
		s.logg.Error(ctx, "event processed but status update failed", err)
	}
	return outcome, nil
}

func (s *service) failEvent(ctx context.Context, eventID uuid.UUID, cause error) {
	if err := s.events.MarkFailed(ctx, eventID, cause); err != nil {
		s.logg.Error(ctx, "marking event failed did not stick", err)
	}
}

// VerifyPull services the customer's return-URL poll. With a payment id it
// runs a full reconciliation; a merchant order id resolves to its payments
// first; with only a preference id it degrades to the checkout order's last
// known status instead of contacting the gateway again.
func (s *service) VerifyPull(ctx context.Context, input VerifyInput) (*VerifyResult, error) {
	if input.PaymentID != "" {
		return s.verifyByPaymentID(ctx, input.PaymentID)
	}

	if input.MerchantOrderID != "" {
		order, err := s.gateway.GetMerchantOrder(ctx, input.MerchantOrderID)
		if err != nil {
			typed := pkgerrors.As(err)
			if typed != nil && typed.Retryable() {
				return &VerifyResult{
					Status:     StatusUnknown,
					Detail:     "payment provider is unavailable, try again shortly",
					CanRetry:   true,
					NextAction: NextActionWait,
				}, nil
			}
			return &VerifyResult{
				Status:     StatusUnknown,
				Detail:     "merchant order could not be found at the provider",
				NextAction: NextActionConfigError,
			}, nil
		}
		if paymentID := pickMerchantOrderPayment(order); paymentID != "" {
			return s.verifyByPaymentID(ctx, paymentID)
		}
		if input.PreferenceID == "" {
			input.PreferenceID = order.PreferenceID
		}
	}

	if input.PreferenceID != "" {
		co, err := s.cos.FindByPreferenceID(ctx, input.PreferenceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &VerifyResult{
					Status:     StatusUnknown,
					Detail:     "no checkout found for this preference",
					NextAction: NextActionConfigError,
				}, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout order by preference")
		}
		return verdictFromCheckoutOrder(co), nil
	}

	return &VerifyResult{
		Status:     StatusUnknown,
		Detail:     "payment_id, merchant_order_id or preference_id is required",
		NextAction: NextActionConfigError,
	}, nil
}

func (s *service) verifyByPaymentID(ctx context.Context, paymentID string) (*VerifyResult, error) {
	view, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && typed.Retryable() {
			return &VerifyResult{
				Status:     StatusUnknown,
				Detail:     "payment provider is unavailable, try again shortly",
				CanRetry:   true,
				NextAction: NextActionWait,
			}, nil
		}
		return &VerifyResult{
			Status:     StatusUnknown,
			Detail:     "payment could not be found at the provider",
			NextAction: NextActionConfigError,
		}, nil
	}

	outcome, err := s.Reconcile(ctx, view)
	if err != nil {
		return nil, err
	}
	return verdictFromOutcome(outcome), nil
}

// pickMerchantOrderPayment prefers an approved payment, falling back to the
// first one listed.
func pickMerchantOrderPayment(order *mercadopago.MerchantOrder) string {
	if order == nil || len(order.Payments) == 0 {
		return ""
	}
	for _, p := range order.Payments {
		if IsApproved(p.Status) {
			return p.ID.String()
		}
	}
	return order.Payments[0].ID.String()
}

func verdictFromOutcome(outcome *Outcome) *VerifyResult {
	result := &VerifyResult{
		Status:      outcome.Status,
		OrderID:     outcome.OrderID,
		OrderNumber: outcome.OrderNumber,
	}

	switch outcome.Status {
	case enums.CheckoutOrderStatusApproved.String():
		if outcome.OrderID != nil {
			result.Success = true
			result.NextAction = NextActionGoOrders
			return result
		}
		result.Detail = "payment approved, order is being prepared"
		result.NextAction = NextActionPollOrWait
		return result
	case enums.CheckoutOrderStatusPending.String(),
		enums.CheckoutOrderStatusCreated.String(),
		enums.CheckoutOrderStatusCheckoutStarted.String():
		result.Detail = "payment is still processing"
		result.CanRetry = true
		result.NextAction = NextActionPollOrWait
		return result
	case enums.CheckoutOrderStatusRejected.String(),
		enums.CheckoutOrderStatusCancelled.String(),
		enums.CheckoutOrderStatusFailed.String(),
		enums.CheckoutOrderStatusExpired.String():
		result.Detail = "payment did not complete"
		result.CanRetry = true
		result.NextAction = NextActionRetryCheckout
		return result
	default:
		result.Detail = "payment state could not be determined"
		result.NextAction = NextActionConfigError
		return result
	}
}

func verdictFromCheckoutOrder(co *models.CheckoutOrder) *VerifyResult {
	outcome := &Outcome{
		Status:      co.Status.String(),
		OrderID:     co.ConvertedOrderID,
		OrderNumber: co.OrderNumber,
	}
	return verdictFromOutcome(outcome)
}

// RetryEvent replays a previously failed event on operator demand, fetching
// the gateway's current view rather than trusting the stored payload.
func (s *service) RetryEvent(ctx context.Context, eventID uuid.UUID) (*Outcome, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != enums.WebhookEventStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only failed events can be retried").
			WithDetails(map[string]string{"status": event.Status.String()})
	}
	return s.ProcessWebhook(ctx, event)
}
