package paypal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/milosamec/engravape/circuitbreaker"
	"github.com/milosamec/engravape/models"
	"github.com/milosamec/engravape/pricing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const statusCompleted = "COMPLETED"

type orderFetcher interface {
	GetOrder(ctx context.Context, id string) (*Order, error)
}

// Verifier checks a client-reported payment receipt against PayPal.
type Verifier struct {
	client   orderFetcher
	currency string
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

func NewVerifier(client orderFetcher, currency string, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Verifier {
	return &Verifier{
		client:   client,
		currency: strings.ToUpper(currency),
		breaker:  breaker,
		logger:   logger,
	}
}

// Verify returns nil when PayPal reports the order named by result.ID as
// completed for exactly the order total in the configured currency, with
// every purchase unit bound to this store order through reference_id or
// custom_id.
// Mismatches wrap models.ErrPaymentRejected; transport problems wrap
// models.ErrGatewayUnavailable.
func (v *Verifier) Verify(ctx context.Context, order *models.Order, result models.PaymentResult) error {
	var ppOrder *Order
	err := v.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		ppOrder, err = v.client.GetOrder(ctx, result.ID)
		return err
	})
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return fmt.Errorf("%w: unknown paypal order %s", models.ErrPaymentRejected, result.ID)
	case err != nil:
		return fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}

	if ppOrder.Status != statusCompleted {
		return fmt.Errorf("%w: paypal status is %s", models.ErrPaymentRejected, ppOrder.Status)
	}
	if len(ppOrder.PurchaseUnits) == 0 {
		return fmt.Errorf("%w: paypal order has no purchase units", models.ErrPaymentRejected)
	}

	paid := decimal.Zero
	for _, unit := range ppOrder.PurchaseUnits {
		if !boundTo(unit, order.ID) {
			return fmt.Errorf("%w: paypal order %s does not belong to order %s", models.ErrPaymentRejected, ppOrder.ID, order.ID)
		}
		if !strings.EqualFold(unit.Amount.CurrencyCode, v.currency) {
			return fmt.Errorf("%w: currency %s, expected %s", models.ErrPaymentRejected, unit.Amount.CurrencyCode, v.currency)
		}
		amount, err := pricing.ParseAmount(unit.Amount.Value)
		if err != nil {
			return fmt.Errorf("%w: unreadable amount %q", models.ErrPaymentRejected, unit.Amount.Value)
		}
		paid = paid.Add(amount)
	}

	want := pricing.Round2(decimal.NewFromFloat(order.TotalPrice))
	if !pricing.Round2(paid).Equal(want) {
		return fmt.Errorf("%w: paid %s, order total %s", models.ErrPaymentRejected, paid.StringFixed(2), want.StringFixed(2))
	}

	v.logger.Debug("PayPal payment verified",
		zap.String("order_id", order.ID),
		zap.String("paypal_order_id", ppOrder.ID),
	)
	return nil
}

func boundTo(unit PurchaseUnit, orderID string) bool {
	if orderID == "" {
		return false
	}
	return strings.EqualFold(unit.ReferenceID, orderID) || strings.EqualFold(unit.CustomID, orderID)
}

// PassThrough accepts every receipt. It is used when PAYPAL_VERIFY is off.
type PassThrough struct{}

func (PassThrough) Verify(context.Context, *models.Order, models.PaymentResult) error { return nil }

// IsRejection reports whether err is a business rejection rather than a
// gateway failure, so it should not trip the circuit breaker.
func IsRejection(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}
