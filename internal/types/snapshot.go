package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PromoSnapshot captures the discount computed for a subscription at create
// time. The snapshot is what gets charged; later edits to the promo record do
// not affect subscriptions that already carry a snapshot. Applied flips to true
// only when a discounted charge settles, which is also the single point where
// the promo's redemption count is incremented.
type PromoSnapshot struct {
	PromoID        string          `json:"promo_id"`
	Code           string          `json:"code"`
	Type           PromoType       `json:"type"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DurationMonths int             `json:"duration_months"`
	Applied        bool            `json:"applied"`
	AppliedAt      *time.Time      `json:"applied_at,omitempty"`
}

// RefundRecord captures a refund issued against a transaction
type RefundRecord struct {
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	GatewayRefundID string          `json:"gateway_refund_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Reason          string          `json:"reason,omitempty"`
	RefundedAt      time.Time       `json:"refunded_at"`
}

// CancellationRecord captures how and why a subscription was cancelled
type CancellationRecord struct {
	Mode        CancellationMode `json:"mode"`
	Reason      string           `json:"reason,omitempty"`
	RequestedAt time.Time        `json:"requested_at"`
	EffectiveAt time.Time        `json:"effective_at"`
	Refunded    bool             `json:"refunded"`
}

func scanJSON(value interface{}, dest any) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
	return json.Unmarshal(bytes, dest)
}

func (p *PromoSnapshot) Scan(value interface{}) error { return scanJSON(value, p) }

func (p PromoSnapshot) Value() (driver.Value, error) { return json.Marshal(p) }

func (r *RefundRecord) Scan(value interface{}) error { return scanJSON(value, r) }

func (r RefundRecord) Value() (driver.Value, error) { return json.Marshal(r) }

func (c *CancellationRecord) Scan(value interface{}) error { return scanJSON(value, c) }

func (c CancellationRecord) Value() (driver.Value, error) { return json.Marshal(c) }
