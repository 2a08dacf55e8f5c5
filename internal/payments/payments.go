// Package payments validates checkout instruments and produces the sanitized
// payment records that are allowed to reach storage. Capture is simulated;
// there is no real settlement behind it.
package payments

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/platform/observability"
)

// Validation failures surfaced to the checkout form.
var (
	ErrUnknownMethod    = errors.New("payments: unknown payment method")
	ErrCardHolderEmpty  = errors.New("payments: card holder is required")
	ErrInvalidPAN       = errors.New("payments: card number must have 12 to 19 digits")
	ErrInvalidExpiry    = errors.New("payments: expiry must be MM/YY with a valid month")
	ErrInvalidCVV       = errors.New("payments: cvv must have 3 or 4 digits")
	ErrPixTypeEmpty     = errors.New("payments: pix key type is required")
	ErrPixKeyEmpty      = errors.New("payments: pix key is required")
	ErrCaptureCancelled = errors.New("payments: capture cancelled")
)

var (
	panPattern    = regexp.MustCompile(`^\d{12,19}$`)
	expiryPattern = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
	cvvPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// CardDetails is the raw card input from the checkout form. Never persisted.
type CardDetails struct {
	Holder string `json:"holder"`
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
}

// PixDetails is the raw PIX input from the checkout form. Never persisted.
type PixDetails struct {
	KeyType string `json:"keyType"`
	Key     string `json:"key"`
}

// Instrument bundles the chosen method with its raw details.
type Instrument struct {
	Method domain.PaymentMethod `json:"method"`
	Card   *CardDetails         `json:"card,omitempty"`
	Pix    *PixDetails          `json:"pix,omitempty"`
}

// Provider validates an instrument and captures the (simulated) payment.
type Provider interface {
	Capture(ctx context.Context, instrument Instrument, amount float64) (domain.SanitizedPayment, error)
}

// Validate checks the instrument without capturing anything, so forms can
// surface failures before checkout.
func Validate(instrument Instrument) error {
	switch instrument.Method {
	case domain.PaymentMethodCard:
		return validateCard(instrument.Card)
	case domain.PaymentMethodPix:
		return validatePix(instrument.Pix)
	default:
		return ErrUnknownMethod
	}
}

func validateCard(card *CardDetails) error {
	if card == nil || strings.TrimSpace(card.Holder) == "" {
		return ErrCardHolderEmpty
	}
	if !panPattern.MatchString(digitsOnly(card.Number)) {
		return ErrInvalidPAN
	}
	match := expiryPattern.FindStringSubmatch(strings.TrimSpace(card.Expiry))
	if match == nil {
		return ErrInvalidExpiry
	}
	month, err := strconv.Atoi(match[1])
	if err != nil || month < 1 || month > 12 {
		return ErrInvalidExpiry
	}
	if !cvvPattern.MatchString(strings.TrimSpace(card.CVV)) {
		return ErrInvalidCVV
	}
	return nil
}

func validatePix(pix *PixDetails) error {
	if pix == nil || strings.TrimSpace(pix.KeyType) == "" {
		return ErrPixTypeEmpty
	}
	if strings.TrimSpace(pix.Key) == "" {
		return ErrPixKeyEmpty
	}
	return nil
}

// Sanitize strips the instrument down to the fields allowed in storage: the
// card keeps holder, last four digits and expiry; PIX keeps the key type and
// a masked key.
func Sanitize(instrument Instrument) (domain.SanitizedPayment, error) {
	if err := Validate(instrument); err != nil {
		return domain.SanitizedPayment{}, err
	}
	switch instrument.Method {
	case domain.PaymentMethodCard:
		number := digitsOnly(instrument.Card.Number)
		return domain.SanitizedPayment{
			Method:     domain.PaymentMethodCard,
			CardHolder: strings.TrimSpace(instrument.Card.Holder),
			CardLast4:  number[len(number)-4:],
			CardExpiry: strings.TrimSpace(instrument.Card.Expiry),
		}, nil
	default:
		return domain.SanitizedPayment{
			Method:     domain.PaymentMethodPix,
			PixKeyType: strings.TrimSpace(instrument.Pix.KeyType),
			PixKeyMask: observability.MaskPixKey(strings.TrimSpace(instrument.Pix.Key)),
		}, nil
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SimulatedProvider validates, waits a configurable processing delay and
// returns the sanitized record. It models the latency of a real gateway
// without moving money.
type SimulatedProvider struct {
	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSimulatedProvider builds a provider with the given capture delay.
func NewSimulatedProvider(delay time.Duration) *SimulatedProvider {
	if delay < 0 {
		delay = 0
	}
	return &SimulatedProvider{
		delay: delay,
		sleep: contextSleep,
	}
}

func (p *SimulatedProvider) Capture(ctx context.Context, instrument Instrument, amount float64) (domain.SanitizedPayment, error) {
	if amount <= 0 {
		return domain.SanitizedPayment{}, fmt.Errorf("payments: invalid amount %.2f", amount)
	}
	sanitized, err := Sanitize(instrument)
	if err != nil {
		return domain.SanitizedPayment{}, err
	}
	if err := p.sleep(ctx, p.delay); err != nil {
		return domain.SanitizedPayment{}, fmt.Errorf("%w: %w", ErrCaptureCancelled, err)
	}
	return sanitized, nil
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
