package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/precoperto/api/internal/domain"
)

func validCard() Instrument {
	return Instrument{
		Method: domain.PaymentMethodCard,
		Card: &CardDetails{
			Holder: "Maria Souza",
			Number: "4111 1111 1111 1111",
			Expiry: "09/27",
			CVV:    "123",
		},
	}
}

func TestValidate_Card(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*CardDetails)
		wantErr error
	}{
		{name: "valid", mutate: func(*CardDetails) {}},
		{name: "empty holder", mutate: func(c *CardDetails) { c.Holder = "  " }, wantErr: ErrCardHolderEmpty},
		{name: "pan too short", mutate: func(c *CardDetails) { c.Number = "1234567890" }, wantErr: ErrInvalidPAN},
		{name: "pan 12 digits ok", mutate: func(c *CardDetails) { c.Number = "123456789012" }},
		{name: "pan 19 digits ok", mutate: func(c *CardDetails) { c.Number = "1234567890123456789" }},
		{name: "pan 20 digits", mutate: func(c *CardDetails) { c.Number = "12345678901234567890" }, wantErr: ErrInvalidPAN},
		{name: "month 13", mutate: func(c *CardDetails) { c.Expiry = "13/25" }, wantErr: ErrInvalidExpiry},
		{name: "month 00", mutate: func(c *CardDetails) { c.Expiry = "00/25" }, wantErr: ErrInvalidExpiry},
		{name: "expiry wrong shape", mutate: func(c *CardDetails) { c.Expiry = "9/2027" }, wantErr: ErrInvalidExpiry},
		{name: "cvv 2 digits", mutate: func(c *CardDetails) { c.CVV = "12" }, wantErr: ErrInvalidCVV},
		{name: "cvv 4 digits ok", mutate: func(c *CardDetails) { c.CVV = "1234" }},
		{name: "cvv letters", mutate: func(c *CardDetails) { c.CVV = "12a" }, wantErr: ErrInvalidCVV},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			instrument := validCard()
			tc.mutate(instrument.Card)
			err := Validate(instrument)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_Pix(t *testing.T) {
	valid := Instrument{Method: domain.PaymentMethodPix, Pix: &PixDetails{KeyType: "email", Key: "maria@example.com"}}
	if err := Validate(valid); err != nil {
		t.Fatalf("Validate = %v, want nil", err)
	}

	noType := Instrument{Method: domain.PaymentMethodPix, Pix: &PixDetails{Key: "maria@example.com"}}
	if err := Validate(noType); !errors.Is(err, ErrPixTypeEmpty) {
		t.Fatalf("Validate = %v, want ErrPixTypeEmpty", err)
	}

	noKey := Instrument{Method: domain.PaymentMethodPix, Pix: &PixDetails{KeyType: "cpf", Key: " "}}
	if err := Validate(noKey); !errors.Is(err, ErrPixKeyEmpty) {
		t.Fatalf("Validate = %v, want ErrPixKeyEmpty", err)
	}
}

func TestValidate_UnknownMethod(t *testing.T) {
	if err := Validate(Instrument{Method: "boleto"}); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("Validate = %v, want ErrUnknownMethod", err)
	}
}

func TestSanitize_CardKeepsOnlyLast4(t *testing.T) {
	sanitized, err := Sanitize(validCard())
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if sanitized.CardLast4 != "1111" {
		t.Fatalf("CardLast4 = %q", sanitized.CardLast4)
	}
	if sanitized.CardHolder != "Maria Souza" || sanitized.CardExpiry != "09/27" {
		t.Fatalf("unexpected sanitized card: %+v", sanitized)
	}
	if sanitized.PixKeyType != "" || sanitized.PixKeyMask != "" {
		t.Fatalf("pix fields leaked into card payment: %+v", sanitized)
	}
}

func TestSanitize_PixMasksKey(t *testing.T) {
	sanitized, err := Sanitize(Instrument{
		Method: domain.PaymentMethodPix,
		Pix:    &PixDetails{KeyType: "email", Key: "maria.souza@example.com"},
	})
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if sanitized.PixKeyType != "email" {
		t.Fatalf("PixKeyType = %q", sanitized.PixKeyType)
	}
	mask := sanitized.PixKeyMask
	if len(mask) == 0 || mask == "maria.souza@example.com" {
		t.Fatalf("PixKeyMask = %q, want masked value", mask)
	}
	if mask[:3] != "mar" || mask[len(mask)-3:] != "com" {
		t.Fatalf("PixKeyMask = %q, want first 3 and last 3 visible", mask)
	}
}

func TestSimulatedProvider_CaptureAppliesDelay(t *testing.T) {
	provider := NewSimulatedProvider(50 * time.Millisecond)

	start := time.Now()
	sanitized, err := provider.Capture(context.Background(), validCard(), 123.45)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("capture returned after %v, want >= 50ms", elapsed)
	}
	if sanitized.CardLast4 != "1111" {
		t.Fatalf("CardLast4 = %q", sanitized.CardLast4)
	}
}

func TestSimulatedProvider_CaptureCancellable(t *testing.T) {
	provider := NewSimulatedProvider(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := provider.Capture(ctx, validCard(), 10); !errors.Is(err, ErrCaptureCancelled) {
		t.Fatalf("Capture err = %v, want ErrCaptureCancelled", err)
	}
}

func TestSimulatedProvider_RejectsInvalidInstrumentBeforeDelay(t *testing.T) {
	provider := NewSimulatedProvider(time.Hour)

	broken := validCard()
	broken.Card.CVV = "1"
	start := time.Now()
	if _, err := provider.Capture(context.Background(), broken, 10); !errors.Is(err, ErrInvalidCVV) {
		t.Fatalf("Capture err = %v, want ErrInvalidCVV", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("validation waited for the capture delay")
	}
}
