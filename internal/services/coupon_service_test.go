package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/repositories"
)

var couponNow = time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

func newCouponService(t *testing.T, repo *stubCouponRepo) CouponService {
	t.Helper()
	service, err := NewCouponService(CouponServiceDeps{
		Coupons: repo,
		Clock:   func() time.Time { return couponNow },
	})
	if err != nil {
		t.Fatalf("NewCouponService: %v", err)
	}
	return service
}

func TestCouponCreate_NormalizesCodeAndValidates(t *testing.T) {
	repo := newStubCouponRepo()
	service := newCouponService(t, repo)
	ctx := context.Background()

	created, err := service.Create(ctx, "u1", NewCouponInput{
		Code:      "  desconto10 ",
		Type:      domain.CouponTypePercent,
		Value:     10,
		MaxUses:   3,
		ExpiresAt: couponNow.Add(30 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Code != "DESCONTO10" {
		t.Fatalf("Code = %q, want uppercase", created.Code)
	}
	if created.Status != domain.CouponStatusActive {
		t.Fatalf("Status = %q, want ativo", created.Status)
	}

	cases := []struct {
		name    string
		input   NewCouponInput
		wantErr error
	}{
		{"empty code", NewCouponInput{Type: domain.CouponTypeFixed, Value: 5, MaxUses: 1}, ErrCouponCodeEmpty},
		{"bad type", NewCouponInput{Code: "X", Type: "half", Value: 5, MaxUses: 1}, ErrCouponTypeInvalid},
		{"zero value", NewCouponInput{Code: "X", Type: domain.CouponTypeFixed, Value: 0, MaxUses: 1}, ErrCouponValueInvalid},
		{"percent over 100", NewCouponInput{Code: "X", Type: domain.CouponTypePercent, Value: 120, MaxUses: 1}, ErrCouponValueInvalid},
		{"zero uses", NewCouponInput{Code: "X", Type: domain.CouponTypeFixed, Value: 5, MaxUses: 0}, ErrCouponUsesInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.Create(ctx, "u1", tc.input); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCouponStatus_ExhaustionWinsOverExpiry(t *testing.T) {
	// Exhausted and also past expiry: esgotado wins.
	repo := newStubCouponRepo(domain.Coupon{
		ID:        "cpn_1",
		Code:      "USADO",
		Type:      domain.CouponTypeFixed,
		Value:     5,
		MaxUses:   1,
		UsedCount: 1,
		ExpiresAt: couponNow.Add(-time.Hour),
	})
	service := newCouponService(t, repo)

	view, err := service.Get(context.Background(), "u1", "cpn_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Status != domain.CouponStatusExhausted {
		t.Fatalf("Status = %q, want esgotado", view.Status)
	}
}

func TestCouponStatus_ExhaustedEvenWhenNotExpired(t *testing.T) {
	repo := newStubCouponRepo(domain.Coupon{
		ID:        "cpn_1",
		Code:      "USADO",
		Type:      domain.CouponTypeFixed,
		Value:     5,
		MaxUses:   1,
		UsedCount: 1,
		ExpiresAt: couponNow.Add(365 * 24 * time.Hour),
	})
	service := newCouponService(t, repo)

	view, err := service.Get(context.Background(), "u1", "cpn_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Status != domain.CouponStatusExhausted {
		t.Fatalf("Status = %q, want esgotado regardless of expiry", view.Status)
	}
}

func TestCouponStatus_Expired(t *testing.T) {
	repo := newStubCouponRepo(domain.Coupon{
		ID:        "cpn_1",
		Code:      "VELHO",
		Type:      domain.CouponTypePercent,
		Value:     10,
		MaxUses:   5,
		UsedCount: 1,
		ExpiresAt: couponNow.Add(-time.Minute),
	})
	service := newCouponService(t, repo)

	view, err := service.Get(context.Background(), "u1", "cpn_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Status != domain.CouponStatusExpired {
		t.Fatalf("Status = %q, want expirado", view.Status)
	}
}

func TestCouponRedeem_IncrementsAndEventuallyExhausts(t *testing.T) {
	repo := newStubCouponRepo(domain.Coupon{
		ID:        "cpn_1",
		Code:      "DUPLO",
		Type:      domain.CouponTypeFixed,
		Value:     5,
		MaxUses:   2,
		ExpiresAt: couponNow.Add(time.Hour),
	})
	service := newCouponService(t, repo)
	ctx := context.Background()

	first, err := service.Redeem(ctx, "u1", "duplo")
	if err != nil {
		t.Fatalf("first Redeem: %v", err)
	}
	if first.UsedCount != 1 || first.Status != domain.CouponStatusActive {
		t.Fatalf("after first redeem: %+v", first)
	}

	second, err := service.Redeem(ctx, "u1", "DUPLO")
	if err != nil {
		t.Fatalf("second Redeem: %v", err)
	}
	if second.UsedCount != 2 || second.Status != domain.CouponStatusExhausted {
		t.Fatalf("after second redeem: %+v", second)
	}

	if _, err := service.Redeem(ctx, "u1", "DUPLO"); !errors.Is(err, repositories.ErrCouponExhausted) {
		t.Fatalf("third Redeem err = %v, want ErrCouponExhausted", err)
	}
}
