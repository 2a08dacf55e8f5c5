package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/precoperto/api/internal/domain"
	platformfs "github.com/precoperto/api/internal/platform/firestore"
	"github.com/precoperto/api/internal/repositories"
)

const couponCollectionPattern = "users/%s/coupons"

// CouponRepository stores discount codes under users/{uid}/coupons.
type CouponRepository struct {
	provider *platformfs.Provider
}

func (r *CouponRepository) collection(ctx context.Context, uid string) (*firestore.CollectionRef, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, platformfs.WrapError("coupons", errors.New("firestore: uid is required"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(couponCollectionPattern, uid)), nil
}

func (r *CouponRepository) Create(ctx context.Context, uid string, coupon domain.Coupon) (domain.Coupon, error) {
	if strings.TrimSpace(coupon.ID) == "" {
		return domain.Coupon{}, platformfs.WrapError("coupons.create", errors.New("firestore: coupon id is required"))
	}
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return domain.Coupon{}, err
	}
	if _, err := coll.Doc(coupon.ID).Create(ctx, coupon); err != nil {
		return domain.Coupon{}, platformfs.WrapError("coupons.create", err)
	}
	return coupon, nil
}

func (r *CouponRepository) Get(ctx context.Context, uid, couponID string) (domain.Coupon, error) {
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return domain.Coupon{}, err
	}
	snap, err := coll.Doc(couponID).Get(ctx)
	if err != nil {
		return domain.Coupon{}, platformfs.WrapError("coupons.get", err)
	}
	return decodeCoupon(snap)
}

func (r *CouponRepository) GetByCode(ctx context.Context, uid, code string) (domain.Coupon, error) {
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return domain.Coupon{}, err
	}

	iter := coll.Query.Where("code", "==", strings.ToUpper(strings.TrimSpace(code))).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Coupon{}, platformfs.WrapError("coupons.getByCode", notFoundError("coupon code"))
	}
	if err != nil {
		return domain.Coupon{}, platformfs.WrapError("coupons.getByCode", err)
	}
	return decodeCoupon(snap)
}

func (r *CouponRepository) List(ctx context.Context, uid string) ([]domain.Coupon, error) {
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return nil, err
	}

	iter := coll.Query.OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var coupons []domain.Coupon
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, platformfs.WrapError("coupons.list", err)
		}
		coupon, err := decodeCoupon(snap)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, coupon)
	}
	return coupons, nil
}

// Redeem increments usedCount after re-checking the coupon state inside a
// transaction, so concurrent redemptions cannot exceed maxUses.
func (r *CouponRepository) Redeem(ctx context.Context, uid, couponID string, now time.Time) (domain.Coupon, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Coupon{}, err
	}
	ref := client.Collection(fmt.Sprintf(couponCollectionPattern, uid)).Doc(couponID)

	var redeemed domain.Coupon
	err = platformfs.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var coupon domain.Coupon
		if err := snap.DataTo(&coupon); err != nil {
			return err
		}
		coupon.ID = snap.Ref.ID

		switch coupon.Status(now) {
		case domain.CouponStatusExhausted:
			return repositories.ErrCouponExhausted
		case domain.CouponStatusExpired:
			return repositories.ErrCouponExpired
		}

		coupon.UsedCount++
		redeemed = coupon
		return tx.Update(ref, []firestore.Update{
			{Path: "usedCount", Value: firestore.Increment(1)},
		})
	})
	if err != nil {
		if errors.Is(err, repositories.ErrCouponExhausted) || errors.Is(err, repositories.ErrCouponExpired) {
			return domain.Coupon{}, err
		}
		return domain.Coupon{}, platformfs.WrapError("coupons.redeem", err)
	}
	return redeemed, nil
}

func (r *CouponRepository) Delete(ctx context.Context, uid, couponID string) error {
	coll, err := r.collection(ctx, uid)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(couponID).Delete(ctx, firestore.Exists); err != nil {
		return platformfs.WrapError("coupons.delete", err)
	}
	return nil
}

func decodeCoupon(snap *firestore.DocumentSnapshot) (domain.Coupon, error) {
	var coupon domain.Coupon
	if err := snap.DataTo(&coupon); err != nil {
		return domain.Coupon{}, platformfs.WrapError("coupons.decode", err)
	}
	coupon.ID = snap.Ref.ID
	return coupon, nil
}
