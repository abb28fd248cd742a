package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var ErrEmailTaken = errors.New("email already registered")

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string `bun:"id,pk"`
	Email        string `bun:"email,notnull"`
	PasswordHash string `bun:"password_hash,notnull"`
	CreatedAt    string `bun:"created_at,notnull"`
}

type Subscription struct {
	bun.BaseModel `bun:"table:subscriptions,alias:sub"`

	UserID               string           `bun:"user_id,pk"`
	Tier                 string           `bun:"tier,notnull"`
	StripeCustomerID     sql.Null[string] `bun:"stripe_customer_id,nullzero"`
	StripeSubscriptionID sql.Null[string] `bun:"stripe_subscription_id,nullzero"`
	Status               string           `bun:"status,notnull"`
	UpdatedAt            string           `bun:"updated_at,notnull"`
}

func (s *Store) CreateUser(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.NewInsert().Model(user).Exec(ctx)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrEmailTaken
	}
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.NewSelect().
		Model(&u).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	return u, err
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.NewSelect().
		Model(&u).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	return u, err
}

// TierForUser resolves the user's access tier. Users without a subscription
// row are Basic.
func (s *Store) TierForUser(ctx context.Context, userID string) (string, error) {
	var tier string
	err := s.db.NewSelect().
		Table("subscriptions").
		Column("tier").
		Where("user_id = ?", userID).
		Where("status = ?", "active").
		Scan(ctx, &tier)
	if errors.Is(err, sql.ErrNoRows) {
		return TierBasic, nil
	}
	if err != nil {
		return "", err
	}
	return tier, nil
}

func (s *Store) GetSubscription(ctx context.Context, userID string) (Subscription, error) {
	var sub Subscription
	err := s.db.NewSelect().
		Model(&sub).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	return sub, err
}

// UpsertSubscription writes the user's subscription state, replacing any
// previous row.
func (s *Store) UpsertSubscription(ctx context.Context, sub *Subscription) error {
	sub.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.NewInsert().
		Model(sub).
		On("CONFLICT (user_id) DO UPDATE").
		Set("tier = EXCLUDED.tier").
		Set("stripe_customer_id = EXCLUDED.stripe_customer_id").
		Set("stripe_subscription_id = EXCLUDED.stripe_subscription_id").
		Set("status = EXCLUDED.status").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// UserIDByStripeSubscription resolves which user a Stripe subscription object
// belongs to.
func (s *Store) UserIDByStripeSubscription(ctx context.Context, stripeSubID string) (string, error) {
	var userID string
	err := s.db.NewSelect().
		Table("subscriptions").
		Column("user_id").
		Where("stripe_subscription_id = ?", stripeSubID).
		Scan(ctx, &userID)
	return userID, err
}

// MarkEventProcessed records a webhook event id. It reports false when the
// event was seen before, which callers use to skip duplicate deliveries.
func (s *Store) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	row := map[string]interface{}{
		"event_id":     eventID,
		"processed_at": time.Now().UTC().Format(time.RFC3339),
	}
	res, err := s.db.NewInsert().
		Model(&row).
		Table("webhook_events").
		On("CONFLICT (event_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return true, nil //nolint:nilerr
	}
	return n > 0, nil
}

// ForgetEvent drops a recorded webhook event id. Callers use it when the
// event could not be applied after the id was claimed, so the provider's
// redelivery is processed instead of skipped as a duplicate.
func (s *Store) ForgetEvent(ctx context.Context, eventID string) error {
	_, err := s.db.NewDelete().
		Table("webhook_events").
		Where("event_id = ?", eventID).
		Exec(ctx)
	return err
}
