package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v76"

	"github.com/trailerdeck/trailerdeck/internal/auth"
	"github.com/trailerdeck/trailerdeck/internal/logger"
	"github.com/trailerdeck/trailerdeck/internal/store"
)

const maxWebhookBody = 1 << 16 // 64 KiB, Stripe events are small

func (h *Handler) postBillingCheckout(w http.ResponseWriter, r *http.Request) error {
	if h.billing == nil {
		return &Error{Status: http.StatusServiceUnavailable, Message: "billing not configured"}
	}

	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	tier, err := h.store.TierForUser(ctx, claims.UserID)
	if err != nil {
		return internal(err)
	}
	if tier == store.TierPremium {
		return conflict("already subscribed")
	}

	url, err := h.billing.CheckoutURL(claims.UserID, claims.Email)
	if err != nil {
		slog.Error("create checkout session", logger.Error(err))
		return internal(err)
	}
	writeJSON(w, http.StatusOK, &CheckoutResponse{URL: url})
	return nil
}

func (h *Handler) getBillingSubscription(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	sub, err := h.store.GetSubscription(ctx, claims.UserID)
	if err != nil {
		if isNoRows(err) {
			writeJSON(w, http.StatusOK, &SubscriptionResponse{Tier: store.TierBasic, Status: "none"})
			return nil
		}
		return internal(err)
	}
	writeJSON(w, http.StatusOK, &SubscriptionResponse{Tier: sub.Tier, Status: sub.Status})
	return nil
}

// postBillingWebhook applies Stripe subscription lifecycle events to the
// store. Stripe retries deliveries, so every event id is recorded and
// duplicates are acknowledged without reprocessing. Unhandled event types are
// acknowledged too; returning an error would make Stripe retry them forever.
func (h *Handler) postBillingWebhook(w http.ResponseWriter, r *http.Request) error {
	if h.billing == nil {
		return &Error{Status: http.StatusServiceUnavailable, Message: "billing not configured"}
	}

	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return badRequest("bad request")
	}

	event, err := h.billing.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		slog.Warn("webhook signature verification failed", logger.Error(err))
		return badRequest("invalid signature")
	}

	fresh, err := h.store.MarkEventProcessed(ctx, event.ID)
	if err != nil {
		return internal(err)
	}
	if !fresh {
		slog.Info("duplicate webhook delivery skipped", slog.String("event_id", event.ID))
		w.WriteHeader(http.StatusOK)
		return nil
	}

	switch event.Type {
	case "checkout.session.completed":
		err = h.applyCheckoutCompleted(ctx, event)
	case "customer.subscription.deleted":
		err = h.applySubscriptionDeleted(ctx, event)
	default:
		slog.Debug("ignoring webhook event", slog.String("type", string(event.Type)))
	}
	if err != nil {
		// Release the claim so the redelivery is applied, not skipped.
		if ferr := h.store.ForgetEvent(ctx, event.ID); ferr != nil {
			slog.Error("unclaim webhook event", logger.Error(ferr), slog.String("event_id", event.ID))
		}
		return internal(err)
	}

	w.WriteHeader(http.StatusOK)
	return nil
}

func (h *Handler) applyCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return err
	}

	userID := sess.ClientReferenceID
	if userID == "" {
		userID = sess.Metadata["user_id"]
	}
	if userID == "" {
		slog.Warn("checkout session without user reference", slog.String("session_id", sess.ID))
		return nil
	}

	sub := store.Subscription{
		UserID: userID,
		Tier:   store.TierPremium,
		Status: "active",
	}
	if sess.Customer != nil {
		sub.StripeCustomerID = sql.Null[string]{V: sess.Customer.ID, Valid: true}
	}
	if sess.Subscription != nil {
		sub.StripeSubscriptionID = sql.Null[string]{V: sess.Subscription.ID, Valid: true}
	}
	if err := h.store.UpsertSubscription(ctx, &sub); err != nil {
		return err
	}
	slog.Info("user upgraded to premium", slog.String("user_id", userID))
	return nil
}

func (h *Handler) applySubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return err
	}

	userID, err := h.store.UserIDByStripeSubscription(ctx, stripeSub.ID)
	if err != nil {
		if isNoRows(err) {
			slog.Warn("subscription.deleted for unknown subscription", slog.String("stripe_subscription_id", stripeSub.ID))
			return nil
		}
		return err
	}

	sub := store.Subscription{
		UserID:               userID,
		Tier:                 store.TierBasic,
		Status:               "canceled",
		StripeSubscriptionID: sql.Null[string]{V: stripeSub.ID, Valid: true},
	}
	if stripeSub.Customer != nil {
		sub.StripeCustomerID = sql.Null[string]{V: stripeSub.Customer.ID, Valid: true}
	}
	if err := h.store.UpsertSubscription(ctx, &sub); err != nil {
		return err
	}
	slog.Info("user downgraded to basic", slog.String("user_id", userID))
	return nil
}
