package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trailerdeck/trailerdeck/internal/auth"
	"github.com/trailerdeck/trailerdeck/internal/logger"
	"github.com/trailerdeck/trailerdeck/internal/store"
)

const minPasswordLen = 8

func (h *Handler) postRegister(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return badRequest("invalid email")
	}
	if len(req.Password) < minPasswordLen {
		return badRequest("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return internal(err)
	}

	user := store.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}
	if err := h.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return conflict("email already registered")
		}
		slog.Warn("register: create user failed", logger.Error(err))
		return internal(err)
	}

	return h.respondWithToken(ctx, w, &user)
}

func (h *Handler) postLogin(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}

	user, err := h.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if isNoRows(err) {
			return unauthorized("invalid credentials")
		}
		return internal(err)
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		slog.Warn("login: invalid password", slog.String("remote", remoteHost(r)))
		return unauthorized("invalid credentials")
	}

	return h.respondWithToken(ctx, w, &user)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, ok := auth.FromContext(ctx)
	if !ok {
		return unauthorized("unauthorized")
	}

	tier, err := h.store.TierForUser(ctx, claims.UserID)
	if err != nil {
		return internal(err)
	}

	writeJSON(w, http.StatusOK, &UserInfo{
		ID:    claims.UserID,
		Email: claims.Email,
		Tier:  tier,
	})
	return nil
}

func (h *Handler) respondWithToken(ctx context.Context, w http.ResponseWriter, user *store.User) error {
	token, exp, err := h.auth.Token(user.ID, user.Email)
	if err != nil {
		return internal(err)
	}

	tier, err := h.store.TierForUser(ctx, user.ID)
	if err != nil {
		tier = store.TierBasic
	}

	writeJSON(w, http.StatusOK, &AuthResponse{
		Token:     token,
		ExpiresAt: exp.Format(time.RFC3339),
		User: UserInfo{
			ID:    user.ID,
			Email: user.Email,
			Tier:  tier,
		},
	})
	return nil
}

func remoteHost(r *http.Request) string {
	if addrPort, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addrPort.Addr().String()
	}
	return r.RemoteAddr
}
