package handlers

import (
	"net/http"

	"github.com/trailerdeck/trailerdeck/internal/auth"
)

func (h *Handler) getWatchlist(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	movies, err := h.store.ListWatchlist(ctx, claims.UserID)
	if err != nil {
		return internal(err)
	}
	writeJSON(w, http.StatusOK, toMovieList(movies))
	return nil
}

func (h *Handler) putWatchlistItem(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	movieID, err := idParam(r, "movieID")
	if err != nil {
		return notFound("not found")
	}
	if _, err := h.store.GetMovie(ctx, movieID); err != nil {
		if isNoRows(err) {
			return notFound("not found")
		}
		return internal(err)
	}

	if err := h.store.AddToWatchlist(ctx, claims.UserID, movieID); err != nil {
		return internal(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) deleteWatchlistItem(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	movieID, err := idParam(r, "movieID")
	if err != nil {
		return notFound("not found")
	}
	if err := h.store.RemoveFromWatchlist(ctx, claims.UserID, movieID); err != nil {
		if isNoRows(err) {
			return notFound("not found")
		}
		return internal(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) putRating(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	movieID, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	var req RateRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	if req.Rating < 1 || req.Rating > 10 {
		return badRequest("rating must be between 1 and 10")
	}

	if _, err := h.store.GetMovie(ctx, movieID); err != nil {
		if isNoRows(err) {
			return notFound("not found")
		}
		return internal(err)
	}

	if err := h.store.UpsertRating(ctx, claims.UserID, movieID, req.Rating); err != nil {
		return internal(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) deleteRating(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	movieID, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}
	if err := h.store.DeleteRating(ctx, claims.UserID, movieID); err != nil {
		if isNoRows(err) {
			return notFound("not found")
		}
		return internal(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) postWatched(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	movieID, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}
	if _, err := h.store.GetMovie(ctx, movieID); err != nil {
		if isNoRows(err) {
			return notFound("not found")
		}
		return internal(err)
	}

	if err := h.store.RecordWatch(ctx, claims.UserID, movieID); err != nil {
		return internal(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	claims, _ := auth.FromContext(ctx)

	limit := queryInt(r, "limit")
	movies, err := h.store.ListHistory(ctx, claims.UserID, limit)
	if err != nil {
		return internal(err)
	}
	writeJSON(w, http.StatusOK, toMovieList(movies))
	return nil
}
