package videosync

import (
	"context"
	"errors"
	"net/http"

	"delivery-gateway/videosync/domain"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

type CallbackHandler interface {
	Handle(ctx context.Context, cb domain.Callback) (domain.Ack, error)
}

// Webhook trata POST /api/webhooks/video.
func Webhook(log zerolog.Logger, h CallbackHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cb domain.Callback
		if err := render.DecodeJSON(r.Body, &cb); err != nil {
			log.Warn().Err(err).Msg("malformed video callback")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "invalid payload"})
			return
		}

		ack, err := h.Handle(r.Context(), cb)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrInvalidCallback) {
				status = http.StatusBadRequest
			}
			log.Warn().Err(err).Msg("video callback rejected")
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}

		render.JSON(w, r, ack)
	}
}
