package push

import (
	"context"
	"errors"
	"io"
	"net/http"

	"delivery-gateway/push/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, p domain.Payload) (domain.Report, error)
}

type Registrar interface {
	Subscribe(ctx context.Context, ep domain.Endpoint) (domain.Endpoint, error)
	Unsubscribe(ctx context.Context, uri string) (bool, error)
}

type sendRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

type sendResponse struct {
	Success bool `json:"success"`
	domain.Report
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes monta as rotas de push sob o router recebido (tipicamente /api/push).
func Routes(log zerolog.Logger, b Broadcaster, reg Registrar, vapidPublicKey string) func(r chi.Router) {
	return func(r chi.Router) {
		r.Post("/send", Send(log, b))
		r.Post("/subscribe", Subscribe(log, reg))
		r.Delete("/subscribe", Unsubscribe(log, reg))
		r.Get("/vapid-public-key", VAPIDPublicKey(vapidPublicKey))
	}
}

// Send dispara um payload para todos os inscritos. Corpo vazio usa os padrões.
func Send(log zerolog.Logger, b Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(w, r, "invalid json body")
			return
		}

		rep, err := b.Broadcast(r.Context(), domain.NewPayload(req.Title, req.Body, req.URL))
		if err != nil {
			log.Error().Err(err).Msg("push broadcast failed")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, errorResponse{Error: "failed to send notifications"})
			return
		}

		render.JSON(w, r, sendResponse{Success: true, Report: rep})
	}
}

func Subscribe(log zerolog.Logger, reg Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ep domain.Endpoint
		if err := render.DecodeJSON(r.Body, &ep); err != nil {
			badRequest(w, r, "invalid json body")
			return
		}
		// o id é sempre nosso
		ep.ID = ""

		saved, err := reg.Subscribe(r.Context(), ep)
		switch {
		case errors.Is(err, domain.ErrInvalidSubscription):
			badRequest(w, r, err.Error())
			return
		case err != nil:
			log.Error().Err(err).Msg("saving push subscription failed")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, errorResponse{Error: "failed to save subscription"})
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, saved)
	}
}

func Unsubscribe(log zerolog.Logger, reg Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req unsubscribeRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			badRequest(w, r, "invalid json body")
			return
		}

		removed, err := reg.Unsubscribe(r.Context(), req.Endpoint)
		switch {
		case errors.Is(err, domain.ErrInvalidSubscription):
			badRequest(w, r, "endpoint is required")
			return
		case err != nil:
			log.Error().Err(err).Msg("removing push subscription failed")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, errorResponse{Error: "failed to remove subscription"})
			return
		}

		render.JSON(w, r, map[string]bool{"removed": removed})
	}
}

func VAPIDPublicKey(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key == "" {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, errorResponse{Error: "push is not configured"})
			return
		}
		render.JSON(w, r, map[string]string{"publicKey": key})
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: msg})
}
