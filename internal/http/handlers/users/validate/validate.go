// Package validate реализует HTTP-обработчик проверки сессионного токена.
package validate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/user-service/internal/http/response"
	"github.com/magabrotheeeer/user-service/internal/lib/sl"
	"github.com/magabrotheeeer/user-service/internal/models"
	"github.com/magabrotheeeer/user-service/internal/services/auth"
)

// Service описывает проверку токена.
type Service interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// Handler обрабатывает запросы проверки токена.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверка токена
// @Description Возвращает владельца активного токена. Срок действия не продлевается.
// @Tags Users
// @Produce  json
// @Param token path string true "Сессионный токен"
// @Success 200 {object} response.User "Владелец токена"
// @Failure 401 {object} response.ErrorResponse "Недействительный токен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/validate/{token} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.validate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, err := h.service.ValidateToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			log.Info("invalid token")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error(auth.ErrInvalidToken.Error()))
			return
		}
		log.Error("failed to validate token", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("token is valid", slog.Int64("user_id", user.ID))
	render.JSON(w, r, response.OKWithData(response.UserFrom(user)))
}
