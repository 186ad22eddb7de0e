package user

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"hypercase/internal/domain/session"
	"hypercase/internal/domain/user"
	"hypercase/internal/utils/logger"
)

type Handler struct {
	service    user.Servicer
	session    session.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service user.Servicer, session session.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		session:    session,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.registerOp(), h.register)
	huma.Register(api, h.loginOp(), h.login)
}

func (h *Handler) register(ctx context.Context, input *registerInput) (*registerOutput, error) {
	userID, err := h.service.Register(ctx, input.Body)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidInput):
			return nil, huma.Error400BadRequest(strings.TrimPrefix(err.Error(), user.ErrInvalidInput.Error()+": "))
		case errors.Is(err, user.ErrAlreadyExists):
			return nil, huma.Error409Conflict("User with this email already exists")
		default:
			h.log.Error("register", logger.Err(err))
			return nil, huma.Error500InternalServerError("Internal server error")
		}
	}

	return &registerOutput{
		Body: user.RegisterResponse{ID: userID, Status: "Ok"},
	}, nil
}

func (h *Handler) login(ctx context.Context, input *loginInput) (*loginOutput, error) {
	u, err := h.service.Authenticate(ctx, input.Body)
	if err != nil {
		if errors.Is(err, user.ErrInvalidAuth) {
			return nil, huma.Error401Unauthorized("Invalid credentials")
		}
		h.log.Error("authenticate", logger.Err(err))
		return nil, huma.Error500InternalServerError("Internal server error")
	}

	sess, err := h.session.Create(ctx, u)
	if err != nil {
		h.log.Error("create session", logger.Err(err))
		return nil, huma.Error500InternalServerError("Internal server error")
	}

	return &loginOutput{Body: sess}, nil
}
