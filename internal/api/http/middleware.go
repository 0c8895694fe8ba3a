package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/observability"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewPersistenceError(nil)
			}
			if err != nil {
				err = writeError(c, logger, metrics, err)
			}
		}()
		return c.Next()
	}
}

// ErrorHandler renders errors that escape the middleware chain.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, logger, metrics, err)
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) error {
	domainErr := toEnvelope(err)
	metrics.RecordError(c.Route().Path, c.Method(), domainErr.Kind)

	if domainErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("kind", domainErr.Kind), zap.Error(domainErr))
	} else if domainErr.Err != nil {
		logger.Warn("request rejected", zap.String("kind", domainErr.Kind), zap.Error(domainErr))
	}

	return c.Status(domainErr.HTTPStatus).JSON(dto.ErrorResponse{
		Kind:    domainErr.Kind,
		Message: domainErr.Message,
		Errors:  domainErr.Details,
	})
}

// toEnvelope maps framework errors onto kinds; everything else goes through ToDomainError.
func toEnvelope(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		kind := apperrors.KindValidation
		switch {
		case fiberErr.Code == http.StatusNotFound:
			kind = apperrors.KindNotFound
		case fiberErr.Code >= http.StatusInternalServerError:
			kind = apperrors.KindPersistence
		}
		return apperrors.NewDomainError(kind, fiberErr.Message, fiberErr.Code, nil)
	}
	return apperrors.ToDomainError(err)
}
