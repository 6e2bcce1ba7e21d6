package middleware

import (
	"context"
	"errors"

	"notekeeper/cmd/internal/domain/identity"
	"notekeeper/cmd/internal/utils"
	"notekeeper/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Subject, error)
}

type AuthMiddlewareConfig struct {
	Verifier TokenVerifier
}

// NewAuthMiddleware creates the handler with dependencies injected
func NewAuthMiddleware(cfg *AuthMiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := utils.ParseBearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				apierr := apierror.MissingAuthTokenError
				return c.JSON(apierr.Code(), apierr)
			}

			subject, err := cfg.Verifier.Verify(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, identity.ErrVerifierUnavailable) {
					log.Errorf("failed to verify token: %v", err)
					apierr := apierror.InternalServerError
					return c.JSON(apierr.Code(), apierr)
				}

				log.Debugf("rejected token: %v", err)
				apierr := apierror.InvalidAuthTokenError
				return c.JSON(apierr.Code(), apierr)
			}

			c.Set(utils.SubjectKey, subject)
			return next(c)
		}
	}
}
