package utils

import (
	"notekeeper/cmd/internal/domain/identity"
	"notekeeper/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const SubjectKey = "subject"

func GetSubjectFromContext(c echo.Context) (*identity.Subject, apierror.ErrorResponse) {
	val := c.Get(SubjectKey)
	if val == nil {
		log.Warnf("route %s attempted to read nil subject from context", c.Request().URL)
		return nil, apierror.MissingAuthTokenError
	}

	subject, ok := val.(*identity.Subject)
	if !ok {
		log.Warnf("expected subject type at '%s' context key, got %T", SubjectKey, val)
		return nil, apierror.InternalServerError
	}
	return subject, nil
}
