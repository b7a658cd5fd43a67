package handler

import (
	"errors"
	"net/http"
	"reflect"

	"tillpoint/internal/apierror"
	"tillpoint/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps the domain error taxonomy onto HTTP statuses. Every
// handler funnels service errors through here so a given failure mode always
// gets the same status and envelope.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *domain.ValidationError
		stateErr      *domain.InvalidStateError
		notFoundErr   *domain.NotFoundError
		duplicateErr  *domain.DuplicateValueError
		unauthErr     *domain.UnauthorizedError
		conflictErr   *domain.ConflictError
		voidErr       *domain.BlockedByUnapprovedVoidsError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(validationErr.Msg))
	case errors.As(err, &voidErr):
		// The summary rides along so the client can list the blocking sales.
		c.JSON(http.StatusConflict, apierror.NewVoidBlock(voidErr.Error(), voidErr.Summary))
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, apierror.New(stateErr.Msg))
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusConflict, apierror.New(duplicateErr.Error()))
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, apierror.New(conflictErr.Msg))
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, apierror.New(notFoundErr.Error()))
	case errors.As(err, &unauthErr):
		c.JSON(http.StatusForbidden, apierror.New(unauthErr.Msg))
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled service error")
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}
