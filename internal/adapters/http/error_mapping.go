package httpadapter

import (
	"net/http"

	"github.com/healthchain/rxintake/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrValidation),
		domain.IsKind(err, domain.ErrUnsupportedFormat),
		domain.IsKind(err, domain.ErrExtractionEmpty):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrStorage),
		domain.IsKind(err, domain.ErrRPC),
		domain.IsKind(err, domain.ErrExternalModel):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
