package handler

import (
	"errors"
	"net/http"

	"axie-market-cache/internal/marketplace"
	"axie-market-cache/internal/model"
	"axie-market-cache/pkg/apierror"
	"axie-market-cache/pkg/response"
)

// toAPIError maps a domain failure onto the HTTP error it is reported as.
func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, marketplace.ErrNotFound) {
		return apierror.NotFound("unit not found")
	}

	kind := model.KindOf(err)
	var out *apierror.Error
	switch kind {
	case model.KindTransport:
		out = apierror.BadGateway("marketplace request failed: " + err.Error())
	case model.KindNormalization:
		out = apierror.BadGateway("marketplace response rejected: " + err.Error())
	case model.KindDecode:
		out = apierror.UnprocessableEntity("genes could not be decoded: " + err.Error())
	case model.KindLock:
		out = apierror.ServiceUnavailable("sync already in progress")
	case model.KindPersistence:
		out = apierror.InternalError("cache storage failed")
	default:
		out = apierror.InternalError("")
	}
	return out.WithKind(string(kind))
}

func writeError(w http.ResponseWriter, err error) {
	response.Error(w, toAPIError(err))
}
