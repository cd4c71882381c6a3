package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/domain"
)

// errMalformedBody marks a body that is not the JSON shape the endpoint expects.
var errMalformedBody = errors.New("malformed request body")

// principal returns the authenticated user placed in the context by the
// auth middleware, writing a 401 when it is absent.
func principal(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return nil, false
	}
	return user, true
}

// getPathUUID extracts a UUID from the URL path parameters. A missing or
// malformed value is reported as domain.ErrInvalidID, which maps to 404:
// a bad identifier and an absent resource look the same to the client.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	id, err := uuid.Parse(pathParam)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: path parameter %s", domain.ErrInvalidID, paramName)
	}
	return id, nil
}

// decodeBody decodes a JSON body into v, marking syntax and type errors as
// errMalformedBody.
func decodeBody(r *http.Request, v interface{}) error {
	if err := shared.DecodeJSON(r, v); err != nil {
		if errors.Is(err, shared.ErrEmptyBody) {
			return err
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// decodeUpdates decodes a JSON object body into its members. An empty body
// is an empty update.
func decodeUpdates(r *http.Request) (map[string]json.RawMessage, error) {
	fields, err := shared.DecodeFields(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return fields, nil
}
