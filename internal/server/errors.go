// Package server provides the HTTP REST API for the interpretation pipeline.
package server

import (
	"errors"
	"net/http"

	"github.com/kmatsumoto/maturity-interpreter/internal/db"
	"github.com/kmatsumoto/maturity-interpreter/internal/pipeline"
)

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound   *pipeline.RunNotFoundError
		invalid    *pipeline.InvalidStateError
		incomplete *pipeline.IncompleteAnswersError
		unknown    *pipeline.UnknownQuestionError
		input      *pipeline.InputError
		collab     *pipeline.CollaboratorError
		stale      *db.StaleSessionError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid), errors.As(err, &stale):
		return http.StatusConflict
	case errors.As(err, &incomplete), errors.As(err, &unknown), errors.As(err, &input):
		return http.StatusBadRequest
	case errors.As(err, &collab):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
