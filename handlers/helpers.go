package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/riftarena/tournament-engine/engine"
	"github.com/riftarena/tournament-engine/repositories"
	"github.com/riftarena/tournament-engine/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrParticipantNotFound),
		errors.Is(err, repositories.ErrBracketNotFound),
		errors.Is(err, repositories.ErrMatchNotFound):
		notFoundResponse(w, r)

	case errors.Is(err, services.ErrConflictingGeneration),
		errors.Is(err, services.ErrMatchAlreadyDecided),
		errors.Is(err, repositories.ErrTournamentNameConflict),
		errors.Is(err, repositories.ErrParticipantSeedConflict),
		errors.Is(err, repositories.ErrBracketPositionConflict):
		conflictResponse(w, r, err.Error())

	// RoundIncomplete несёт количество несыгранных матчей — отдаём его явно.
	case errors.Is(err, services.ErrRoundIncomplete):
		var incomplete *services.RoundIncompleteError
		if errors.As(err, &incomplete) {
			errorResponse(w, r, http.StatusConflict, jsonResponse{
				"message":     incomplete.Error(),
				"round":       incomplete.RoundNumber,
				"outstanding": incomplete.Outstanding,
			})
			return
		}
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrRoundAlreadyPlayed):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrFormatMismatch),
		errors.Is(err, services.ErrSeedOutOfRange),
		errors.Is(err, engine.ErrConfiguration),
		errors.Is(err, engine.ErrInsufficientParticipants):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrConfirmationRequired):
		errorResponse(w, r, http.StatusPreconditionRequired, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}
