package restapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hbenedek/dial-a-ride/sim"
)

type errorBody struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

func (api *RestAPI) sendJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		api.logger.WithField("path", r.URL.Path).Errorf("failed to encode response: %v", err)
	}
}

func (api *RestAPI) errorResponse(w http.ResponseWriter, r *http.Request, status int, text string) {
	api.sendJSON(w, r, status, errorBody{Code: status, Text: text})
}

func (api *RestAPI) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	api.errorResponse(w, r, http.StatusNotFound, "episode not found")
}

// stepErrorResponse maps a simulator error to its HTTP status.
// Rejected actions leave the episode usable; anything else has ended it.
func (api *RestAPI) stepErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sim.ErrInvalidAction):
		api.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, sim.ErrEpisodeDone):
		api.errorResponse(w, r, http.StatusConflict, err.Error())
	default:
		api.logger.WithField("path", r.URL.Path).Errorf("episode failed: %v", err)
		api.errorResponse(w, r, http.StatusInternalServerError, err.Error())
	}
}
