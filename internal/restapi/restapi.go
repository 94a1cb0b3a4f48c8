// Package restapi exposes the simulator's decision interface over HTTP:
// clients create episodes, read observations and submit one action per step.
package restapi

import (
	"net/http"
	"sync"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/hbenedek/dial-a-ride/sim"
)

// Defaults fills the episode parameters a create request leaves unset.
type Defaults struct {
	TimeEnd   float64
	MaxStep   int
	Speed     float64
	Penalties sim.Penalties
}

// RestAPI holds the live episodes. Each episode is driven by one client;
// its own mutex serializes concurrent steps on it.
type RestAPI struct {
	logger   logrus.FieldLogger
	defaults Defaults

	mu       sync.RWMutex
	episodes map[string]*episode
}

type episode struct {
	mu  sync.Mutex
	id  string
	sim *sim.Simulator
}

// New creates a RestAPI. A nil logger logs through the logrus standard logger.
func New(logger logrus.FieldLogger, defaults Defaults) *RestAPI {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RestAPI{
		logger:   logger,
		defaults: defaults,
		episodes: make(map[string]*episode),
	}
}

// Routes returns the HTTP handler serving the API.
func (api *RestAPI) Routes() http.Handler {
	router := httprouter.New()
	router.HandlerFunc(http.MethodPost, "/v1/episodes", api.createEpisodeHandler)
	router.HandlerFunc(http.MethodGet, "/v1/episodes/:id", api.observeHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/episodes/:id", api.deleteEpisodeHandler)
	router.HandlerFunc(http.MethodPost, "/v1/episodes/:id/step", api.stepHandler)
	router.HandlerFunc(http.MethodPost, "/v1/episodes/:id/reset", api.resetHandler)
	router.HandlerFunc(http.MethodGet, "/v1/episodes/:id/metrics", api.metricsHandler)
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.errorResponse(w, r, http.StatusNotFound, "route not found")
	})
	return router
}

func episodeID(r *http.Request) string {
	return httprouter.ParamsFromContext(r.Context()).ByName("id")
}

func (api *RestAPI) lookup(r *http.Request) (*episode, bool) {
	id := episodeID(r)
	api.mu.RLock()
	defer api.mu.RUnlock()
	ep, ok := api.episodes[id]
	return ep, ok
}
