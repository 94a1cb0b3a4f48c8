package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hbenedek/dial-a-ride/sim"
	"github.com/hbenedek/dial-a-ride/sim/trace"
	"github.com/hbenedek/dial-a-ride/sim/workload"
)

// maxBodyBytes bounds request bodies; inline Cordeau instances are the largest.
const maxBodyBytes = 8 << 20

// CreateEpisodeRequest describes a new episode. Exactly one of Generator and
// Cordeau (the text of a Cordeau-format instance) must be set.
type CreateEpisodeRequest struct {
	Generator *workload.GeneratorSpec `json:"generator,omitempty"`
	Cordeau   string                  `json:"cordeau,omitempty"`
	TimeEnd   float64                 `json:"time_end,omitempty"`
	MaxStep   int                     `json:"max_step,omitempty"`
	Speed     float64                 `json:"speed,omitempty"`
	Penalties *sim.Penalties          `json:"penalties,omitempty"`
	Trace     bool                    `json:"trace,omitempty"`
}

// EpisodeResponse is returned on creation, observation and reset.
type EpisodeResponse struct {
	ID          string           `json:"id"`
	Observation *sim.Observation `json:"observation"`
}

// StepRequest carries one action for the vehicle awaiting a decision.
type StepRequest struct {
	Action *int `json:"action"`
}

// StepResponse is the outcome of one decision cycle.
type StepResponse struct {
	Observation *sim.Observation `json:"observation"`
	Reward      float64          `json:"reward"`
	Done        bool             `json:"done"`
	Arrivals    []sim.Arrival    `json:"arrivals"`
}

// MetricsResponse is the episode's metrics plus, when traced, a summary of its trace.
type MetricsResponse struct {
	sim.MetricsOutput
	Trace *trace.TraceSummary `json:"trace,omitempty"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (api *RestAPI) buildSimulator(req *CreateEpisodeRequest, id string) (*sim.Simulator, error) {
	cfg := sim.NewConfig(api.defaults.TimeEnd, api.defaults.MaxStep)
	cfg.Speed = api.defaults.Speed
	cfg.Penalties = api.defaults.Penalties

	var inst *sim.Instance
	switch {
	case req.Generator != nil && req.Cordeau != "":
		return nil, fmt.Errorf("generator and cordeau are mutually exclusive")
	case req.Generator != nil:
		generated, err := workload.Generate(req.Generator)
		if err != nil {
			return nil, err
		}
		inst = generated
		cfg.TimeEnd = req.Generator.TimeEnd
	case req.Cordeau != "":
		ds, err := workload.ParseCordeau(strings.NewReader(req.Cordeau))
		if err != nil {
			return nil, err
		}
		inst = ds.Instance
		cfg.TimeEnd = ds.Horizon
	default:
		return nil, fmt.Errorf("one of generator or cordeau is required")
	}

	if req.TimeEnd > 0 {
		cfg.TimeEnd = req.TimeEnd
	}
	if req.MaxStep > 0 {
		cfg.MaxStep = req.MaxStep
	}
	if req.Speed > 0 {
		cfg.Speed = req.Speed
	}
	if req.Penalties != nil {
		cfg.Penalties = *req.Penalties
	}
	cfg.Trace = req.Trace
	return sim.NewSimulator(inst, cfg, api.logger.WithField("episode", id))
}

func (api *RestAPI) createEpisodeHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateEpisodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		api.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := uuid.NewString()
	s, err := api.buildSimulator(&req, id)
	if err != nil {
		api.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	api.mu.Lock()
	api.episodes[id] = &episode{id: id, sim: s}
	api.mu.Unlock()

	size := s.Instance.Size()
	api.logger.WithFields(logrus.Fields{"episode": id, "vehicles": size.Vehicles, "requests": size.Requests}).
		Info("episode created")
	api.sendJSON(w, r, http.StatusCreated, EpisodeResponse{ID: id, Observation: s.Observe()})
}

func (api *RestAPI) observeHandler(w http.ResponseWriter, r *http.Request) {
	ep, ok := api.lookup(r)
	if !ok {
		api.notFoundResponse(w, r)
		return
	}
	ep.mu.Lock()
	obs := ep.sim.Observe()
	ep.mu.Unlock()
	api.sendJSON(w, r, http.StatusOK, EpisodeResponse{ID: ep.id, Observation: obs})
}

func (api *RestAPI) stepHandler(w http.ResponseWriter, r *http.Request) {
	ep, ok := api.lookup(r)
	if !ok {
		api.notFoundResponse(w, r)
		return
	}
	var req StepRequest
	if err := decodeBody(w, r, &req); err != nil {
		api.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Action == nil {
		api.errorResponse(w, r, http.StatusBadRequest, "action is required")
		return
	}

	ep.mu.Lock()
	res, err := ep.sim.Step(*req.Action)
	ep.mu.Unlock()
	if err != nil {
		api.stepErrorResponse(w, r, err)
		return
	}
	arrivals := res.Arrivals
	if arrivals == nil {
		arrivals = []sim.Arrival{}
	}
	api.sendJSON(w, r, http.StatusOK, StepResponse{
		Observation: res.Observation,
		Reward:      res.Reward,
		Done:        res.Done,
		Arrivals:    arrivals,
	})
}

func (api *RestAPI) resetHandler(w http.ResponseWriter, r *http.Request) {
	ep, ok := api.lookup(r)
	if !ok {
		api.notFoundResponse(w, r)
		return
	}
	ep.mu.Lock()
	err := ep.sim.Reset()
	var obs *sim.Observation
	if err == nil {
		obs = ep.sim.Observe()
	}
	ep.mu.Unlock()
	if err != nil {
		api.stepErrorResponse(w, r, err)
		return
	}
	api.sendJSON(w, r, http.StatusOK, EpisodeResponse{ID: ep.id, Observation: obs})
}

func (api *RestAPI) metricsHandler(w http.ResponseWriter, r *http.Request) {
	ep, ok := api.lookup(r)
	if !ok {
		api.notFoundResponse(w, r)
		return
	}
	ep.mu.Lock()
	resp := MetricsResponse{MetricsOutput: ep.sim.Metrics.Output(ep.id)}
	if ep.sim.Trace != nil {
		resp.Trace = trace.Summarize(ep.sim.Trace)
	}
	ep.mu.Unlock()
	api.sendJSON(w, r, http.StatusOK, resp)
}

func (api *RestAPI) deleteEpisodeHandler(w http.ResponseWriter, r *http.Request) {
	id := episodeID(r)
	api.mu.Lock()
	_, ok := api.episodes[id]
	delete(api.episodes, id)
	api.mu.Unlock()
	if !ok {
		api.notFoundResponse(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
