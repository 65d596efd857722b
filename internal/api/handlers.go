package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placematch/internal/debounce"
	"github.com/sells-group/placematch/internal/model"
	"github.com/sells-group/placematch/internal/search"
	"github.com/sells-group/placematch/internal/share"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Code: "bad_request"})
		return false
	}
	return true
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchResponse struct {
	Candidates []model.CandidatePlace `json:"candidates"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var q model.SearchQuery
	if !decode(w, r, &q) {
		return
	}
	cands, err := s.deps.Search.Search(r.Context(), q)
	if err != nil {
		s.writeSearchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Candidates: cands})
}

// searchLive serves type-ahead queries. Calls from the same client are
// debounced and a replaced call answers 409 with code "superseded".
func (s *Server) searchLive(w http.ResponseWriter, r *http.Request) {
	q, err := liveQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	key := r.Header.Get("X-Client-ID")
	if key == "" {
		key = r.RemoteAddr
	}

	cands, err := s.live.Do(r.Context(), key, func(ctx context.Context) ([]model.CandidatePlace, error) {
		return s.deps.Search.Search(ctx, q)
	})
	switch {
	case errors.Is(err, debounce.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded", err)
	case err != nil:
		s.writeSearchError(w, err)
	default:
		writeJSON(w, http.StatusOK, searchResponse{Candidates: cands})
	}
}

func liveQuery(r *http.Request) (model.SearchQuery, error) {
	v := r.URL.Query()
	q := model.SearchQuery{Text: v.Get("q")}

	latStr, lngStr := v.Get("lat"), v.Get("lng")
	if latStr != "" || lngStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return q, eris.New("lat must be a number")
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return q, eris.New("lng must be a number")
		}
		q.Center = &model.Coordinate{Lat: lat, Lng: lng}
	}
	if rs := v.Get("radius"); rs != "" {
		radius, err := strconv.ParseFloat(rs, 64)
		if err != nil {
			return q, eris.New("radius must be a number")
		}
		q.RadiusMeters = radius
	}
	return q, nil
}

func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "empty_query", err)
	case errors.Is(err, search.ErrLookupFailure):
		zap.L().Warn("api: search lookup failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "lookup_failure", err)
	default:
		zap.L().Error("api: search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

type resolveResponse struct {
	Registered bool                   `json:"registered"`
	Matches    []model.DuplicateMatch `json:"matches"`
	Closest    *model.MatchSummary    `json:"closest,omitempty"`
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	var rec model.PlaceRecord
	if !decode(w, r, &rec) {
		return
	}
	if strings.TrimSpace(rec.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "name is required", Code: "bad_request"})
		return
	}

	matches := s.deps.Resolver.Resolve(r.Context(), rec)
	resp := resolveResponse{Matches: matches}
	if resp.Matches == nil {
		resp.Matches = []model.DuplicateMatch{}
	}
	if len(matches) > 0 {
		resp.Registered = true
		resp.Closest = matches[0].Summarize()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) classifyBio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Classifier.Classify(req.Text))
}

func (s *Server) shareIngest(w http.ResponseWriter, r *http.Request) {
	var p share.Payload
	if !decode(w, r, &p) {
		return
	}
	sess, err := s.deps.Share.Ingest(r.Context(), p)
	switch {
	case errors.Is(err, share.ErrUnsupportedInput):
		writeJSON(w, http.StatusUnprocessableEntity, sess)
	case err != nil && sess != nil:
		writeJSON(w, http.StatusBadGateway, sess)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err)
	default:
		writeJSON(w, http.StatusOK, sess)
	}
}

type selectRequest struct {
	Session   *share.Session       `json:"session"`
	Candidate model.CandidatePlace `json:"candidate"`
}

func (s *Server) shareSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Session == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "session is required", Code: "bad_request"})
		return
	}
	if err := s.deps.Share.Select(r.Context(), req.Session, req.Candidate); err != nil {
		writeShareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req.Session)
}

func (s *Server) shareManual(w http.ResponseWriter, r *http.Request) {
	var draft model.PlaceRecord
	if !decode(w, r, &draft) {
		return
	}
	sess, err := s.deps.Share.Manual(draft)
	if err != nil {
		writeShareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type persistRequest struct {
	Session   *share.Session `json:"session"`
	AuthorRef string         `json:"author_ref"`
}

type persistResponse struct {
	Place   *model.PlaceRecord `json:"place,omitempty"`
	Session *share.Session     `json:"session"`
	Error   string             `json:"error,omitempty"`
}

// persist answers 207 when the place was created but the favorite write
// failed, so the client keeps the new record.
func (s *Server) persist(w http.ResponseWriter, r *http.Request) {
	var req persistRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Session == nil || strings.TrimSpace(req.AuthorRef) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "session and author_ref are required", Code: "bad_request"})
		return
	}

	place, err := s.deps.Share.Persist(r.Context(), req.Session, req.AuthorRef)
	var partial *share.PartialWriteError
	switch {
	case errors.As(err, &partial):
		writeJSON(w, http.StatusMultiStatus, persistResponse{Place: place, Session: req.Session, Error: err.Error()})
	case errors.Is(err, share.ErrInvalidTransition):
		writeShareError(w, err)
	case err != nil:
		zap.L().Error("api: persist failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, persistResponse{Session: req.Session, Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, persistResponse{Place: place, Session: req.Session})
	}
}

func writeShareError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, share.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, share.ErrInvalidDraft):
		writeError(w, http.StatusBadRequest, "invalid_draft", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
