package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placematch/internal/bio"
	"github.com/sells-group/placematch/internal/model"
	"github.com/sells-group/placematch/internal/policy"
	"github.com/sells-group/placematch/internal/search"
	"github.com/sells-group/placematch/internal/share"
)

type stubSearcher struct {
	mu      sync.Mutex
	results []model.CandidatePlace
	err     error
	queries []model.SearchQuery
}

func (s *stubSearcher) Search(_ context.Context, q model.SearchQuery) ([]model.CandidatePlace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type stubResolver struct {
	matches []model.DuplicateMatch
}

func (s *stubResolver) Resolve(context.Context, model.PlaceRecord) []model.DuplicateMatch {
	return s.matches
}

type stubWriter struct {
	favoriteErr error
}

func (w *stubWriter) CreatePlace(_ context.Context, req model.CreateRequest) (*model.PlaceRecord, error) {
	rec := req.Record()
	rec.ID = "created-1"
	return &rec, nil
}

func (w *stubWriter) AddFavorite(context.Context, string, string) error {
	return w.favoriteErr
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	searcher *stubSearcher
	resolver *stubResolver
	writer   *stubWriter
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		searcher: &stubSearcher{},
		resolver: &stubResolver{},
		writer:   &stubWriter{},
	}
	classifier := bio.NewClassifier(policy.Default().Bio)
	wf := share.NewWorkflow(env.searcher, classifier, env.resolver, env.writer, share.Config{})
	srv := NewServer(Deps{
		Search:     env.searcher,
		Resolver:   env.resolver,
		Classifier: classifier,
		Share:      wf,
	}, Options{DebounceQuiet: 5 * time.Millisecond})
	env.handler = srv.Routes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth_StoreDown(t *testing.T) {
	srv := NewServer(Deps{Health: stubPinger{err: errors.New("conn refused")}}, Options{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "conn refused")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.results = []model.CandidatePlace{
		{PlaceRecord: model.PlaceRecord{Name: "Roastery Café"}, Category: "cafe", IsRegistered: true},
	}

	rec := env.do(t, http.MethodPost, "/v1/search", model.SearchQuery{Text: "roastery"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[searchResponse](t, rec)
	require.Len(t, resp.Candidates, 1)
	assert.True(t, resp.Candidates[0].IsRegistered)
	assert.Equal(t, "roastery", env.searcher.queries[0].Text)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"empty query", search.ErrEmptyQuery, http.StatusBadRequest, "empty_query"},
		{"lookup failure", &search.LookupError{Err: errors.New("503")}, http.StatusBadGateway, "lookup_failure"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.searcher.err = tt.err
			rec := env.do(t, http.MethodPost, "/v1/search", model.SearchQuery{Text: "x"})
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.want, decodeBody[errorBody](t, rec).Code)
		})
	}
}

func TestSearch_BadBody(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchLive(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.results = []model.CandidatePlace{{PlaceRecord: model.PlaceRecord{Name: "Bakery Hachi"}}}

	rec := env.do(t, http.MethodGet, "/v1/search/live?q=bakery&lat=35.66&lng=139.70&radius=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[searchResponse](t, rec)
	assert.Len(t, resp.Candidates, 1)

	q := env.searcher.queries[0]
	assert.Equal(t, "bakery", q.Text)
	require.NotNil(t, q.Center)
	assert.InDelta(t, 35.66, q.Center.Lat, 1e-9)
	assert.InDelta(t, 500, q.RadiusMeters, 1e-9)
}

func TestSearchLive_BadCoordinate(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/search/live?q=x&lat=abc&lng=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.searcher.queries)
}

func TestSearchLive_Superseded(t *testing.T) {
	env := newTestEnv(t)
	srv := NewServer(Deps{Search: env.searcher}, Options{DebounceQuiet: 50 * time.Millisecond})
	h := srv.Routes()

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i, q := range []string{"ca", "caf"} {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/v1/search/live?q="+q, nil)
			req.Header.Set("X-Client-ID", "device-1")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i, q)
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, http.StatusConflict, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	require.Len(t, env.searcher.queries, 1)
	assert.Equal(t, "caf", env.searcher.queries[0].Text)
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.matches = []model.DuplicateMatch{
		{Existing: model.PlaceRecord{ID: "p-1", Name: "Roastery Café"}, DistanceMeters: 7.6, Similarity: 0.923},
	}

	rec := env.do(t, http.MethodPost, "/v1/resolve", model.PlaceRecord{Name: "Roastery Cafe", Lat: 35.662, Lng: 139.7})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[resolveResponse](t, rec)
	assert.True(t, resp.Registered)
	require.NotNil(t, resp.Closest)
	assert.Equal(t, 8, resp.Closest.DistanceMeters)
	assert.Equal(t, 92, resp.Closest.SimilarityPercent)
}

func TestResolve_NoMatch(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/resolve", model.PlaceRecord{Name: "New Place"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"registered":false,"matches":[]}`, rec.Body.String())
}

func TestResolve_RequiresName(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/resolve", model.PlaceRecord{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassifyBio(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/bio/classify", map[string]string{"text": "東京都渋谷区 03-1234-5678 ☕️"})
	require.Equal(t, http.StatusOK, rec.Code)
	sig := decodeBody[model.BioSignalSet](t, rec)
	assert.True(t, sig.IsBusiness)
	assert.Equal(t, "渋谷", sig.LocationHint)
}

func TestShareFlow_CreateThenFavorite(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.results = []model.CandidatePlace{
		{PlaceRecord: model.PlaceRecord{Name: "Roastery Café", Lat: 35.662, Lng: 139.7}, Category: "cafe"},
	}

	rec := env.do(t, http.MethodPost, "/v1/share", share.Payload{URL: "https://www.instagram.com/p/abc/", Text: "Roastery Café #coffee"})
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decodeBody[share.Session](t, rec)
	assert.Equal(t, share.StateCandidatesReady, sess.State)
	require.Len(t, sess.Candidates, 1)

	rec = env.do(t, http.MethodPost, "/v1/share/select", selectRequest{Session: &sess, Candidate: sess.Candidates[0]})
	require.Equal(t, http.StatusOK, rec.Code)
	sess = decodeBody[share.Session](t, rec)
	assert.Equal(t, share.StateSelectedNew, sess.State)
	assert.Equal(t, share.ActionCreateThenFavorite, sess.Action)

	rec = env.do(t, http.MethodPost, "/v1/places/persist", persistRequest{Session: &sess, AuthorRef: "user-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[persistResponse](t, rec)
	require.NotNil(t, resp.Place)
	assert.Equal(t, "created-1", resp.Place.ID)
	assert.Equal(t, share.StatePersisted, resp.Session.State)
}

func TestShare_Unsupported(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/share", share.Payload{URL: "https://example.com/"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	sess := decodeBody[share.Session](t, rec)
	assert.Equal(t, share.ActionReturnToStart, sess.Action)
}

func TestShare_SearchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.err = errors.New("provider down")
	rec := env.do(t, http.MethodPost, "/v1/share", share.Payload{URL: "https://www.instagram.com/p/abc/", Text: "x"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, share.StateFailed, decodeBody[share.Session](t, rec).State)
}

func TestShareSelect_InvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/share/select", selectRequest{Session: &share.Session{State: share.StateReceived}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeBody[errorBody](t, rec).Code)
}

func TestShareManual(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/share/manual", model.PlaceRecord{Name: "喫茶トモ"})
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decodeBody[share.Session](t, rec)
	assert.Equal(t, share.StateSelectedNew, sess.State)
	assert.Equal(t, share.DefaultFallbackImageURL, sess.Selected.ImageURL)

	rec = env.do(t, http.MethodPost, "/v1/share/manual", model.PlaceRecord{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_draft", decodeBody[errorBody](t, rec).Code)
}

func TestPersist_PartialWrite(t *testing.T) {
	env := newTestEnv(t)
	env.writer.favoriteErr = errors.New("favorites unavailable")

	rec := env.do(t, http.MethodPost, "/v1/share/manual", model.PlaceRecord{Name: "喫茶トモ"})
	sess := decodeBody[share.Session](t, rec)

	rec = env.do(t, http.MethodPost, "/v1/places/persist", persistRequest{Session: &sess, AuthorRef: "user-1"})
	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	resp := decodeBody[persistResponse](t, rec)
	require.NotNil(t, resp.Place)
	assert.Equal(t, "created-1", resp.Place.ID)
	assert.Contains(t, resp.Error, "favorites unavailable")
}

func TestPersist_RequiresAuthor(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/places/persist", persistRequest{Session: &share.Session{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPersist_InvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	sess := share.Session{State: share.StateCandidatesReady, Selected: &model.PlaceRecord{Name: "x"}}
	rec := env.do(t, http.MethodPost, "/v1/places/persist", persistRequest{Session: &sess, AuthorRef: "user-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/search", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	srv := NewServer(Deps{Classifier: bio.NewClassifier(policy.Default().Bio)}, Options{RequestsPerMinute: 2})
	h := srv.Routes()

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/bio/classify", bytes.NewBufferString(`{"text":"hi"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
