package share

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placematch/internal/metrics"
	"github.com/sells-group/placematch/internal/model"
)

// Defaults applied to drafts that lack a value.
const (
	DefaultPlaceholderQuery    = "カフェ"
	DefaultPlaceholderLocation = "位置情報なし"
	DefaultFallbackImageURL    = "https://placehold.jp/600x400.png?text=No+Image"
)

// DefaultCenter is Tokyo Station.
var DefaultCenter = model.Coordinate{Lat: 35.681236, Lng: 139.767125}

// Searcher runs the candidate search pipeline.
type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) ([]model.CandidatePlace, error)
}

// BioClassifier scores profile biographies.
type BioClassifier interface {
	Classify(text string) model.BioSignalSet
}

// Resolver finds known duplicates of a place.
type Resolver interface {
	Resolve(ctx context.Context, candidate model.PlaceRecord) []model.DuplicateMatch
}

// Writer persists places and favorites.
type Writer interface {
	CreatePlace(ctx context.Context, req model.CreateRequest) (*model.PlaceRecord, error)
	AddFavorite(ctx context.Context, userRef, placeID string) error
}

// Config holds the workflow's fallback values.
type Config struct {
	PlaceholderQuery    string
	PlaceholderLocation string
	FallbackImageURL    string
	DefaultCenter       model.Coordinate

	// SearchCenter, when set, biases every search of the workflow.
	SearchCenter       *model.Coordinate
	SearchRadiusMeters float64
}

func (c Config) withDefaults() Config {
	if c.PlaceholderQuery == "" {
		c.PlaceholderQuery = DefaultPlaceholderQuery
	}
	if c.PlaceholderLocation == "" {
		c.PlaceholderLocation = DefaultPlaceholderLocation
	}
	if c.FallbackImageURL == "" {
		c.FallbackImageURL = DefaultFallbackImageURL
	}
	if c.DefaultCenter == (model.Coordinate{}) {
		c.DefaultCenter = DefaultCenter
	}
	return c
}

// Workflow drives share sessions.
type Workflow struct {
	searcher   Searcher
	classifier BioClassifier
	resolver   Resolver
	writer     Writer
	cfg        Config
}

// NewWorkflow creates a Workflow.
func NewWorkflow(searcher Searcher, classifier BioClassifier, resolver Resolver, writer Writer, cfg Config) *Workflow {
	return &Workflow{
		searcher:   searcher,
		classifier: classifier,
		resolver:   resolver,
		writer:     writer,
		cfg:        cfg.withDefaults(),
	}
}

// Ingest classifies the payload and runs its path up to CANDIDATES_READY.
// An unsupported link returns ErrUnsupportedInput alongside a session whose
// action is ActionReturnToStart. A search failure returns the error with a
// FAILED session.
func (w *Workflow) Ingest(ctx context.Context, p Payload) (*Session, error) {
	s := &Session{State: StateReceived, Input: p, Candidates: []model.CandidatePlace{}}
	s.Kind = ClassifyURL(p.URL)
	s.State = s.Kind

	log := zap.L().With(zap.String("kind", string(s.Kind)), zap.String("url", p.URL))

	var err error
	switch s.Kind {
	case StateDirectPost:
		err = w.ingestDirectPost(ctx, s)
	case StateProfile:
		err = w.ingestProfile(ctx, s)
	case StateExternalMap:
		w.ingestExternalMap(s)
	default:
		s.Action = ActionReturnToStart
		s.Error = ErrUnsupportedInput.Error()
		metrics.RecordShareIngestion(string(s.Kind), string(s.State))
		log.Info("share: unsupported link")
		return s, ErrUnsupportedInput
	}

	if err != nil {
		s.fail(err)
		metrics.RecordShareIngestion(string(s.Kind), string(s.State))
		log.Warn("share: ingestion failed", zap.Error(err))
		return s, err
	}

	s.State = StateCandidatesReady
	s.Action = ActionSelectCandidate
	metrics.RecordShareIngestion(string(s.Kind), string(s.State))
	log.Debug("share: candidates ready",
		zap.String("query", s.Query),
		zap.Int("candidates", len(s.Candidates)),
		zap.Bool("hint_unused", s.HintUnused),
	)
	return s, nil
}

func (w *Workflow) ingestDirectPost(ctx context.Context, s *Session) error {
	s.Query = QueryFromText(s.Input.Text)
	if s.Query == "" {
		s.Query = w.cfg.PlaceholderQuery
	}
	cands, err := w.search(ctx, s.Query)
	if err != nil {
		return err
	}
	s.Candidates = cands
	return nil
}

func (w *Workflow) ingestProfile(ctx context.Context, s *Session) error {
	name := DisplayNameFromTitle(s.Input.Title)
	if name == "" {
		name = w.cfg.PlaceholderQuery
	}

	sig := w.classifier.Classify(s.Input.Text)
	s.Bio = &sig

	if sig.IsBusiness && sig.LocationHint != "" {
		s.Query = name + " " + sig.LocationHint
		cands, err := w.search(ctx, s.Query)
		if err != nil {
			return err
		}
		if len(cands) > 0 {
			s.Candidates = cands
			return nil
		}
		s.HintUnused = true
	}

	s.Query = name
	cands, err := w.search(ctx, s.Query)
	if err != nil {
		return err
	}
	s.Candidates = cands
	return nil
}

func (w *Workflow) ingestExternalMap(s *Session) {
	name := PlaceNameFromMapTitle(s.Input.Title)
	if name == "" {
		name = QueryFromText(s.Input.Text)
	}

	draft := model.PlaceRecord{
		Name:        name,
		Location:    w.cfg.PlaceholderLocation,
		ImageURL:    w.cfg.FallbackImageURL,
		Source:      model.SourceExternalMap,
		Description: strings.TrimSpace(strings.Join(nonEmpty(s.Input.Text, s.Input.URL), "\n")),
	}
	if c, ok := CoordinateFromMapURL(s.Input.URL); ok {
		draft.Lat, draft.Lng = c.Lat, c.Lng
	} else {
		draft.Lat, draft.Lng = w.cfg.DefaultCenter.Lat, w.cfg.DefaultCenter.Lng
	}
	s.Candidates = []model.CandidatePlace{{PlaceRecord: draft}}
}

func (w *Workflow) search(ctx context.Context, query string) ([]model.CandidatePlace, error) {
	cands, err := w.searcher.Search(ctx, model.SearchQuery{
		Text:         query,
		Center:       w.cfg.SearchCenter,
		RadiusMeters: w.cfg.SearchRadiusMeters,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "share: search %q", query)
	}
	if cands == nil {
		cands = []model.CandidatePlace{}
	}
	return cands, nil
}

// Select re-runs duplicate resolution on the chosen candidate. A match moves
// the session to SELECTED_EXISTING, otherwise to SELECTED_NEW.
func (w *Workflow) Select(ctx context.Context, s *Session, candidate model.CandidatePlace) error {
	if s.State != StateCandidatesReady {
		return eris.Wrapf(ErrInvalidTransition, "share: select from %s", s.State)
	}

	rec := candidate.PlaceRecord
	rec.Source = sourceFor(s.Kind, rec.Source)
	if rec.ImageURL == "" {
		rec.ImageURL = w.cfg.FallbackImageURL
	}

	if matches := w.resolver.Resolve(ctx, rec); len(matches) > 0 {
		existing := matches[0].Existing
		s.State = StateSelectedExisting
		s.Action = ActionFavoriteOnly
		s.Selected = &existing
		s.Existing = matches[0].Summarize()
		return nil
	}

	s.State = StateSelectedNew
	s.Action = ActionCreateThenFavorite
	s.Selected = &rec
	s.Existing = nil
	return nil
}

// Manual starts a session from a user-supplied draft, filling in the
// fallback image, coordinates and location text. It always lands in
// SELECTED_NEW.
func (w *Workflow) Manual(draft model.PlaceRecord) (*Session, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	if draft.Name == "" {
		return nil, ErrInvalidDraft
	}
	if draft.ImageURL == "" {
		draft.ImageURL = w.cfg.FallbackImageURL
	}
	if draft.Lat == 0 && draft.Lng == 0 {
		draft.Lat, draft.Lng = w.cfg.DefaultCenter.Lat, w.cfg.DefaultCenter.Lng
	}
	if strings.TrimSpace(draft.Location) == "" {
		draft.Location = w.cfg.PlaceholderLocation
	}
	draft.ID = ""
	draft.Source = model.SourceManual

	return &Session{
		State:      StateSelectedNew,
		Kind:       StateManual,
		Action:     ActionCreateThenFavorite,
		Candidates: []model.CandidatePlace{},
		Selected:   &draft,
	}, nil
}

// Persist performs the session's pending write for authorRef. For a new
// place the record is created first and then marked as a favorite; if only
// the second write fails, the record is kept and a PartialWriteError is
// returned together with it.
func (w *Workflow) Persist(ctx context.Context, s *Session, authorRef string) (*model.PlaceRecord, error) {
	if s.Selected == nil {
		return nil, eris.Wrap(ErrInvalidTransition, "share: persist without selection")
	}

	switch s.State {
	case StateSelectedExisting:
		if err := w.writer.AddFavorite(ctx, authorRef, s.Selected.ID); err != nil {
			err = eris.Wrap(err, "share: add favorite")
			s.fail(err)
			w.recordPersist(s)
			return nil, err
		}
		s.Persisted = s.Selected

	case StateSelectedNew:
		created, err := w.writer.CreatePlace(ctx, model.NewCreateRequest(*s.Selected, authorRef))
		if err != nil {
			err = eris.Wrap(err, "share: create place")
			s.fail(err)
			w.recordPersist(s)
			return nil, err
		}
		if err := w.writer.AddFavorite(ctx, authorRef, created.ID); err != nil {
			perr := &PartialWriteError{Record: created, Err: err}
			s.Persisted = created
			s.fail(perr)
			w.recordPersist(s)
			zap.L().Warn("share: place created but favorite failed",
				zap.String("place_id", created.ID),
				zap.String("author_ref", authorRef),
				zap.Error(err),
			)
			return created, perr
		}
		s.Persisted = created

	default:
		return nil, eris.Wrapf(ErrInvalidTransition, "share: persist from %s", s.State)
	}

	s.State = StatePersisted
	s.Action = ActionNone
	s.Error = ""
	w.recordPersist(s)
	return s.Persisted, nil
}

func (w *Workflow) recordPersist(s *Session) {
	metrics.RecordShareIngestion(string(s.Kind), string(s.State))
}

func sourceFor(kind State, current model.Source) model.Source {
	switch kind {
	case StateDirectPost, StateProfile:
		return model.SourceShare
	case StateExternalMap:
		return model.SourceExternalMap
	case StateManual:
		return model.SourceManual
	}
	if current == "" {
		return model.SourceSearch
	}
	return current
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
