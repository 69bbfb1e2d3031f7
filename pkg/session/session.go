// Package session wires the map interaction flow together: debounced pin
// drops, the candidate, attribute and prediction fetches, the state store and
// the radius overlay. Everything that touches session state runs on a single
// event loop goroutine; the exported methods are safe to call from anywhere.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/NERVsystems/ipredict/pkg/animate"
	"github.com/NERVsystems/ipredict/pkg/api"
	"github.com/NERVsystems/ipredict/pkg/debounce"
	"github.com/NERVsystems/ipredict/pkg/fetch"
	"github.com/NERVsystems/ipredict/pkg/geo"
	"github.com/NERVsystems/ipredict/pkg/loop"
	"github.com/NERVsystems/ipredict/pkg/metrics"
	"github.com/NERVsystems/ipredict/pkg/predict"
	"github.com/NERVsystems/ipredict/pkg/property"
	"github.com/NERVsystems/ipredict/pkg/state"
)

// Slot names, also used as metric labels.
const (
	SlotCandidates = "candidates"
	SlotAttributes = "attributes"
	SlotPrediction = "prediction"
)

// ErrUnknownCandidate is returned when selecting a property that is not in
// the current candidate list.
var ErrUnknownCandidate = errors.New("property not in the current candidate list")

// settlePoll is how often Settle re-checks for pending work.
const settlePoll = 10 * time.Millisecond

// Config holds the tunable behaviour of a session.
type Config struct {
	BaseURL          string
	CandidateTop     int
	AreaRadiusMeters float64
	Debounce         time.Duration
	InitialZoom      float64
	FrameInterval    time.Duration
	Spring           animate.SpringConfig
	BoroughAliases   map[string]string
}

// DefaultConfig returns the stock session settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:          api.DefaultBaseURL,
		CandidateTop:     api.DefaultCandidateTop,
		AreaRadiusMeters: animate.AreaRadiusMeters,
		Debounce:         debounce.DefaultQuietPeriod,
		InitialZoom:      geo.InitialZoom,
		FrameInterval:    DefaultFrameInterval,
		Spring:           animate.DefaultSpringConfig,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithTransport sets the HTTP transport used for backend calls.
func WithTransport(t *fetch.Transport) Option {
	return func(s *Session) { s.transport = t }
}

// WithScheduler replaces the click debounce timer.
func WithScheduler(sched debounce.Scheduler) Option {
	return func(s *Session) { s.scheduler = sched }
}

// WithClock replaces time.Now when stamping prediction requests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is one user's interaction with the map.
type Session struct {
	id        string
	cfg       Config
	logger    *slog.Logger
	recorder  metrics.Recorder
	transport *fetch.Transport
	scheduler debounce.Scheduler
	now       func() time.Time

	loop    *loop.Loop
	store   *state.Store
	api     *api.Client
	builder *predict.Builder

	candidates *fetch.Slot[[]property.Candidate]
	attributes *fetch.Slot[[]property.AreaAttributes]
	prediction *fetch.Slot[api.PredictionResponse]

	clicks *debounce.Coalescer[geo.Location]
	radius *animate.RadiusAnimator
	frames *frameTicker

	started atomic.Bool
	closed  atomic.Bool

	// Loop-confined.
	chosen     *property.Candidate
	panelOpen  bool
	predictSeq uint64
}

// New creates a session whose pin starts at initial. Call Start to begin
// processing events.
func New(cfg Config, initial geo.Location, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		cfg:      withDefaults(cfg),
		logger:   slog.Default(),
		recorder: metrics.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)
	if s.transport == nil {
		s.transport = fetch.NewTransport(fetch.WithRecorder(s.recorder), fetch.WithTransportLogger(s.logger))
	}

	s.loop = loop.New(s.logger)
	s.api = api.NewClient(s.cfg.BaseURL)
	s.builder = predict.NewBuilder(
		predict.WithBoroughs(predict.NewBoroughNormalizer(s.cfg.BoroughAliases)),
		predict.WithClock(s.now),
	)

	start := initial
	s.store = state.NewStore(state.Initial(&start),
		state.WithLogger(s.logger),
		state.WithDispatchHook(func(a state.Action) { s.recorder.Dispatched(a.Name()) }),
	)

	slotOpts := []fetch.SlotOption{fetch.WithSlotLogger(s.logger), fetch.WithSlotRecorder(s.recorder)}
	s.candidates = fetch.NewSlot[[]property.Candidate](SlotCandidates, s.transport, s.loop.Post, slotOpts...)
	s.attributes = fetch.NewSlot[[]property.AreaAttributes](SlotAttributes, s.transport, s.loop.Post, slotOpts...)
	s.prediction = fetch.NewSlot[api.PredictionResponse](SlotPrediction, s.transport, s.loop.Post, slotOpts...)

	coalescerOpts := []debounce.Option{
		debounce.WithDispatcher(s.loop.Post),
		debounce.WithCoalescedHook(s.recorder.Coalesced),
	}
	if s.scheduler != nil {
		coalescerOpts = append(coalescerOpts, debounce.WithScheduler(s.scheduler))
	}
	s.clicks = debounce.New(s.cfg.Debounce, s.commitClick, coalescerOpts...)

	s.radius = animate.NewRadiusAnimator(
		geo.NewProjector(initial, s.cfg.InitialZoom),
		s.cfg.AreaRadiusMeters,
		s.cfg.Spring,
	)
	s.frames = newFrameTicker(s.cfg.FrameInterval, s.loop.Post, s.radius.Advance)

	s.store.Subscribe(s.onStateChange)
	s.candidates.OnChange(s.onCandidates)
	s.attributes.OnChange(s.onAttributes)
	s.prediction.OnChange(s.onPrediction)

	return s
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.CandidateTop <= 0 {
		cfg.CandidateTop = def.CandidateTop
	}
	if cfg.AreaRadiusMeters <= 0 {
		cfg.AreaRadiusMeters = def.AreaRadiusMeters
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.InitialZoom == 0 {
		cfg.InitialZoom = def.InitialZoom
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if cfg.Spring == (animate.SpringConfig{}) {
		cfg.Spring = def.Spring
	}
	return cfg
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start runs the event loop until ctx ends or Close is called, and loads
// the candidates around the starting pin.
func (s *Session) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("event loop stopped", "error", err)
		}
	}()
	s.loop.Post(func() {
		s.logger.Info("session started")
		s.locationChanged(s.store.State().Location)
	})
}

// Close cancels outstanding work and stops the event loop.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.clicks.Cancel()

	shutdown := func() {
		s.frames.Stop()
		s.candidates.Close()
		s.attributes.Close()
		s.prediction.Close()
	}
	if s.started.Load() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.loop.Do(ctx, shutdown); err != nil {
			s.logger.Warn("shutdown did not complete", "error", err)
		}
	} else {
		shutdown()
	}
	s.loop.Stop()
	s.logger.Info("session closed")
}

// Click records a map click. Bursts of clicks within the quiet period
// collapse into the last one.
func (s *Session) Click(loc geo.Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	s.clicks.Call(loc)
	return nil
}

func (s *Session) commitClick(loc geo.Location) {
	s.logger.Debug("pin dropped", "location", loc.String())
	s.store.Dispatch(state.SetLocation{Location: &loc})
}

// ClearPin removes the pin immediately, discarding any click still waiting
// for its quiet period.
func (s *Session) ClearPin() {
	s.clicks.Cancel()
	s.loop.Post(func() {
		s.store.Dispatch(state.SetLocation{Location: nil})
	})
}

// SetZoom changes the map zoom.
func (s *Session) SetZoom(zoom float64) {
	s.loop.Post(func() {
		s.radius.SetZoom(zoom)
		s.wakeFrames()
	})
}

// SetView moves the map center and changes the zoom.
func (s *Session) SetView(center geo.Location, zoom float64) error {
	if err := center.Validate(); err != nil {
		return err
	}
	s.loop.Post(func() {
		s.radius.SetView(center, zoom)
		s.wakeFrames()
	})
	return nil
}

// Dispatch applies a state transition and waits for it to take effect.
func (s *Session) Dispatch(ctx context.Context, a state.Action) error {
	return s.loop.Do(ctx, func() { s.store.Dispatch(a) })
}

// Reset returns the session to its starting state. The pin goes back to the
// starting position rather than being removed. Candidates already loaded for
// that position are kept, and so is the open panel.
func (s *Session) Reset(ctx context.Context) error {
	s.clicks.Cancel()
	return s.loop.Do(ctx, func() {
		s.chosen = nil
		s.attributes.Clear()
		s.store.Dispatch(state.Reset{})
		s.panelOpen = len(s.candidates.State().Data) > 0
	})
}

// SelectCandidate selects the listed property with the given UPRN and loads
// its area attributes. Selecting the current property again only retries a
// failed attribute lookup.
func (s *Session) SelectCandidate(ctx context.Context, uprn int64) error {
	var err error
	doErr := s.loop.Do(ctx, func() { err = s.selectCandidate(uprn) })
	if doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) selectCandidate(uprn int64) error {
	if s.chosen != nil && s.chosen.UPRN == uprn {
		if s.attributes.State().Err != nil {
			s.attributes.Retry()
		}
		return nil
	}

	var found *property.Candidate
	for _, c := range s.candidates.State().Data {
		if c.UPRN == uprn {
			c := c
			found = &c
			break
		}
	}
	if found == nil {
		return fmt.Errorf("%w: UPRN %d", ErrUnknownCandidate, uprn)
	}

	s.chosen = found
	if s.store.State().SelectedItem != nil {
		s.store.Dispatch(state.SetSelectedItem{Item: nil})
	}
	s.attributes.Fetch(s.api.FeaturesURL(found.Latitude, found.Longitude), found.UPRN)
	return nil
}

// Predict submits the selected property and entered details to the model.
// It returns predict.ErrNoSelection or predict.ErrIncompleteInputs while the
// request cannot be made.
func (s *Session) Predict(ctx context.Context) error {
	var err error
	doErr := s.loop.Do(ctx, func() { err = s.submitPrediction() })
	if doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) submitPrediction() error {
	st := s.store.State()
	req, err := s.builder.Build(st.SelectedItem, st.ProvidedAttributes)
	if err != nil {
		return err
	}
	s.predictSeq++
	s.prediction.Post(s.api.PredictURL(), req, s.predictSeq)
	return nil
}

// PredictAndWait submits a prediction request and waits for its outcome.
// It returns context.Canceled if the selection changes before the model
// answers.
func (s *Session) PredictAndWait(ctx context.Context) (*property.Prediction, error) {
	type outcome struct {
		result  fetch.Result[api.PredictionResponse]
		cleared bool
	}
	done := make(chan outcome, 1)
	var unsubscribe func()

	var err error
	doErr := s.loop.Do(ctx, func() {
		if err = s.submitPrediction(); err != nil {
			return
		}
		unsubscribe = s.prediction.OnChange(func(r fetch.Result[api.PredictionResponse]) {
			if r.IsLoading {
				return
			}
			_, ok := s.prediction.Key()
			select {
			case done <- outcome{result: r, cleared: !ok}:
			default:
			}
		})
	})
	if doErr != nil {
		return nil, doErr
	}
	if err != nil {
		return nil, err
	}
	defer s.loop.Post(unsubscribe)

	select {
	case o := <-done:
		if o.cleared {
			return nil, context.Canceled
		}
		if o.result.Err != nil {
			return nil, o.result.Err
		}
		p := *o.result.Data.Prediction
		return &p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settle waits until no click is pending and no fetch is in flight.
func (s *Session) Settle(ctx context.Context) error {
	t := time.NewTicker(settlePoll)
	defer t.Stop()
	for {
		var busy bool
		if err := s.loop.Do(ctx, func() { busy = s.busy() }); err != nil {
			return err
		}
		if !busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Session) busy() bool {
	return s.clicks.Pending() ||
		s.candidates.State().IsLoading ||
		s.attributes.State().IsLoading ||
		s.prediction.State().IsLoading
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	ID             string
	State          state.State
	Candidates     fetch.Result[[]property.Candidate]
	Attributes     fetch.Result[[]property.AreaAttributes]
	Prediction     fetch.Result[api.PredictionResponse]
	ChosenUPRN     *int64
	Radius         float64
	RadiusTarget   float64
	Zoom           float64
	Center         geo.Location
	Animating      bool
	ClickPending   bool
	PanelOpen      bool
	PredictEnabled bool
	Missing        []string
}

// Snapshot captures the current session view.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.loop.Do(ctx, func() {
		st := s.store.State()
		snap = Snapshot{
			ID:             s.id,
			State:          st,
			Candidates:     s.candidates.State(),
			Attributes:     s.attributes.State(),
			Prediction:     s.prediction.State(),
			Radius:         s.radius.Radius(),
			RadiusTarget:   s.radius.Target(),
			Zoom:           s.radius.Zoom(),
			Center:         s.radius.Center(),
			Animating:      s.frames.Running(),
			ClickPending:   s.clicks.Pending(),
			PanelOpen:      s.panelOpen,
			PredictEnabled: st.SelectedItem != nil && predict.Validate(st.ProvidedAttributes),
			Missing:        predict.Missing(st.ProvidedAttributes),
		}
		if s.chosen != nil {
			uprn := s.chosen.UPRN
			snap.ChosenUPRN = &uprn
		}
	})
	return snap, err
}

// onStateChange reacts to store transitions. It runs on the loop.
func (s *Session) onStateChange(prev, next state.State) {
	if !geo.Equal(prev.Location, next.Location) {
		s.locationChanged(next.Location)
	}
	if prev.SelectedItem != next.SelectedItem {
		s.prediction.Clear()
	}
}

func (s *Session) locationChanged(loc *geo.Location) {
	s.radius.SetLocation(loc)
	s.wakeFrames()

	s.chosen = nil
	s.attributes.Clear()

	if loc == nil {
		s.candidates.Clear()
		return
	}
	s.candidates.Fetch(s.api.CandidatesURL(*loc, s.cfg.CandidateTop), loc.Key())
}

func (s *Session) onCandidates(r fetch.Result[[]property.Candidate]) {
	if _, ok := s.candidates.Key(); !ok || !r.Ready() || len(r.Data) == 0 {
		return
	}
	s.logger.Debug("candidates loaded", "count", len(r.Data))
	s.panelOpen = true

	if s.chosen != nil || s.store.State().SelectedItem != nil {
		s.chosen = nil
		s.attributes.Clear()
		s.store.Dispatch(state.SetSelectedItem{Item: nil})
	}
}

func (s *Session) onAttributes(r fetch.Result[[]property.AreaAttributes]) {
	key, ok := s.attributes.Key()
	if !ok || !r.Ready() || s.chosen == nil || key != s.chosen.UPRN {
		return
	}

	var attrs property.AreaAttributes
	if len(r.Data) > 0 {
		attrs = r.Data[0]
	} else {
		s.logger.Warn("no area attributes for property", "uprn", s.chosen.UPRN)
	}
	s.store.Dispatch(state.SetSelectedItem{Item: property.Merge(*s.chosen, attrs)})
}

func (s *Session) onPrediction(r fetch.Result[api.PredictionResponse]) {
	if _, ok := s.prediction.Key(); !ok || !r.Ready() {
		return
	}
	p := *r.Data.Prediction
	s.logger.Info("prediction received", "prediction", p.String())
	s.store.Dispatch(state.SetPrediction{Prediction: &p})
}

func (s *Session) wakeFrames() {
	if !s.radius.AtRest() {
		s.frames.Wake()
	}
}
