// Package pipeline - Serialized segmentation pipeline from image to overlay.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/nvr-ai/go-segmentation/inference"
	"github.com/nvr-ai/go-segmentation/labels"
	"github.com/nvr-ai/go-segmentation/metrics"
	"github.com/nvr-ai/go-segmentation/models"
	"github.com/nvr-ai/go-segmentation/models/model"
	"github.com/nvr-ai/go-segmentation/models/postprocess"
	"github.com/nvr-ai/go-segmentation/profiler"
	"github.com/nvr-ai/go-segmentation/render"
)

// State is the lifecycle state of a Pipeline.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateRunning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EngineLoader opens the inference engine for a model.
type EngineLoader func(opts model.Options) (inference.Engine, error)

// Config configures a Pipeline.
type Config struct {
	// Model selects the model; see models.NewModel.
	Model model.NewModelArgs
	// Labels is the class vocabulary. Nil loads LabelsPath, or the bundled
	// VOC list when that is empty too.
	Labels     []string
	LabelsPath string
	// Mode selects binary (default) or multi-class post-processing.
	Mode postprocess.Mode
	// ScanClassSet reports the classes present in each map instead of {0,1}.
	ScanClassSet bool
	// Palette colors classes. Empty uses the VOC colormap.
	Palette postprocess.Palette
	// BlendAlpha is the overlay opacity. Zero selects render.DefaultBlendAlpha.
	BlendAlpha float64
}

// Timings holds the wall-clock duration of each request stage.
type Timings struct {
	Preprocess    time.Duration `json:"preprocess"`
	Inference     time.Duration `json:"inference"`
	PostProcess   time.Duration `json:"postprocess"`
	Visualization time.Duration `json:"visualization"`
}

// Total returns the sum of all stages.
func (t Timings) Total() time.Duration {
	return t.Preprocess + t.Inference + t.PostProcess + t.Visualization
}

// Result is the immutable outcome of one successful request.
type Result struct {
	RequestID     string
	Map           postprocess.Map
	Buffer        []uint32
	Classes       postprocess.ClassSet
	Legend        postprocess.Legend
	Visualization *image.RGBA
	Overlay       *image.NRGBA
	Timings       Timings
}

// Stats summarizes the requests a pipeline has handled.
type Stats struct {
	Succeeded int64
	Failed    int64
	Stages    map[profiler.Stage]profiler.Stats
}

type job struct {
	init   chan error
	img    image.Image
	future *Future
	cb     func(*Result, error)
}

// Pipeline runs initialization and segmentation requests one at a time, in
// submission order, on a single worker goroutine. The engine is never used
// concurrently.
type Pipeline struct {
	cfg    Config
	loader EngineLoader

	log       zerolog.Logger
	dispatch  func(func())
	metrics   *metrics.Metrics
	profiler  *profiler.StageProfiler
	queueSize int

	state atomic.Int32

	// Owned by the worker goroutine once initialization starts.
	model     model.Model
	engine    inference.Engine
	processor postprocess.Processor
	legend    []string
	initErr   error

	catalog atomic.Pointer[labels.Catalog]

	succeeded atomic.Int64
	failed    atomic.Int64

	mu     sync.RWMutex
	closed bool
	jobs   chan job

	callbacks *callbackQueue
	workerWG  sync.WaitGroup
}

// New creates a pipeline and starts its worker. No model work happens until
// Initialize is called.
//
// Arguments:
//   - cfg: The pipeline configuration.
//   - loader: Opens the inference engine during initialization.
//   - opts: Optional settings.
//
// Returns:
//   - *Pipeline: The pipeline, in StateUninitialized.
func New(cfg Config, loader EngineLoader, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		loader:    loader,
		log:       zerolog.Nop(),
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.profiler == nil {
		p.profiler = profiler.NewStageProfiler(profiler.ProfilingOptions{Logger: p.log})
	}
	if p.cfg.BlendAlpha == 0 {
		p.cfg.BlendAlpha = render.DefaultBlendAlpha
	}
	if len(p.cfg.Palette) == 0 {
		p.cfg.Palette = postprocess.DefaultPalette()
	}

	p.jobs = make(chan job, p.queueSize)
	p.callbacks = newCallbackQueue(p.dispatch)

	p.workerWG.Add(1)
	go p.run()
	return p
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Labels returns the loaded vocabulary, or nil before initialization succeeds.
func (p *Pipeline) Labels() []string {
	c := p.catalog.Load()
	if c == nil {
		return nil
	}
	return c.Names()
}

// Stats returns request counts and per-stage timing statistics.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
		Stages:    p.profiler.Snapshot(),
	}
}

// Initialize queues model and label loading. The returned channel yields
// nil on success or an *InitializationError, then is closed.
func (p *Pipeline) Initialize() <-chan error {
	ch := make(chan error, 1)
	if !p.enqueue(job{init: ch}) {
		ch <- ErrClosed
		close(ch)
	}
	return ch
}

// Submit queues a segmentation request.
func (p *Pipeline) Submit(img image.Image) *Future {
	f := newFuture(uuid.NewString())
	if !p.enqueue(job{img: img, future: f}) {
		f.resolve(nil, ErrClosed)
	}
	return f
}

// SubmitFunc queues a segmentation request and calls cb with its outcome on
// the callback goroutine. Callbacks run in completion order.
func (p *Pipeline) SubmitFunc(img image.Image, cb func(*Result, error)) *Future {
	f := newFuture(uuid.NewString())
	if !p.enqueue(job{img: img, future: f, cb: cb}) {
		f.resolve(nil, ErrClosed)
		if cb != nil {
			p.callbacks.push(func() { cb(nil, ErrClosed) })
		}
	}
	return f
}

// Run submits img and waits for the result.
func (p *Pipeline) Run(ctx context.Context, img image.Image) (*Result, error) {
	return p.Submit(img).Wait(ctx)
}

// Close stops accepting work, waits for queued jobs and pending callbacks
// to finish, and closes the engine. It may be called from a SubmitFunc
// callback; it then returns without waiting for the callbacks queued after it.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.workerWG.Wait()
	p.callbacks.close()

	var err error
	if p.engine != nil {
		err = multierr.Append(err, errors.Wrap(p.engine.Close(), "close engine"))
	}
	return err
}

func (p *Pipeline) enqueue(j job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.jobs <- j
	if p.metrics != nil {
		p.metrics.QueueDepth.Set(float64(len(p.jobs)))
	}
	return true
}

func (p *Pipeline) run() {
	defer p.workerWG.Done()
	for j := range p.jobs {
		if p.metrics != nil {
			p.metrics.QueueDepth.Set(float64(len(p.jobs)))
		}
		if j.init != nil {
			j.init <- p.initialize()
			close(j.init)
			continue
		}

		res, err := p.segment(j.future.id, j.img)
		j.future.resolve(res, err)
		if j.cb != nil {
			cb := j.cb
			p.callbacks.push(func() { cb(res, err) })
		}
	}
}

func (p *Pipeline) initialize() error {
	switch p.State() {
	case StateReady:
		return nil
	case StateFailed:
		return p.initErr
	}

	p.state.Store(int32(StateLoading))
	p.log.Info().Str("model", string(p.cfg.Model.Name)).Str("path", p.cfg.Model.Path).Msg("initializing")

	err := p.load()
	if p.metrics != nil {
		p.metrics.RecordInitialization(err)
	}
	if err != nil {
		p.initErr = err
		p.state.Store(int32(StateFailed))
		p.log.Error().Err(err).Msg("initialization failed")
		return err
	}

	p.state.Store(int32(StateReady))
	p.log.Info().Int("labels", p.catalog.Load().Len()).Int("input_size", p.model.Options().InputSize).Msg("ready")
	return nil
}

func (p *Pipeline) load() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InitializationError{Kind: KindInitInternal, Err: errors.Errorf("panic: %v", r)}
		}
	}()

	catalog, err := p.loadLabels()
	if err != nil {
		return &InitializationError{Kind: KindInvalidLabelList, Err: err}
	}

	m, err := models.NewModel(p.cfg.Model)
	if err != nil {
		return &InitializationError{Kind: KindInvalidModel, Err: err}
	}

	if p.loader == nil {
		return &InitializationError{Kind: KindInitInternal, Err: errors.New("no engine loader")}
	}
	engine, err := p.loader(m.Options())
	if err != nil {
		return &InitializationError{Kind: KindInvalidModel, Err: err}
	}
	if engine == nil {
		return &InitializationError{Kind: KindInitInternal, Err: errors.New("engine loader returned nil")}
	}

	p.model = m
	p.engine = engine
	p.processor = postprocess.Processor{
		Mode:            p.cfg.Mode,
		ForegroundValue: m.Options().ForegroundValue,
		NumClasses:      catalog.Len(),
		Palette:         p.cfg.Palette,
		ScanClassSet:    p.cfg.ScanClassSet,
	}
	p.legend = p.processor.ClassLabels(catalog.Names())
	p.catalog.Store(catalog)
	return nil
}

func (p *Pipeline) loadLabels() (*labels.Catalog, error) {
	switch {
	case p.cfg.Labels != nil:
		return labels.New(p.cfg.Labels)
	case p.cfg.LabelsPath != "":
		return labels.Load(p.cfg.LabelsPath)
	default:
		return labels.VOC(), nil
	}
}

func (p *Pipeline) segment(id string, img image.Image) (res *Result, err error) {
	log := p.log.With().Str("request_id", id).Logger()

	if p.State() != StateReady {
		err = errors.Wrapf(ErrNotReady, "state %s", p.State())
		p.finish(log, err)
		return nil, err
	}
	p.state.Store(int32(StateRunning))
	defer p.state.Store(int32(StateReady))

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &SegmentationError{Kind: KindSegmentInternal, RequestID: id, Err: errors.Errorf("panic: %v", r)}
		}
		p.finish(log, err)
	}()

	if img == nil || img.Bounds().Empty() {
		return nil, &SegmentationError{Kind: KindInvalidImage, RequestID: id, Err: inference.ErrInvalidImage}
	}

	var t Timings

	stop := p.stage(profiler.StagePreprocess)
	input, err := p.model.PreProcess(img)
	t.Preprocess = stop()
	if err != nil {
		kind := KindSegmentInternal
		if errors.Is(err, inference.ErrInvalidImage) {
			kind = KindInvalidImage
		}
		return nil, &SegmentationError{Kind: kind, RequestID: id, Err: err}
	}

	stop = p.stage(profiler.StageInference)
	output, err := p.engine.Infer(context.Background(), input)
	t.Inference = stop()
	if err != nil {
		return nil, &SegmentationError{Kind: KindSegmentInternal, RequestID: id, Err: errors.Wrap(err, "inference")}
	}

	stop = p.stage(profiler.StagePostProcess)
	out, err := p.model.PostProcess(output, p.processor)
	t.PostProcess = stop()
	if err != nil {
		return nil, &SegmentationError{Kind: KindSegmentInternal, RequestID: id, Err: errors.Wrap(err, "postprocess")}
	}

	stop = p.stage(profiler.StageVisualization)
	vis, err := render.Visualize(out.Buffer, out.Map.Width, out.Map.Height)
	var overlay *image.NRGBA
	if err == nil {
		overlay, err = render.Overlay(vis, img, p.cfg.BlendAlpha)
	}
	t.Visualization = stop()
	if err != nil {
		return nil, &SegmentationError{Kind: KindResultVisualization, RequestID: id, Err: err}
	}

	log.Debug().
		Dur("preprocess", t.Preprocess).
		Dur("inference", t.Inference).
		Dur("postprocess", t.PostProcess).
		Dur("visualization", t.Visualization).
		Ints("classes", classInts(out.Classes)).
		Msg("segmented")

	return &Result{
		RequestID:     id,
		Map:           out.Map,
		Buffer:        out.Buffer,
		Classes:       out.Classes,
		Legend:        postprocess.NewLegend(out.Classes, p.legend, p.processor.Palette),
		Visualization: vis,
		Overlay:       overlay,
		Timings:       t,
	}, nil
}

// stage starts a profiler timer that also feeds the stage histogram.
func (p *Pipeline) stage(s profiler.Stage) func() time.Duration {
	stop := p.profiler.StartOperation(s)
	return func() time.Duration {
		d := stop()
		if p.metrics != nil {
			p.metrics.ObserveStage(string(s), d)
		}
		return d
	}
}

func (p *Pipeline) finish(log zerolog.Logger, err error) {
	kind := ""
	if err != nil {
		p.failed.Add(1)
		kind = errorKind(err)
		log.Warn().Err(err).Str("kind", kind).Msg("segmentation failed")
	} else {
		p.succeeded.Add(1)
	}
	if p.metrics != nil {
		p.metrics.RecordRequest(kind)
	}
}

func errorKind(err error) string {
	var serr *SegmentationError
	if errors.As(err, &serr) {
		return string(serr.Kind)
	}
	if errors.Is(err, ErrNotReady) {
		return "not_ready"
	}
	return "unknown"
}

func classInts(set postprocess.ClassSet) []int {
	out := make([]int, len(set))
	for i, c := range set {
		out[i] = int(c)
	}
	return out
}
