package loader

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/ValentinKolb/dLoad/lib/factory"
	"github.com/ValentinKolb/dLoad/lib/store"
	"github.com/avast/retry-go"
	"github.com/lni/dragonboat/v4/logger"
	"math"
	"sync/atomic"
	"time"
)

var log = logger.GetLogger("loader")

// retryDelay is the first backoff delay between write attempts
const retryDelay = 100 * time.Millisecond

// --------------------------------------------------------------------------
// State
// --------------------------------------------------------------------------

// State is the phase a pipeline is in
type State int32

const (
	StateIdle        State = iota // 0: No job started yet.
	StateConnecting               // 1: Validating the configuration and connecting.
	StatePreparing                // 2: Dropping and recreating the target collection.
	StateWriting                  // 3: Generating and writing documents.
	StateReconciling              // 4: Comparing the stored count with the expected one.
	StateDone                     // 5: The last job completed.
	StateFailed                   // 6: The last job failed, see Pipeline.Err.
)

// String returns the name of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StatePreparing:
		return "preparing"
	case StateWriting:
		return "writing"
	case StateReconciling:
		return "reconciling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// --------------------------------------------------------------------------
// Job
// --------------------------------------------------------------------------

// job is a single load run. The pipeline goroutine owns it; the counters are
// read concurrently by progress readers.
type job struct {
	collection string
	total      int64
	factory    factory.IDocumentFactory
	ack        store.AckLevel
	written    atomic.Int64
	completed  atomic.Bool
}

func (j *job) percent() int {
	if j.total == 0 {
		if j.completed.Load() {
			return 100
		}
		return 0
	}
	return int(math.Round(float64(j.written.Load()) / float64(j.total) * 100))
}

// Result summarizes a completed job
type Result struct {
	Expected int64         // Documents the job was asked to write
	Written  int64         // Documents the pipeline wrote
	Stored   int64         // Documents counted in the collection afterward
	Mismatch bool          // Stored differs from Expected
	Duration time.Duration // Wall time from connecting to reconciling
	Rate     float64       // Mean documents written per second
}

// Progress is a snapshot of the current job
type Progress struct {
	State   State
	Percent int
	Written int64
	Total   int64
	Rate    float64 // Documents per second
}

// --------------------------------------------------------------------------
// Pipeline
// --------------------------------------------------------------------------

// Pipeline runs load jobs against a store.
//
// Thread-safety: Run must not be called concurrently on the same pipeline.
// Progress, ProgressPercent, State and Err may be called from any goroutine
// while Run is in progress.
type Pipeline struct {
	cfg     common.LoadConfig
	store   store.IStore
	factory factory.IDocumentFactory
	metrics *Metrics

	state   atomic.Int32
	job     atomic.Pointer[job]
	failure atomic.Pointer[error]
}

// New creates a pipeline writing documents of f to s as described by cfg.
// The configuration is validated when connecting.
func New(cfg common.LoadConfig, s store.IStore, f factory.IDocumentFactory) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		store:   s,
		factory: f,
	}
	p.metrics = newMetrics(cfg.WithDefaults().Collection, func() float64 {
		return float64(p.ProgressPercent())
	})
	return p
}

// Metrics returns the metrics of the pipeline
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// State returns the current state
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Err returns the failure of the last job, nil unless the state is StateFailed
func (p *Pipeline) Err() error {
	if e := p.failure.Load(); e != nil {
		return *e
	}
	return nil
}

// ProgressPercent returns the share of the current job that has been written,
// rounded to whole percent. It is 0 before the first job.
func (p *Pipeline) ProgressPercent() int {
	j := p.job.Load()
	if j == nil {
		return 0
	}
	return j.percent()
}

// Progress returns a snapshot of the current job
func (p *Pipeline) Progress() Progress {
	pr := Progress{State: p.State(), Rate: p.metrics.Rate()}
	if j := p.job.Load(); j != nil {
		pr.Percent = j.percent()
		pr.Written = j.written.Load()
		pr.Total = j.total
	}
	return pr
}

// Connect validates the configuration and opens a connection to the store.
// Invalid configurations fail with common.ErrConfiguration before the store
// is contacted; store failures are common.ErrConnection and are not retried.
func (p *Pipeline) Connect(ctx context.Context) (store.IConnection, error) {
	return p.connect(ctx, false)
}

func (p *Pipeline) connect(ctx context.Context, readOnly bool) (store.IConnection, error) {
	if p.cfg.Hostname == "" {
		log.Infof("no hostname given, using %s", common.DefaultHostname)
	}
	cfg := p.cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params := store.ConnectParams{
		Host:     cfg.Hostname,
		Port:     cfg.Port,
		Database: cfg.TargetDB,
		Username: cfg.Username,
		Password: cfg.Password,
		AuthDB:   cfg.AuthDB,
		Timeout:  cfg.Timeout(),
		ReadOnly: readOnly,
	}

	log.Debugf("connecting to %s store at %s", p.store.Name(), params)
	conn, err := p.store.Connect(ctx, params)
	if err != nil {
		if !errors.Is(err, common.ErrConnection) {
			err = common.WrapError(common.ErrCConnection, err, "connecting to %s", params)
		}
		return nil, err
	}
	return conn, nil
}

// TestConnection connects read-only and reads one document of the probe
// collection. It writes nothing and leaves the pipeline state untouched.
func (p *Pipeline) TestConnection(ctx context.Context) error {
	conn, err := p.connect(ctx, true)
	if err != nil {
		return err
	}
	defer p.close(ctx, conn)

	probe := p.cfg.WithDefaults().ProbeCollection
	doc, found, err := conn.Collection(probe).FindOne(ctx)
	if err != nil {
		return common.WrapError(common.ErrCConnection, err, "reading probe collection %s", probe)
	}
	if found {
		log.Infof("connection ok, probe collection %s holds %s", probe, doc)
	} else {
		log.Infof("connection ok, probe collection %s is empty", probe)
	}
	return nil
}

// Run drops and recreates the target collection, writes n generated documents
// and compares the stored count with n afterward. A count mismatch is logged
// and reported in the Result, it does not fail the job.
//
// Cancelling ctx stops the job before the next document; a write already in
// progress is completed.
func (p *Pipeline) Run(ctx context.Context, n int) (Result, error) {
	cfg := p.cfg.WithDefaults()

	// installed before any check, a rejected job reads as failed and not as
	// the previous one
	j := &job{collection: cfg.Collection, total: int64(max(n, 0)), factory: p.factory}
	p.failure.Store(nil)
	p.job.Store(j)
	p.setState(StateConnecting)
	p.metrics.startJob()
	defer p.metrics.finishJob()
	start := time.Now()

	if n < 0 {
		return Result{}, p.fail(common.NewError(common.ErrCConfiguration, "document count must not be negative (got %d)", n))
	}
	if p.factory == nil {
		return Result{}, p.fail(common.NewError(common.ErrCConfiguration, "no document factory configured"))
	}
	ack, err := store.ParseAckLevel(cfg.WriteAck)
	if err != nil {
		return Result{}, p.fail(common.WrapError(common.ErrCConfiguration, err, "invalid write acknowledgment"))
	}
	j.ack = ack

	conn, err := p.Connect(ctx)
	if err != nil {
		return Result{}, p.fail(err)
	}
	defer p.close(ctx, conn)

	p.setState(StatePreparing)
	coll := conn.Collection(j.collection)
	if err := coll.Drop(ctx); err != nil {
		return Result{}, p.fail(err)
	}
	if err := coll.Create(ctx); err != nil {
		return Result{}, p.fail(err)
	}
	log.Infof("collection %s recreated, writing %d documents (%s factory)", j.collection, n, j.factory.Name())

	p.setState(StateWriting)
	for i := int64(0); i < j.total; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, p.fail(fmt.Errorf("load cancelled after %d of %d documents: %w", i, j.total, err))
		}

		doc, err := j.factory.GenerateDocument()
		if err != nil {
			return Result{}, p.fail(fmt.Errorf("generating document %d: %w", i+1, err))
		}
		if err := p.save(ctx, coll, doc, j.ack); err != nil {
			return Result{}, p.fail(fmt.Errorf("writing document %d: %w", i+1, err))
		}

		j.written.Add(1)
		p.metrics.markWritten()
	}

	p.setState(StateReconciling)
	stored, err := coll.Count(context.WithoutCancel(ctx))
	if err != nil {
		return Result{}, p.fail(fmt.Errorf("counting documents in %s: %w", j.collection, err))
	}

	res := Result{
		Expected: j.total,
		Written:  j.written.Load(),
		Stored:   stored,
		Mismatch: stored != j.total,
		Duration: time.Since(start),
		Rate:     p.metrics.Rate(),
	}
	if res.Mismatch {
		log.Warningf("collection %s holds %d documents, expected %d", j.collection, stored, j.total)
	}

	j.completed.Store(true)
	p.setState(StateDone)
	log.Infof("job done: %d documents written to %s in %s", res.Written, j.collection, res.Duration)
	return res, nil
}

// save writes one document and waits for ack. With WriteRetries > 0,
// temporary failures are retried with exponential backoff.
func (p *Pipeline) save(ctx context.Context, coll store.ICollection, doc *document.Document, ack store.AckLevel) error {
	writeCtx := context.WithoutCancel(ctx)
	write := func() error {
		start := time.Now()
		err := coll.Save(writeCtx, doc, ack)
		p.metrics.writeDuration.UpdateDuration(start)
		if err != nil {
			p.metrics.writeErrors.Inc()
		}
		return err
	}

	if p.cfg.WriteRetries == 0 {
		return write()
	}
	return retry.Do(write,
		retry.Attempts(p.cfg.WriteRetries+1),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(common.IsTemporary),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			p.metrics.writeRetries.Inc()
			log.Warningf("write attempt %d failed, retrying: %v", attempt+1, err)
		}),
	)
}

func (p *Pipeline) close(ctx context.Context, conn store.IConnection) {
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		log.Warningf("closing connection: %v", err)
	}
}

func (p *Pipeline) fail(err error) error {
	log.Errorf("job failed while %s: %v", p.State(), err)
	// failure before state, readers seeing StateFailed must find the error
	p.failure.Store(&err)
	p.setState(StateFailed)
	return err
}

func (p *Pipeline) setState(s State) {
	old := State(p.state.Swap(int32(s)))
	if old != s {
		log.Debugf("state %s -> %s", old, s)
	}
}
