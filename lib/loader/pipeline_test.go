package loader

import (
	"bytes"
	"context"
	"errors"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/ValentinKolb/dLoad/lib/factory"
	"github.com/ValentinKolb/dLoad/lib/random"
	"github.com/ValentinKolb/dLoad/lib/store"
	"github.com/ValentinKolb/dLoad/lib/store/bstore"
	"github.com/ValentinKolb/dLoad/lib/store/lstore"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Helper types
// --------------------------------------------------------------------------

// hookStore wraps a store and lets tests interfere with saves and counts
type hookStore struct {
	store.IStore
	connects atomic.Int32
	saves    atomic.Int32
	lastAck  atomic.Int32
	save     func(attempt int) error // called before every save, a non-nil error replaces the save
	count    func(stored int64) int64
}

func (s *hookStore) Connect(ctx context.Context, params store.ConnectParams) (store.IConnection, error) {
	s.connects.Add(1)
	conn, err := s.IStore.Connect(ctx, params)
	if err != nil {
		return nil, err
	}
	return &hookConn{IConnection: conn, s: s}, nil
}

type hookConn struct {
	store.IConnection
	s *hookStore
}

func (c *hookConn) Collection(name string) store.ICollection {
	return &hookColl{ICollection: c.IConnection.Collection(name), s: c.s}
}

type hookColl struct {
	store.ICollection
	s *hookStore
}

func (c *hookColl) Save(ctx context.Context, doc *document.Document, ack store.AckLevel) error {
	n := c.s.saves.Add(1)
	c.s.lastAck.Store(int32(ack))
	if c.s.save != nil {
		if err := c.s.save(int(n)); err != nil {
			return err
		}
	}
	return c.ICollection.Save(ctx, doc, ack)
}

func (c *hookColl) Count(ctx context.Context) (int64, error) {
	n, err := c.ICollection.Count(ctx)
	if c.s.count != nil {
		n = c.s.count(n)
	}
	return n, err
}

// funcFactory generates documents with a function
type funcFactory func() (*document.Document, error)

func (f funcFactory) GenerateDocument() (*document.Document, error) { return f() }

func (f funcFactory) Name() string { return "func" }

func testConfig() common.LoadConfig {
	return common.LoadConfig{
		Hostname:   "localhost",
		Port:       27017,
		TargetDB:   "test",
		Collection: "invoices",
	}
}

func newTestPipeline(cfg common.LoadConfig) (*Pipeline, *hookStore) {
	s := &hookStore{IStore: lstore.NewLocalStore()}
	return New(cfg, s, factory.NewInvoiceFactory(random.NewSeeded(1))), s
}

func storedCount(t *testing.T, p *Pipeline) int64 {
	t.Helper()
	conn, err := p.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close(context.Background())
	n, err := conn.Collection(p.cfg.Collection).Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}

// --------------------------------------------------------------------------
// Run
// --------------------------------------------------------------------------

// TestRunZero tests that an empty job completes at 100 percent without writes
func TestRunZero(t *testing.T) {
	p, s := newTestPipeline(testConfig())

	if got := p.ProgressPercent(); got != 0 {
		t.Errorf("ProgressPercent before any job = %d, want 0", got)
	}

	res, err := p.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run(0) failed: %v", err)
	}
	if res.Expected != 0 || res.Written != 0 || res.Stored != 0 || res.Mismatch {
		t.Errorf("Run(0) = %+v", res)
	}
	if got := p.ProgressPercent(); got != 100 {
		t.Errorf("ProgressPercent after Run(0) = %d, want 100", got)
	}
	if n := s.saves.Load(); n != 0 {
		t.Errorf("Run(0) saved %d documents", n)
	}
	if p.State() != StateDone {
		t.Errorf("State = %s, want %s", p.State(), StateDone)
	}
}

// TestRunFive tests a small job end to end
func TestRunFive(t *testing.T) {
	p, _ := newTestPipeline(testConfig())

	res, err := p.Run(context.Background(), 5)
	if err != nil {
		t.Fatalf("Run(5) failed: %v", err)
	}
	if res.Expected != 5 || res.Written != 5 || res.Stored != 5 || res.Mismatch {
		t.Errorf("Run(5) = %+v", res)
	}
	if got := storedCount(t, p); got != 5 {
		t.Errorf("stored count = %d, want 5", got)
	}
	if got := p.ProgressPercent(); got != 100 {
		t.Errorf("ProgressPercent = %d, want 100", got)
	}
	if got := p.Metrics().Written(); got != 5 {
		t.Errorf("Metrics().Written() = %d, want 5", got)
	}
}

// TestRunRecreatesCollection tests that a second run replaces the documents of the first
func TestRunRecreatesCollection(t *testing.T) {
	p, _ := newTestPipeline(testConfig())

	if _, err := p.Run(context.Background(), 7); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	res, err := p.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if res.Stored != 3 {
		t.Errorf("second Run stored %d, want 3", res.Stored)
	}
}

// TestConfigurationErrors tests that invalid configurations fail before connecting
func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *common.LoadConfig)
	}{
		{name: "port 0", modify: func(c *common.LoadConfig) { c.Port = 0 }},
		{name: "port 70000", modify: func(c *common.LoadConfig) { c.Port = 70000 }},
		{name: "no database", modify: func(c *common.LoadConfig) { c.TargetDB = "" }},
		{name: "username without auth db", modify: func(c *common.LoadConfig) { c.Username = "loader" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			p, s := newTestPipeline(cfg)

			if _, err := p.Run(context.Background(), 5); !errors.Is(err, common.ErrConfiguration) {
				t.Errorf("Run error = %v, want ConfigurationError", err)
			}
			if err := p.TestConnection(context.Background()); !errors.Is(err, common.ErrConfiguration) {
				t.Errorf("TestConnection error = %v, want ConfigurationError", err)
			}
			if n := s.connects.Load(); n != 0 {
				t.Errorf("store contacted %d times despite invalid configuration", n)
			}
			if p.State() != StateFailed {
				t.Errorf("State = %s, want %s", p.State(), StateFailed)
			}
		})
	}
}

// TestRunRejectsArguments tests that rejected jobs fail visibly, on fresh and
// on reused pipelines, so that a monitor watching them returns
func TestRunRejectsArguments(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		factory factory.IDocumentFactory
		ack     string
	}{
		{name: "negative count", n: -1, factory: factory.NewInvoiceFactory(random.NewSeeded(1))},
		{name: "no factory", n: 5},
		{name: "unknown ack", n: 5, factory: factory.NewInvoiceFactory(random.NewSeeded(1)), ack: "twice"},
	}

	for _, tt := range tests {
		for _, reused := range []bool{false, true} {
			name := tt.name
			if reused {
				name += " after a completed job"
			}
			t.Run(name, func(t *testing.T) {
				cfg := testConfig()
				cfg.WriteAck = tt.ack
				s := &hookStore{IStore: lstore.NewLocalStore()}
				p := New(cfg, s, tt.factory)
				if reused {
					// a previous job that finished at 100 percent
					done := &job{total: 3}
					done.written.Store(3)
					done.completed.Store(true)
					p.job.Store(done)
					p.setState(StateDone)
				}

				_, err := p.Run(context.Background(), tt.n)
				if !errors.Is(err, common.ErrConfiguration) {
					t.Fatalf("Run error = %v, want ConfigurationError", err)
				}
				if p.State() != StateFailed || !errors.Is(p.Err(), common.ErrConfiguration) {
					t.Errorf("State = %s, Err = %v; want failed with ConfigurationError", p.State(), p.Err())
				}
				if got := p.ProgressPercent(); got != 0 {
					t.Errorf("ProgressPercent = %d, want 0", got)
				}
				if n := s.connects.Load(); n != 0 {
					t.Errorf("store contacted %d times for a rejected job", n)
				}

				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				err = Monitor(ctx, p, time.Millisecond, func(Progress) {})
				if !errors.Is(err, common.ErrConfiguration) {
					t.Errorf("Monitor error = %v, want ConfigurationError", err)
				}
			})
		}
	}
}

// TestRunAckLevel tests that writes wait for the configured acknowledgment
func TestRunAckLevel(t *testing.T) {
	tests := map[string]store.AckLevel{
		"":          store.AckAcknowledged,
		"journaled": store.AckJournaled,
		"MAJORITY":  store.AckMajority,
	}
	for ack, want := range tests {
		cfg := testConfig()
		cfg.WriteAck = ack
		p, s := newTestPipeline(cfg)
		if _, err := p.Run(context.Background(), 2); err != nil {
			t.Fatalf("Run(ack %q) failed: %v", ack, err)
		}
		if got := store.AckLevel(s.lastAck.Load()); got != want {
			t.Errorf("ack %q saved with %s, want %s", ack, got, want)
		}
	}
}

// TestHostnameDefault tests that an empty hostname is accepted
func TestHostnameDefault(t *testing.T) {
	cfg := testConfig()
	cfg.Hostname = ""
	p, _ := newTestPipeline(cfg)

	conn, err := p.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	_ = conn.Close(context.Background())
}

// TestConnectionError tests that store failures surface as connection errors
func TestConnectionError(t *testing.T) {
	mem := lstore.NewLocalStore()
	mem.AddUser("admin", "loader", "secret")

	cfg := testConfig()
	cfg.Username, cfg.Password, cfg.AuthDB = "loader", "wrong", "admin"
	p := New(cfg, mem, factory.NewInvoiceFactory(random.NewSeeded(1)))

	_, err := p.Run(context.Background(), 5)
	if !errors.Is(err, common.ErrConnection) {
		t.Fatalf("Run error = %v, want ConnectionError", err)
	}
	if p.State() != StateFailed || !errors.Is(p.Err(), common.ErrConnection) {
		t.Errorf("State = %s, Err = %v", p.State(), p.Err())
	}
}

// TestWriteErrorFailsJob tests that a failed write ends the job
func TestWriteErrorFailsJob(t *testing.T) {
	p, s := newTestPipeline(testConfig())
	s.save = func(attempt int) error {
		if attempt == 3 {
			return common.NewError(common.ErrCWrite, "disk full")
		}
		return nil
	}

	_, err := p.Run(context.Background(), 5)
	if !errors.Is(err, common.ErrWrite) {
		t.Fatalf("Run error = %v, want WriteError", err)
	}
	if got := p.ProgressPercent(); got != 40 {
		t.Errorf("ProgressPercent = %d, want 40", got)
	}
	if n := s.saves.Load(); n != 3 {
		t.Errorf("saves = %d, want 3 (no retry by default)", n)
	}
	if p.State() != StateFailed {
		t.Errorf("State = %s, want %s", p.State(), StateFailed)
	}
}

// TestWriteRetry tests that temporary write failures are retried when enabled
func TestWriteRetry(t *testing.T) {
	temporary := func() error {
		e := common.NewError(common.ErrCWrite, "connection reset")
		e.Temporary = true
		return e
	}

	t.Run("temporary failures recover", func(t *testing.T) {
		cfg := testConfig()
		cfg.WriteRetries = 3
		p, s := newTestPipeline(cfg)
		s.save = func(attempt int) error {
			if attempt <= 2 {
				return temporary()
			}
			return nil
		}

		res, err := p.Run(context.Background(), 2)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if res.Stored != 2 {
			t.Errorf("stored %d, want 2", res.Stored)
		}
		if n := s.saves.Load(); n != 4 {
			t.Errorf("save attempts = %d, want 4", n)
		}
		if p.Metrics().WriteErrors() != 2 {
			t.Errorf("write errors = %d, want 2", p.Metrics().WriteErrors())
		}
		if p.Metrics().WriteRetries() != 2 {
			t.Errorf("write retries = %d, want 2", p.Metrics().WriteRetries())
		}
	})

	t.Run("permanent failures are not retried", func(t *testing.T) {
		cfg := testConfig()
		cfg.WriteRetries = 3
		p, s := newTestPipeline(cfg)
		s.save = func(int) error { return common.NewError(common.ErrCWrite, "document too large") }

		if _, err := p.Run(context.Background(), 2); !errors.Is(err, common.ErrWrite) {
			t.Fatalf("Run error = %v, want WriteError", err)
		}
		if n := s.saves.Load(); n != 1 {
			t.Errorf("save attempts = %d, want 1", n)
		}
	})

	t.Run("retries are bounded", func(t *testing.T) {
		cfg := testConfig()
		cfg.WriteRetries = 2
		p, s := newTestPipeline(cfg)
		s.save = func(int) error { return temporary() }

		if _, err := p.Run(context.Background(), 1); !errors.Is(err, common.ErrWrite) {
			t.Fatalf("Run error = %v, want WriteError", err)
		}
		if n := s.saves.Load(); n != 3 {
			t.Errorf("save attempts = %d, want 3", n)
		}
	})
}

// TestCountMismatch tests that a count mismatch is reported but not an error
func TestCountMismatch(t *testing.T) {
	p, s := newTestPipeline(testConfig())
	s.count = func(stored int64) int64 { return stored - 1 }

	res, err := p.Run(context.Background(), 4)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Mismatch || res.Stored != 3 || res.Expected != 4 {
		t.Errorf("Run = %+v, want mismatch 3 of 4", res)
	}
	if p.State() != StateDone {
		t.Errorf("State = %s, want %s", p.State(), StateDone)
	}
}

// TestCancellation tests that a cancelled context stops the job between documents
func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	invoices := factory.NewInvoiceFactory(random.NewSeeded(1))
	var generated atomic.Int32
	f := funcFactory(func() (*document.Document, error) {
		if generated.Add(1) == 3 {
			cancel()
		}
		return invoices.GenerateDocument()
	})

	s := &hookStore{IStore: lstore.NewLocalStore()}
	p := New(testConfig(), s, f)

	_, err := p.Run(ctx, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	// the third document was generated before the cancellation was noticed
	if n := s.saves.Load(); n != 3 {
		t.Errorf("saves = %d, want 3", n)
	}
	if got := p.Progress().Written; got != 3 {
		t.Errorf("Written = %d, want 3", got)
	}
}

// TestFactoryErrorFailsJob tests that generation errors reach the caller
func TestFactoryErrorFailsJob(t *testing.T) {
	s := &hookStore{IStore: lstore.NewLocalStore()}
	f := factory.NewSampleMirrorFactory(random.NewSeeded(1), nil, "/does/not/exist.json", "")
	p := New(testConfig(), s, f)

	_, err := p.Run(context.Background(), 3)
	if !errors.Is(err, common.ErrSampleRead) || !errors.Is(err, factory.ErrSampleNotFound) {
		t.Fatalf("Run error = %v, want SampleReadError", err)
	}
	if n := s.saves.Load(); n != 0 {
		t.Errorf("saves = %d, want 0", n)
	}
}

// TestSaturationFailsJob tests that allocator saturation ends the job
func TestSaturationFailsJob(t *testing.T) {
	rand := random.NewSeeded(1)
	f := funcFactory(func() (*document.Document, error) {
		s, err := rand.UniqueString(1)
		if err != nil {
			return nil, err
		}
		return document.New().Set("s", document.String(s)), nil
	})
	p := New(testConfig(), lstore.NewLocalStore(), f)

	// 26 one-letter strings exist, saturation hits long before 100 documents
	_, err := p.Run(context.Background(), 100)
	if !errors.Is(err, common.ErrSaturationExceeded) {
		t.Fatalf("Run error = %v, want SaturationExceeded", err)
	}
	if w := p.Progress().Written; w < 20 || w > 26 {
		t.Errorf("Written = %d, want between 20 and 26", w)
	}
}

// --------------------------------------------------------------------------
// TestConnection
// --------------------------------------------------------------------------

// TestTestConnection tests the probe without side effects
func TestTestConnection(t *testing.T) {
	mem := lstore.NewLocalStore()
	cfg := testConfig()
	p := New(cfg, mem, factory.NewInvoiceFactory(random.NewSeeded(1)))

	// empty probe collection
	if err := p.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}

	// populated probe collection
	conn, _ := mem.Connect(context.Background(), store.ConnectParams{Database: cfg.TargetDB})
	president := document.New().Set("name", document.String("Lincoln"))
	if err := conn.Collection(common.DefaultProbeCollection).Save(context.Background(), president, store.AckAcknowledged); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := p.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}

	if p.State() != StateIdle {
		t.Errorf("State = %s, want %s", p.State(), StateIdle)
	}
	if n, _ := conn.Collection(cfg.Collection).Count(context.Background()); n != 0 {
		t.Errorf("TestConnection wrote %d documents", n)
	}
}

// TestTestConnectionCreatesNothing tests that probing a bolt store leaves a
// missing database missing
func TestTestConnectionCreatesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	p := New(testConfig(), bstore.NewBoltStore(dir), nil)

	if err := p.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("TestConnection created %s (stat error %v)", dir, err)
	}
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// TestMetricsExport tests the Prometheus export
func TestMetricsExport(t *testing.T) {
	p, _ := newTestPipeline(testConfig())
	if _, err := p.Run(context.Background(), 5); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var buf bytes.Buffer
	p.Metrics().WritePrometheus(&buf)
	out := buf.String()

	for _, want := range []string{
		`dload_documents_written_total{collection="invoices"} 5`,
		`dload_write_errors_total{collection="invoices"} 0`,
		`dload_progress_percent{collection="invoices"} 100`,
		`dload_write_duration_seconds_bucket`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output lacks %q:\n%s", want, out)
		}
	}
}

// TestStateString tests the state names used in logs
func TestStateString(t *testing.T) {
	for s := StateIdle; s <= StateFailed; s++ {
		if strings.HasPrefix(s.String(), "State(") {
			t.Errorf("state %d has no name", s)
		}
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("State(42).String() = %q", got)
	}
}

// TestResultDuration tests that the duration covers the job
func TestResultDuration(t *testing.T) {
	p, s := newTestPipeline(testConfig())
	s.save = func(int) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}

	res, err := p.Run(context.Background(), 4)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Duration < 20*time.Millisecond {
		t.Errorf("Duration = %s, want at least 20ms", res.Duration)
	}
}
