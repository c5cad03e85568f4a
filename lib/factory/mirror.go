package factory

import (
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/ValentinKolb/dLoad/lib/random"
	"sync"
	"unicode/utf8"
)

// SampleMirrorFactory generates documents with the key structure and value
// kinds of a sample document, filled with random values.
//
// The sample is read and parsed at most once, on the first call to
// GenerateDocument or Sample. A failure is cached as well and returned by
// every later call.
type SampleMirrorFactory struct {
	rand     *random.Allocator
	source   ISampleSource
	path     string
	encoding string

	once   sync.Once
	sample *document.Document
	err    error
}

// NewSampleMirrorFactory creates a factory mirroring the sample at path.
// The format is chosen by extension (see document.FormatForPath).
func NewSampleMirrorFactory(rand *random.Allocator, source ISampleSource, path, encoding string) *SampleMirrorFactory {
	if source == nil {
		source = FileSampleSource{}
	}
	return &SampleMirrorFactory{
		rand:     rand,
		source:   source,
		path:     path,
		encoding: encoding,
	}
}

// Sample returns the parsed sample, loading it on first use
func (f *SampleMirrorFactory) Sample() (*document.Document, error) {
	f.once.Do(func() {
		f.sample, f.err = f.load()
		if f.err != nil {
			log.Errorf("failed to load sample %s: %v", f.path, f.err)
		}
	})
	return f.sample, f.err
}

func (f *SampleMirrorFactory) load() (*document.Document, error) {
	if f.path == "" {
		return nil, common.NewError(common.ErrCSampleRead, "no sample path configured")
	}

	data, err := f.source.ReadBytes(f.path, f.encoding)
	if err != nil {
		return nil, err
	}

	format := document.FormatForPath(f.path)
	sample, err := document.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", f.path, err)
	}

	log.Infof("loaded %s sample %s with %d top-level keys", format, f.path, sample.Len())
	return sample, nil
}

// GenerateDocument implements IDocumentFactory
func (f *SampleMirrorFactory) GenerateDocument() (*document.Document, error) {
	sample, err := f.Sample()
	if err != nil {
		return nil, err
	}
	return f.mirrorDocument(sample, "")
}

// Name implements IDocumentFactory
func (f *SampleMirrorFactory) Name() string {
	return "sample"
}

func (f *SampleMirrorFactory) mirrorDocument(sample *document.Document, path string) (*document.Document, error) {
	out := document.New()
	for _, field := range sample.Fields() {
		v, err := f.mirrorValue(field.Value, joinPath(path, field.Key))
		if err != nil {
			return nil, err
		}
		out.Set(field.Key, v)
	}
	return out, nil
}

func (f *SampleMirrorFactory) mirrorValue(v document.Value, path string) (document.Value, error) {
	switch v.Kind() {
	case document.KindString:
		s, err := f.rand.RandomString(utf8.RuneCountInString(v.Str()))
		if err != nil {
			return document.Value{}, fmt.Errorf("mirroring %q: %w", path, err)
		}
		return document.String(s), nil

	case document.KindInteger:
		return document.Integer(f.rand.RandomInt()), nil

	case document.KindFloat:
		return document.Float(f.rand.RandomDouble()), nil

	case document.KindBoolean:
		return document.Boolean(f.rand.RandomBool()), nil

	case document.KindDocument:
		d, err := f.mirrorDocument(v.Doc(), path)
		if err != nil {
			return document.Value{}, err
		}
		return document.Nested(d), nil

	case document.KindSequence:
		seq := make([]document.Value, len(v.Seq()))
		for i, e := range v.Seq() {
			if e.Kind() != document.KindString {
				return document.Value{}, common.NewError(common.ErrCSchemaUnsupported,
					"sequence at %q holds a %s at index %d, only strings are supported", path, e.Kind(), i)
			}
			s, err := f.rand.RandomString(utf8.RuneCountInString(e.Str()))
			if err != nil {
				return document.Value{}, fmt.Errorf("mirroring %q[%d]: %w", path, i, err)
			}
			seq[i] = document.String(s)
		}
		return document.Sequence(seq...), nil

	default:
		return document.Value{}, common.NewError(common.ErrCSchemaUnsupported,
			"unsupported data type at %q: %s", path, v.Kind())
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
