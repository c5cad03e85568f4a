package factory

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/common"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
	"io"
	"io/fs"
	"os"
	"strings"
)

const (
	// DefaultEncoding is used when no sample encoding is configured
	DefaultEncoding = "UTF-8"
	// MaxSampleSize is the largest sample accepted, the BSON document limit
	MaxSampleSize = 16 * 1024 * 1024
)

// Causes wrapped by the common.ErrSampleRead errors of ISampleSource
var (
	ErrSampleNotFound      = errors.New("sample not found")
	ErrSampleTooLarge      = errors.New("sample too large")
	ErrEncodingUnsupported = errors.New("encoding unsupported")
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ISampleSource supplies the raw bytes of a sample document
type ISampleSource interface {
	// ReadBytes returns the content at path converted from encoding to UTF-8.
	// An empty encoding means UTF-8. Failures are common.ErrSampleRead errors
	// wrapping ErrSampleNotFound, ErrSampleTooLarge or ErrEncodingUnsupported.
	ReadBytes(path, encoding string) ([]byte, error)
}

// FileSampleSource reads samples from the local file system
type FileSampleSource struct{}

// ReadBytes implements ISampleSource
func (FileSampleSource) ReadBytes(path, encoding string) ([]byte, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	// resolve the encoding first, so a bad name fails without touching the file
	enc, err := ianaindex.IANA.Encoding(encoding)
	if err != nil || enc == nil {
		return nil, common.WrapError(common.ErrCSampleRead,
			fmt.Errorf("%w: %q", ErrEncodingUnsupported, encoding), "cannot read sample %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrSampleNotFound, err)
		}
		return nil, common.WrapError(common.ErrCSampleRead, err, "cannot open sample %s", path)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > MaxSampleSize {
		return nil, common.WrapError(common.ErrCSampleRead,
			fmt.Errorf("%w: %d bytes", ErrSampleTooLarge, info.Size()), "cannot read sample %s", path)
	}

	// read one byte past the limit to detect files that grew after Stat
	data, err := io.ReadAll(io.LimitReader(f, MaxSampleSize+1))
	if err != nil {
		return nil, common.WrapError(common.ErrCSampleRead, err, "cannot read sample %s", path)
	}
	if len(data) > MaxSampleSize {
		return nil, common.WrapError(common.ErrCSampleRead,
			fmt.Errorf("%w: more than %d bytes", ErrSampleTooLarge, MaxSampleSize), "cannot read sample %s", path)
	}

	if !strings.EqualFold(encoding, DefaultEncoding) {
		data, _, err = transform.Bytes(enc.NewDecoder(), data)
		if err != nil {
			return nil, common.WrapError(common.ErrCSampleRead, err, "cannot decode sample %s from %s", path, encoding)
		}
	}

	log.Debugf("read sample %s (%d bytes, %s)", path, len(data), encoding)
	return bytes.TrimPrefix(data, utf8BOM), nil
}
