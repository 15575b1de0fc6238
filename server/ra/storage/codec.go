package storage

import (
	"bytes"
	"io"

	"github.com/golang/snappy"
	"github.com/juju/errors"
	"github.com/pierrec/lz4/v4"
)

// Codec transforms a page payload on its way to and from disk. The
// text page format stays the unit of interoperability; the codec only
// wraps the file contents.
type Codec interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// NewCodec resolves a codec by its config name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "none":
		return noneCodec{}, nil
	case "snappy":
		return snappyCodec{}, nil
	case "lz4":
		return lz4Codec{}, nil
	default:
		return nil, errors.Errorf("unknown page codec %q", name)
	}
}

type noneCodec struct{}

func (noneCodec) Name() string { return "none" }

func (noneCodec) Compress(data []byte) ([]byte, error) { return data, nil }

func (noneCodec) Decompress(data []byte) ([]byte, error) { return data, nil }

type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }

func (snappyCodec) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCodec) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Annotate(err, "snappy decode")
	}
	return out, nil
}

type lz4Codec struct{}

func (lz4Codec) Name() string { return "lz4" }

func (lz4Codec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Annotate(err, "lz4 encode")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Annotate(err, "lz4 close")
	}
	return buf.Bytes(), nil
}

func (lz4Codec) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.Annotate(err, "lz4 decode")
	}
	return out, nil
}
