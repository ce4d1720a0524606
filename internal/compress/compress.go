package compress

import "fmt"

// Codec names stored alongside encoded content.
const (
	NameNop    = "nop"
	NameGZip   = "gzip"
	NameLZ4    = "lz4"
	NameBrotli = "brotli"
)

// Compress encodes exploration content before it is written to the store.
type Compress interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// New returns the codec registered under name.
func New(name string) (Compress, error) {
	switch name {
	case NameNop, "":
		return NewNop(), nil
	case NameGZip:
		return NewGZip(), nil
	case NameLZ4:
		return NewLZ4(), nil
	case NameBrotli:
		return NewBrotli(), nil
	}

	return nil, fmt.Errorf("unknown compression: %s", name)
}
