package badger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Record layout:
//
//	[version:1][flags:1][metaLen:uvarint][meta][content]
//
// content is zstd-compressed when flagZstd is set.
const (
	recordVersion byte = 1

	flagZstd byte = 1 << 0
)

var errCorruptRecord = errors.New("corrupt record")

// compressor compresses content above a size threshold. A nil compressor
// stores content as-is.
type compressor struct {
	threshold int
	enc       *zstd.Encoder
	dec       *zstd.Decoder
}

func newCompressor(threshold int) (*compressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &compressor{threshold: threshold, enc: enc, dec: dec}, nil
}

func (c *compressor) close() {
	if c == nil {
		return
	}
	_ = c.enc.Close()
	c.dec.Close()
}

func encodeRecord(meta, content []byte, c *compressor) []byte {
	var flags byte
	if c != nil && len(content) >= c.threshold {
		compressed := c.enc.EncodeAll(content, nil)
		if len(compressed) < len(content) {
			content = compressed
			flags |= flagZstd
		}
	}

	out := make([]byte, 0, 2+binary.MaxVarintLen64+len(meta)+len(content))
	out = append(out, recordVersion, flags)
	out = binary.AppendUvarint(out, uint64(len(meta)))
	out = append(out, meta...)
	out = append(out, content...)
	return out
}

// decodeRecord splits a record into metadata and content bytes. Both may
// alias buf unless the content was compressed.
func decodeRecord(buf []byte, c *compressor) (meta, content []byte, err error) {
	if len(buf) < 2 || buf[0] != recordVersion {
		return nil, nil, errCorruptRecord
	}
	flags := buf[1]
	metaLen, n := binary.Uvarint(buf[2:])
	if n <= 0 || uint64(len(buf)-2-n) < metaLen {
		return nil, nil, errCorruptRecord
	}
	rest := buf[2+n:]
	meta, content = rest[:metaLen], rest[metaLen:]

	if flags&flagZstd != 0 {
		if c == nil {
			dec, err := zstd.NewReader(nil)
			if err != nil {
				return nil, nil, err
			}
			defer dec.Close()
			content, err = dec.DecodeAll(content, nil)
			return meta, content, err
		}
		content, err = c.dec.DecodeAll(content, nil)
		if err != nil {
			return nil, nil, err
		}
	}
	return meta, content, nil
}
