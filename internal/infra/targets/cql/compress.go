package cql

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4Compressor implements the native protocol's lz4 frame body: the
// uncompressed length as a big-endian uint32 followed by one raw lz4 block.
type LZ4Compressor struct{}

func (LZ4Compressor) Name() string { return "lz4" }

func (LZ4Compressor) Encode(data []byte) ([]byte, error) {
	buf := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	if len(data) == 0 {
		return buf[:4], nil
	}
	n, err := lz4.CompressBlock(data, buf[4:], nil)
	if err != nil {
		return nil, err
	}
	return buf[:4+n], nil
}

func (LZ4Compressor) Decode(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, errors.New("lz4: frame body shorter than its length prefix")
	}
	size := binary.BigEndian.Uint32(data)
	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}
	n, err := lz4.UncompressBlock(data[4:], out)
	if err != nil {
		return nil, err
	}
	if n != int(size) {
		return nil, fmt.Errorf("lz4: expected %d bytes, got %d", size, n)
	}
	return out, nil
}
