package hashing

import (
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"

	"github.com/zeebo/xxh3"
)

// Fingerprint is an order independent digest of a set of rows: the wrapping
// sum of each row's xxh3 hash. Workers may call Add concurrently.
type Fingerprint struct {
	sum   atomic.Uint64
	count atomic.Int64
}

func NewFingerprint() *Fingerprint { return &Fingerprint{} }

func (f *Fingerprint) Add(row [][]byte) {
	f.sum.Add(HashRow(row))
	f.count.Add(1)
}

func (f *Fingerprint) Sum() uint64 { return f.sum.Load() }

func (f *Fingerprint) Count() int64 { return f.count.Load() }

func (f *Fingerprint) Hex() string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], f.Sum())
	return hex.EncodeToString(b[:])
}

// HashRow hashes the values of a row with a length prefix per value, so
// ("ab","c") and ("a","bc") differ.
func HashRow(row [][]byte) uint64 {
	h := xxh3.New()
	var n [4]byte
	for _, v := range row {
		binary.LittleEndian.PutUint32(n[:], uint32(len(v)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(v)
	}
	return h.Sum64()
}
