package index

import (
	"encoding/binary"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/crypto/blake2b"

	"demopipe/model"
)

const (
	// DefaultBloomBits is the fixed bit-array width of a column filter.
	DefaultBloomBits = 2048
	// DefaultBloomHashes is the number of independently salted digests per
	// value.
	DefaultBloomHashes = 3
)

// Bloom is a write-once membership filter over the string form of column
// values. A negative test is certain absence; a positive test is probable
// presence. There is no removal: rebuilding means recomputing over the full
// value set.
type Bloom struct {
	numBits   uint64
	hashCount int
	bits      *roaring.Bitmap
}

func NewBloom(numBits, hashCount int) *Bloom {
	return &Bloom{
		numBits:   uint64(numBits),
		hashCount: hashCount,
		bits:      roaring.New(),
	}
}

// BloomFromInfo reconstructs a filter from its serialized form so consumers
// can run membership tests against a manifest.
func BloomFromInfo(info model.BloomFilterInfo) *Bloom {
	return &Bloom{
		numBits:   uint64(info.NumBits),
		hashCount: info.HashCount,
		bits:      roaring.BitmapOf(info.SetBits...),
	}
}

// positions derives the bit positions for a value. Each digest is an 8-byte
// BLAKE2b keyed by its salt index, reduced modulo the bit-array width, so
// the hashCount positions come from statistically independent hash
// functions.
func (b *Bloom) positions(text string) []uint32 {
	out := make([]uint32, b.hashCount)
	for salt := 0; salt < b.hashCount; salt++ {
		h, err := blake2b.New(8, []byte{byte(salt)})
		if err != nil {
			panic(err) // key is always valid
		}
		h.Write([]byte(text))
		digest := binary.BigEndian.Uint64(h.Sum(nil))
		out[salt] = uint32(digest % b.numBits)
	}
	return out
}

func (b *Bloom) Add(text string) {
	for _, pos := range b.positions(text) {
		b.bits.Add(pos)
	}
}

// Test reports whether text may have been added. False means certainly not.
func (b *Bloom) Test(text string) bool {
	for _, pos := range b.positions(text) {
		if !b.bits.Contains(pos) {
			return false
		}
	}
	return true
}

// Info serializes the filter as its sorted set-bit positions plus the hash
// parameters needed to reproduce them.
func (b *Bloom) Info() model.BloomFilterInfo {
	setBits := b.bits.ToArray()
	if setBits == nil {
		setBits = []uint32{}
	}
	return model.BloomFilterInfo{
		NumBits:   int(b.numBits),
		HashCount: b.hashCount,
		SetBits:   setBits,
	}
}
