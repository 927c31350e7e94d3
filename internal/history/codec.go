package history

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

func mustNewEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		panic(err)
	}
	return enc
}

func mustNewDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(
		nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		panic(err)
	}
	return dec
}

var encPool = sync.Pool{
	New: func() any {
		return mustNewEncoder()
	},
}

var decPool = sync.Pool{
	New: func() any {
		return mustNewDecoder()
	},
}

func compress(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	enc := encPool.Get().(*zstd.Encoder)
	out := enc.EncodeAll(data, nil)
	encPool.Put(enc)
	return out
}

func decompress(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec := decPool.Get().(*zstd.Decoder)
	out, err := dec.DecodeAll(data, make([]byte, 0, size))
	decPool.Put(dec)
	return out, err
}
