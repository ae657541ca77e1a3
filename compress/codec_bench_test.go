package compress

import (
	"fmt"
	"testing"
)

var benchSizes = []int{4 * 1024, 64 * 1024, 1024 * 1024}

func BenchmarkAllCodecs_Compress(b *testing.B) {
	for codecName, codec := range getAllCodecs() {
		for _, size := range benchSizes {
			data := stringDataPayload(size)
			b.Run(fmt.Sprintf("%s/%dKB", codecName, size/1024), func(b *testing.B) {
				b.SetBytes(int64(size))
				b.ReportAllocs()

				for b.Loop() {
					_, _ = codec.Compress(data)
				}
			})
		}
	}
}

func BenchmarkAllCodecs_Decompress(b *testing.B) {
	for codecName, codec := range getAllCodecs() {
		for _, size := range benchSizes {
			data := stringDataPayload(size)
			compressed, err := codec.Compress(data)
			if err != nil {
				b.Fatal(err)
			}

			b.Run(fmt.Sprintf("%s/%dKB", codecName, size/1024), func(b *testing.B) {
				b.SetBytes(int64(size))
				b.ReportAllocs()
				b.ReportMetric(float64(len(compressed))/float64(size), "ratio")

				for b.Loop() {
					_, _ = codec.Decompress(compressed)
				}
			})
		}
	}
}

func BenchmarkZstdDecompress_Parallel(b *testing.B) {
	codec := NewZstdCompressor()
	data := stringDataPayload(64 * 1024)
	compressed, err := codec.Compress(data)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(data)))
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = codec.Decompress(compressed)
		}
	})
}
