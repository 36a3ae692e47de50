package linesort_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/lanrat/linesort"
	"github.com/lanrat/linesort/generate"
)

// Benchmark configurations
var benchmarkSizes = []int64{10000, 100000, 1000000}

func benchmarkInput(b *testing.B, lines int64) []byte {
	b.Helper()
	var buf bytes.Buffer
	if _, err := generate.New(nil, 1).WriteLines(context.Background(), &buf, lines); err != nil {
		b.Fatal(err)
	}
	return buf.Bytes()
}

func benchmarkSort(b *testing.B, newSorter func(*linesort.Config) *linesort.Sorter, config *linesort.Config) {
	for _, size := range benchmarkSizes {
		b.Run(fmt.Sprintf("size_%d", size), func(b *testing.B) {
			data := benchmarkInput(b, size)
			cfg := *config
			cfg.SegmentCapacity = int(size / 10)
			if cfg.TempDir == "" {
				cfg.TempDir = b.TempDir()
			}
			sorter := newSorter(&cfg)

			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := sorter.SortStream(context.Background(), bytes.NewReader(data), io.Discard); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSortDisk(b *testing.B) {
	benchmarkSort(b, linesort.New, &linesort.Config{})
}

func BenchmarkSortDiskCompressed(b *testing.B) {
	benchmarkSort(b, linesort.New, &linesort.Config{CompressSegments: true})
}

func BenchmarkSortMock(b *testing.B) {
	benchmarkSort(b, linesort.NewMock, &linesort.Config{})
}

func BenchmarkSortFanIn(b *testing.B) {
	for _, fanIn := range []int{2, 10, 100} {
		b.Run(fmt.Sprintf("fanIn_%d", fanIn), func(b *testing.B) {
			benchmarkSort(b, linesort.NewMock, &linesort.Config{MergeFanIn: fanIn})
		})
	}
}
