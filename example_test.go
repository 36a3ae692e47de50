package linesort_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lanrat/linesort"
)

func Example() {
	dir, err := os.MkdirTemp("", "linesort-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "input.txt")
	dst := filepath.Join(dir, "sorted.txt")
	input := "5. banana\n1. apple\n5. apple\n2. cherry.pie\n"
	if err := os.WriteFile(src, []byte(input), 0o644); err != nil {
		panic(err)
	}

	// tiny segments to force a few merge rounds
	config := &linesort.Config{SegmentCapacity: 1, MergeFanIn: 2, TempDir: dir}
	if _, err := linesort.Sort(context.Background(), src, dst, config); err != nil {
		fmt.Printf("err: %s", err.Error())
		return
	}

	out, err := os.ReadFile(dst)
	if err != nil {
		panic(err)
	}
	fmt.Print(string(out))
	// Output:
	// 1. apple
	// 5. apple
	// 5. banana
	// 2. cherry.pie
}

func ExampleSorter_SortStream() {
	sorter := linesort.NewMock(&linesort.Config{SegmentCapacity: 2})
	var out strings.Builder
	stats, err := sorter.SortStream(context.Background(), strings.NewReader("3. c\n1. b\n2. a\n"), &out)
	if err != nil {
		fmt.Printf("err: %s", err.Error())
		return
	}
	fmt.Print(out.String())
	fmt.Println(stats.Records, "records in", stats.Segments, "segments")
	// Output:
	// 2. a
	// 1. b
	// 3. c
	// 3 records in 2 segments
}
