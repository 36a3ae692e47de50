// Package generate writes random record files for testing and benchmarking
// the sorter.
//
// Lines look like "<tag>. <words>" with tags in [0, 65535) and 1 to 4 words
// picked from a corpus. A pool of phrases is written first and then reused
// with probability DuplicateRate, so the output always contains texts that
// only differ by tag.
package generate

import (
	"bufio"
	"context"
	"errors"
	"io"
	"math/rand"
	"strconv"
	"strings"
)

const (
	// MaxTag is the exclusive upper bound of generated tags
	MaxTag = 65535

	defaultMinWords      = 1
	defaultMaxWords      = 4
	defaultDuplicatePool = 20
	// DefaultDuplicateRate is the share of lines reusing a pooled phrase
	DefaultDuplicateRate = 0.01
)

// Generator produces record lines. The zero value is not usable, see New.
type Generator struct {
	// Words is the corpus phrases are built from
	Words []string
	// MinWords and MaxWords bound the words per line, inclusive
	MinWords, MaxWords int
	// DuplicatePool is the number of phrases reused for duplicates
	DuplicatePool int
	// DuplicateRate is the probability in [0, 1] that a line reuses a pooled phrase
	DuplicateRate float64

	rng  *rand.Rand
	pool []string
}

// Stats counts what a generator wrote.
type Stats struct {
	Lines      int64
	Duplicates int64
	Bytes      int64
}

// New returns a Generator using words, or DefaultWords when words is empty,
// seeded with seed so the output is reproducible.
func New(words []string, seed int64) *Generator {
	if len(words) == 0 {
		words = DefaultWords
	}
	return &Generator{
		Words:         words,
		MinWords:      defaultMinWords,
		MaxWords:      defaultMaxWords,
		DuplicatePool: defaultDuplicatePool,
		DuplicateRate: DefaultDuplicateRate,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

func (g *Generator) validate() error {
	if len(g.Words) == 0 {
		return errors.New("generate: empty word list")
	}
	if g.MinWords < 1 || g.MaxWords < g.MinWords {
		return errors.New("generate: invalid words per line range")
	}
	if g.DuplicateRate < 0 || g.DuplicateRate > 1 {
		return errors.New("generate: duplicate rate must be within [0, 1]")
	}
	return nil
}

// phrase joins random words from the corpus
func (g *Generator) phrase() string {
	n := g.MinWords + g.rng.Intn(g.MaxWords-g.MinWords+1)
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(g.Words[g.rng.Intn(len(g.Words))])
	}
	return b.String()
}

// Line returns the next random line, without newline, and whether its text was
// taken from the duplicate pool.
func (g *Generator) Line() (string, bool) {
	if g.pool == nil {
		g.fillPool()
	}
	text, dup := "", false
	if len(g.pool) > 0 && g.DuplicateRate > 0 && g.rng.Float64() < g.DuplicateRate {
		text, dup = g.pool[g.rng.Intn(len(g.pool))], true
	} else {
		text = g.phrase()
	}
	return format(g.rng.Intn(MaxTag), text), dup
}

func (g *Generator) fillPool() {
	g.pool = make([]string, g.DuplicatePool)
	for i := range g.pool {
		g.pool[i] = g.phrase()
	}
}

func format(tag int, text string) string {
	return strconv.Itoa(tag) + ". " + text
}

// WriteSize writes lines to w until at least size bytes were written.
// Every pooled phrase is written once first, so a non-empty output holds at
// least DuplicatePool lines.
func (g *Generator) WriteSize(ctx context.Context, w io.Writer, size int64) (Stats, error) {
	return g.write(ctx, w, func(s Stats) bool { return s.Bytes < size })
}

// WriteLines writes exactly n random lines to w. The pool is not written up front.
func (g *Generator) WriteLines(ctx context.Context, w io.Writer, n int64) (Stats, error) {
	if err := g.validate(); err != nil {
		return Stats{}, err
	}
	bw := bufio.NewWriter(w)
	var st Stats
	for st.Lines < n {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		line, dup := g.Line()
		if err := st.add(bw, line, dup); err != nil {
			return st, err
		}
	}
	return st, bw.Flush()
}

func (g *Generator) write(ctx context.Context, w io.Writer, more func(Stats) bool) (Stats, error) {
	if err := g.validate(); err != nil {
		return Stats{}, err
	}
	bw := bufio.NewWriter(w)
	var st Stats
	if !more(st) {
		return st, nil
	}
	if g.pool == nil {
		g.fillPool()
	}
	for _, text := range g.pool {
		if err := st.add(bw, format(g.rng.Intn(MaxTag), text), true); err != nil {
			return st, err
		}
	}
	for more(st) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		line, dup := g.Line()
		if err := st.add(bw, line, dup); err != nil {
			return st, err
		}
	}
	return st, bw.Flush()
}

func (s *Stats) add(w *bufio.Writer, line string, dup bool) error {
	n, err := w.WriteString(line)
	if err == nil {
		err = w.WriteByte('\n')
		n++
	}
	s.Bytes += int64(n)
	if err != nil {
		return err
	}
	s.Lines++
	if dup {
		s.Duplicates++
	}
	return nil
}

// LoadWords reads a corpus with one word or phrase per line, skipping blank lines.
func LoadWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.New("generate: corpus has no words")
	}
	return words, nil
}
