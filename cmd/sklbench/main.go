// Command sklbench drives fillseq/fillrandom/readrandom benchmarks and an
// optional mixed-workload stress run against skiplist.Index: a fixed
// benchmark suite reporting a results table, and a duration-bounded
// concurrent reader/writer workload checked against an oracle map.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ls4154/atomicskiplist/skiplist"
)

type config struct {
	benchmarks []string
	num        int
	reads      int
	height     int
	seed       int64

	stress         bool
	duration       time.Duration
	readers        int
	reportInterval time.Duration
}

func main() {
	cfg := parseFlags()

	if cfg.stress {
		if err := runStress(cfg); err != nil {
			fatalf("%v", err)
		}
		return
	}

	printHeader()
	for _, name := range cfg.benchmarks {
		r, err := runBenchmark(cfg, name)
		if err != nil {
			fatalf("%s: %v", name, err)
		}
		printResult(name, r)
	}
}

type runResult struct {
	ops       int
	opsPerSec float64
	avgMicros float64
}

func runBenchmark(cfg config, name string) (runResult, error) {
	idx, err := skiplist.New[int, int64](cfg.height, skiplist.OrderedComparator[int]{},
		skiplist.WithName[int, int64]("sklbench"),
		skiplist.WithSeed[int, int64](uint64(cfg.seed)))
	if err != nil {
		return runResult{}, err
	}

	switch name {
	case "fillseq":
		return timeOps(cfg.num, func(i int) { idx.Upsert(i, int64(i)) }), nil
	case "fillrandom":
		r := rand.New(rand.NewSource(cfg.seed))
		perm := r.Perm(cfg.num)
		return timeOps(cfg.num, func(i int) { idx.Upsert(perm[i], int64(perm[i])) }), nil
	case "readrandom":
		for i := 0; i < cfg.num; i++ {
			idx.Upsert(i, int64(i))
		}
		reads := cfg.reads
		if reads <= 0 {
			reads = cfg.num
		}
		r := rand.New(rand.NewSource(cfg.seed))
		return timeOps(reads, func(i int) { idx.Find(r.Intn(cfg.num)) }), nil
	default:
		return runResult{}, fmt.Errorf("unknown benchmark %q (want fillseq|fillrandom|readrandom)", name)
	}
}

func timeOps(n int, op func(i int)) runResult {
	start := time.Now()
	for i := 0; i < n; i++ {
		op(i)
	}
	elapsed := time.Since(start)
	secs := elapsed.Seconds()
	rate := 0.0
	if secs > 0 {
		rate = float64(n) / secs
	}
	return runResult{
		ops:       n,
		opsPerSec: rate,
		avgMicros: float64(elapsed.Microseconds()) / float64(max(n, 1)),
	}
}

func printHeader() {
	fmt.Printf("%-12s %12s %12s %12s\n", "benchmark", "ops", "ops/sec", "avg(us)")
}

func printResult(name string, r runResult) {
	fmt.Printf("%-12s %12d %12.0f %12.2f\n", name, r.ops, r.opsPerSec, r.avgMicros)
}

// runStress runs one writer goroutine alongside many reader goroutines
// against a single Index for cfg.duration, checking every read against an
// oracle map the writer goroutine maintains.
func runStress(cfg config) error {
	idx, err := skiplist.New[int, int64](cfg.height, skiplist.OrderedComparator[int]{},
		skiplist.WithName[int, int64]("sklbench-stress"),
		skiplist.WithSeed[int, int64](uint64(cfg.seed)))
	if err != nil {
		return err
	}

	oracle := newOracle(cfg.num)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.duration)
	defer cancel()

	var (
		writes, reads, mismatches atomic.Uint64
		firstErr                  atomic.Pointer[error]
	)
	setErr := func(err error) {
		if firstErr.CompareAndSwap(nil, &err) {
			cancel()
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r := rand.New(rand.NewSource(cfg.seed + 1))
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			key := r.Intn(cfg.num)
			val := r.Int63()
			idx.Upsert(key, val)
			oracle.set(key, val)
			writes.Add(1)
		}
	}()

	for i := 0; i < cfg.readers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(cfg.seed + 2000 + int64(id)))
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				key := r.Intn(cfg.num)
				got, foundInIndex := idx.Find(key)
				want, foundInOracle := oracle.get(key)

				if foundInIndex && foundInOracle && got != want {
					mismatches.Add(1)
					setErr(fmt.Errorf("reader %d: key %d: index=%d oracle=%d: %w", id, key, got, want, errMismatch))
					return
				}
				if foundInIndex && !foundInOracle {
					mismatches.Add(1)
					setErr(fmt.Errorf("reader %d: key %d: present in index but not yet observed in oracle: %w", id, key, errMismatch))
					return
				}
				reads.Add(1)
			}
		}(i)
	}

	var reportDone chan struct{}
	if cfg.reportInterval > 0 {
		reportDone = make(chan struct{})
		go func() {
			defer close(reportDone)
			ticker := time.NewTicker(cfg.reportInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					fmt.Printf("sklbench: writes=%d reads=%d mismatches=%d len=%d\n",
						writes.Load(), reads.Load(), mismatches.Load(), idx.Len())
				}
			}
		}()
	}

	wg.Wait()
	if reportDone != nil {
		<-reportDone
	}

	if p := firstErr.Load(); p != nil {
		return *p
	}
	fmt.Printf("sklbench: stress PASS writes=%d reads=%d len=%d\n", writes.Load(), reads.Load(), idx.Len())
	return nil
}

var errMismatch = errors.New("stress invariant violation")

// oracle is a plain mutex-guarded map the stress run checks Index reads
// against; unlike the Index under test it has no concurrency contract of
// its own; the stress harness is the only concurrent consumer.
type oracle struct {
	mu sync.RWMutex
	m  map[int]int64
}

func newOracle(capacity int) *oracle {
	return &oracle{m: make(map[int]int64, capacity)}
}

func (o *oracle) set(key int, val int64) {
	o.mu.Lock()
	o.m[key] = val
	o.mu.Unlock()
}

func (o *oracle) get(key int) (int64, bool) {
	o.mu.RLock()
	v, ok := o.m[key]
	o.mu.RUnlock()
	return v, ok
}

func parseFlags() config {
	var benchmarkList string
	cfg := config{}

	flag.StringVar(&benchmarkList, "benchmarks", "fillseq,fillrandom,readrandom", "comma-separated benchmark names")
	flag.IntVar(&cfg.num, "num", 1000000, "keys to insert")
	flag.IntVar(&cfg.reads, "reads", -1, "read operations for readrandom (default: num)")
	flag.IntVar(&cfg.height, "height", 22, "tower height")
	flag.Int64Var(&cfg.seed, "seed", 301, "rng seed")

	flag.BoolVar(&cfg.stress, "stress", false, "run the concurrent reader/writer stress workload instead of the benchmark suite")
	flag.DurationVar(&cfg.duration, "duration", 30*time.Second, "stress run duration")
	flag.IntVar(&cfg.readers, "readers", 8, "concurrent reader goroutines for -stress")
	flag.DurationVar(&cfg.reportInterval, "report-interval", 5*time.Second, "stress progress report interval (0 disables)")
	flag.Parse()

	cfg.benchmarks = parseBenchmarks(benchmarkList)
	if cfg.num <= 0 {
		fatalf("num must be > 0")
	}
	if cfg.height <= 0 {
		fatalf("height must be > 0")
	}
	if cfg.stress && cfg.readers <= 0 {
		fatalf("readers must be > 0 for -stress")
	}
	if !cfg.stress && len(cfg.benchmarks) == 0 {
		fatalf("benchmarks is empty")
	}
	return cfg
}

func parseBenchmarks(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sklbench: error: "+format+"\n", args...)
	os.Exit(1)
}
