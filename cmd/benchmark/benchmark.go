package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	cache "github.com/krisalay/tiered-cache"
	"github.com/krisalay/tiered-cache/config"
	"github.com/krisalay/tiered-cache/eviction"
	"github.com/krisalay/tiered-cache/types"
)

// ================= BENCHMARK =================

func main() {
	var (
		preloadKeys = flag.Int("keys", 20000, "keys written before the read phase")
		goroutines  = flag.Int("goroutines", 200, "concurrent readers")
		opsPerG     = flag.Int("ops", 5000, "reads per goroutine")
		memLimit    = flag.Uint("memory", 10000, "memory tier count limit")
		policy      = flag.String("policy", "LRU", "memory eviction policy")
		compress    = flag.Bool("compress", false, "zstd-compress disk payloads")
	)
	flag.Parse()

	if err := run(*preloadKeys, *goroutines, *opsPerG, *memLimit, *policy, *compress); err != nil {
		log.Error("Benchmark failed", "err", err)
		os.Exit(1)
	}
}

func run(preloadKeys, goroutines, opsPerG int, memLimit uint, policyName string, compress bool) error {
	ctx := context.Background()

	policy, err := eviction.ParsePolicyType(policyName)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "tiered-cache-bench-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	// ---------------- Cache Config ----------------
	cfg := config.Default()
	cfg.StorageLocation = dir
	cfg.MemoryCountLimit = memLimit
	cfg.EvictionPolicy = policy
	cfg.Compression = compress

	fmt.Println("\n================ CACHE LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Directory    :", dir)
	fmt.Println("Memory Limit :", humanize.Comma(int64(memLimit)))
	fmt.Println("Policy       :", policy)
	fmt.Println("Compression  :", compress)
	fmt.Println("Preload Keys :", humanize.Comma(int64(preloadKeys)))
	fmt.Println("Goroutines   :", goroutines)
	fmt.Println("Ops/Goroutine:", humanize.Comma(int64(opsPerG)))
	fmt.Println("---------------------------------")

	counters := &types.Counters{}
	c, err := cache.New[int](cfg, cache.WithMetrics[int](counters))
	if err != nil {
		return err
	}
	defer c.Close()

	// ---------------- Preload Cache ----------------
	fmt.Println("Preloading cache...")
	start := time.Now()
	for i := 0; i < preloadKeys; i++ {
		if err := c.Set(ctx, fmt.Sprintf("key-%d", i), i); err != nil {
			return err
		}
	}
	writeTime := time.Since(start)
	fmt.Printf("Preload complete in %v.\n", writeTime)

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")

	start = time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < goroutines; id++ {
		id := id
		g.Go(func() error {
			for j := 0; j < opsPerG; j++ {
				key := fmt.Sprintf("key-%d", (id*opsPerG+j)%preloadKeys)
				if _, _, err := c.Get(gctx, key); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	duration := time.Since(start)
	totalOps := goroutines * opsPerG

	s := c.Stats()
	m := counters.Snapshot()

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Write Throughput : %s ops/sec\n", humanize.CommafWithDigits(float64(preloadKeys)/writeTime.Seconds(), 2))
	fmt.Printf("Total Reads      : %s\n", humanize.Comma(int64(totalOps)))
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Read Throughput  : %s ops/sec\n", humanize.CommafWithDigits(float64(totalOps)/duration.Seconds(), 2))
	fmt.Printf("Hit Rate         : %.2f%%\n", m.HitRate()*100)
	fmt.Printf("Promotions       : %s\n", humanize.Comma(m.Promotions))
	fmt.Printf("Evictions        : %s\n", humanize.Comma(m.Evictions))
	fmt.Printf("Memory Entries   : %s\n", humanize.Comma(int64(s.MemoryEntries)))
	fmt.Printf("Disk Usage       : %s in %s entries\n", humanize.IBytes(uint64(s.DiskBytes)), humanize.Comma(int64(s.DiskEntries)))
	fmt.Println("=========================================")
	return nil
}
