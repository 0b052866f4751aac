package rows

import (
	"encoding/csv"
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/cmd/util"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for table storage endpoints",
		Long:    "Runs put, get, range and multi row benchmarks against --table. The table is created with a single STRING primary key column uid if it does not exist.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix   = "__test"
	perfNumThreads  = 10
	perfKeySpread   = 100
	perfRequests    = 1000
	perfColumnBytes = 64
	perfSkip        = make([]string, 0)
)

// perfResult holds the latency timer and the error count of one benchmark
type perfResult struct {
	timer   metrics.Timer
	errors  metrics.Counter
	elapsed time.Duration
	skipped bool
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,range)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent requests"))
	key = "requests"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of requests per benchmark"))
	key = "column-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("Size of the string column written by put (in bytes)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different rows to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfRequests = max(1, viper.GetInt("requests"))
	perfColumnBytes = max(0, viper.GetInt("column-size"))
	perfSkip = util.SplitList(viper.GetString("skip"))

	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fmt.Println("Performance testing tool for table storage endpoints")

	// Print configuration
	config, err := util.GetClientConfig()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d, Requests: %d, Keys: %d\n", perfNumThreads, perfRequests, perfKeySpread)
	fmt.Println()

	// Create the benchmark table
	meta := store.TableMeta{Name: table(), PrimaryKey: []store.ColumnSchema{{Name: "uid", Type: value.KindString}}}
	if err := rpcStore.CreateTable(ctx, meta); err != nil && apierr.Code(err) != apierr.CodeObjectAlreadyExist {
		return fmt.Errorf("failed to create table %s: %w", meta.Name, err)
	}

	fmt.Println("staring tests...")

	column := strings.Repeat("x", perfColumnBytes)
	names := []string{"put", "get", "get-missing", "range", "multiget", "mixed", "delete"}
	benchmarks := map[string]func(i int) error{
		"put": func(i int) error {
			return rpcStore.PutRow(ctx, table(), getKey("row", i), []row.Item{
				{Name: "payload", Value: column},
				{Name: "seq", Value: i},
			}, store.PutOptions{})
		},
		"get": func(i int) error {
			_, err := rpcStore.GetRow(ctx, table(), getKey("row", i), store.GetOptions{})
			return err
		},
		"get-missing": func(i int) error {
			_, err := rpcStore.GetRow(ctx, table(), getKey("missing", i), store.GetOptions{})
			return err
		},
		"range": func(i int) error {
			_, err := rpcStore.GetRowsByRange(ctx, table(), row.RangeQuery{
				KeyName: "uid", Begin: value.StrMin, End: value.StrMax, Type: "STRING", Limit: 10,
			}, "")
			return err
		},
		"multiget": func(i int) error {
			items := make([]row.BatchItem, 10)
			for j := range items {
				items[j] = row.BatchItem{PrimaryKey: getKey("row", i+j)}
			}
			_, err := rpcStore.MultiGetRow(ctx, table(), items)
			return err
		},
		"mixed": func(i int) error {
			if i%4 == 0 {
				return rpcStore.PutRow(ctx, table(), getKey("row", i), row.One("seq", i), store.PutOptions{})
			}
			_, err := rpcStore.GetRow(ctx, table(), getKey("row", i), store.GetOptions{})
			return err
		},
		"delete": func(i int) error {
			return rpcStore.DeleteRow(ctx, table(), getKey("row", i), store.DeleteOptions{})
		},
	}

	// Create results map
	results := make(map[string]perfResult, len(names))
	for _, name := range names {
		if shouldSkip(name) {
			results[name] = perfResult{skipped: true}
		} else {
			results[name] = runBenchmark(name, benchmarks[name])
		}
		printResult(name, results[name])
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, names, results, config.String()); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark sends perfRequests requests from perfNumThreads goroutines
func runBenchmark(name string, fn func(i int) error) perfResult {
	res := perfResult{timer: metrics.NewTimer(), errors: metrics.NewCounter()}

	work := make(chan int)
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < perfNumThreads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				t := time.Now()
				err := fn(i)
				res.timer.UpdateSince(t)
				if err != nil {
					res.errors.Inc(1)
					if errors.Is(err, apierr.ErrTransport) || res.errors.Count() == 1 {
						log.Printf("(%s) - request failed: %v\n", name, err)
					}
				}
			}
		}()
	}
	for i := 0; i < perfRequests; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
	res.elapsed = time.Since(start)
	return res
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// getKey returns the primary key of test row i (with wraparound)
func getKey(prefix string, i int) []row.Item {
	return row.One("uid", fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i%perfKeySpread))
}

func opsPerSec(res perfResult) float64 {
	if res.elapsed <= 0 {
		return 0
	}
	return float64(res.timer.Count()) / res.elapsed.Seconds()
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, res perfResult) {
	if res.skipped {
		fmt.Printf("%-15sskipped\n", test)
		return
	}

	snap := res.timer.Snapshot()
	ps := snap.Percentiles([]float64{0.5, 0.99})

	// Print the formatted result
	fmt.Printf("%-15smean %s\tp50 %s\tp99 %s\t%.0f ops/sec\t%d errors\n",
		test,
		time.Duration(snap.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		opsPerSec(res),
		res.errors.Count(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, names []string, results map[string]perfResult, config string) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Requests", "Errors", "MeanNs", "P50Ns", "P99Ns", "OpsPerSec", "Skipped",
		"Threads", "Keys", "ColumnBytes", "Config",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, test := range names {
		res := results[test]
		record := []string{test, "0", "0", "0", "0", "0", "0", "true"}
		if !res.skipped {
			snap := res.timer.Snapshot()
			ps := snap.Percentiles([]float64{0.5, 0.99})
			record = []string{
				test,
				strconv.FormatInt(snap.Count(), 10),
				strconv.FormatInt(res.errors.Count(), 10),
				fmt.Sprintf("%.0f", snap.Mean()),
				fmt.Sprintf("%.0f", ps[0]),
				fmt.Sprintf("%.0f", ps[1]),
				fmt.Sprintf("%.0f", opsPerSec(res)),
				"false",
			}
		}
		record = append(record,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfColumnBytes),
			strings.TrimSpace(config),
		)

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
