package feedsim

import (
	"context"
	"fmt"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/logging"
	"github.com/erain9/tickmatch/pkg/server"
)

// Result summarizes one simulation run
type Result struct {
	OrdersSubmitted int64
	OrdersRested    int64
	OrdersFilled    int64
	TradeCount      int64
	TradedVolume    int64
	Errors          int64
	Duration        time.Duration

	latencies *hdrhistogram.Histogram
}

// Runner drives random order flow into one book through the engine
// manager
type Runner struct {
	cfg     *Config
	manager *server.EngineManager
	gen     *Generator
}

// NewRunner creates a runner bound to an engine manager
func NewRunner(cfg *Config, manager *server.EngineManager) *Runner {
	return &Runner{
		cfg:     cfg,
		manager: manager,
		gen:     NewGenerator(cfg),
	}
}

// Run submits the configured order load and blocks until every worker
// finishes or ctx is canceled
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	logger := logging.FromContext(ctx).With().Str("instrument", r.cfg.Instrument).Logger()

	if _, err := r.manager.CreateMemoryBook(ctx, r.cfg.Instrument); err != nil && err != server.ErrBookExists {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(r.cfg.RatePerSecond), r.cfg.RatePerSecond)

	result := &Result{
		// Latencies recorded in microseconds, up to one minute
		latencies: hdrhistogram.New(1, 60_000_000, 3),
	}
	var mu sync.Mutex

	var wg sync.WaitGroup
	start := time.Now()

	logger.Info().
		Int("workers", r.cfg.Workers).
		Int("orders_per_worker", r.cfg.OrdersPerWorker).
		Int("rate_per_second", r.cfg.RatePerSecond).
		Msg("Starting order feed simulation")

	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < r.cfg.OrdersPerWorker; j++ {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				order := r.gen.Next()
				submitStart := time.Now()
				report, err := r.manager.Submit(ctx, r.cfg.Instrument, order)
				elapsed := time.Since(submitStart)

				mu.Lock()
				result.OrdersSubmitted++
				if err != nil {
					result.Errors++
				} else {
					_ = result.latencies.RecordValue(elapsed.Microseconds())
					if report.Stored {
						result.OrdersRested++
					}
					if report.Status == core.StatusFilled {
						result.OrdersFilled++
					}
					result.TradeCount += int64(len(report.Trades))
					result.TradedVolume += report.TradedVolume()
				}
				mu.Unlock()

				if r.cfg.SubmitDelay > 0 {
					time.Sleep(r.cfg.SubmitDelay)
				}
			}
		}()
	}

	wg.Wait()
	result.Duration = time.Since(start)

	logger.Info().
		Int64("orders", result.OrdersSubmitted).
		Int64("trades", result.TradeCount).
		Int64("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("Simulation complete")

	return result, nil
}

// PrintSummary writes a colorized run summary and book depth to stdout
func (r *Runner) PrintSummary(ctx context.Context, result *Result) error {
	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	fmt.Printf("\n%s\n", cyan("=== Simulation Summary ==="))
	fmt.Printf("Orders submitted:  %d\n", result.OrdersSubmitted)
	fmt.Printf("Orders rested:     %d\n", result.OrdersRested)
	fmt.Printf("Orders filled:     %d\n", result.OrdersFilled)
	fmt.Printf("Trades:            %d\n", result.TradeCount)
	fmt.Printf("Traded volume:     %d\n", result.TradedVolume)
	fmt.Printf("Errors:            %d\n", result.Errors)
	fmt.Printf("Duration:          %v\n", result.Duration)
	if result.Duration > 0 {
		fmt.Printf("Throughput:        %.0f orders/s\n",
			float64(result.OrdersSubmitted)/result.Duration.Seconds())
	}

	fmt.Printf("\n%s\n", cyan("=== Match Latency (us) ==="))
	fmt.Printf("p50:  %d\n", result.latencies.ValueAtQuantile(50))
	fmt.Printf("p99:  %d\n", result.latencies.ValueAtQuantile(99))
	fmt.Printf("p999: %d\n", result.latencies.ValueAtQuantile(99.9))
	fmt.Printf("max:  %d\n", result.latencies.Max())

	book, _, err := r.manager.GetBook(ctx, r.cfg.Instrument)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "\n%s\t%s\t%s\t\n", cyan("Side"), cyan("Price"), cyan("Volume"))

	printTop(w, book, core.Sell, red("ASK"))
	printTop(w, book, core.Buy, green("BID"))

	return w.Flush()
}

func printTop(w *tabwriter.Writer, book *core.OrderBook, side core.Side, label string) {
	top := book.PeekTop(side)
	if top == nil {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", label, "-", "-")
		return
	}
	fmt.Fprintf(w, "%s\t%d\t%d\t\n", label, top.Price(), top.VolumeRemaining())
}
