package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	grpcsvc "github.com/vladislavdragonenkov/shop/internal/service/grpc"
)

const idempotencyHeader = "idempotency-key"

type loadMode string

const (
	// modeOversell: все воркеры заказывают один товар, остаток не должен уйти в минус.
	modeOversell loadMode = "oversell"
	// modeReplay отправляет каждый заказ дважды с одним ключом идемпотентности.
	modeReplay loadMode = "replay"
)

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	stock       int
	quantity    int
	priceMinor  int64
	customerTag string
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type stockReport struct {
	ProductID      string `json:"product_id"`
	InitialStock   int64  `json:"initial_stock"`
	FinalStock     int64  `json:"final_stock"`
	OrderedUnits   int64  `json:"ordered_units"`
	RejectedOrders int64  `json:"rejected_orders"`
	Consistent     bool   `json:"consistent"`
}

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
	Stock             *stockReport            `json:"stock,omitempty"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu       sync.Mutex
	methods  map[string]*methodStats
	units    int64
	rejected int64
}

func newCollector() *collector {
	return &collector{
		methods: make(map[string]*methodStats),
	}
}

// isExpected считает нехватку остатка штатным исходом oversell-сценария.
func isExpected(code codes.Code) bool {
	return code == codes.OK || code == codes.FailedPrecondition
}

func (c *collector) record(method string, latency time.Duration, code codes.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[method]
	if !ok {
		stats = &methodStats{
			codes: make(map[string]int64),
		}
		c.methods[method] = stats
	}

	stats.calls++
	if isExpected(code) {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code.String()]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

// recordOutcome учитывает списанные единицы и отказы по остатку.
func (c *collector) recordOutcome(units int64, rejected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.units += units
	if rejected {
		c.rejected++
	}
}

func (c *collector) outcome() (units, rejected int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.units, c.rejected
}

func (c *collector) snapshot(name string) (methodReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[name]
	if !ok {
		return methodReport{}, false
	}
	return stats.report(), true
}

func (s *methodStats) report() methodReport {
	codesCopy := make(map[string]int64, len(s.codes))
	for code, count := range s.codes {
		codesCopy[code] = count
	}
	return methodReport{
		Calls:     s.calls,
		Success:   s.success,
		Failed:    s.failed,
		ErrorRate: ratio(s.failed, s.calls),
		Codes:     codesCopy,
		LatencyMs: buildLatencySummary(s.latencies),
	}
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}

	if scenarioStats := c.methods["scenario"]; scenarioStats != nil {
		result.TotalScenarios = scenarioStats.calls
		result.SuccessScenarios = scenarioStats.success
		result.FailedScenarios = scenarioStats.failed
		result.ErrorRate = ratio(scenarioStats.failed, scenarioStats.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenarioStats.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.methods {
		result.Methods[name] = stats.report()
	}

	return result
}

func parseConfig() (config, error) {
	var cfg config
	var modeValue string
	var timeoutValue string
	var durationValue string

	flag.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	flag.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m, 15m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flag.IntVar(&cfg.connections, "connections", 20, "number of gRPC client connections")
	flag.StringVar(&timeoutValue, "timeout", "5s", "per-RPC timeout")
	flag.StringVar(&modeValue, "mode", string(modeOversell), "load mode: oversell | replay")
	flag.IntVar(&cfg.stock, "stock", 100, "initial stock of the load-test product")
	flag.IntVar(&cfg.quantity, "quantity", 1, "units per order")
	flag.Int64Var(&cfg.priceMinor, "price-minor", 1000, "product price in minor units")
	flag.StringVar(&cfg.customerTag, "customer-tag", "load", "customer and product name prefix")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.connections <= 0 {
		return cfg, errors.New("connections must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}
	if cfg.stock < 0 || cfg.stock > math.MaxInt32 {
		return cfg, errors.New("stock must be between 0 and 2147483647")
	}
	if cfg.quantity <= 0 || cfg.quantity > math.MaxInt32 {
		return cfg, errors.New("quantity must be > 0")
	}
	if cfg.priceMinor < 0 {
		return cfg, errors.New("price-minor must be >= 0")
	}
	if strings.TrimSpace(cfg.customerTag) == "" {
		return cfg, errors.New("customer-tag is required")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeOversell:
		return modeOversell, nil
	case modeReplay:
		return modeReplay, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

// fixtures хранит клиента и товар, созданные для прогона.
type fixtures struct {
	customerID string
	productID  string
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]grpcsvc.OrderServiceClient, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcsvc.NewOrderServiceClient(conn))
	}
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())

	fx, err := createFixtures(clients[0], cfg, runID)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to create fixtures: %v\n", err)
		os.Exit(1)
	}

	col := newCollector()
	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		client := clients[workerID%len(clients)]
		go func(cli grpcsvc.OrderServiceClient) {
			defer wg.Done()
			for id := range jobs {
				_ = runScenario(cli, cfg, fx, id, runID, col)
			}
		}(client)
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)

	stock, err := verifyStock(clients[0], cfg, fx, col)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to verify stock: %v\n", err)
		os.Exit(1)
	}
	result.Stock = &stock

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 || !stock.Consistent {
		os.Exit(1)
	}
}

func createFixtures(client grpcsvc.OrderServiceClient, cfg config, runID string) (fixtures, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	customer, err := client.CreateCustomer(ctx, &grpcsvc.CreateCustomerRequest{
		Name:  cfg.customerTag + " customer",
		Email: fmt.Sprintf("%s-%s@loadtest.local", cfg.customerTag, runID),
	})
	if err != nil {
		return fixtures{}, fmt.Errorf("create customer: %w", err)
	}

	product, err := client.CreateProduct(ctx, &grpcsvc.CreateProductRequest{
		Name:       fmt.Sprintf("%s-product-%s", cfg.customerTag, runID),
		PriceMinor: cfg.priceMinor,
		Quantity:   int32(cfg.stock),
	})
	if err != nil {
		return fixtures{}, fmt.Errorf("create product: %w", err)
	}

	return fixtures{customerID: customer.Customer.ID, productID: product.Product.ID}, nil
}

// verifyStock сверяет итоговый остаток с суммой успешно заказанных единиц.
func verifyStock(client grpcsvc.OrderServiceClient, cfg config, fx fixtures, col *collector) (stockReport, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	resp, err := client.GetProduct(ctx, &grpcsvc.GetProductRequest{ProductID: fx.productID})
	if err != nil {
		return stockReport{}, err
	}

	units, rejected := col.outcome()
	final := int64(resp.Product.Quantity)
	initial := int64(cfg.stock)
	return stockReport{
		ProductID:      fx.productID,
		InitialStock:   initial,
		FinalStock:     final,
		OrderedUnits:   units,
		RejectedOrders: rejected,
		Consistent:     final >= 0 && units <= initial && final == initial-units,
	}, nil
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func runScenario(
	client grpcsvc.OrderServiceClient,
	cfg config,
	fx fixtures,
	index int,
	runID string,
	col *collector,
) error {
	scenarioStart := time.Now()
	scenarioCode := codes.OK
	defer func() {
		col.record("scenario", time.Since(scenarioStart), scenarioCode)
	}()

	req := &grpcsvc.CreateOrderRequest{
		CustomerID: fx.customerID,
		Products:   []grpcsvc.OrderLine{{ID: fx.productID, Quantity: int32(cfg.quantity)}},
	}
	key := fmt.Sprintf("lt-%s-%d", runID, index)

	resp, err := callCreateOrder(client, cfg.timeout, req, key, col)
	if err != nil {
		scenarioCode = grpcCode(err)
		if scenarioCode == codes.FailedPrecondition {
			col.recordOutcome(0, true)
			return nil
		}
		return err
	}
	if resp.Order.ID == "" {
		scenarioCode = codes.Internal
		return errors.New("create response returned empty order id")
	}
	col.recordOutcome(int64(cfg.quantity), false)

	if cfg.mode != modeReplay {
		return nil
	}

	replay, err := callCreateOrder(client, cfg.timeout, req, key, col)
	if err != nil {
		scenarioCode = grpcCode(err)
		return err
	}
	if !replay.Replayed || replay.Order.ID != resp.Order.ID {
		scenarioCode = codes.Internal
		return fmt.Errorf("replay returned order %s (replayed=%t), want %s", replay.Order.ID, replay.Replayed, resp.Order.ID)
	}
	return nil
}

func callCreateOrder(
	client grpcsvc.OrderServiceClient,
	timeout time.Duration,
	req *grpcsvc.CreateOrderRequest,
	key string,
	col *collector,
) (*grpcsvc.CreateOrderResponse, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, idempotencyHeader, key)

	resp, err := client.CreateOrder(ctx, req)
	col.record("CreateOrder", time.Since(start), grpcCode(err))
	return resp, err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report, cfg config) {
	fmt.Println("Load test summary")
	fmt.Printf("mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Printf("scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)
	if result.Stock != nil {
		fmt.Printf("stock: initial=%d final=%d ordered=%d rejected=%d consistent=%t\n",
			result.Stock.InitialStock,
			result.Stock.FinalStock,
			result.Stock.OrderedUnits,
			result.Stock.RejectedOrders,
			result.Stock.Consistent,
		)
	}

	methodNames := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name == "scenario" {
			continue
		}
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
	for _, name := range methodNames {
		stats := result.Methods[name]
		fmt.Printf(
			"%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
