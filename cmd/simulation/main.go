package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ksred/freight-clearing-api/internal/allocation"
	"github.com/ksred/freight-clearing-api/internal/auth"
	"github.com/ksred/freight-clearing-api/internal/clearing"
	"github.com/ksred/freight-clearing-api/internal/database"
	"github.com/ksred/freight-clearing-api/internal/execution"
	"github.com/ksred/freight-clearing-api/internal/netting"
	"github.com/ksred/freight-clearing-api/internal/routing"
	"github.com/ksred/freight-clearing-api/internal/types"
)

const (
	minOrders     = 15
	maxOrders     = 100
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
	jwtSecret     = "freight-clearing-secret-key"
)

var (
	departments  = []string{"DEPT_OCEAN", "DEPT_AIR", "DEPT_TRUCK", "DEPT_CUSTOMS"}
	serviceCodes = map[string]string{
		"DEPT_OCEAN":   "OCEAN_FREIGHT",
		"DEPT_AIR":     "AIR_FREIGHT",
		"DEPT_TRUCK":   "TRUCKING",
		"DEPT_CUSTOMS": "CUSTOMS_CLEARANCE",
	}
	departmentNames = map[string]string{
		"DEPT_OCEAN":   "Ocean Freight Department",
		"DEPT_AIR":     "Air Freight Department",
		"DEPT_TRUCK":   "Trucking Department",
		"DEPT_CUSTOMS": "Customs Department",
	}
	clearingModes = []types.ClearingMode{types.ModeStar, types.ModeChain}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the clearing API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":        {name: "Authentication"},
			"allocations": {name: "Ingest Allocations"},
			"clearing":    {name: "Build Clearing"},
			"passthrough": {name: "Generate Passthrough"},
			"netting":     {name: "Run Netting"},
			"execute":     {name: "Execute Batch"},
			"rules":       {name: "Create Rule"},
		},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    auth.TestAPIKey,
		"api_secret": auth.TestAPISecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"jwt_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Token, nil
}

// post sends an authenticated POST request and decodes the standard
// response envelope's data field into out.
func (sc *simulationClient) post(statKey, path string, payload, out interface{}) error {
	start := time.Now()
	defer func() {
		sc.stats[statKey].addDuration(time.Since(start))
	}()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest("POST", sc.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.stats[statKey].failures++
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.stats[statKey].failures++
		return fmt.Errorf("%s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w, body: %s", err, string(respBody))
	}
	return nil
}

// ingestAllocations feeds one order's profit allocations into the engine
func (sc *simulationClient) ingestAllocations(allocations []types.ProfitAllocation) error {
	return sc.post("allocations", "/api/v1/internal/allocations", allocations, nil)
}

// buildClearing builds a clearing instruction for an order's calculation batch
func (sc *simulationClient) buildClearing(orderID, calculationID string, mode types.ClearingMode) (*clearing.InstructionResponse, error) {
	var result clearing.InstructionResponse
	path := fmt.Sprintf("/api/v1/internal/clearing/%s/%s", orderID, calculationID)
	payload := map[string]string{"clearing_mode": string(mode)}
	if err := sc.post("clearing", path, payload, &result); err != nil {
		return nil, err
	}
	if result.InstructionID == "" {
		return nil, fmt.Errorf("no instruction ID in clearing response")
	}
	return &result, nil
}

// generatePassthrough routes a built clearing instruction
func (sc *simulationClient) generatePassthrough(clearingInstructionID string) (*routing.PassthroughResponse, error) {
	var result routing.PassthroughResponse
	path := fmt.Sprintf("/api/v1/internal/passthrough/%s", clearingInstructionID)
	if err := sc.post("passthrough", path, nil, &result); err != nil {
		return nil, err
	}
	if result.InstructionID == "" {
		return nil, fmt.Errorf("no instruction ID in passthrough response")
	}
	return &result, nil
}

// runNetting nets one passthrough batch
func (sc *simulationClient) runNetting(batchID string) (*netting.NettingRunResponse, error) {
	var result netting.NettingRunResponse
	path := fmt.Sprintf("/api/v1/internal/netting/run/%s", batchID)
	if err := sc.post("netting", path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// executePassthrough runs a passthrough instruction through the
// settlement adapter
func (sc *simulationClient) executePassthrough(instructionID string) (*execution.ExecutionResult, error) {
	var result execution.ExecutionResult
	path := fmt.Sprintf("/api/v1/internal/execution/passthrough/%s", instructionID)
	if err := sc.post("execute", path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// createRoutingRule registers one routing rule
func (sc *simulationClient) createRoutingRule(rule *routing.RoutingRule) error {
	return sc.post("rules", "/api/v1/internal/routing/rules", rule, nil)
}

// createNettingRule registers one netting rule
func (sc *simulationClient) createNettingRule(rule *netting.NettingRule) error {
	return sc.post("rules", "/api/v1/internal/netting/rules", rule, nil)
}

// seedRules configures the routing and netting rules the simulated
// flows will hit. Every department pays suppliers through the Shanghai
// settlement entity with a 1% retention, and nets bilaterally with it.
func (sc *simulationClient) seedRules() error {
	retention := decimal.NewFromInt(1)
	for i, dept := range departments {
		rule := &routing.RoutingRule{
			PayerEntityID:      dept,
			PayeeEntityID:      clearing.EntitySupplier,
			Currency:           types.DefaultCurrency,
			Priority:           100 + i,
			Hop1EntityID:       "SETTLE_SHA",
			Hop1EntityName:     "Shanghai Settlement Center",
			Hop1RetentionType:  types.RetentionPercentage,
			Hop1RetentionValue: retention,
			Status:             types.RuleActive,
		}
		if err := sc.createRoutingRule(rule); err != nil {
			return fmt.Errorf("failed to seed routing rule for %s: %w", dept, err)
		}

		nettingRule := &netting.NettingRule{
			PassthroughEntityID: "SETTLE_SHA",
			TargetEntityID:      dept,
			Currency:            types.DefaultCurrency,
			NettingMode:         types.NettingFull,
			Status:              types.RuleActive,
		}
		if err := sc.createNettingRule(nettingRule); err != nil {
			return fmt.Errorf("failed to seed netting rule for %s: %w", dept, err)
		}
	}

	// Customer collections route through the Hong Kong entity, two hops
	// for ocean freight.
	for _, dept := range departments {
		rule := &routing.RoutingRule{
			PayerEntityID:      clearing.EntityCustomer,
			PayeeEntityID:      dept,
			Currency:           types.DefaultCurrency,
			Priority:           100,
			Hop1EntityID:       "SETTLE_HKG",
			Hop1EntityName:     "Hong Kong Settlement Center",
			Hop1RetentionType:  types.RetentionPercentage,
			Hop1RetentionValue: decimal.RequireFromString("0.5"),
			Status:             types.RuleActive,
		}
		if dept == "DEPT_OCEAN" {
			rule.Hop2EntityID = "SETTLE_SHA"
			rule.Hop2EntityName = "Shanghai Settlement Center"
			rule.Hop2RetentionType = types.RetentionFixed
			rule.Hop2RetentionValue = decimal.NewFromInt(5)
		}
		if err := sc.createRoutingRule(rule); err != nil {
			return fmt.Errorf("failed to seed collection rule for %s: %w", dept, err)
		}
	}

	log.Info().Msg("Routing and netting rules seeded")
	return nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\n📊 API Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// randomAllocations builds a random profit split for one order across
// two to four departments
func randomAllocations(orderID, calculationID string) []types.ProfitAllocation {
	count := rand.Intn(3) + 2
	picked := rand.Perm(len(departments))[:count]

	allocations := make([]types.ProfitAllocation, 0, count)
	for _, idx := range picked {
		dept := departments[idx]
		revenue := decimal.NewFromInt(int64(rand.Intn(9000) + 1000))
		cost := decimal.NewFromInt(int64(rand.Intn(5000) + 500))
		internal := decimal.NewFromInt(int64(rand.Intn(500) + 50))

		alloc := types.ProfitAllocation{
			OrderID:         orderID,
			CalculationID:   calculationID,
			ServiceCode:     serviceCodes[dept],
			DepartmentID:    dept,
			DepartmentName:  departmentNames[dept],
			ExternalRevenue: &revenue,
			ExternalCost:    &cost,
			InternalPayment: &internal,
			Currency:        types.DefaultCurrency,
		}

		// Occasionally drop a figure to exercise lenient parsing
		switch rand.Intn(10) {
		case 0:
			alloc.ExternalCost = nil
		case 1:
			alloc.InternalPayment = nil
		}
		allocations = append(allocations, alloc)
	}
	return allocations
}

// createClearingFlows generates and clears random orders
// Runs as a worker goroutine, sending built instruction IDs to instructionsChan
func createClearingFlows(workerID, numOrders int, simClient *simulationClient, instructionsChan chan<- string) {
	for i := 0; i < numOrders; i++ {
		orderID := fmt.Sprintf("ORD-%d-%d-%d", workerID, i, rand.Intn(100000))
		calculationID := fmt.Sprintf("CALC-%d-%d", workerID, i)
		mode := clearingModes[rand.Intn(len(clearingModes))]

		allocations := randomAllocations(orderID, calculationID)
		if err := simClient.ingestAllocations(allocations); err != nil {
			log.Error().Err(err).
				Str("order_id", orderID).
				Msg("Failed to ingest allocations")
			continue
		}

		instruction, err := simClient.buildClearing(orderID, calculationID, mode)
		if err != nil {
			log.Error().Err(err).
				Str("order_id", orderID).
				Str("clearing_mode", string(mode)).
				Msg("Failed to build clearing instruction")
			continue
		}

		instructionsChan <- instruction.InstructionID
		log.Info().
			Str("worker_id", fmt.Sprintf("%d", workerID)).
			Str("order_id", orderID).
			Str("instruction_id", instruction.InstructionID).
			Str("clearing_mode", string(mode)).
			Int("details", instruction.DetailCount).
			Str("amount", instruction.ClearingAmount.String()).
			Msg("Clearing instruction built")

		// Random sleep between orders
		time.Sleep(time.Duration(rand.Intn(300)) * time.Millisecond)
	}
}

// main runs the clearing pipeline simulation
// It starts a local API server and pushes random orders through
// allocation ingest, clearing, routing, netting and execution
func main() {
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	if err := simClient.seedRules(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed rules")
	}

	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")

	instructionsChan := make(chan string, targetOrders)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			createClearingFlows(workerID, targetOrders/numWorkers, simClient, instructionsChan)
		}(i)
	}

	wg.Wait()
	close(instructionsChan)

	var instructionIDs []string
	for id := range instructionsChan {
		instructionIDs = append(instructionIDs, id)
	}

	log.Info().Int("instructions_built", len(instructionIDs)).Msg("All clearing instructions built")

	stats := struct {
		TotalInstructions int
		Routed            int
		Netted            int
		Executed          int
		PartiallyExecuted int
		FailedRouting     int
		FailedNetting     int
		FailedExecution   int
		TotalValue        decimal.Decimal
		RetainedValue     decimal.Decimal
		NettingSaved      decimal.Decimal
		NettingSavedCount int
		StartTime         time.Time
		Statuses          map[string]int
	}{
		StartTime:     time.Now(),
		TotalValue:    decimal.Zero,
		RetainedValue: decimal.Zero,
		NettingSaved:  decimal.Zero,
		Statuses:      make(map[string]int),
	}
	stats.TotalInstructions = len(instructionIDs)

	for _, clearingID := range instructionIDs {
		passthrough, err := simClient.generatePassthrough(clearingID)
		if err != nil {
			log.Error().Err(err).Str("clearing_instruction_id", clearingID).Msg("Failed to generate passthrough")
			stats.FailedRouting++
			continue
		}
		stats.Routed++
		stats.TotalValue = stats.TotalValue.Add(passthrough.TotalAmount)
		for _, detail := range passthrough.Details {
			if detail.DetailType == types.PassthroughRetention {
				stats.RetainedValue = stats.RetainedValue.Add(detail.Amount)
			}
		}
		log.Info().
			Str("clearing_instruction_id", clearingID).
			Str("instruction_id", passthrough.InstructionID).
			Int("details", passthrough.DetailCount).
			Msg("Passthrough generated")

		nettingRun, err := simClient.runNetting(passthrough.InstructionID)
		if err != nil {
			log.Error().Err(err).Str("batch_id", passthrough.InstructionID).Msg("Failed to run netting")
			stats.FailedNetting++
		} else {
			stats.Netted++
			stats.NettingSaved = stats.NettingSaved.Add(nettingRun.TotalSavedAmount)
			stats.NettingSavedCount += nettingRun.TotalSavedCount
			log.Info().
				Str("batch_id", passthrough.InstructionID).
				Int("results", nettingRun.ResultsEmitted).
				Str("saved", nettingRun.TotalSavedAmount.String()).
				Msg("Netting run completed")
		}

		result, err := simClient.executePassthrough(passthrough.InstructionID)
		if err != nil {
			log.Error().Err(err).Str("instruction_id", passthrough.InstructionID).Msg("Failed to execute instruction")
			stats.FailedExecution++
			continue
		}
		stats.Executed++
		stats.Statuses[string(result.Status)]++
		if result.Status == types.InstructionPartiallyCompleted {
			stats.PartiallyExecuted++
		}
		log.Info().
			Str("instruction_id", passthrough.InstructionID).
			Str("status", string(result.Status)).
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Int("skipped", result.Skipped).
			Msg("Instruction executed")
	}

	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🚢 CLEARING SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
📊 Pipeline Statistics
---------------------
Instructions Built:  %d
Routed:              %d
Netting Runs:        %d
Executed:            %d
Partially Executed:  %d
Failed Routing:      %d
Failed Netting:      %d
Failed Execution:    %d
Total Value:         %s CNY
Retained Value:      %s CNY
Netting Saved:       %s CNY (%d transactions)
Duration:            %v

📈 Execution Status Distribution
-------------------------------
`, stats.TotalInstructions, stats.Routed, stats.Netted, stats.Executed,
		stats.PartiallyExecuted, stats.FailedRouting, stats.FailedNetting, stats.FailedExecution,
		stats.TotalValue.StringFixed(2), stats.RetainedValue.StringFixed(2),
		stats.NettingSaved.StringFixed(2), stats.NettingSavedCount,
		duration.Round(time.Millisecond))

	maxStatusCount := 0
	for _, count := range stats.Statuses {
		if count > maxStatusCount {
			maxStatusCount = count
		}
	}
	for status, count := range stats.Statuses {
		barLength := int(float64(count) / float64(maxStatusCount) * 20)
		bar := strings.Repeat("█", barLength)
		fmt.Printf("%-22s: %s (%d)\n", status, bar, count)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	successRate := float64(stats.Executed-stats.PartiallyExecuted) / float64(stats.TotalInstructions) * 100
	log.Info().
		Float64("success_rate", successRate).
		Int("instructions", stats.TotalInstructions).
		Int("executed", stats.Executed).
		Str("total_value", stats.TotalValue.StringFixed(2)).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// startServer initializes and starts the clearing API server
// Sets up all required services, handlers and routes
func startServer() error {
	db, err := database.NewDatabase("simulation.db")
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	authService := auth.NewService(jwtSecret)
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	allocationService := allocation.NewService(db)
	clearingService := clearing.NewService(db, allocationService)
	routingService := routing.NewService(db)
	nettingService := netting.NewService(db, true)

	adapter := execution.NewSimulatedAdapter(0.05, time.Now().UnixNano())
	executor := execution.NewExecutor(db, adapter, numWorkers)

	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	allocationHandlers := allocation.NewGinHandlers(allocationService)
	clearingHandlers := clearing.NewGinHandlers(clearingService)
	routingHandlers := routing.NewGinHandlers(routingService)
	nettingHandlers := netting.NewGinHandlers(nettingService)
	executionHandlers := execution.NewGinHandlers(executor)

	setupRoutes(router, authHandlers, allocationHandlers, clearingHandlers,
		routingHandlers, nettingHandlers, executionHandlers)

	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// The simulation server skips auth middleware on internal routes
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	allocationHandlers *allocation.GinHandlers,
	clearingHandlers *clearing.GinHandlers,
	routingHandlers *routing.GinHandlers,
	nettingHandlers *netting.GinHandlers,
	executionHandlers *execution.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		v1.GET("/clearing/:instruction_id", clearingHandlers.GetInstructionHandler())
		v1.GET("/orders/:order_id/clearing", clearingHandlers.GetOrderInstructionsHandler())
		v1.GET("/passthrough/:instruction_id", routingHandlers.GetPassthroughHandler())
		v1.GET("/routing/rules", routingHandlers.ListRulesHandler())
		v1.GET("/netting/results/:batch_id", nettingHandlers.GetResultsHandler())

		internal := v1.Group("/internal")
		{
			internal.POST("/allocations", allocationHandlers.IngestHandler())
			internal.POST("/clearing/:order_id/:calculation_id", clearingHandlers.BuildInstructionHandler())
			internal.POST("/passthrough/:instruction_id", routingHandlers.GeneratePassthroughHandler())
			internal.POST("/passthrough/:instruction_id/replace", routingHandlers.ReplaceInstructionHandler())
			internal.POST("/routing/rules", routingHandlers.CreateRuleHandler())
			internal.POST("/netting/rules", nettingHandlers.CreateRuleHandler())
			internal.POST("/netting/run/:batch_id", nettingHandlers.RunBatchHandler())
			internal.POST("/execution/clearing/:instruction_id", executionHandlers.ExecuteClearingHandler())
			internal.POST("/execution/passthrough/:instruction_id", executionHandlers.ExecutePassthroughHandler())
			internal.POST("/execution/batch", executionHandlers.ExecuteBatchHandler())
		}
	}
}
