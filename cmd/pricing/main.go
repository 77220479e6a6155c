package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	configpkg "github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/idgen"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/messaging"
	"github.com/wyfcoding/optionpricing/internal/pricing/lattice"
	"github.com/wyfcoding/optionpricing/internal/pricing/montecarlo"
	"github.com/wyfcoding/optionpricing/internal/pricing/sensitivity"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// AppContext 进程内组装好的依赖
type AppContext struct {
	Config    *config.Config
	Service   *application.PricingService
	Publisher *messaging.OutboxEventPublisher
	Metrics   *metrics.Metrics
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(2)
	}

	var (
		configPath = flag.String("config", config.GetEnv("APP_CONFIG", "configs/pricing.toml"), "TOML 配置文件路径")
		list       = flag.Bool("list", false, "列出可用模型与合约")
		batchFile  = flag.String("batch", "", "批量定价命令文件 (JSON 数组)")
		cmd        application.PriceOptionCommand
	)
	flag.StringVar(&cmd.Model, "model", application.DefaultModel, "定价模型")
	flag.StringVar(&cmd.Contract, "contract", application.DefaultContract, "合约类型")
	flag.Float64Var(&cmd.ModelParams.Spot, "spot", 100, "标的价格")
	flag.Float64Var(&cmd.ModelParams.Rate, "rate", 0.05, "无风险利率")
	flag.Float64Var(&cmd.ModelParams.Vol, "vol", 0.2, "波动率")
	flag.Float64Var(&cmd.ModelParams.V0, "v0", 0.04, "Heston 初始方差")
	flag.Float64Var(&cmd.ModelParams.Kappa, "kappa", 2, "Heston 均值回归速度")
	flag.Float64Var(&cmd.ModelParams.Theta, "theta", 0.04, "Heston 长期方差")
	flag.Float64Var(&cmd.ModelParams.Xi, "xi", 0.3, "Heston 波动率的波动率")
	flag.Float64Var(&cmd.ModelParams.Rho, "rho", -0.7, "Heston 相关系数")
	flag.Float64Var(&cmd.ModelParams.Lambda, "lambda", 0.75, "Merton 跳跃强度")
	flag.Float64Var(&cmd.ModelParams.MuJ, "mu-j", -0.1, "Merton 对数跳跃均值")
	flag.Float64Var(&cmd.ModelParams.SigmaJ, "sigma-j", 0.15, "Merton 对数跳跃标准差")
	flag.StringVar(&cmd.ModelParams.Scheme, "scheme", "", "三叉树格式，默认取配置")
	flag.Float64Var(&cmd.ContractParams.Strike, "strike", 100, "执行价")
	flag.Float64Var(&cmd.ContractParams.Maturity, "maturity", 1, "到期时间 (年)")
	put := flag.Bool("put", false, "看跌期权")
	flag.Float64Var(&cmd.ContractParams.Payout, "payout", 1, "数字期权支付额")
	flag.BoolVar(&cmd.WithGreeks, "greeks", true, "计算希腊字母")
	flag.Parse()
	cmd.ContractParams.IsCall = !*put

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRunID(ctx, uuid.NewString())
	if logger.Get().Enabled(ctx, slog.LevelDebug) {
		configpkg.PrintWithMask(cfg)
	}

	appCtx, err := initService(cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize service", "error", err)
	}
	logger.Info(ctx, "service initialized", "service", cfg.ServiceName, "version", cfg.Version, "environment", cfg.Environment)

	var stopMetrics func()
	if appCtx.Metrics != nil && cfg.Metrics.Port != "" {
		stopMetrics = appCtx.Metrics.Serve(cfg.Metrics.Port)
	}

	code := run(ctx, appCtx, cmd, *list, *batchFile)

	if n := appCtx.Publisher.Flush(ctx); n > 0 {
		logger.Debug(ctx, "outbox flushed", "count", n)
	}
	if appCtx.Metrics != nil && cfg.Metrics.TextfilePath != "" {
		if err := appCtx.Metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Error(ctx, "failed to write metrics textfile", "path", cfg.Metrics.TextfilePath, "error", err)
		}
	}
	if stopMetrics != nil {
		stopMetrics()
	}
	stop()
	os.Exit(code)
}

func run(ctx context.Context, appCtx *AppContext, cmd application.PriceOptionCommand, list bool, batchFile string) int {
	defer logger.LogDuration(ctx, "pricing run")()
	svc := appCtx.Service
	switch {
	case list:
		fmt.Print(svc.Describe(ctx))
		return 0
	case batchFile != "":
		data, err := os.ReadFile(batchFile)
		if err != nil {
			logger.Error(ctx, "failed to read batch file", "path", batchFile, "error", err)
			return 2
		}
		var batch application.BatchPriceOptionsCommand
		if err := json.Unmarshal(data, &batch.Contracts); err != nil {
			logger.Error(ctx, "failed to parse batch file", "path", batchFile, "error", err)
			return 2
		}
		res, err := svc.BatchPriceOptions(ctx, batch)
		if err != nil {
			logger.Error(ctx, "batch pricing aborted", "error", err)
			return 1
		}
		printJSON(res)
		if res.FailureCount > 0 {
			return 1
		}
		return 0
	default:
		res, err := svc.PriceOption(ctx, cmd)
		if err != nil {
			if application.IsInputError(err) {
				fmt.Fprintln(os.Stderr, err)
				return 2
			}
			return 1
		}
		printJSON(res)
		return 0
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
	}
}

func initService(cfg *config.Config) (*AppContext, error) {
	if err := idgen.Init(cfg.Snowflake); err != nil {
		return nil, fmt.Errorf("init id generator: %w", err)
	}

	var (
		m         *metrics.Metrics
		collector metrics.MetricsCollector = metrics.NopCollector{}
	)
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace, cfg.ServiceName)
		if err := m.Register(); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		collector = metrics.NewDefaultMetricsCollector(m)
	}

	selector := lattice.SelectorConfig{
		Steps:     cfg.Lattice.Steps,
		MaxSteps:  cfg.Lattice.MaxSteps,
		Tolerance: cfg.Lattice.Tolerance,
		Adaptive:  cfg.Lattice.Adaptive,
		Fallback:  cfg.Lattice.FallbackScheme,
	}
	if err := selector.Validate(); err != nil {
		return nil, err
	}
	if _, err := lattice.LookupScheme(cfg.Lattice.Scheme); err != nil {
		return nil, err
	}
	simulation := montecarlo.SimulationConfig{
		Steps: cfg.MonteCarlo.Steps,
		Paths: cfg.MonteCarlo.Paths,
		Seed:  cfg.MonteCarlo.Seed,
	}
	if err := simulation.Validate(); err != nil {
		return nil, err
	}

	registry, err := application.NewDefaultRegistry(application.EngineSettings{
		Scheme:     cfg.Lattice.Scheme,
		Lattice:    selector,
		Simulation: simulation,
	})
	if err != nil {
		return nil, err
	}
	greeks := sensitivity.NewEngine(
		sensitivity.WithStep(cfg.Sensitivity.Step),
		sensitivity.WithParallel(cfg.Sensitivity.Parallel),
	)
	publisher := messaging.NewOutboxEventPublisher(collector)
	service := application.NewPricingService(registry, greeks,
		application.WithPublisher(publisher),
		application.WithCollector(collector),
		application.WithPrecision(cfg.Report.Precision),
		application.WithTolerance(cfg.Lattice.Tolerance),
	)

	return &AppContext{
		Config:    cfg,
		Service:   service,
		Publisher: publisher,
		Metrics:   m,
	}, nil
}
