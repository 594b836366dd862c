package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"git.fiblab.net/sim/accessibility/analyst"
	"git.fiblab.net/sim/accessibility/router"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
)

var (
	// 配置信息
	configPath     = flag.String("config", "config.yaml", "run config file (yaml)")
	mongoURI       = flag.String("mongo_uri", "", "mongo db uri")
	outputPath     = flag.String("output", "", "override output of the config [format: {fspath} or {db}.{col}]")
	edgeStatusPath = flag.String("edge-statuses", "", "override edge statuses of the config, can be empty [format: {fspath} or {db}.{col}]")
	threads        = flag.Int("threads", -1, "override thread count of the config, 0 means all cpus")
	logProgress    = flag.Int("log-progress", -1, "override progress log interval of the config, 0 disables")
	logLevel       = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")

	// 性能测试
	benchmark = flag.Bool("benchmark", false, "benchmark mode")
	pprofAddr = flag.String("pprof", "localhost:52102", "pprof and metrics listening address, empty disables")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

// applyFlags 命令行参数覆盖配置文件
func applyFlags(cfg *Config) {
	if *outputPath != "" {
		cfg.Output = *outputPath
	}
	if *edgeStatusPath != "" {
		cfg.EdgeStatuses = *edgeStatusPath
	}
	if *threads >= 0 {
		cfg.Threads = *threads
	}
	if *logProgress >= 0 {
		cfg.LogProgress = *logProgress
	}
}

func mustPath(name, s string) *Path {
	p, err := NewPath(s)
	if err != nil {
		log.Fatalf("invalid %s path: %s", name, err)
	}
	if p == nil {
		log.Fatalf("empty %s path", name)
	}
	return p
}

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	flag.Parse()
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyFlags(cfg)

	// 优雅退出：第一次信号停止派发新的root，第二次强制结束
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Info("stopping...")
		cancel()
		<-signalCh
		os.Exit(1) // 强制结束
	}()

	store := NewStore(*mongoURI)
	defer store.Close()

	networkData, err := store.LoadNetwork(ctx, mustPath("network", cfg.Network))
	if err != nil {
		log.Fatalf("failed to load network from %s: %v", cfg.Network, err)
	}
	network, err := router.New(networkData, router.WithMaxSnapDistance(cfg.MaxSnapDistance))
	if err != nil {
		log.Fatalf("failed to build network: %v", err)
	}
	if cfg.EdgeStatuses != "" {
		statuses, err := store.LoadEdgeStatuses(ctx, mustPath("edge statuses", cfg.EdgeStatuses))
		if err != nil {
			log.Fatalf("failed to load edge statuses from %s: %v", cfg.EdgeStatuses, err)
		}
		if err := network.UpdateEdges(statuses); err != nil {
			log.Fatalf("failed to apply edge statuses: %v", err)
		}
	}
	origins, err := store.LoadPopulation(ctx, mustPath("origins", cfg.Origins))
	if err != nil {
		log.Fatalf("failed to load origins from %s: %v", cfg.Origins, err)
	}
	destinations := origins
	if cfg.Destinations != cfg.Origins {
		destinations, err = store.LoadPopulation(ctx, mustPath("destinations", cfg.Destinations))
		if err != nil {
			log.Fatalf("failed to load destinations from %s: %v", cfg.Destinations, err)
		}
	}

	if *pprofAddr != "" {
		// 启动pprof
		startHTTPDebugger(*pprofAddr)
	}

	if *benchmark {
		// 性能测试
		runBenchmark(ctx, cfg, network)
		return
	}

	evaluator := analyst.NewBatchEvaluator(network, nil)
	results, summary, err := runBatch(ctx, cfg, evaluator, origins, destinations)
	var partial *analyst.PartialResultsError
	switch {
	case errors.As(err, &partial):
		log.Warnf("run cancelled, %d/%d roots finished", partial.Completed, partial.Total)
	case err != nil:
		log.Errorf("run finished with errors: %v", err)
	}
	if summary == nil {
		os.Exit(1)
	}
	if cfg.Output != "" {
		out := mustPath("output", cfg.Output)
		// 取消后仍保存已完成的部分
		if err := store.Save(context.WithoutCancel(ctx), out, summary, results); err != nil {
			log.Errorf("failed to save results to %s: %v", out, err)
			os.Exit(1)
		}
	}
	log.Info("accessibility closes")
}
