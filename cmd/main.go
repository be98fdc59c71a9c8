package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"

	"cv-parser-go/internal/api/handler"
	"cv-parser-go/internal/api/router"
	"cv-parser-go/internal/config"
	appLogger "cv-parser-go/internal/logger"
	"cv-parser-go/internal/llm"
	"cv-parser-go/internal/parser"
	"cv-parser-go/internal/processor"
	"cv-parser-go/internal/storage"
	"cv-parser-go/internal/tracing"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("加载配置失败")
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Warnf("关闭链路追踪失败: %v", err)
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	engine, err := parser.NewEngine(ctx, parser.EngineConfig{
		MaxFileSize:    int64(cfg.Parser.MaxFileSizeMB) << 20,
		CacheCapacity:  cfg.Parser.CacheCapacity,
		CacheTTL:       time.Duration(cfg.Parser.CacheTTLHours) * time.Hour,
		MaxConcurrency: cfg.Parser.MaxConcurrency,
	})
	if err != nil {
		glog.Fatalf("初始化文本提取引擎失败: %v", err)
	}
	if storageManager.Redis != nil {
		engine.SetCacheObserver(storageManager.Redis)
	}
	glog.Info("文本提取引擎初始化成功")

	textModel, err := llm.NewOpenAICompatModel(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.APIURL, cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	if err != nil {
		glog.Fatalf("初始化文本模型失败: %v", err)
	}
	visionModel, err := llm.NewOpenAICompatModel(cfg.LLM.APIKey, cfg.LLM.VisionModel, cfg.LLM.APIURL, cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	if err != nil {
		glog.Fatalf("初始化多模态模型失败: %v", err)
	}

	extractor := llm.NewChatProfileExtractor(textModel, visionModel, llm.ExtractorConfig{
		TextModelName:   cfg.LLM.Model,
		VisionModelName: cfg.LLM.VisionModel,
		MaxRetries:      cfg.LLM.MaxRetries,
		RetryWait:       time.Duration(cfg.LLM.RetryWaitSeconds) * time.Second,
		Timeout:         config.GetDuration(cfg.LLM.ExtractionTimeout, 60*time.Second),
	})
	glog.Info("LLM解析器初始化成功")

	procOpts := []processor.Option{
		processor.WithParserVersion(cfg.ActiveParserVersion),
	}
	if storageManager.MinIO != nil {
		procOpts = append(procOpts, processor.WithFileStore(storageManager.MinIO))
	}
	if storageManager.RabbitMQ != nil {
		procOpts = append(procOpts, processor.WithQueue(storageManager.RabbitMQ, cfg.RabbitMQ.ParseQueue))
	}
	proc := processor.NewJobProcessor(engine, extractor, storageManager.MySQL, procOpts...)
	glog.Info("任务处理器初始化成功")

	if storageManager.RabbitMQ != nil {
		if err := storageManager.RabbitMQ.EnsureQueue(cfg.RabbitMQ.ParseQueue, true); err != nil {
			glog.Fatalf("声明解析队列失败: %v", err)
		}
		if _, err := storageManager.RabbitMQ.StartConsumer(cfg.RabbitMQ.ParseQueue, cfg.RabbitMQ.PrefetchCount, proc.HandleQueueMessage); err != nil {
			glog.Fatalf("启动解析消费者失败: %v", err)
		}
		glog.Infof("解析消费者已启动，队列: %s, 预取: %d", cfg.RabbitMQ.ParseQueue, cfg.RabbitMQ.PrefetchCount)
	}

	parseHandler := handler.NewParseHandler(cfg, storageManager, proc)

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		ctx.Next(c)
		glog.CtxInfof(c, "%s %s -> %d", string(ctx.Method()), string(ctx.Path()), ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, parseHandler)
	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 配置zerolog全局日志并接管hertz的日志输出
func initLogger(cfg *config.Config) {
	var extra *os.File
	if cfg.Logger.File != "" {
		f, err := os.OpenFile(cfg.Logger.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			appLogger.Fatal().Err(err).Str("file", cfg.Logger.File).Msg("打开日志文件失败")
		}
		extra = f
	}

	logCfg := appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	}
	if extra != nil {
		appLogger.InitWithWriter(logCfg, extra)
	} else {
		appLogger.Init(logCfg)
	}

	glog.SetLogger(hertzadapter.From(appLogger.Logger))
	switch cfg.Logger.Level {
	case "debug":
		glog.SetLevel(glog.LevelDebug)
	case "warn":
		glog.SetLevel(glog.LevelWarn)
	case "error":
		glog.SetLevel(glog.LevelError)
	default:
		glog.SetLevel(glog.LevelInfo)
	}
}
