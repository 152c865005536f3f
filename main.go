package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/batch-hub/batch-hub/internal/blob"
	"github.com/batch-hub/batch-hub/internal/cache"
	"github.com/batch-hub/batch-hub/internal/config"
	"github.com/batch-hub/batch-hub/internal/logging"
	"github.com/batch-hub/batch-hub/internal/remote"
	"github.com/batch-hub/batch-hub/internal/server"
	"github.com/batch-hub/batch-hub/internal/server/routes"
	"github.com/batch-hub/batch-hub/internal/service"
	"github.com/batch-hub/batch-hub/internal/store"
	"github.com/batch-hub/batch-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["blob_backend"] = cfg.Storage.BlobBackend
		fields["cache_enabled"] = cfg.Cache.Enabled
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	metaStore, err := store.New(cfg.Storage.MetadataDBPath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化元数据库失败: %v\n", err)
		return 1
	}

	blobs, err := blob.Open(cfg.Storage)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化 Blob 存储失败: %v\n", err)
		return 1
	}

	cacheStore, err := cache.NewStore(cfg.Cache)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	// 启动遵循配置、存储层、编排层、Fiber server 的顺序，
	// 所有请求共享同一组存储实例。
	client := remote.NewClient(cfg.Remote, logger)
	svc := service.New(client, metaStore, blobs, cacheStore, logger, cfg.Remote)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["remote_base_url"] = cfg.Remote.BaseURL
	fields["blob_backend"] = cfg.Storage.BlobBackend
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, svc, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("batch-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 BATCH_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("BATCH_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, svc *service.Service, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Service:    svc,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterAPIRoutes(app, svc, logger)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
