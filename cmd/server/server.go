package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"eduverse/internal/api"
	"eduverse/internal/config"
	"eduverse/internal/course"
	"eduverse/internal/logger"
	"eduverse/internal/media"
	"eduverse/internal/storage"
	"eduverse/internal/user"
	"eduverse/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// App 已装配的服务依赖
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Router  *gin.Engine
	Courses *course.Service
	Users   *user.Service

	kv      storage.KV
	hub     *websocket.Hub
	handler *api.Handler
}

// Build 按配置装配存储、课程目录、用户会话与 HTTP 路由
// 参数:
//   - ctx: 用于打开存储与读取快照
//   - cfg: 已加载的配置
//   - catalogFS: 嵌入的种子目录，仅在 CATALOG_USE_EMBED=true 时使用
//   - appLogger: 日志记录器
func Build(ctx context.Context, cfg *config.Config, catalogFS fs.FS, appLogger *logger.Logger) (*App, error) {
	seed, err := course.OpenSeed(cfg.Catalog.UseEmbed, cfg.Catalog.Dir, catalogFS)
	if err != nil {
		return nil, fmt.Errorf("加载课程种子失败: %w", err)
	}
	if cfg.Catalog.UseEmbed {
		appLogger.Info("Catalog seed served from embedded FS")
	} else {
		appLogger.Info("Catalog seed directory: %s", cfg.Catalog.Dir)
	}

	kv, err := storage.Open(ctx, cfg.Storage, appLogger)
	if err != nil {
		return nil, fmt.Errorf("打开存储失败: %w", err)
	}

	videos := media.NewRegistry(cfg.MaxUploadBytes())
	videos.SetLogger(appLogger)

	courseService := course.NewService(seed, kv)
	courseService.SetLogger(appLogger)
	courseService.SetVideoRegistry(videos)
	if err := courseService.LoadCourses(ctx); err != nil {
		appLogger.Warn("Warning: failed to load saved catalog: %v", err)
	}

	userService := user.NewService(kv)
	userService.SetLogger(appLogger)
	if err := userService.Load(ctx); err != nil {
		appLogger.Warn("Warning: failed to load saved profile: %v", err)
	}

	hub := websocket.NewHub()
	hub.SetLogger(appLogger)

	r := gin.New()
	r.Use(gin.Recovery())
	if appLogger.GetLevel() == logger.DEBUG {
		r.Use(gin.Logger())
	}

	handler := api.NewHandler(courseService, userService, videos, hub, appLogger, cfg)
	handler.SetupRoutes(r)

	for _, ri := range r.Routes() {
		appLogger.Debug("Route registered: %s %s", ri.Method, ri.Path)
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.Status(http.StatusNotFound)
	})

	return &App{
		Config:  cfg,
		Logger:  appLogger,
		Router:  r,
		Courses: courseService,
		Users:   userService,
		kv:      kv,
		hub:     hub,
		handler: handler,
	}, nil
}

// Close 断开推送连接并关闭存储
func (a *App) Close() error {
	a.handler.Close()
	a.hub.Close()
	return a.kv.Close()
}

// Run 是 server 子命令的入口，阻塞直到收到退出信号
func Run(catalogFS fs.FS) error {
	// 加载 .env（不强制）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		tempLogger := logger.NewLogger(logger.ERROR)
		tempLogger.Error("Failed to load configuration: %v", err)
		return err
	}

	appLogger := logger.New(logger.ParseLogLevel(cfg.Log.Level), cfg.Log.Format, os.Stdout)
	defer appLogger.Sync()

	gin.SetMode(gin.ReleaseMode)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	app, err := Build(ctx, cfg, catalogFS, appLogger)
	cancel()
	if err != nil {
		appLogger.Error("%v", err)
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			appLogger.Warn("关闭存储失败: %v", err)
		}
	}()

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	// WriteTimeout 保持为 0，视频播放与 WebSocket 为长连接
	srv := &http.Server{Addr: addr, Handler: app.Router, ReadTimeout: 15 * time.Second, IdleTimeout: 60 * time.Second}

	appLogger.Info("Eduverse starting on %s (storage: %s)", addr, cfg.Storage.Driver)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		appLogger.Error("Failed to start server: %v", err)
		return err
	}
	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	appLogger.Info("Server exited")
	return nil
}

// NewCommand 定义 server 子命令（Cobra 风格）
// 运行参数通过 Flags（优先级最高）或环境变量读取，实现“Flags > Env > 默认值”
func NewCommand(catalogFS fs.FS) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "启动后端服务",
		Long:  "启动 Eduverse 课程服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("host") {
				h, _ := cmd.Flags().GetString("host")
				_ = os.Setenv("SERVER_HOST", h)
			}
			if cmd.Flags().Changed("port") {
				p, _ := cmd.Flags().GetInt("port")
				_ = os.Setenv("SERVER_PORT", strconv.Itoa(p))
			}
			if cmd.Flags().Changed("log-level") {
				ll, _ := cmd.Flags().GetString("log-level")
				_ = os.Setenv("LOG_LEVEL", ll)
			}
			if cmd.Flags().Changed("log-format") {
				lf, _ := cmd.Flags().GetString("log-format")
				_ = os.Setenv("LOG_FORMAT", lf)
			}
			if cmd.Flags().Changed("storage-driver") {
				d, _ := cmd.Flags().GetString("storage-driver")
				_ = os.Setenv("STORAGE_DRIVER", d)
			}
			if cmd.Flags().Changed("catalog-use-embed") {
				e, _ := cmd.Flags().GetBool("catalog-use-embed")
				_ = os.Setenv("CATALOG_USE_EMBED", strconv.FormatBool(e))
			}
			return Run(catalogFS)
		},
	}

	cmd.Flags().String("host", "", "服务器监听地址（默认从环境变量 SERVER_HOST 或默认值读取）")
	cmd.Flags().Int("port", 0, "服务器端口（默认从环境变量 SERVER_PORT 或默认值读取）")
	cmd.Flags().String("log-level", "info", "日志级别: debug|info|warn|error（默认从环境变量 LOG_LEVEL 或默认值读取）")
	cmd.Flags().String("log-format", "text", "日志格式: json|text（默认从环境变量 LOG_FORMAT 或默认值读取）")
	cmd.Flags().String("storage-driver", "", "存储驱动 file|sqlite|postgres|memory（默认从环境变量 STORAGE_DRIVER 读取）")
	cmd.Flags().Bool("catalog-use-embed", false, "使用嵌入式种子目录")

	return cmd
}
