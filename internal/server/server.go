package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"pomelo/internal/ai/component"
	"pomelo/internal/config"
	"pomelo/internal/handler"
	pipelineHandler "pomelo/internal/handler/pipeline"
	"pomelo/internal/pkg/ark"
	"pomelo/internal/pkg/cache"
	"pomelo/internal/pkg/cliptools"
	"pomelo/internal/pkg/cliptools/providers"
	"pomelo/internal/pkg/mongodb"
	"pomelo/internal/pkg/storagefactory"
	"pomelo/internal/server/middleware"
	pipelineSvc "pomelo/internal/service/pipeline"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB (可选)
	var mongoClient *mongodb.Client
	if cfg.Mongo.URI != "" {
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to MongoDB, continuing without it")
		} else {
			mongoClient = client
			log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

			// 创建索引
			if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure indexes")
			}
		}
	}

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	// 设置路由
	if err := srv.setupRoutes(); err != nil {
		return nil, err
	}

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() error {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// 流水线接口（需要 MongoDB 和视频提供者）
		if s.mongo != nil {
			svc, err := s.buildPipelineService()
			if err != nil {
				log.Warn().Err(err).Msg("failed to build pipeline service, pipeline endpoints disabled")
			} else {
				hdl := pipelineHandler.NewHandler(svc)

				v1.POST("/projects", hdl.CreateProject)
				v1.GET("/projects", hdl.ListProjects)
				v1.GET("/projects/:project_id", hdl.GetProject)
				v1.DELETE("/projects/:project_id", hdl.DeleteProject)
				v1.GET("/projects/:project_id/scenes", hdl.GetScenes)
				v1.POST("/projects/:project_id/cancel", hdl.CancelProject)
				v1.POST("/projects/:project_id/resume", hdl.ResumeProject)
				v1.GET("/projects/:project_id/artifact", hdl.GetArtifact)
			}
		} else {
			log.Warn().Msg("MongoDB not configured, pipeline endpoints disabled")
		}
	}

	return nil
}

// buildPipelineService 组装流水线服务及其依赖
func (s *Server) buildPipelineService() (pipelineSvc.PipelineService, error) {
	ctx := context.Background()

	// 存储
	store, err := storagefactory.NewStorage(ctx, &s.cfg.Storage)
	if err != nil {
		return nil, err
	}
	log.Info().Str("type", s.cfg.Storage.Type).Msg("initialized storage")

	// 视频任务提供者（配置缺失时回退到 ARK_API_KEY 等环境变量）
	var provider cliptools.VideoTaskProvider
	if s.cfg.Video.APIKey != "" {
		videoClient, err := ark.NewArkVideoClient(&ark.ArkVideoConfig{
			APIKey:  s.cfg.Video.APIKey,
			BaseURL: s.cfg.Video.BaseURL,
			Model:   s.cfg.Video.Model,
			Ratio:   s.cfg.Video.Ratio,
		})
		if err != nil {
			return nil, err
		}
		provider = providers.NewArkVideoProvider(videoClient)
		log.Info().Str("model", s.cfg.Video.Model).Msg("initialized video task provider")
	} else {
		p, err := providers.NewArkVideoProviderFromEnv()
		if err != nil {
			return nil, fmt.Errorf("video provider not configured: %w", err)
		}
		provider = p
		log.Info().Msg("initialized video task provider from environment")
	}

	// 首帧图片提供者 (可选，配置缺失时尝试环境变量)
	var imageProvider cliptools.ImageProvider
	if s.cfg.Image.APIKey != "" {
		imageClient, err := ark.NewArkImageClient(&ark.ArkImageConfig{
			APIKey:  s.cfg.Image.APIKey,
			BaseURL: s.cfg.Image.BaseURL,
			Model:   s.cfg.Image.Model,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize image provider, continuing without first frames")
		} else {
			imageProvider = providers.NewArkImageProvider(imageClient)
			log.Info().Str("model", s.cfg.Image.Model).Msg("initialized image provider")
		}
	} else if ip, err := providers.NewArkImageProviderFromEnv(); err == nil {
		imageProvider = ip
		log.Info().Msg("initialized image provider from environment")
	}

	return pipelineSvc.NewPipelineService(s.cfg, pipelineSvc.Deps{
		DB:            s.mongo.Database(),
		Provider:      provider,
		ImageProvider: imageProvider,
		LLMProvider:   buildLLMProvider(ctx, &s.cfg.AI),
		Store:         store,
		Cache:         s.redis,
	})
}

// buildLLMProvider 组装提示词增强用的 LLM 提供者
//
// 选择规则：
//   - provider 为 "ark_direct" 时走官方 SDK 直连的 Ark 客户端
//   - 其余（openai/azure/ark）走 eino ChatModel
//   - 配置缺失时回退到 ARK_API_KEY 等环境变量（直连客户端）
//
// 返回 nil 表示未配置或初始化失败，润色能力降级，不影响流水线
func buildLLMProvider(ctx context.Context, cfg *config.AIConfig) cliptools.LLMProvider {
	if cfg.APIKey == "" {
		envCfg := ark.ArkConfigFromEnv()
		if envCfg.APIKey == "" {
			return nil
		}
		arkClient, err := ark.NewClient(envCfg)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize Ark client from environment, continuing without prompt enhancement")
			return nil
		}
		log.Info().Str("model", envCfg.Model).Msg("initialized prompt enhancer LLM from environment")
		return providers.NewArkProvider(arkClient)
	}

	if cfg.Provider == "ark_direct" {
		arkClient, err := ark.NewClient(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize Ark client, continuing without prompt enhancement")
			return nil
		}
		log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("initialized prompt enhancer LLM")
		return providers.NewArkProvider(arkClient)
	}

	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize chat model, continuing without prompt enhancement")
		return nil
	}
	log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("initialized prompt enhancer LLM")
	return providers.NewEinoProvider(chatModel)
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 关闭连接
		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
