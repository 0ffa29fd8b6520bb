package main

import (
	"log"
	"net/http"

	config "freshcast-api/configs"
	"freshcast-api/pkg/handlers"
	"freshcast-api/pkg/openai"
	"freshcast-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Ginルーターの初期化
	r := gin.Default()

	// サービスの初期化
	historyService := services.NewSalesHistoryService(cfg.SalesDataDir)
	modelStore := services.NewFileModelStore(cfg.ModelDir)
	modelService := services.NewForecastModelService(cfg.ConfidenceLevel, cfg.MaxHorizonDays, cfg.WinsorizePercentile)
	engine := services.NewForecastEngine(modelService, services.NewModelRepository(), historyService, modelStore)
	planner := services.NewSafetyStockPlanner(cfg.DefaultServiceLevel)
	materials := services.NewMaterialExpander(services.DefaultRecipeEntries())
	router := services.NewIntentRouter()
	openaiClient := openai.NewClient(cfg.OpenAIEndpoint, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	advisory := services.NewAdvisoryService(openaiClient)

	// ハンドラーの初期化
	queryHandler := handlers.NewQueryHandler(router, engine, planner, materials, advisory)
	forecastHandler := handlers.NewForecastHandler(engine, planner, materials)

	// ミドルウェアの登録
	r.Use(cors.Default())

	// 認証ミドルウェア
	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" {
				c.Next()
				return
			}
			providedKey := c.GetHeader("X-API-KEY")
			if providedKey != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
		}
	}

	// ヘルスチェックエンドポイント
	r.GET("/health", handlers.HealthCheck)

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		// 自然言語クエリAPI
		v1.POST("/query", queryHandler.HandleQuery)

		// 予測・計画API
		forecast := v1.Group("/forecast")
		{
			forecast.POST("/:product", forecastHandler.GetForecast)
		}
		v1.GET("/materials", forecastHandler.GetMaterials)
		v1.GET("/summary", forecastHandler.GetSummary)
		v1.GET("/products", forecastHandler.GetProducts)
		v1.POST("/retrain/:product", forecastHandler.Retrain)
	}

	addr := ":" + cfg.Port
	log.Printf("Starting FreshCast API server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
