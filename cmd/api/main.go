package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/Sachintha-Prasad/retail-management-system/internal/config"
	"github.com/Sachintha-Prasad/retail-management-system/internal/handler"
	"github.com/Sachintha-Prasad/retail-management-system/internal/middleware"
	"github.com/Sachintha-Prasad/retail-management-system/internal/model"
	"github.com/Sachintha-Prasad/retail-management-system/internal/repository"
	"github.com/Sachintha-Prasad/retail-management-system/internal/service"
	"github.com/Sachintha-Prasad/retail-management-system/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	userSvc := service.NewUserService(userRepo)
	productSvc := service.NewProductService(productRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, productRepo, userRepo)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, userRepo, amqpCh)

	// Handlers
	userH := handler.NewUserHandler(authSvc, userSvc)
	productH := handler.NewProductHandler(productSvc)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc, redisClient)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	statsWorker := worker.NewStatsWorker(amqpCh, orderRepo, redisClient, log)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	authRequired := middleware.AuthMiddleware(cfg.JWT.Secret)
	adminOnly := middleware.RequireRoles(model.RoleAdmin)

	api := router.Group("/api")
	{
		users := api.Group("/users")
		users.POST("/register", userH.Register)
		users.POST("/login", userH.Login)

		usersAdmin := users.Group("", authRequired, adminOnly)
		usersAdmin.GET("/:id", userH.GetByID)
		usersAdmin.PUT("/:id", userH.Update)
		usersAdmin.DELETE("/:id", userH.Delete)

		products := api.Group("/products")
		products.GET("", productH.List)
		products.GET("/:id", productH.GetByID)

		productsAdmin := products.Group("", authRequired, adminOnly)
		productsAdmin.POST("", productH.Create)
		productsAdmin.PUT("/:id", productH.Update)
		productsAdmin.DELETE("/:id", productH.Delete)
		productsAdmin.PATCH("/:id/stock", productH.AdjustStock)

		cart := api.Group("/cart")
		cart.POST("/add", cartH.AddItem)
		cart.GET("/:customerId", cartH.GetCart)
		cart.PUT("/update", cartH.UpdateItem)
		cart.DELETE("/remove", cartH.RemoveItem)
		cart.DELETE("/clear", cartH.Clear)

		orders := api.Group("/orders")
		orders.POST("", orderH.Create)
		orders.GET("/:id", orderH.GetByID)

		ordersAdmin := orders.Group("", authRequired, adminOnly)
		ordersAdmin.GET("", orderH.ListAll)
		ordersAdmin.PUT("/:id/status", orderH.UpdateStatus)
		ordersAdmin.DELETE("/:id", orderH.Delete)

		api.GET("/customers/:customerId/orders", orderH.ListByCustomer)
		api.GET("/stats/orders", authRequired, adminOnly, orderH.Stats)
	}

	if err := statsWorker.Start(ctx); err != nil {
		log.Error("start stats worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	statsWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
