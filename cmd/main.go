package main

import (
	"context"
	"log"
	"time"

	"github.com/1abobik1/FlowStudio/config"
	"github.com/1abobik1/FlowStudio/internal/api"
	"github.com/1abobik1/FlowStudio/internal/checker"
	"github.com/1abobik1/FlowStudio/internal/handler/flow_handler"
	"github.com/1abobik1/FlowStudio/internal/handler/wallet_handler"
	"github.com/1abobik1/FlowStudio/internal/handler/webhook_handler"
	"github.com/1abobik1/FlowStudio/internal/repository/keystore"
	"github.com/1abobik1/FlowStudio/internal/repository/lead_store"
	"github.com/1abobik1/FlowStudio/internal/routes"
	"github.com/1abobik1/FlowStudio/internal/service/cloud_service"
	"github.com/1abobik1/FlowStudio/internal/service/flow_crypto"
	"github.com/1abobik1/FlowStudio/internal/service/flow_service"
	"github.com/1abobik1/FlowStudio/internal/service/media_crypto"
	"github.com/1abobik1/FlowStudio/internal/service/wallet_service"
	"github.com/gin-contrib/cors"
	"github.com/go-redis/redis/v8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// загрузка конфига
	cfg := config.MustLoad()

	// проверка наличия файлов ключей
	if err := checker.CheckKeys(cfg.FlowKeys.RSAPrivPath, cfg.JWT.PublicKeyPath); err != nil {
		panic(err)
	}

	// приватный ключ flow-канала читается один раз на старте
	flowKeys, err := keystore.NewFileKeyStore(cfg.FlowKeys.RSAPrivPath)
	if err != nil {
		panic(err)
	}

	// redis
	rClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.ServerAddr,
	})
	if err := rClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis connection error: %v", err)
	}

	// redis для лидов и flow-сессий
	leads := lead_store.NewRedisLeadStore(rClient, cfg.Redis.LeadTTL, cfg.Redis.FlowSessionTTL)

	// Инициализация MinIO cloud_service слой
	minioService := cloud_service.NewMinioClient(*cfg, rClient)
	if err := minioService.InitMinio(cfg.Minio.Port, cfg.Minio.RootUser, cfg.Minio.RootPassword, cfg.Minio.UseSSL); err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// кредитный кошелёк в postgres
	walletService, err := wallet_service.NewWalletService(cfg.Postgres.StoragePath)
	if err != nil {
		panic(err)
	}

	// внешние клиенты
	waClient := api.NewWhatsAppClient(cfg.WhatsApp.BaseURL, cfg.WhatsApp.Token, cfg.WhatsApp.PhoneID)
	imageClient := api.NewImageGenClient(cfg.ImageGen.BaseURL, cfg.ImageGen.APIKey, cfg.ImageGen.Timeout)
	paymentsClient := api.NewPaymentsClient(cfg.Payments.BaseURL, cfg.Payments.APIKey)

	// протокольные движки
	flowChannel := flow_crypto.NewChannel(flowKeys.GetFlowPrivateKey())
	mediaDecryptor := media_crypto.NewDecryptor(cfg.Media.FetchTimeout)

	// сервисный слой flow
	flowSvc := flow_service.NewFlowService(walletService, leads, minioService, imageClient, waClient, paymentsClient, cfg.Payments.CreditPrice)

	// хендлерный слой
	flowHandler := flow_handler.NewFlowHandler(flowChannel, flowSvc)
	webhookHandler := webhook_handler.NewWebhookHandler(cfg.WhatsApp.VerifyToken, mediaDecryptor, leads, walletService, minioService, waClient)
	walletHandler := wallet_handler.NewWalletHandler(walletService)

	// маршрутизация
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// регистрация всех маршрутов
	routes.RegisterRoutes(r, cfg, flowHandler, webhookHandler, walletHandler)

	logrus.Infof("Starting server on %s", cfg.HTTPServ.ServerAddr)
	if err := r.Run(cfg.HTTPServ.ServerAddr); err != nil {
		panic(err)
	}
}
