// cmd/groupbuy-service/main.go
package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"

	"pinhub/internal/pkg/bootstrap"
	"pinhub/internal/pkg/httpclient"
	"pinhub/internal/pkg/logger"
	"pinhub/internal/pkg/mq"
	"pinhub/internal/pkg/redis"
	"pinhub/internal/service/groupbuy/application"
	"pinhub/internal/service/groupbuy/infrastructure"
	"pinhub/internal/service/groupbuy/infrastructure/adapter"
	"pinhub/internal/service/groupbuy/infrastructure/epay"
	"pinhub/internal/service/groupbuy/infrastructure/rule"
	"pinhub/internal/service/groupbuy/interfaces"
)

const serviceName = "groupbuy-service"

// main 是组装根：创建并组装所有依赖，然后交给 bootstrap 启动。
func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := infrastructure.OpenMysql(infrastructure.MysqlConfig{
		Host:     cfg.Infra.Mysql.Host,
		Port:     cfg.Infra.Mysql.Port,
		User:     cfg.Infra.Mysql.User,
		Password: cfg.Infra.Mysql.Password,
		Database: cfg.Infra.Mysql.Database,
	})
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addr)
	if err != nil {
		log.Fatalf("failed to initialize redis client: %v", err)
	}
	defer redisClient.Close()

	kafkaWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topic)
	defer kafkaWriter.Close()

	gateway, err := epay.NewClient(epay.Config{
		MerchantID:  cfg.Gateway.MerchantID,
		MerchantKey: cfg.Gateway.MerchantKey,
		PayURL:      cfg.Gateway.PayURL,
		RefundURL:   cfg.Gateway.RefundURL,
	}, httpclient.NewClient(otel.Tracer(serviceName)))
	if err != nil {
		log.Fatalf("failed to initialize payment gateway: %v", err)
	}

	screener, err := rule.NewCelProofScreener(cfg.App.ProofRule)
	if err != nil {
		log.Fatalf("failed to compile proof rule: %v", err)
	}

	service := application.NewGroupService(
		application.ServiceConfig{
			BaseURL:      cfg.App.BaseURL,
			GroupFee:     cfg.App.GroupFee,
			GroupReward:  cfg.App.GroupReward,
			ExpiryWindow: time.Duration(cfg.App.ExpiryHours) * time.Hour,
		},
		infrastructure.NewGormGroupRepository(db),
		infrastructure.NewGormOrderRepository(db),
		infrastructure.NewGormMemberRepository(db),
		infrastructure.NewGormRewardRepository(db),
		gateway,
		screener,
		adapter.NewKafkaLifecycleNotifier(kafkaWriter),
	)

	handler := interfaces.NewGroupHandler(interfaces.HandlerConfig{
		AdminUsers:    cfg.App.AdminUsers,
		RefundTimeout: cfg.Gateway.RefundTimeout,
	}, service, adapter.NewRedisSessionAdapter(redisClient))

	port := 8080
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			port = n
		}
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
