// cmd/expiry-sweeper/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"pinhub/internal/pkg/bootstrap"
	"pinhub/internal/pkg/httpclient"
	"pinhub/internal/pkg/logger"
	"pinhub/internal/pkg/mq"
	"pinhub/internal/pkg/tracing"
	"pinhub/internal/pkg/zookeeper"
	"pinhub/internal/service/groupbuy/application"
	"pinhub/internal/service/groupbuy/infrastructure"
	"pinhub/internal/service/groupbuy/infrastructure/adapter"
	"pinhub/internal/service/groupbuy/infrastructure/epay"
)

const (
	serviceName  = "expiry-sweeper"
	lockResource = "expiry-sweep"
	lockWait     = 5 * time.Second
)

var (
	sweepPassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pinhub_sweep_passes_total",
		Help: "Completed sweep passes on this node.",
	})
	sweepExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pinhub_sweep_expired_total",
		Help: "Groups expired (or refund-retried) by the sweeper.",
	})
	sweepSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pinhub_sweep_skipped_total",
		Help: "Sweep passes skipped because another node holds the lock.",
	})
)

// main 启动到期清理进程：单实例扫描由 zookeeper 锁保证，
// 指标通过自带的 HTTP 端口暴露。
func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatalf("failed to initialize tracer provider: %v", err)
	}
	defer tp.Shutdown(context.Background())

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

	zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Addrs)
	if err != nil {
		log.Fatalf("failed to connect zookeeper: %v", err)
	}

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
		nil, // 清理进程不做凭证筛查
		adapter.NewKafkaLifecycleNotifier(kafkaWriter),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runSweepLoop(ctx, service, zkConn, cfg.App.SweepInterval, cfg.Gateway.RefundTimeout)
	})

	g.Go(func() error {
		return serveMetrics(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("sweeper exited: %v", err)
	}
	logger.Logger.Info().Msg("sweeper shut down")
}

// runSweepLoop 按固定周期执行清理。每一轮先抢 zookeeper 锁，
// 抢不到说明另一个实例正在扫，跳过本轮。
func runSweepLoop(ctx context.Context, service *application.GroupService, zkConn *zookeeper.Conn, interval, refundTimeout time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Logger.Info().Dur("interval", interval).Msg("sweep loop started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sweepOnce(ctx, service, zkConn, refundTimeout)
		}
	}
}

func sweepOnce(ctx context.Context, service *application.GroupService, zkConn *zookeeper.Conn, refundTimeout time.Duration) {
	lock, err := zookeeper.NewDistributedLock(zkConn, lockResource)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to create sweep lock")
		return
	}
	if err := lock.Lock(lockWait); err != nil {
		sweepSkippedTotal.Inc()
		logger.Ctx(ctx).Debug().Err(err).Msg("sweep lock held elsewhere, skipping pass")
		return
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to release sweep lock")
		}
	}()

	processed, err := service.RunSweep(ctx, refundTimeout)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("sweep pass failed")
		return
	}
	sweepPassesTotal.Inc()
	sweepExpiredTotal.Add(float64(processed))
}

func serveMetrics(ctx context.Context) error {
	port := 8085
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			port = n
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: ":" + strconv.Itoa(port), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Logger.Info().Int("port", port).Msg("metrics endpoint listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
