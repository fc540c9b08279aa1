package main

import (
	"time"

	"github.com/joho/godotenv"

	"supermercado/internal/config"
	"supermercado/internal/domain/model"
	"supermercado/internal/handler"
	"supermercado/internal/infra/db"
	infraRepo "supermercado/internal/infra/repository"
	"supermercado/internal/server"
	"supermercado/internal/usecase"
	"supermercado/pkg/logger"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envはあれば読む（なくてもよい）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewZapLogger(cfg.GoEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("db connect failed", logger.Err(err))
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		log.Fatal("migrate failed", logger.Err(err))
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	clock := &realClock{}

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txManager, clock, cfg.OrderTxTimeout)
	productUC := usecase.NewProductUsecase(productRepo, clock)

	//Handler生成
	orderH := handler.NewOrderHandler(orderUC)
	productH := handler.NewProductHandler(productUC)

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	e := server.New(log)
	server.RegisterRoutes(e, productH, orderH)

	log.Info("listening", logger.String("addr", addr))
	if err := server.Start(e, addr); err != nil {
		log.Fatal("server stopped", logger.Err(err))
	}
}
