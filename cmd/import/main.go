package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"supermercado/internal/config"
	"supermercado/internal/domain/model"
	"supermercado/internal/importer"
	"supermercado/internal/infra/db"
	infraRepo "supermercado/internal/infra/repository"
	"supermercado/internal/usecase"
	"supermercado/pkg/logger"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

// 商品スプレッドシートをDBへ取り込むCLI。
// 例: go run ./cmd/import -file storage/Products.xlsx
func main() {
	file := flag.String("file", "storage/Products.xlsx", "planilha de produtos (.xlsx ou .csv)")
	flag.Parse()

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

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("db connect failed", logger.Err(err))
	}
	if err := gormDB.AutoMigrate(&model.Product{}); err != nil {
		log.Fatal("migrate failed", logger.Err(err))
	}

	productRepo := infraRepo.NewProductGormRepository(gormDB)
	productUC := usecase.NewProductUsecase(productRepo, &realClock{})
	svc := importer.NewService(productUC, log)

	sum, err := svc.ImportFile(context.Background(), *file)
	if err != nil {
		log.Fatal("import failed", logger.String("file", *file), logger.Err(err))
	}

	log.Info("Products imported successfully!",
		logger.String("run_id", sum.RunID),
		logger.Int("imported", sum.Imported),
		logger.Int("skipped", sum.Skipped),
	)
}
