package importer

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"supermercado/internal/usecase"
	"supermercado/pkg/logger"
)

// 必須列。どれか欠けた行はスキップ（エラーにしない）。
var requiredColumns = []string{"id", "name", "price", "qty_stock"}

type Summary struct {
	RunID    string
	Imported int
	Skipped  int
}

type Service struct {
	products *usecase.ProductUsecase
	log      logger.Logger
}

func NewService(products *usecase.ProductUsecase, log logger.Logger) *Service {
	return &Service{products: products, log: log}
}

// ImportFileは表形式ファイルの各行をidキーでupsertする。
// 同じidを再インポートしても行は増えず、最新値で上書きされる。
func (s *Service) ImportFile(ctx context.Context, path string) (Summary, error) {
	rows, err := ReadFile(path)
	if err != nil {
		return Summary{}, err
	}

	sum, err := s.ImportRows(ctx, rows)
	if err != nil {
		return Summary{}, err
	}

	s.log.Info("products imported",
		logger.String("run_id", sum.RunID),
		logger.String("file", path),
		logger.Int("imported", sum.Imported),
		logger.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

func (s *Service) ImportRows(ctx context.Context, rows []Row) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}

	for i, row := range rows {
		in, ok := parseRow(row)
		if !ok {
			sum.Skipped++
			s.log.Debug("row skipped", logger.String("run_id", sum.RunID), logger.Int("row", i+2))
			continue
		}

		err := s.products.UpsertProduct(ctx, in)
		if _, isValidation := usecase.AsValidationError(err); isValidation {
			//値は揃っていても不正（負の価格など）な行はスキップ扱い
			sum.Skipped++
			s.log.Warn("row rejected", logger.String("run_id", sum.RunID), logger.Int("row", i+2), logger.Int64("product_id", in.ID), logger.Err(err))
			continue
		}
		if err != nil {
			return Summary{}, err
		}
		sum.Imported++
	}

	return sum, nil
}

// 行→upsert入力。必須列が欠けるか数値が読めなければ ok=false。
func parseRow(row Row) (usecase.UpsertProductInput, bool) {
	for _, col := range requiredColumns {
		if row[col] == "" {
			return usecase.UpsertProductInput{}, false
		}
	}

	id, err := strconv.ParseInt(row["id"], 10, 64)
	if err != nil {
		return usecase.UpsertProductInput{}, false
	}
	price, err := decimal.NewFromString(row["price"])
	if err != nil {
		return usecase.UpsertProductInput{}, false
	}
	qty, err := strconv.ParseInt(row["qty_stock"], 10, 64)
	if err != nil {
		return usecase.UpsertProductInput{}, false
	}

	return usecase.UpsertProductInput{
		ID:       id,
		Name:     row["name"],
		Price:    price,
		QtyStock: qty,
	}, true
}
