package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"supermercado/internal/domain/model"
	repo "supermercado/internal/repository"
)

const deliveryDateLayout = "2006-01-02"

// 現在時刻の供給（テストで固定できるように）
type Clock interface {
	Now() time.Time
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	clock     Clock
	txTimeout time.Duration
}

func NewOrderUsecase(tx repo.TransactionManager, clock Clock, txTimeout time.Duration) *OrderUsecase {
	return &OrderUsecase{tx: tx, clock: clock, txTimeout: txTimeout}
}

type OrderItemInput struct {
	ProductID int64
	Qty       int64
}

type CreateOrderInput struct {
	CustomerName string
	DeliveryDate string // YYYY-MM-DD
	Items        []OrderItemInput
}

type CreateOrderOutput struct {
	OrderID int64
	Total   decimal.Decimal
}

// CreateOrderは在庫を確認しながら注文と明細を1トランザクションで作る。
// 途中で失敗したら何も書き込まれない（在庫減算も含めて全部ロールバック）。
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderOutput, error) {
	if err := validateCreateOrder(in, u.clock.Now()); err != nil {
		return CreateOrderOutput{}, err
	}

	//ロック待ちで無限に塞がないよう上限時間を切る
	ctx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	var out CreateOrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ロック順をリクエスト間で一定にするためid昇順で取りに行く
		ids := make([]int64, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.ProductID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		//参照行をまとめてFOR UPDATE
		products, err := r.Products().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		byID := make(map[int64]model.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		//存在しないidはロック結果に出てこないので、ここでまとめて弾く
		fe := newFieldErrors()
		for i, it := range in.Items {
			if _, ok := byID[it.ProductID]; !ok {
				key := fmt.Sprintf("items.%d.product_id", i)
				fe.add(key, fmt.Sprintf("The selected items.%d.product_id is invalid.", i))
			}
		}
		if fe.any() {
			return fe.toError()
		}

		//在庫チェックは全行分を集めてから失敗にする（1回で全部分かるように）
		for _, it := range in.Items {
			p := byID[it.ProductID]
			if p.QtyStock < it.Qty {
				fe.add("items", fmt.Sprintf("Produto %s: estoque insuficiente (%d disponível).", p.Name, p.QtyStock))
			}
		}
		if fe.any() {
			return fe.toError()
		}

		//金額は全部decimal（2桁固定）。floatは使わない。
		now := u.clock.Now()
		deliveryDate, _ := time.ParseInLocation(deliveryDateLayout, in.DeliveryDate, time.Local)

		total := decimal.Zero
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			p := byID[it.ProductID]
			subtotal := p.Price.Mul(decimal.NewFromInt(it.Qty)).Round(2)
			total = total.Add(subtotal)

			orderItems = append(orderItems, model.OrderItem{
				ProductID: p.ID,
				Qty:       it.Qty,
				UnitPrice: p.Price,
				Subtotal:  subtotal,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}

		orderID, err := r.Orders().Create(ctx, model.Order{
			CustomerName: strings.TrimSpace(in.CustomerName),
			DeliveryDate: deliveryDate,
			Total:        total,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//減算側にもqty_stock >= qtyのガードがある。ロック済みなので通常は必ず通る。
		for _, it := range in.Items {
			ok, err := r.Products().DecrementStock(ctx, it.ProductID, it.Qty)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		out = CreateOrderOutput{OrderID: orderID, Total: total}
		return nil
	})

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return CreateOrderOutput{}, NewHTTPError(http.StatusServiceUnavailable, "Servidor ocupado, tente novamente.")
		}
		return CreateOrderOutput{}, err
	}
	return out, nil
}

// 入力の構造チェック。問題は最初の1件で止めず全部集めて返す。
func validateCreateOrder(in CreateOrderInput, now time.Time) error {
	fe := newFieldErrors()

	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		fe.add("customer_name", "The customer_name field is required.")
	} else if utf8.RuneCountInString(name) > 120 {
		fe.add("customer_name", "The customer_name may not be greater than 120 characters.")
	}

	if strings.TrimSpace(in.DeliveryDate) == "" {
		fe.add("delivery_date", "The delivery_date field is required.")
	} else if d, err := time.ParseInLocation(deliveryDateLayout, in.DeliveryDate, time.Local); err != nil {
		fe.add("delivery_date", "The delivery_date is not a valid date.")
	} else {
		//「今日以降」はサーバーのローカル日付で判定
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		if d.Before(today) {
			fe.add("delivery_date", "The delivery_date must be a date after or equal to today.")
		}
	}

	if len(in.Items) == 0 {
		fe.add("items", "The items field is required.")
	}

	seen := make(map[int64]struct{}, len(in.Items))
	for i, it := range in.Items {
		if it.ProductID <= 0 {
			fe.add(fmt.Sprintf("items.%d.product_id", i), fmt.Sprintf("The items.%d.product_id field is required.", i))
		} else if _, dup := seen[it.ProductID]; dup {
			//同じ商品の重複行は受け付けない（unique(order_id, product_id)を先に守る）
			fe.add(fmt.Sprintf("items.%d.product_id", i), fmt.Sprintf("The items.%d.product_id field has a duplicate value.", i))
		} else {
			seen[it.ProductID] = struct{}{}
		}

		if it.Qty < 1 {
			fe.add(fmt.Sprintf("items.%d.qty", i), fmt.Sprintf("The items.%d.qty must be at least 1.", i))
		}
	}

	if fe.any() {
		return fe.toError()
	}
	return nil
}

type OrderSummaryOutput struct {
	ID           int64     `json:"id"`
	CustomerName string    `json:"customer_name"`
	DeliveryDate string    `json:"delivery_date"`
	Total        string    `json:"total"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *OrderUsecase) ListOrders(ctx context.Context) ([]OrderSummaryOutput, error) {
	var outs []OrderSummaryOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListRecent(ctx)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderSummaryOutput, 0, len(orders))
		for _, o := range orders {
			outs = append(outs, toOrderSummaryOutput(o))
		}
		return nil
	})

	if err != nil {
		return []OrderSummaryOutput{}, err
	}
	return outs, nil
}

type OrderItemProductOutput struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type OrderItemOutput struct {
	ID        int64                  `json:"id"`
	OrderID   int64                  `json:"order_id"`
	ProductID int64                  `json:"product_id"`
	Qty       int64                  `json:"qty"`
	UnitPrice string                 `json:"unit_price"`
	Subtotal  string                 `json:"subtotal"`
	Product   OrderItemProductOutput `json:"product"`
}

type OrderDetailOutput struct {
	ID           int64             `json:"id"`
	CustomerName string            `json:"customer_name"`
	DeliveryDate string            `json:"delivery_date"`
	Total        string            `json:"total"`
	CreatedAt    time.Time         `json:"created_at"`
	Items        []OrderItemOutput `json:"items"`
}

func (u *OrderUsecase) GetOrderDetail(ctx context.Context, orderID int64) (OrderDetailOutput, error) {
	//0以下のidは存在しない注文と同じ扱い
	if orderID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusNotFound, "Pedido não encontrado")
	}

	var out OrderDetailOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "Pedido não encontrado")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outItems := make([]OrderItemOutput, 0, len(items))
		for _, it := range items {
			outItems = append(outItems, OrderItemOutput{
				ID:        it.ID,
				OrderID:   it.OrderID,
				ProductID: it.ProductID,
				Qty:       it.Qty,
				UnitPrice: it.UnitPrice.StringFixed(2),
				Subtotal:  it.Subtotal.StringFixed(2),
				Product: OrderItemProductOutput{
					ID:   it.Product.ID,
					Name: it.Product.Name,
				},
			})
		}

		out = OrderDetailOutput{
			ID:           o.ID,
			CustomerName: o.CustomerName,
			DeliveryDate: o.DeliveryDate.Format(deliveryDateLayout),
			Total:        o.Total.StringFixed(2),
			CreatedAt:    o.CreatedAt,
			Items:        outItems,
		}
		return nil
	})

	if err != nil {
		return OrderDetailOutput{}, err
	}
	return out, nil
}

func toOrderSummaryOutput(o model.Order) OrderSummaryOutput {
	return OrderSummaryOutput{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		DeliveryDate: o.DeliveryDate.Format(deliveryDateLayout),
		Total:        o.Total.StringFixed(2),
		CreatedAt:    o.CreatedAt,
	}
}
