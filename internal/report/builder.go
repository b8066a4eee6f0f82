package report

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"trade-reporter/internal/model"
	"trade-reporter/internal/types"
)

var ErrUnknownStrategy = errors.New("unknown strategy type")

const (
	AccountPrimary   = "Primary"
	AccountSecondary = "Secondary"
)

type Column struct {
	Header string
	Key    string
	Width  float64
}

// Columns is the fixed layout shared by every sheet.
var Columns = []Column{
	{Header: "Order Id", Key: "orderId", Width: 40},
	{Header: "Date", Key: "createdAt", Width: 30},
	{Header: "Symbol", Key: "symbol", Width: 15},
	{Header: "Fill Price", Key: "fillPrice", Width: 10},
	{Header: "Fill Amount", Key: "fillQuantity", Width: 10},
	{Header: "Price", Key: "price", Width: 10},
	{Header: "Amount", Key: "quantity", Width: 10},
	{Header: "Status", Key: "status", Width: 10},
	{Header: "Strategy Type", Key: "strategyType", Width: 10},
	{Header: "Total Price", Key: "totalPrice", Width: 10},
	{Header: "Txn Fees", Key: "transactionFee", Width: 15},
	{Header: "Fee Currency", Key: "feeType", Width: 10},
	{Header: "Side", Key: "type", Width: 10},
	{Header: "Account", Key: "accountUsed", Width: 15},
}

var sheetNames = map[types.StrategyType]string{
	types.StrategyVolume:    "Volume",
	types.StrategyBulkOrder: "BulkOrder",
	types.StrategySpread:    "Spread",
}

// Row is the flattened projection of a filled order. Decimal fields are nil
// when the order did not carry them.
type Row struct {
	OrderID        string
	CreatedAt      string
	Symbol         string
	FillPrice      *decimal.Decimal
	FillQuantity   *decimal.Decimal
	Price          *decimal.Decimal
	Quantity       *decimal.Decimal
	Status         string
	StrategyType   string
	TotalPrice     *decimal.Decimal
	TransactionFee *decimal.Decimal
	FeeType        string
	Side           string
	AccountUsed    string
}

// Values returns the cells in Columns order. Decimals become float64 so the
// spreadsheet stores them as numbers, unless the float cannot hold every
// digit, in which case the exact decimal text is written instead.
func (r Row) Values() []any {
	return []any{
		r.OrderID,
		r.CreatedAt,
		r.Symbol,
		cell(r.FillPrice),
		cell(r.FillQuantity),
		cell(r.Price),
		cell(r.Quantity),
		r.Status,
		r.StrategyType,
		cell(r.TotalPrice),
		cell(r.TransactionFee),
		r.FeeType,
		r.Side,
		r.AccountUsed,
	}
}

func cell(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	if !decimal.NewFromFloat(f).Equal(*d) {
		return d.String()
	}
	return f
}

type Sheet struct {
	Name       string
	Strategy   types.StrategyType
	Columns    []Column
	Rows       []Row
	BoldHeader bool
}

type Workbook struct {
	Sheets []*Sheet
}

func (w *Workbook) Sheet(strategy types.StrategyType) *Sheet {
	for _, s := range w.Sheets {
		if s.Strategy == strategy {
			return s
		}
	}
	return nil
}

// NewRow projects a single order.
func NewRow(o model.Order) Row {
	account := AccountPrimary
	if o.SecondaryAccount() {
		account = AccountSecondary
	}
	return Row{
		OrderID:        o.OrderID,
		CreatedAt:      o.CreatedAt.String(),
		Symbol:         o.Symbol(),
		FillPrice:      unwrap(o.FillPrice),
		FillQuantity:   unwrap(o.FillQuantity),
		Price:          unwrap(o.Price),
		Quantity:       unwrap(o.Quantity),
		Status:         string(o.Status),
		StrategyType:   string(o.StrategyType),
		TotalPrice:     unwrap(o.TotalPrice),
		TransactionFee: unwrap(o.TransactionFee),
		FeeType:        o.FeeType,
		Side:           string(o.Type),
		AccountUsed:    account,
	}
}

func unwrap(d model.Decimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// Build classifies filled orders by strategy and lays them out as one sheet
// per strategy. Any filled order with a strategy outside the known set fails
// the whole report.
func Build(orders []model.Order) (*Workbook, error) {
	buckets := make(map[types.StrategyType][]Row, len(types.Strategies))
	for _, s := range types.Strategies {
		buckets[s] = []Row{}
	}
	for i, o := range orders {
		if !o.Filled() {
			continue
		}
		rows, ok := buckets[o.StrategyType]
		if !ok {
			return nil, fmt.Errorf("order %d (%s): %w %q", i, o.OrderID, ErrUnknownStrategy, o.StrategyType)
		}
		buckets[o.StrategyType] = append(rows, NewRow(o))
	}
	wb := &Workbook{}
	for _, s := range types.Strategies {
		wb.Sheets = append(wb.Sheets, &Sheet{
			Name:       sheetNames[s],
			Strategy:   s,
			Columns:    Columns,
			Rows:       buckets[s],
			BoldHeader: true,
		})
	}
	return wb, nil
}
