package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	reportsDir = "reports"
	extension  = ".xls"
)

var (
	ErrMissingQuery = errors.New("date, exchange and pair are required")
	ErrInvalidQuery = errors.New("query contains path characters")
	ErrNotFound     = errors.New("no such report")
)

type Query struct {
	Date     string
	Exchange string
	Pair     string
}

type Located struct {
	Path string `json:"reportPath"`
	Name string `json:"reportName"`
}

// Key is the per-client directory and file prefix, e.g. BINANCE_BTCUSDT.
func Key(exchange, pair string) string {
	return strings.ToUpper(exchange) + "_" + strings.ToUpper(pair)
}

func FileName(exchange, pair, date string) string {
	return Key(exchange, pair) + "_" + date + extension
}

// Dir is the directory, relative to the report root, holding every report
// for the exchange/pair.
func Dir(exchange, pair string) string {
	return filepath.Join(reportsDir, Key(exchange, pair))
}

func Path(root, exchange, pair, date string) string {
	return filepath.Join(root, Dir(exchange, pair), FileName(exchange, pair, date))
}

// Lookup validates q and checks that the report exists below root.
func Lookup(root string, q Query) (Located, error) {
	q.Date = strings.TrimSpace(q.Date)
	q.Exchange = strings.TrimSpace(q.Exchange)
	q.Pair = strings.TrimSpace(q.Pair)
	if q.Date == "" || q.Exchange == "" || q.Pair == "" {
		return Located{}, ErrMissingQuery
	}
	for _, v := range []string{q.Date, q.Exchange, q.Pair} {
		if strings.ContainsAny(v, `/\`) || strings.Contains(v, "..") {
			return Located{}, ErrInvalidQuery
		}
	}
	loc := Located{
		Path: Path(root, q.Exchange, q.Pair, q.Date),
		Name: FileName(q.Exchange, q.Pair, q.Date),
	}
	info, err := os.Stat(loc.Path)
	if err != nil || info.IsDir() {
		return Located{}, ErrNotFound
	}
	return loc, nil
}
