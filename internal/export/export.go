// Package export writes canonical tables to spreadsheet workbooks for
// analysts who live outside the database.
package export

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/mandi-pipeline/internal/model"
	"github.com/sells-group/mandi-pipeline/internal/store"
)

// Exporter writes canonical price and arrival rows to xlsx files.
type Exporter struct {
	store store.Store
	log   *zap.Logger
}

func New(st store.Store) *Exporter {
	return &Exporter{
		store: st,
		log:   zap.L().With(zap.String("component", "export")),
	}
}

var priceHeader = []string{
	"Report Date", "Source", "State", "District", "Market", "Commodity",
	"Code", "Min Price", "Max Price", "Modal Price", "Unit",
}

var arrivalHeader = []string{
	"Report Date", "Source", "State", "Market", "Commodity", "Code",
	"Quantity", "Unit",
}

// Write saves all canonical prices and arrivals in [from, to] (optionally
// filtered by commodity name) into a two-sheet workbook at path. Returns
// the price and arrival row counts.
func (e *Exporter) Write(ctx context.Context, from, to, commodity, path string) (int, int, error) {
	prices, err := e.store.PricesByRange(ctx, from, to, commodity)
	if err != nil {
		return 0, 0, eris.Wrap(err, "export: read prices")
	}
	arrivals, err := e.store.ArrivalsByRange(ctx, from, to, commodity)
	if err != nil {
		return 0, 0, eris.Wrap(err, "export: read arrivals")
	}

	f := xlsx.NewFile()
	if err := addPriceSheet(f, prices); err != nil {
		return 0, 0, err
	}
	if err := addArrivalSheet(f, arrivals); err != nil {
		return 0, 0, err
	}

	if err := f.Save(path); err != nil {
		return 0, 0, eris.Wrapf(err, "export: save %s", path)
	}
	e.log.Info("workbook written",
		zap.String("path", path),
		zap.Int("prices", len(prices)),
		zap.Int("arrivals", len(arrivals)),
	)
	return len(prices), len(arrivals), nil
}

func addPriceSheet(f *xlsx.File, prices []model.PriceRecord) error {
	sheet, err := f.AddSheet("Prices")
	if err != nil {
		return eris.Wrap(err, "export: add prices sheet")
	}
	addHeader(sheet, priceHeader)
	for _, p := range prices {
		row := sheet.AddRow()
		for _, v := range []string{p.ReportDate, string(p.Source), p.State, p.District, p.Market, p.Commodity, p.Code} {
			row.AddCell().SetString(v)
		}
		row.AddCell().SetFloat(p.MinPrice)
		row.AddCell().SetFloat(p.MaxPrice)
		row.AddCell().SetFloat(p.ModalPrice)
		row.AddCell().SetString(p.Unit)
	}
	return nil
}

func addArrivalSheet(f *xlsx.File, arrivals []model.ArrivalRecord) error {
	sheet, err := f.AddSheet("Arrivals")
	if err != nil {
		return eris.Wrap(err, "export: add arrivals sheet")
	}
	addHeader(sheet, arrivalHeader)
	for _, a := range arrivals {
		row := sheet.AddRow()
		for _, v := range []string{a.ReportDate, string(a.Source), a.State, a.Market, a.Commodity, a.Code} {
			row.AddCell().SetString(v)
		}
		row.AddCell().SetFloat(a.Quantity)
		row.AddCell().SetString(a.Unit)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, header []string) {
	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}
}
