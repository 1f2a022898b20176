package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/spf13/cast"

	"basic-cleaning/models"
	"basic-cleaning/utils"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Cleaner filters a listings table by price and location and normalises last_review.
type Cleaner struct {
	logger *utils.Logger
	box    models.BoundingBox
}

// NewCleaner creates a Cleaner bound to the NYC bounding box.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger, box: models.NYCBoundingBox}
}

// Clean runs the price filter, the last_review normalisation and the location
// filter, in that order. The input table is not modified.
func (c *Cleaner) Clean(df dataframe.DataFrame, prices models.PriceRange) (dataframe.DataFrame, *models.CleaningReport, error) {
	report := &models.CleaningReport{RowsIn: df.Nrow()}

	// Reject bad numeric cells anywhere in the table, not only in rows that
	// survive the first filter, so the outcome does not depend on filter order.
	for _, col := range []string{models.ColPrice, models.ColLongitude, models.ColLatitude} {
		if _, err := numericColumn(df, col); err != nil {
			return dataframe.DataFrame{}, nil, err
		}
	}

	if prices.Inverted() {
		c.logger.Warn("[cleaner] min_price %d > max_price %d: every row will be dropped", prices.Min, prices.Max)
	}

	out, err := c.FilterPrice(df, prices)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	report.DroppedByPrice = df.Nrow() - out.Nrow()

	out, report.UnparseableDates, err = c.NormaliseLastReview(out)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}

	before := out.Nrow()
	out, err = c.FilterLocation(out)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	report.DroppedByLocation = before - out.Nrow()
	report.RowsOut = out.Nrow()

	c.logger.Info("[cleaner] Cleaned %d → %d listings (price: -%d, location: -%d, unparseable dates: %d)",
		report.RowsIn, report.RowsOut, report.DroppedByPrice, report.DroppedByLocation, report.UnparseableDates)
	return out, report, nil
}

// FilterPrice keeps rows whose price lies in the closed range. Empty prices are dropped.
func (c *Cleaner) FilterPrice(df dataframe.DataFrame, r models.PriceRange) (dataframe.DataFrame, error) {
	prices, err := numericColumn(df, models.ColPrice)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return keepRows(df, func(i int) bool { return r.Contains(prices[i]) })
}

// FilterLocation keeps rows inside the bounding box. Empty coordinates are dropped.
func (c *Cleaner) FilterLocation(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	lons, err := numericColumn(df, models.ColLongitude)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	lats, err := numericColumn(df, models.ColLatitude)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return keepRows(df, func(i int) bool { return c.box.Contains(lons[i], lats[i]) })
}

// NormaliseLastReview rewrites last_review in canonical form. Values that do
// not parse become empty; their rows are kept. It returns how many non-empty
// values could not be parsed.
//
// The whole column shares one layout: date only when every parsed value is at
// midnight, date and time otherwise.
func (c *Cleaner) NormaliseLastReview(df dataframe.DataFrame) (dataframe.DataFrame, int, error) {
	col := df.Col(models.ColLastReview)
	if col.Err != nil {
		return dataframe.DataFrame{}, 0, &models.ParseError{Column: models.ColLastReview, Err: col.Err}
	}

	raw := col.Records()
	times := make([]time.Time, len(raw))
	valid := make([]bool, len(raw))
	dateOnly := true
	unparseable := 0

	for i, v := range raw {
		t, ok, empty := parseReviewDate(v)
		if !ok {
			if !empty {
				unparseable++
				c.logger.Debug("[cleaner] Unparseable last_review %q nulled", v)
			}
			continue
		}
		times[i], valid[i] = t, true
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
			dateOnly = false
		}
	}

	layout := dateLayout
	if !dateOnly {
		layout = dateTimeLayout
	}
	out := make([]string, len(raw))
	for i := range raw {
		if valid[i] {
			out[i] = times[i].Format(layout)
		}
	}

	mutated := df.Mutate(series.New(out, series.String, models.ColLastReview))
	if mutated.Err != nil {
		return dataframe.DataFrame{}, 0, fmt.Errorf("cleaner: rewrite last_review: %w", mutated.Err)
	}
	return mutated, unparseable, nil
}

func parseReviewDate(raw string) (t time.Time, ok, empty bool) {
	v := strings.TrimSpace(raw)
	if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "nat") {
		return time.Time{}, false, true
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}, false, false
	}
	return t, true, false
}

// numericColumn parses a column as float64. Empty and NaN cells become NaN,
// which no closed-interval predicate accepts.
func numericColumn(df dataframe.DataFrame, name string) ([]float64, error) {
	col := df.Col(name)
	if col.Err != nil {
		return nil, &models.ParseError{Column: name, Err: col.Err}
	}

	records := col.Records()
	values := make([]float64, len(records))
	for i, raw := range records {
		v := strings.TrimSpace(raw)
		if v == "" || strings.EqualFold(v, "nan") {
			values[i] = math.NaN()
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, &models.ParseError{Column: name, Err: fmt.Errorf("value %q is not numeric", raw)}
		}
		values[i] = f
	}
	return values, nil
}

// keepRows returns the rows for which keep is true, in their original order.
func keepRows(df dataframe.DataFrame, keep func(i int) bool) (dataframe.DataFrame, error) {
	n := df.Nrow()
	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	if len(idx) == n {
		return df, nil
	}

	out := df.Subset(idx)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("cleaner: subset rows: %w", out.Err)
	}
	return out, nil
}
