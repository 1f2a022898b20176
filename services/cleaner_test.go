package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basic-cleaning/models"
	"basic-cleaning/utils"
)

func newTestLogger() *utils.Logger { return utils.Discard() }

// table builds a text-only frame the way storage.ReadListings does.
func table(t *testing.T, csv string) dataframe.DataFrame {
	t.Helper()
	df := dataframe.ReadCSV(strings.NewReader(csv),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	require.NoError(t, df.Err)
	return df
}

func csvOf(t *testing.T, df dataframe.DataFrame) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, df.WriteCSV(&buf))
	return buf.String()
}

const listingsCSV = `id,price,last_review,longitude,latitude,neighbourhood_group
1,50,2019-01-01,-73.9,40.7,Manhattan
2,5000,2019-01-01,-73.9,40.7,Manhattan
3,80,2019-05-21,-75.0,40.7,Elsewhere
4,10,not-a-date,-73.95,40.65,Brooklyn
5,100,,-73.5,41.2,Bronx
6,9,2019-01-01,-73.9,40.7,Queens
7,,2019-01-01,-73.9,40.7,Queens
8,60,2019-02-02,-74.0,40.4,Staten Island
`

func TestCleanerSampleListings(t *testing.T) {
	c := NewCleaner(newTestLogger())
	df := table(t, `price,longitude,latitude,last_review
50,-73.9,40.7,2019-01-01
5000,-73.9,40.7,2019-01-01
`)

	out, report, err := c.Clean(df, models.PriceRange{Min: 10, Max: 100})
	require.NoError(t, err)

	assert.Equal(t, "price,longitude,latitude,last_review\n50,-73.9,40.7,2019-01-01\n", csvOf(t, out))
	assert.Equal(t, 2, report.RowsIn)
	assert.Equal(t, 1, report.DroppedByPrice)
	assert.Equal(t, 1, report.RowsOut)
}

func TestCleanerPriceBoundsInclusive(t *testing.T) {
	c := NewCleaner(newTestLogger())
	df := table(t, listingsCSV)

	out, err := c.FilterPrice(df, models.PriceRange{Min: 10, Max: 100})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "3", "4", "5", "8"}, out.Col("id").Records(),
		"price == min and price == max are kept, min-1 and empty are dropped")
}

func TestCleanerLocationFilter(t *testing.T) {
	c := NewCleaner(newTestLogger())
	df := table(t, listingsCSV)

	out, err := c.FilterLocation(df)
	require.NoError(t, err)

	for _, id := range out.Col("id").Records() {
		assert.NotEqual(t, "3", id, "longitude -75.0 is outside NYC")
		assert.NotEqual(t, "8", id, "latitude 40.4 is outside NYC")
	}
	assert.Equal(t, 6, out.Nrow())
}

func TestCleanerUnparseableDateIsKept(t *testing.T) {
	c := NewCleaner(newTestLogger())
	df := table(t, listingsCSV)

	out, report, err := c.Clean(df, models.PriceRange{Min: 10, Max: 100})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "4", "5"}, out.Col("id").Records())
	assert.Equal(t, []string{"2019-01-01", "", ""}, out.Col("last_review").Records())
	assert.Equal(t, 1, report.UnparseableDates)
	assert.Equal(t, 3, report.DroppedByPrice)
	assert.Equal(t, 2, report.DroppedByLocation)
}

func TestCleanerInvariantsHold(t *testing.T) {
	c := NewCleaner(newTestLogger())
	df := table(t, listingsCSV)
	r := models.PriceRange{Min: 10, Max: 100}

	out, _, err := c.Clean(df, r)
	require.NoError(t, err)
	assert.LessOrEqual(t, out.Nrow(), df.Nrow())

	prices, err := numericColumn(out, models.ColPrice)
	require.NoError(t, err)
	lons, err := numericColumn(out, models.ColLongitude)
	require.NoError(t, err)
	lats, err := numericColumn(out, models.ColLatitude)
	require.NoError(t, err)

	for i := range prices {
		assert.True(t, r.Contains(prices[i]), "price %v out of range", prices[i])
		assert.True(t, models.NYCBoundingBox.Contains(lons[i], lats[i]), "(%v, %v) outside box", lons[i], lats[i])
	}
}

func TestCleanerFiltersCommute(t *testing.T) {
	c := NewCleaner(newTestLogger())
	df := table(t, listingsCSV)
	r := models.PriceRange{Min: 10, Max: 100}

	priceFirst, err := c.FilterPrice(df, r)
	require.NoError(t, err)
	priceFirst, err = c.FilterLocation(priceFirst)
	require.NoError(t, err)

	geoFirst, err := c.FilterLocation(df)
	require.NoError(t, err)
	geoFirst, err = c.FilterPrice(geoFirst, r)
	require.NoError(t, err)

	assert.Equal(t, csvOf(t, priceFirst), csvOf(t, geoFirst))
}

func TestCleanerIsIdempotent(t *testing.T) {
	c := NewCleaner(newTestLogger())
	r := models.PriceRange{Min: 10, Max: 100}

	once, _, err := c.Clean(table(t, listingsCSV), r)
	require.NoError(t, err)
	again, _, err := c.Clean(table(t, listingsCSV), r)
	require.NoError(t, err)
	twice, _, err := c.Clean(once, r)
	require.NoError(t, err)

	assert.Equal(t, csvOf(t, once), csvOf(t, again), "same input, same output")
	assert.Equal(t, csvOf(t, once), csvOf(t, twice), "cleaning a clean table changes nothing")
}

func TestCleanerInvertedRangeYieldsEmptyTable(t *testing.T) {
	c := NewCleaner(newTestLogger())

	out, report, err := c.Clean(table(t, listingsCSV), models.PriceRange{Min: 100, Max: 10})
	require.NoError(t, err)

	assert.Equal(t, 0, out.Nrow())
	assert.Equal(t, 0, report.RowsOut)
	assert.Equal(t, "id,price,last_review,longitude,latitude,neighbourhood_group\n", csvOf(t, out))
}

func TestCleanerNonNumericPrice(t *testing.T) {
	c := NewCleaner(newTestLogger())
	df := table(t, `price,last_review,longitude,latitude
cheap,2019-01-01,-73.9,40.7
`)

	_, _, err := c.Clean(df, models.PriceRange{Min: 10, Max: 100})

	var parseErr *models.ParseError
	require.True(t, errors.As(err, &parseErr), "got %v", err)
	assert.Equal(t, models.ColPrice, parseErr.Column)
}

func TestCleanerNonNumericCoordinateOnDroppedRow(t *testing.T) {
	c := NewCleaner(newTestLogger())
	df := table(t, `price,last_review,longitude,latitude
5000,2019-01-01,west,40.7
`)

	_, _, err := c.Clean(df, models.PriceRange{Min: 10, Max: 100})

	var parseErr *models.ParseError
	require.True(t, errors.As(err, &parseErr), "bad cells fail the run even on rows the price filter drops")
	assert.Equal(t, models.ColLongitude, parseErr.Column)
}

func TestNormaliseLastReviewFormats(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		name string
		in   []string
		want []string
		bad  int
	}{
		{
			name: "dates only",
			in:   []string{"2019-01-01", "2019-05-21T00:00:00Z", ""},
			want: []string{"2019-01-01", "2019-05-21", ""},
		},
		{
			name: "any time of day switches the column to datetime",
			in:   []string{"2019-01-01", "2019-05-21 17:30:00"},
			want: []string{"2019-01-01 00:00:00", "2019-05-21 17:30:00"},
		},
		{
			name: "unparseable and NaN become empty",
			in:   []string{"not-a-date", "NaN", "2018-12-31"},
			want: []string{"", "", "2018-12-31"},
			bad:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			df := dataframe.New(series.New(tt.in, series.String, models.ColLastReview))

			out, bad, err := c.NormaliseLastReview(df)
			require.NoError(t, err)

			assert.Equal(t, tt.want, out.Col(models.ColLastReview).Records())
			assert.Equal(t, tt.bad, bad)
		})
	}
}

func TestCleanerKeepsPassthroughColumns(t *testing.T) {
	c := NewCleaner(newTestLogger())
	df := table(t, `name,price,host_id,last_review,longitude,latitude
"Sunny, bright room",75,0042,2019-07-04,-73.99,40.73
`)

	out, _, err := c.Clean(df, models.PriceRange{Min: 10, Max: 100})
	require.NoError(t, err)

	assert.Equal(t, "name,price,host_id,last_review,longitude,latitude\n"+
		"\"Sunny, bright room\",75,0042,2019-07-04,-73.99,40.73\n", csvOf(t, out))
}
