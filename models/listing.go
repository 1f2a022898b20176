package models

// Column names the cleaning step depends on. Every other column is passed through untouched.
const (
	ColPrice              = "price"
	ColLastReview         = "last_review"
	ColLongitude          = "longitude"
	ColLatitude           = "latitude"
	ColNeighbourhoodGroup = "neighbourhood_group"
)

// RequiredColumns must be present in every input table.
var RequiredColumns = []string{ColPrice, ColLastReview, ColLongitude, ColLatitude}

// PriceRange is a closed interval on the price column.
// Min > Max is allowed and matches nothing.
type PriceRange struct {
	Min int
	Max int
}

// Contains reports whether price lies in [Min, Max]. NaN never does.
func (r PriceRange) Contains(price float64) bool {
	return price >= float64(r.Min) && price <= float64(r.Max)
}

// Inverted reports whether the range can never match.
func (r PriceRange) Inverted() bool {
	return r.Min > r.Max
}

// BoundingBox is a pair of closed intervals over longitude and latitude.
type BoundingBox struct {
	MinLongitude float64
	MaxLongitude float64
	MinLatitude  float64
	MaxLatitude  float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(longitude, latitude float64) bool {
	return longitude >= b.MinLongitude && longitude <= b.MaxLongitude &&
		latitude >= b.MinLatitude && latitude <= b.MaxLatitude
}

// NYCBoundingBox is the valid region for New York City listings. It is not configurable.
var NYCBoundingBox = BoundingBox{
	MinLongitude: -74.25,
	MaxLongitude: -73.50,
	MinLatitude:  40.5,
	MaxLatitude:  41.2,
}

// CleaningReport holds what one cleaning pass did to the table.
type CleaningReport struct {
	RowsIn            int
	DroppedByPrice    int
	DroppedByLocation int
	UnparseableDates  int
	RowsOut           int

	AveragePrice float64
	MinPrice     float64
	MaxPrice     float64

	ListingsByGroup map[string]int
}

// Summary flattens the report into the map stored on the run.
func (r *CleaningReport) Summary() map[string]any {
	groups := make(map[string]any, len(r.ListingsByGroup))
	for k, v := range r.ListingsByGroup {
		groups[k] = v
	}
	return map[string]any{
		"rows_in":             r.RowsIn,
		"dropped_by_price":    r.DroppedByPrice,
		"dropped_by_location": r.DroppedByLocation,
		"unparseable_dates":   r.UnparseableDates,
		"rows_out":            r.RowsOut,
		"average_price":       r.AveragePrice,
		"min_price":           r.MinPrice,
		"max_price":           r.MaxPrice,
		"listings_by_group":   groups,
	}
}
