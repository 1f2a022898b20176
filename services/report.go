package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"basic-cleaning/models"
	"basic-cleaning/utils"
)

// ReportService fills in the statistics of a cleaning report and prints it.
type ReportService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewReportService(logger *utils.Logger) *ReportService {
	return NewReportServiceTo(logger, os.Stdout)
}

func NewReportServiceTo(logger *utils.Logger, out io.Writer) *ReportService {
	return &ReportService{logger: logger, out: out}
}

// Summarise computes price statistics and per-group counts over the cleaned table.
func (s *ReportService) Summarise(df dataframe.DataFrame, report *models.CleaningReport) {
	report.ListingsByGroup = make(map[string]int)
	if df.Nrow() == 0 {
		return
	}

	prices, err := numericColumn(df, models.ColPrice)
	if err != nil {
		s.logger.Warn("[report] Skipping price statistics: %v", err)
	} else {
		report.MinPrice = prices[0]
		report.MaxPrice = prices[0]
		var total float64
		for _, p := range prices {
			total += p
			if p < report.MinPrice {
				report.MinPrice = p
			}
			if p > report.MaxPrice {
				report.MaxPrice = p
			}
		}
		report.AveragePrice = round2(total / float64(len(prices)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	if !hasColumn(df, models.ColNeighbourhoodGroup) {
		return
	}
	for _, g := range df.Col(models.ColNeighbourhoodGroup).Records() {
		if g = strings.TrimSpace(g); g != "" {
			report.ListingsByGroup[g]++
		}
	}
}

func (s *ReportService) Print(r *models.CleaningReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)
	w := s.out

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  BASIC CLEANING REPORT\n")
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "  Rows\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Read                   : %d\n", r.RowsIn)
	fmt.Fprintf(w, "  Dropped by price       : %d\n", r.DroppedByPrice)
	fmt.Fprintf(w, "  Dropped by location    : %d\n", r.DroppedByLocation)
	fmt.Fprintf(w, "  Unparseable dates      : %d\n", r.UnparseableDates)
	fmt.Fprintf(w, "  Written                : %d\n\n", r.RowsOut)

	fmt.Fprintf(w, "  Price Statistics (per night)\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.RowsOut > 0 {
		fmt.Fprintf(w, "  Average price : $%.2f\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : $%.2f\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : $%.2f\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Listings by Neighbourhood Group\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByGroup) == 0 {
		fmt.Fprintf(w, "  No group data\n")
	} else {
		type groupCount struct {
			group string
			count int
		}
		groups := make([]groupCount, 0, len(r.ListingsByGroup))
		for g, n := range r.ListingsByGroup {
			groups = append(groups, groupCount{g, n})
		}
		sort.Slice(groups, func(i, j int) bool {
			if groups[i].count != groups[j].count {
				return groups[i].count > groups[j].count
			}
			return groups[i].group < groups[j].group
		})
		for _, gc := range groups {
			fmt.Fprintf(w, "  %-30s %d\n", truncate(gc.group, 28), gc.count)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", sep)
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
