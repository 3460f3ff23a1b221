package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"cot-sentiment/internal/domain"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("9"))
)

// Write renders r in the given format.
func Write(w io.Writer, r *domain.RunReport, format string) error {
	switch strings.ToLower(format) {
	case "", FormatTable:
		_, err := io.WriteString(w, RenderTable(r)+"\n")
		return err
	case FormatJSON:
		return WriteJSON(w, r)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderTable prints a summary header followed by one row per horizon.
func RenderTable(r *domain.RunReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", r.Name, r.Symbol)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "classifier %s, features %s, trim %s, split %.2f\n",
		r.Classifier, r.FeatureSpec, r.TrimMode, r.SplitRatio)
	if r.From != nil && r.To != nil {
		fmt.Fprintf(&b, "%d rows from %s to %s\n", r.Rows,
			r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
	} else {
		fmt.Fprintf(&b, "%d rows\n", r.Rows)
	}

	failed := make(map[int]bool)
	rows := make([][]string, 0, len(r.Results))
	for i, res := range r.Results {
		if res.Failed {
			failed[i] = true
			rows = append(rows, []string{strconv.Itoa(res.Horizon), "-", "-", "-", "-", "-", "-", res.Error})
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(res.Horizon),
			metric(res.F1),
			metric(res.Accuracy),
			metric(res.Precision),
			metric(res.Recall),
			metric(res.AUC),
			fmt.Sprintf("%d/%d", res.TrainRows, res.TestRows),
			"",
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Horizon", "F1", "Accuracy", "Precision", "Recall", "AUC", "Train/Test", "Error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case failed[row]:
				return failStyle
			default:
				return cellStyle
			}
		})
	b.WriteString(t.Render())
	return b.String()
}

// RenderCoefficients lists fitted weights per horizon, sorted by name.
func RenderCoefficients(r *domain.RunReport) string {
	var b strings.Builder
	for _, res := range r.Results {
		if res.Failed || len(res.Coefficients) == 0 {
			continue
		}
		names := make([]string, 0, len(res.Coefficients))
		for name := range res.Coefficients {
			names = append(names, name)
		}
		sort.Strings(names)
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{name, fmt.Sprintf("%+.4f", res.Coefficients[name])})
		}
		b.WriteString(titleStyle.Render(fmt.Sprintf("horizon %d", res.Horizon)))
		b.WriteString("\n")
		b.WriteString(table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Feature", "Weight").
			Rows(rows...).
			StyleFunc(plainStyle).
			Render())
		b.WriteString("\n")
	}
	return b.String()
}

func RenderCommodities(list []domain.Commodity) string {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		start := ""
		if c.StartDate != nil {
			start = c.StartDate.Format("2006-01-02")
		}
		rows = append(rows, []string{c.Symbol, c.Name, c.PositioningDataset, c.PriceDataset, c.PriceField, start})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Symbol", "Name", "Positioning", "Price", "Field", "Start").
		Rows(rows...).
		StyleFunc(plainStyle).
		Render()
}

func plainStyle(row, col int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}

func metric(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
