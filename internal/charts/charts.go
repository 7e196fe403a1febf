package charts

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/ivanoskov/wallet_sessions/internal/service"
)

// ChartGenerator renders session reports as PNG images.
// Every method returns nil, nil when there is nothing to draw.
type ChartGenerator struct{}

func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{}
}

// calculateMovingAverage averages each value with up to window-1 predecessors.
func calculateMovingAverage(values []float64, window int) []float64 {
	result := make([]float64, len(values))
	for i := range values {
		count := 0
		sum := 0.0
		for j := max(0, i-window+1); j <= i; j++ {
			sum += values[j]
			count++
		}
		result[i] = sum / float64(count)
	}
	return result
}

// GenerateSpendingShare draws each participant's share of the session's expenses.
func (g *ChartGenerator) GenerateSpendingShare(report *service.SessionReport) ([]byte, error) {
	values := make([]chart.Value, 0, len(report.Shares))
	for _, s := range report.Shares {
		// Slivers under 1% are unreadable.
		if s.Amount <= 0 || s.Share <= 1.0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %.2f (%.1f%%)", s.Label(), s.Amount, s.Share),
			Value: s.Amount,
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		})
	}
	if len(values) == 0 {
		return nil, nil
	}

	pie := chart.PieChart{
		Title:  "Spending by participant",
		Width:  800,
		Height: 800,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render spending share chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// GenerateSpendingTimeline draws daily spending with a 7-day moving average.
// It needs at least two distinct days.
func (g *ChartGenerator) GenerateSpendingTimeline(report *service.SessionReport) ([]byte, error) {
	if len(report.Daily) < 2 {
		return nil, nil
	}

	xValues := make([]time.Time, len(report.Daily))
	amounts := make([]float64, len(report.Daily))
	cumulative := make([]float64, len(report.Daily))
	running := 0.0
	nonZero := false
	for i, day := range report.Daily {
		xValues[i] = day.Date
		amounts[i] = day.Amount
		running += day.Amount
		cumulative[i] = running
		if day.Amount != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		return nil, nil
	}
	average := calculateMovingAverage(amounts, 7)

	graph := chart.Chart{
		Width:  1200,
		Height: 600,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02.01"),
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Daily spending",
				XValues: xValues,
				YValues: amounts,
				Style: chart.Style{
					StrokeColor: chart.ColorRed,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "Running total",
				XValues: xValues,
				YValues: cumulative,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 3,
				},
			},
			chart.TimeSeries{
				Name:    "Trend (7 days)",
				XValues: xValues,
				YValues: average,
				Style: chart.Style{
					StrokeColor:     chart.ColorRed.WithAlpha(100),
					StrokeWidth:     2,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(&graph, chart.Style{
			FontSize:  12,
			FontColor: chart.ColorBlack,
		}),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render spending timeline: %w", err)
	}
	return buffer.Bytes(), nil
}

// GenerateParticipantBalance compares the running total_spent of each participant.
func (g *ChartGenerator) GenerateParticipantBalance(report *service.SessionReport) ([]byte, error) {
	bars := make([]chart.Value, 0, len(report.Details.Participants))
	low, high := 0.0, 0.0
	for _, p := range report.Details.Participants {
		label := p.Name
		if label == "" {
			label = p.WalletAddress
		}
		fill := chart.ColorGreen
		if !p.Joined {
			fill = chart.ColorGreen.WithAlpha(100)
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s: %.0f", label, p.TotalSpent),
			Value: p.TotalSpent,
			Style: chart.Style{
				StrokeColor: chart.ColorGreen,
				FillColor:   fill,
				FontSize:    12,
				FontColor:   chart.ColorBlack,
			},
		})
		low = min(low, p.TotalSpent)
		high = max(high, p.TotalSpent)
	}
	if low == high {
		return nil, nil
	}

	graph := chart.BarChart{
		Title: "Spent per participant",
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    1200,
		Height:   600,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: low, Max: high},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render participant balance chart: %w", err)
	}
	return buffer.Bytes(), nil
}
