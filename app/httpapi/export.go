package httpapi

import (
	"bytes"
	"fmt"

	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"github.com/xuri/excelize/v2"
)

const leaderboardSheet = "Leaderboard"

var (
	chartBackground = drawing.ColorFromHex("1e1f22")
	chartBar        = drawing.ColorFromHex("f0b232")
	chartText       = drawing.ColorFromHex("dbdee1")
)

// RenderLeaderboardChart draws the leaderboard as a PNG bar chart.
func RenderLeaderboardChart(entries []activityservice.LeaderboardEntry) ([]byte, error) {
	if len(entries) == 0 {
		return renderPlaceholder("No scores yet")
	}

	var top float64 = 1
	bars := make([]chart.Value, len(entries))
	for i, e := range entries {
		v := float64(e.Score)
		if v > top {
			top = v
		}
		bars[i] = chart.Value{
			Label: fmt.Sprintf("%d. %s", e.Position, e.UserID),
			Value: v,
			Style: chart.Style{FillColor: chartBar, StrokeColor: chartBar},
		}
	}

	graph := chart.BarChart{
		Title:      "Leaderboard",
		TitleStyle: chart.Style{FontColor: chartText},
		Width:      120 + 80*len(entries),
		Height:     420,
		BarWidth:   50,
		Background: chart.Style{FillColor: chartBackground, Padding: chart.Box{Top: 40}},
		Canvas:     chart.Style{FillColor: chartBackground},
		XAxis:      chart.Style{FontColor: chartText},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: chartText},
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}

	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("render leaderboard chart: %w", err)
	}
	return buf.Bytes(), nil
}

func renderPlaceholder(msg string) ([]byte, error) {
	graph := chart.Chart{
		Width:      400,
		Height:     200,
		Background: chart.Style{FillColor: chartBackground},
		Canvas:     chart.Style{FillColor: chartBackground},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(chartText)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				r.Text(msg, (cb.Width()-tb.Width())/2, (cb.Height()+tb.Height())/2)
			},
		},
	}
	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderLeaderboardSheet exports the leaderboard as an xlsx workbook.
func RenderLeaderboardSheet(entries []activityservice.LeaderboardEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leaderboardSheet); err != nil {
		return nil, err
	}
	header := []any{"Position", "User ID", "Score", "Rank"}
	if err := f.SetSheetRow(leaderboardSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{e.Position, string(e.UserID), e.Score, e.Tier}
		if err := f.SetSheetRow(leaderboardSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(leaderboardSheet, "B", "B", 24); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write leaderboard workbook: %w", err)
	}
	return buf.Bytes(), nil
}
