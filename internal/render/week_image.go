// Package render draws a studio's availability week as a PNG grid.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type fontStyle int

const (
	fontRegular fontStyle = iota
	fontBold
)

const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 110
	leftLabelsWidth  = 80
	legendWidth      = 140
	dayPaddingX      = 8
	cellPaddingY     = 3
	cellBorderRadius = 6.0
	shadowOffset     = 3.0
	totalDaysInWeek  = 7
)

const (
	titleFontSize      = 25.0
	dayFontSize        = 24.0
	hourLabelFontSize  = 18.0
	cellFontSize       = 16.0
	legendItemFontSize = 13.0
)

var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 220}
	hourLabelColor = color.RGBA{110, 115, 120, 200}
	todayBgColor   = color.NRGBA{255, 99, 71, 90}
	evenDayColor   = color.NRGBA{240, 240, 240, 255}
	oddDayColor    = color.NRGBA{225, 225, 225, 255}

	cellAvailableColor = color.RGBA{133, 193, 85, 220}
	cellBookedColor    = color.RGBA{255, 182, 193, 255}
	cellPastColor      = color.RGBA{190, 190, 190, 200}
	cellTextColor      = color.RGBA{20, 24, 28, 230}
	cellBookedText     = color.RGBA{120, 40, 50, 255}
	cellShadowColor    = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

var (
	fontsOnce   sync.Once
	parsedFonts map[fontStyle]*opentype.Font
)

func parseFonts() {
	parsedFonts = make(map[fontStyle]*opentype.Font)
	if f, err := opentype.Parse(goregular.TTF); err == nil {
		parsedFonts[fontRegular] = f
	}
	if f, err := opentype.Parse(gobold.TTF); err == nil {
		parsedFonts[fontBold] = f
	}
}

// loadFont sets a Go font face of the given size, falling back to basicfont.
func loadFont(dc *gg.Context, size float64, style fontStyle) {
	fontsOnce.Do(parseFonts)

	if f, ok := parsedFonts[style]; ok {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

// WeekImage renders the grid. now marks today's column.
func WeekImage(grid *service.WeekGrid, studioName string, now time.Time) ([]byte, error) {
	if grid == nil || len(grid.Days) != totalDaysInWeek {
		return nil, fmt.Errorf("render week: expected %d days", totalDaysInWeek)
	}

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(len(model.SlotTimes))
	today := now.In(grid.Start.Location()).Format(model.DateLayout)

	drawHeader(dc, grid, studioName)
	drawSlotLabels(dc, cellHeight)
	for i, day := range grid.Days {
		x := float64(leftLabelsWidth + i*dayWidth)
		drawDayBackground(dc, x, dayWidth, dayHeight, i, day.Date == today)
		drawDayHeader(dc, grid.Start.AddDate(0, 0, i), x, dayWidth)
		for j, cell := range day.Cells {
			drawCell(dc, cell, x, float64(headerHeight)+float64(j)*cellHeight, dayWidth, cellHeight)
		}
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawHeader(dc *gg.Context, grid *service.WeekGrid, studioName string) {
	end := grid.Start.AddDate(0, 0, totalDaysInWeek-1)
	title := fmt.Sprintf("%s · %s - %s", studioName, grid.Start.Format("Jan 2"), end.Format("Jan 2, 2006"))

	loadFont(dc, titleFontSize, fontBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, 16, float64(headerHeight)/4, 0, 0.5)
}

func drawSlotLabels(dc *gg.Context, cellHeight float64) {
	loadFont(dc, hourLabelFontSize, fontRegular)
	dc.SetColor(hourLabelColor)

	for i, slot := range model.SlotTimes {
		y := float64(headerHeight) + float64(i)*cellHeight + cellHeight/2
		dc.DrawStringAnchored(slot, float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, float64(headerHeight), float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date time.Time, x float64, dayWidth int) {
	loadFont(dc, dayFontSize, fontBold)
	dc.SetColor(textColor)
	cx := x + float64(dayWidth)/2
	dc.DrawStringAnchored(date.Format("02.01"), cx, float64(headerHeight)-36, 0.5, 0.5)
	dc.DrawStringAnchored(date.Format("Mon"), cx, float64(headerHeight)-12, 0.5, 0.5)
}

func drawCell(dc *gg.Context, cell service.SlotCell, x, y float64, dayWidth int, cellHeight float64) {
	fill := cellColor(cell.State)
	w := float64(dayWidth) - float64(dayPaddingX*2)
	h := cellHeight - float64(cellPaddingY*2)
	left := x + float64(dayPaddingX)
	top := y + float64(cellPaddingY)

	dc.SetColor(cellShadowColor)
	dc.DrawRoundedRectangle(left+shadowOffset, top+shadowOffset, w, h, cellBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(left, top, w, h, cellBorderRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(left, top, w, h, cellBorderRadius)
	dc.Stroke()

	txt := cellTextColor
	if cell.State == service.CellBooked {
		txt = cellBookedText
	}
	loadFont(dc, cellFontSize, fontRegular)
	dc.SetColor(txt)
	dc.DrawStringAnchored(cell.Time, left+8, top+h/2, 0, 0.5)
}

func cellColor(state service.CellState) color.RGBA {
	switch state {
	case service.CellAvailable:
		return cellAvailableColor
	case service.CellBooked:
		return cellBookedColor
	default:
		return cellPastColor
	}
}

func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawLegend(dc *gg.Context, dayWidth int) {
	x := float64(leftLabelsWidth + totalDaysInWeek*dayWidth + 12)
	y := float64(imageHeight) - 110.0

	items := []struct {
		Label string
		Clr   color.Color
	}{
		{"Available", cellAvailableColor},
		{"Booked", cellBookedColor},
		{"Past", cellPastColor},
	}

	const boxW, boxH = 20.0, 14.0
	for _, item := range items {
		dc.SetColor(item.Clr)
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()

		loadFont(dc, legendItemFontSize, fontRegular)
		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.Label, x+boxW+8, y+boxH/2, 0, 0.5)
		y += boxH + 14
	}
}
