package notifier

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"StockForecaster/internal/model"
)

var tagPattern = regexp.MustCompile(`</?[a-z]+>`)

// StripTags removes the HTML markup used by the Telegram formatter.
func StripTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}

func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func percent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

// FormatForecast formats a forecast for source. Markup is limited to <b> tags.
func FormatForecast(source string, fc *model.Forecast) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>%s</b> | %s records", source, humanize.Comma(int64(fc.Records))))
	if fc.TargetDate != "" {
		b.WriteString(fmt.Sprintf(", latest %s", fc.TargetDate))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Monte Carlo expected price: <b>%s</b> (last %s, 90%% band %s to %s)\n",
		price(fc.ExpectedPrice), price(fc.LastPrice), price(fc.PriceLow), price(fc.PriceHigh)))
	b.WriteString(fmt.Sprintf("  %s trials over %d days, drift %.6f, variance %.6f\n",
		humanize.Comma(int64(fc.Trials)), fc.Days, fc.Drift, fc.Variance))

	if line := formatContext(fc.Context); line != "" {
		b.WriteString(line + "\n")
	}

	move := "an increase"
	if fc.Direction == model.DirectionDown {
		move = "a decrease"
	}
	b.WriteString(fmt.Sprintf("Random Forest predicts <b>%s</b> with a test accuracy of <b>%s</b>\n",
		move, percent(fc.ConfidencePercent)))

	inverted := 0
	for _, run := range fc.Runs {
		if run.Inverted {
			inverted++
		}
	}
	b.WriteString(fmt.Sprintf("  votes up %d / down %d", fc.UpVotes, fc.DownVotes))
	if inverted > 0 {
		b.WriteString(fmt.Sprintf(", %d inverted", inverted))
	}
	b.WriteString(fmt.Sprintf(", seed %d, took %s", fc.Seed, fc.Elapsed.Round(time.Millisecond)))

	return b.String()
}

func formatContext(mc model.MarketContext) string {
	var parts []string
	if mc.HasRSI {
		parts = append(parts, fmt.Sprintf("RSI(14) %.1f", mc.RSI14))
	}
	if mc.HasSMA20 {
		parts = append(parts, "SMA20 "+price(mc.SMA20))
	}
	if mc.HasSMA50 {
		parts = append(parts, "SMA50 "+price(mc.SMA50))
	}
	if mc.High52w > 0 {
		parts = append(parts, fmt.Sprintf("52w range %s to %s (at %.0f%%)",
			price(mc.Low52w), price(mc.High52w), mc.Position52w*100))
	}
	if len(parts) == 0 {
		return ""
	}
	return "History: " + strings.Join(parts, ", ")
}

// FormatFailure formats a pipeline failure for source.
func FormatFailure(source string, err error) string {
	return fmt.Sprintf("❌ <b>%s</b>: %v", source, err)
}

// FormatBatch summarizes a pass over several files.
func FormatBatch(succeeded, failed int, elapsed time.Duration, finished time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>Forecast batch</b> | %d ok, %d failed in %s\n",
		succeeded, failed, elapsed.Round(time.Millisecond)))
	b.WriteString(fmt.Sprintf("finished %s", humanize.Time(finished)))
	return b.String()
}
