package watch

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"traderwatch/internal/domain/signal"
)

// FormatOpen renders the HTML notification for a newly opened position.
func FormatOpen(sig *signal.Signal) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🟢 <b>New position: %s</b>\n\n", html.EscapeString(sig.TraderName))
	fmt.Fprintf(&sb, "%s <b>%s</b> %s\n", sideEmoji(sig.PosSide), html.EscapeString(sig.InstID), strings.ToUpper(sig.PosSide.String()))
	fmt.Fprintf(&sb, "💰 Entry: %s\n", sig.OpenPrice.String())
	fmt.Fprintf(&sb, "⚡️ Leverage: %sx\n", sig.Leverage.String())
	fmt.Fprintf(&sb, "📦 Size: %s\n", sig.Size.String())

	if !sig.OpenTime.IsZero() {
		fmt.Fprintf(&sb, "🕐 Opened: %s", humanize.Time(sig.OpenTime))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// FormatClose renders the HTML notification for a closed position.
func FormatClose(sig *signal.Signal) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🔴 <b>Position closed: %s</b>\n\n", html.EscapeString(sig.TraderName))
	fmt.Fprintf(&sb, "%s <b>%s</b> %s\n", sideEmoji(sig.PosSide), html.EscapeString(sig.InstID), strings.ToUpper(sig.PosSide.String()))
	fmt.Fprintf(&sb, "💰 Entry was: %s\n", sig.OpenPrice.String())
	fmt.Fprintf(&sb, "⚡️ Leverage: %sx", sig.Leverage.String())

	if !sig.OpenTime.IsZero() {
		fmt.Fprintf(&sb, "\n⏱ Held: %s", holdDuration(sig.OpenTime))
	}

	return sb.String()
}

func sideEmoji(side signal.PositionSide) string {
	if side == signal.PositionShort {
		return "📉"
	}
	return "📈"
}

func holdDuration(opened time.Time) string {
	d := time.Since(opened)
	if d < 0 {
		d = 0
	}

	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		days := int(d.Hours()) / 24
		return fmt.Sprintf("%dd %dh", days, int(d.Hours())%24)
	}
}
