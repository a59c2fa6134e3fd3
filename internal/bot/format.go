package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"oceanbot/internal/aggregate"
	"oceanbot/internal/model"
)

func usd(v float64) string {
	if v == 0 {
		return "n/a"
	}
	if v < 1 {
		return "$" + humanize.FtoaWithDigits(v, 6)
	}
	return "$" + humanize.CommafWithDigits(v, 2)
}

func percent(v float64) string {
	return humanize.CommafWithDigits(v, 2) + "%"
}

func updated(lastFetched int64, now time.Time) string {
	if lastFetched == 0 {
		return "never updated"
	}
	return "updated " + humanize.RelTime(time.Unix(lastFetched, 0), now, "ago", "from now")
}

// formatOceanList renders the list view. With indexed set every ocean gets
// its /o<N> shortcut.
func formatOceanList(res aggregate.Result, indexed bool, now time.Time) string {
	if len(res.Infos) == 0 {
		return textNoOceans + "\n<i>" + updated(res.LastFetched, now) + "</i>"
	}
	var b strings.Builder
	b.WriteString("<b>Active oceans</b>\n\n")
	for i, info := range res.Infos {
		fmt.Fprintf(&b, "<b>%s</b>", html.EscapeString(info.Name))
		if indexed {
			fmt.Fprintf(&b, " /o%d", i+1)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Stake %s, earn %s\n", html.EscapeString(info.DepositToken), html.EscapeString(info.EarningToken))
		fmt.Fprintf(&b, "APR %s · TVL %s\n\n", percent(info.APR), usd(info.TVL))
	}
	fmt.Fprintf(&b, "<i>%s</i>", updated(res.LastFetched, now))
	if res.CurrentlyFetching {
		b.WriteString("\n" + textRefreshing)
	}
	return b.String()
}

// formatOceanDetail renders one ocean. delta is an optional deposit amount
// for the projected APR; zero omits the projection.
func formatOceanDetail(info model.OceanInfo, delta float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(info.Name))
	fmt.Fprintf(&b, "Pool: <code>%s</code>\n\n", html.EscapeString(info.Address))
	fmt.Fprintf(&b, "Total staked: %s %s\n", info.TotalStaked.StringFixed(4), html.EscapeString(info.DepositToken))
	fmt.Fprintf(&b, "%s price: %s\n", html.EscapeString(info.DepositToken), usd(info.DepositTokenPrice))
	fmt.Fprintf(&b, "%s price: %s\n", html.EscapeString(info.EarningToken), usd(info.RewardTokenPrice))
	fmt.Fprintf(&b, "Reward per block: %s %s\n", info.RewardPerBlock.String(), html.EscapeString(info.EarningToken))
	fmt.Fprintf(&b, "Rewards remaining: %s %s\n", info.RewardsRemaining.StringFixed(2), html.EscapeString(info.EarningToken))
	fmt.Fprintf(&b, "Ends in %s blocks\n\n", humanize.Comma(info.EndOffset))
	fmt.Fprintf(&b, "TVL: %s\n", usd(info.TVL))
	fmt.Fprintf(&b, "APR: %s", percent(info.APR))
	if delta > 0 {
		fmt.Fprintf(&b, "\nAPR after depositing %s %s: %s",
			humanize.CommafWithDigits(delta, 4), html.EscapeString(info.DepositToken), percent(aggregate.ProjectAPR(info, delta)))
	}
	return b.String()
}

func formatPositions(user model.UserProfile) string {
	if len(user.Positions) == 0 {
		return fmt.Sprintf(textNoPositions, html.EscapeString(user.Wallet))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Positions of</b> <code>%s</code>\n\n", html.EscapeString(user.Wallet))
	total := 0.0
	for _, p := range user.Positions {
		fmt.Fprintf(&b, "<b>%s</b>: %s %s (%s)\n", html.EscapeString(p.Name), p.Staked.StringFixed(4), html.EscapeString(p.DepositToken), usd(p.ValueUSD))
		total += p.ValueUSD
	}
	fmt.Fprintf(&b, "\nTotal: %s", usd(total))
	return b.String()
}
