package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/BarkinBalci/synthesis-engine/internal/domain"
)

// ItemCount is one marketplace item with its activity count
type ItemCount struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

// MarketplaceSummary aggregates marketplace_action events
type MarketplaceSummary struct {
	Total    int             `json:"total"`
	Actions  map[string]int  `json:"actions"`
	Volume   decimal.Decimal `json:"volume"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	TopItems []ItemCount     `json:"top_items"`
}

// MarketplaceStats tallies marketplace actions. Volume and average price
// are exact decimal sums over priced actions only; at most topN items are returned.
func MarketplaceStats(events []domain.Event, topN int) MarketplaceSummary {
	summary := MarketplaceSummary{
		Actions:  make(map[string]int),
		Volume:   decimal.Zero,
		AvgPrice: decimal.Zero,
		TopItems: []ItemCount{},
	}

	itemCounts := make(map[string]int)
	var itemOrder []string
	priced := 0

	for _, e := range events {
		action, ok := e.Data.(domain.MarketplaceAction)
		if !ok {
			continue
		}

		summary.Total++
		summary.Actions[action.Action]++
		if action.Price > 0 {
			summary.Volume = summary.Volume.Add(decimal.NewFromFloat(action.Price))
			priced++
		}
		if action.ItemID != "" {
			if _, seen := itemCounts[action.ItemID]; !seen {
				itemOrder = append(itemOrder, action.ItemID)
			}
			itemCounts[action.ItemID]++
		}
	}

	if priced > 0 {
		summary.AvgPrice = summary.Volume.Div(decimal.NewFromInt(int64(priced))).Round(2)
	}

	for _, id := range itemOrder {
		summary.TopItems = append(summary.TopItems, ItemCount{ItemID: id, Count: itemCounts[id]})
	}
	sort.SliceStable(summary.TopItems, func(i, j int) bool {
		return summary.TopItems[i].Count > summary.TopItems[j].Count
	})
	if topN > 0 && len(summary.TopItems) > topN {
		summary.TopItems = summary.TopItems[:topN]
	}

	return summary
}
