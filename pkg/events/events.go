// Package events carries collector announcements to the pipeline over
// PostgreSQL NOTIFY, so a sweep that stored new items wakes processing
// immediately instead of waiting out the poll interval. Delivery is
// advisory: payloads are not persisted, and only listeners connected at
// send time hear them; the pipeline's interval tick covers missed wakes.
package events

// ItemsChannel is the NOTIFY channel for freshly collected items.
const ItemsChannel = "chokepoint_items"

// ItemsCollected is the announcement payload: which source produced new
// items and how many.
type ItemsCollected struct {
	SourceID string `json:"source_id"`
	Count    int    `json:"count"`
}
