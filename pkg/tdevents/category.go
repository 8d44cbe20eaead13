// category.go gates events by category.

package tdevents

import "sync"

// Marker columns identifying non-custom events. They are stripped before the
// record is queued.
const (
	AppLifecycleEventMarker  = "__is_app_lifecycle_event"
	InAppPurchaseEventMarker = "__is_in_app_purchase_event"
)

// EventCategory classifies events for gating.
type EventCategory int

const (
	CategoryCustom EventCategory = iota
	CategoryAppLifecycle
	CategoryInAppPurchase
)

// String returns the category name.
func (c EventCategory) String() string {
	switch c {
	case CategoryCustom:
		return "custom"
	case CategoryAppLifecycle:
		return "app_lifecycle"
	case CategoryInAppPurchase:
		return "in_app_purchase"
	default:
		return "unknown"
	}
}

// categorize classifies r and removes the marker columns.
func categorize(r *Record) EventCategory {
	category := CategoryCustom
	if r.Has(InAppPurchaseEventMarker) {
		category = CategoryInAppPurchase
	} else if r.Has(AppLifecycleEventMarker) {
		category = CategoryAppLifecycle
	}
	r.Delete(AppLifecycleEventMarker)
	r.Delete(InAppPurchaseEventMarker)
	return category
}

// categoryGate tracks which categories are enabled.
type categoryGate struct {
	mu      sync.RWMutex
	enabled map[EventCategory]bool
}

func newCategoryGate(custom, appLifecycle, inAppPurchase bool) *categoryGate {
	return &categoryGate{enabled: map[EventCategory]bool{
		CategoryCustom:        custom,
		CategoryAppLifecycle:  appLifecycle,
		CategoryInAppPurchase: inAppPurchase,
	}}
}

func (g *categoryGate) set(c EventCategory, on bool) {
	g.mu.Lock()
	g.enabled[c] = on
	g.mu.Unlock()
}

func (g *categoryGate) allowed(c EventCategory) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled[c]
}
