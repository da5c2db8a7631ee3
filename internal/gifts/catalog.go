// Package gifts holds the static catalog of sellable gifts: the mapping
// from an internal gift key to its display name and Telegram gift id.
package gifts

// Gift describes one catalog entry.
type Gift struct {
	Name   string
	GiftID string
}

// Catalog is keyed by the gift_key sent by the mini-app.
var Catalog = map[string]Gift{
	"heart-box":  {Name: "Heart", GiftID: "5170145012310081615"},
	"teddy-bear": {Name: "Teddy Bear", GiftID: "5170233102089322756"},
	"gift-box":   {Name: "Gift Box", GiftID: "5170250947678437525"},
	"rose":       {Name: "Rose", GiftID: "5168103777563050263"},
	"elka":       {Name: "Elka", GiftID: "5956217000635139069"},
	"newteddy":   {Name: "New Teddy", GiftID: "5956217000635139069"},
	"cake":       {Name: "Cake", GiftID: "5170144170496491616"},
	"bouquet":    {Name: "Bouquet", GiftID: "5170314324215857265"},
	"rocket":     {Name: "Rocket", GiftID: "5170564780938756245"},
	"champagne":  {Name: "Champagne", GiftID: "6028601630662853006"},
	"trophy":     {Name: "Trophy", GiftID: "5168043875654172773"},
	"ring":       {Name: "Ring", GiftID: "5170690322832818290"},
	"diamond":    {Name: "Diamond", GiftID: "5170521118301225164"},
}

// Lookup returns the catalog entry for key.
func Lookup(key string) (Gift, bool) {
	g, ok := Catalog[key]
	return g, ok
}
