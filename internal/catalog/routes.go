package catalog

// DefaultBasePrice applies to city pairs missing from the fare table.
const DefaultBasePrice int64 = 100_000

type routeKey struct {
	a, b string
}

// newRouteKey orders the pair so a route and its reverse share a key.
func newRouteKey(from, to string) routeKey {
	if from > to {
		from, to = to, from
	}
	return routeKey{a: from, b: to}
}

var routeBasePrices = map[routeKey]int64{
	newRouteKey("jakarta", "bandung"):     80_000,
	newRouteKey("jakarta", "semarang"):    180_000,
	newRouteKey("jakarta", "yogyakarta"):  220_000,
	newRouteKey("jakarta", "surabaya"):    300_000,
	newRouteKey("jakarta", "malang"):      320_000,
	newRouteKey("jakarta", "solo"):        210_000,
	newRouteKey("jakarta", "cirebon"):     90_000,
	newRouteKey("jakarta", "denpasar"):    450_000,
	newRouteKey("bandung", "semarang"):    160_000,
	newRouteKey("bandung", "yogyakarta"):  190_000,
	newRouteKey("bandung", "surabaya"):    280_000,
	newRouteKey("bandung", "cirebon"):     70_000,
	newRouteKey("semarang", "yogyakarta"): 75_000,
	newRouteKey("semarang", "solo"):       60_000,
	newRouteKey("semarang", "surabaya"):   150_000,
	newRouteKey("yogyakarta", "solo"):     50_000,
	newRouteKey("yogyakarta", "surabaya"): 170_000,
	newRouteKey("yogyakarta", "malang"):   180_000,
	newRouteKey("surabaya", "malang"):     55_000,
	newRouteKey("surabaya", "denpasar"):   200_000,
	newRouteKey("malang", "denpasar"):     220_000,
}

// RouteBasePrice looks the pair up in either direction.
func RouteBasePrice(originID, destinationID string) int64 {
	if price, ok := routeBasePrices[newRouteKey(originID, destinationID)]; ok {
		return price
	}
	return DefaultBasePrice
}
