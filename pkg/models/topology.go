package models

// TracerouteResult is the document published to POST /traceroute.
type TracerouteResult struct {
	Time string       `json:"time"`
	Data []Connection `json:"data"`
}

// Connection is the hop path toward one destination.
type Connection struct {
	DstIP string `json:"dst_ip"`
	Hops  []Hop  `json:"hops"`
}

// Hop is a single edge of the hop path; Hops carries the TTL delta between
// the two routers.
type Hop struct {
	PrevIP string `json:"prev_ip"`
	Hops   int    `json:"hops"`
	NextIP string `json:"next_ip"`
}
