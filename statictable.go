package hpack

// The static table: a fixed, 1-indexed sequence of (name, value) pairs
// never mutated at runtime (spec §1 Non-goals, §4.3). Layout ported from
// the pack's MiraiMindz-watt/shockwave/pkg/shockwave/http2/hpack_static.go
// (itself RFC 7541 Appendix A), which the concrete scenario in spec §8
// ("indexed header, static-table index 2 ... :method: GET") also assumes.
var staticTable = [...][2]string{
	{":authority", ""},
	{":method", "GET"},
	{":method", "POST"},
	{":path", "/"},
	{":path", "/index.html"},
	{":scheme", "http"},
	{":scheme", "https"},
	{":status", "200"},
	{":status", "204"},
	{":status", "206"},
	{":status", "304"},
	{":status", "400"},
	{":status", "404"},
	{":status", "500"},
	{"accept-charset", ""},
	{"accept-encoding", "gzip, deflate"},
	{"accept-language", ""},
	{"accept-ranges", ""},
	{"accept", ""},
	{"access-control-allow-origin", ""},
	{"age", ""},
	{"allow", ""},
	{"authorization", ""},
	{"cache-control", ""},
	{"content-disposition", ""},
	{"content-encoding", ""},
	{"content-language", ""},
	{"content-length", ""},
	{"content-location", ""},
	{"content-range", ""},
	{"content-type", ""},
	{"cookie", ""},
	{"date", ""},
	{"etag", ""},
	{"expect", ""},
	{"expires", ""},
	{"from", ""},
	{"host", ""},
	{"if-match", ""},
	{"if-modified-since", ""},
	{"if-none-match", ""},
	{"if-range", ""},
	{"if-unmodified-since", ""},
	{"last-modified", ""},
	{"link", ""},
	{"location", ""},
	{"max-forwards", ""},
	{"proxy-authenticate", ""},
	{"proxy-authorization", ""},
	{"range", ""},
	{"referer", ""},
	{"refresh", ""},
	{"retry-after", ""},
	{"server", ""},
	{"set-cookie", ""},
	{"strict-transport-security", ""},
	{"transfer-encoding", ""},
	{"user-agent", ""},
	{"vary", ""},
	{"via", ""},
	{"www-authenticate", ""},
}

// STATIC_LENGTH is the number of entries in the static table, known at
// build time (spec §1/§4.3).
const STATIC_LENGTH = len(staticTable)

// staticEntry returns the name/value pair at the given 1-indexed static
// table position. Out-of-range i is a programmer error: callers must
// range-check against STATIC_LENGTH first (spec §4.3).
func staticEntry(i int) (name, value string, err error) {
	if i < 1 || i > STATIC_LENGTH {
		return "", "", configurationErrorf("static table index %d out of range [1, %d]", i, STATIC_LENGTH)
	}
	e := staticTable[i-1]
	return e[0], e[1], nil
}
