// Package value converts between host scalars and the tagged wire values used by the
// table storage protocol.
//
// A wire value is one of four concrete kinds (INTEGER, STRING, BOOLEAN, DOUBLE) or one
// of the two ordering sentinels (INF_MIN, INF_MAX). Sentinels are only meaningful as
// range bounds; each one is tagged with the type family it bounds (see Sentinel).
//
// Encoding infers the kind of a host value (Encode) or honours a declared kind
// (EncodeAs). Decoding (Decoder) returns the natural host representation, with one
// exception handled by the precision guard: integers outside the range that an IEEE
// double represents exactly (±(2^53−1)) are returned as exact decimal strings, so no
// digit is ever lost. The legacy protocol generation returns every integer as decimal
// text; select it with PrecisionLiteral.
package value
