// Package sign computes the request signatures of the table storage protocol.
//
// Two variants exist, one per protocol generation:
//
//   - Parameter based (legacy generation): the fixed parameters APIVersion, Date,
//     OTSAccessKeyId, SignatureMethod and SignatureVersion are appended to the request
//     parameters. Every pair is rendered as name=value with encodeURIComponent escaping,
//     the rendered tokens are sorted byte-wise and joined with "&", and the canonical
//     URI plus a newline is prepended. The base64 HMAC of that string is appended as the
//     Signature parameter.
//
//   - Header based (2013 generation): the x-ots-* headers (date, API version, access
//     key id, signature method and version, base64 MD5 of the body) are rendered as
//     name:value tokens, sorted and joined with newlines. The string to sign is
//     canonicalURI + "\nPOST\n\n" + tokens + "\n", and the signature travels in the
//     x-ots-signature header.
//
// Signing is a pure function of its inputs; the request date is always supplied by
// the caller so signatures are reproducible.
package sign
