// Package apierr defines the error taxonomy shared by every layer of the
// table storage client.
//
// Each failure that can reach a caller belongs to exactly one of four classes:
//
//   - TransportError: the network call did not produce a response (connection
//     refused, DNS failure, timeout). Carries the target host and, when the
//     server answered partially, a server correlation id. A timeout is an
//     unknown outcome: the remote side may or may not have applied the request.
//
//   - ServiceError: the remote service answered with a non-success status and a
//     decodable error body. Carries the vendor code (e.g. "OTSParameterInvalid"),
//     the message and the server correlation id.
//
//   - MalformedResponseError: a success status whose body could not be decoded
//     into the expected response shape.
//
//   - LocalValidationError: the request was rejected before any network call
//     (empty keys, batch ceilings, impossible kind conversions).
//
// All four types work with errors.Is against the package level sentinels
// (ErrTransport, ErrService, ErrMalformedResponse, ErrLocalValidation) and with
// errors.As for field access. Code(err) returns the stable discriminator callers
// should branch on.
package apierr
