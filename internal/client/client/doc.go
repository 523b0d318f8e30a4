// Package client talks to the docverify record server.
//
// GRPCClient implements records.Store over the RecordStore gRPC service. It
// logs in by signing a challenge with the connected wallet, attaches the
// access token to every call and logs in again once when the server reports
// the token as expired or missing. gRPC status codes are mapped back to the
// sentinels in internal/common, and transport failures to
// *records.StoreError.
package client
