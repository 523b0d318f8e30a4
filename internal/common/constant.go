package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// NotAvailable is rendered in place of a digest the platform could not
// compute, and for absent optional certificate fields.
const NotAvailable = "N/A"
