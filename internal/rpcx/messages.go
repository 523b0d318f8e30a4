package rpcx

import (
	"time"

	"github.com/dmitrijs2005/docverify/internal/records"
)

type LoginRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type InsertRequest struct {
	Record *records.FileRecord `json:"record"`
}

type UpdateByDigestRequest struct {
	SHA256 string        `json:"sha256"`
	Patch  records.Patch `json:"patch"`
}

type UpdateByDigestResponse struct {
	Updated int64 `json:"updated"`
}

type QueryByOwnerRequest struct {
	Owner string `json:"owner"`
}

type QueryByDigestAnyRequest struct {
	SHA256 string `json:"sha256,omitempty"`
	SHA1   string `json:"sha1,omitempty"`
	SHA512 string `json:"sha512,omitempty"`
}

type QueryAllRequest struct{}

type QueryByCIDRequest struct {
	CID string `json:"cid"`
}

type SearchRequest struct {
	Filter records.Filter `json:"filter"`
}

type StatsRequest struct {
	Owner string `json:"owner"`
}

type StatsResponse struct {
	Stats records.Stats `json:"stats"`
}

type DeleteRequest struct {
	ID string `json:"id"`
}

type DeleteResponse struct{}

type GetRequest struct {
	ID string `json:"id"`
}

// RecordResponse carries a single record.
type RecordResponse struct {
	Record *records.FileRecord `json:"record"`
}

// RecordsResponse carries a list, newest first.
type RecordsResponse struct {
	Records []*records.FileRecord `json:"records"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
