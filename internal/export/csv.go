// Package export writes record listings as CSV.
package export

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/docverify/internal/records"
)

// DefaultFileName is used when the caller gives no path.
const DefaultFileName = "hashes.csv"

// Columns is the fixed column order of an export.
var Columns = []string{
	"file_name", "file_size", "file_type", "sha256", "sha1", "sha512",
	"simple_hash", "tags", "notes", "ipfs_cid", "blockchain_tx",
	"is_registered", "user_wallet", "created_at",
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func row(r *records.FileRecord) []string {
	created := ""
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		r.FileName,
		strconv.FormatInt(r.FileSize, 10),
		r.FileType,
		r.SHA256,
		r.SHA1,
		r.SHA512,
		r.SimpleHash,
		records.Deref(r.Tags),
		records.Deref(r.Notes),
		records.Deref(r.IPFSCID),
		records.Deref(r.BlockchainTx),
		strconv.FormatBool(r.IsRegistered),
		r.OwnerAddress,
		created,
	}
}

// CSV renders rows under a plain header line. Every data cell is quoted
// with embedded quotes doubled; lines are joined by "\n".
func CSV(rows []*records.FileRecord) []byte {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(Columns, ","))

	for _, r := range rows {
		cells := row(r)
		for i, c := range cells {
			cells[i] = quote(c)
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return []byte(strings.Join(lines, "\n"))
}

// WriteCSV writes CSV(rows) to w.
func WriteCSV(w io.Writer, rows []*records.FileRecord) error {
	_, err := w.Write(CSV(rows))
	return err
}
