// Package certificate renders the PDF integrity certificate of a file.
package certificate

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/digest"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

const (
	sha512Width = 60
	notesWidth  = 70
	footerText  = "This certificate verifies the integrity and blockchain registration of the above file."
)

// CertificateError reports why a certificate could not be rendered.
type CertificateError struct {
	Reason string
	Err    error
}

func (e *CertificateError) Error() string {
	if e.Err != nil {
		return "certificate: " + e.Reason + ": " + e.Err.Error()
	}
	return "certificate: " + e.Reason
}

func (e *CertificateError) Unwrap() []error {
	if e.Err == nil {
		return []error{common.ErrCertificate}
	}
	return []error{common.ErrCertificate, e.Err}
}

// Data is everything a certificate shows. File and Digests are required;
// empty optional strings are printed as N/A.
type Data struct {
	File    *digest.FileInfo
	Digests *digest.Set

	IPFSCID  string
	TxHash   string
	Owner    string
	Contract string
	Tags     string
	Notes    string

	LedgerTimestamp time.Time
	// VerifyURL, when set, is encoded as a QR code on the first page.
	VerifyURL   string
	GeneratedAt time.Time
}

// FromRecord fills Data from a stored record and, optionally, its ledger
// entry. The ledger entry supplies the owner and tag when the record does
// not.
func FromRecord(r *records.FileRecord, entry *records.LedgerEntry, contract string) Data {
	d := Data{
		File: &digest.FileInfo{
			Name:     r.FileName,
			Type:     r.FileType,
			Size:     r.FileSize,
			Modified: r.ModifiedAt,
		},
		Digests: &digest.Set{
			SHA256:   r.SHA256,
			SHA1:     r.SHA1,
			SHA512:   r.SHA512,
			Checksum: r.SimpleHash,
		},
		IPFSCID:  records.Deref(r.IPFSCID),
		TxHash:   records.Deref(r.BlockchainTx),
		Owner:    r.OwnerAddress,
		Contract: contract,
		Tags:     records.Deref(r.Tags),
		Notes:    records.Deref(r.Notes),
	}
	if entry != nil {
		if d.Owner == "" {
			d.Owner = entry.Uploader
		}
		if d.Tags == "" {
			d.Tags = entry.Tag
		}
		d.LedgerTimestamp = entry.Timestamp
	}
	return d
}

// Certificate is a rendered PDF and the name to save it under.
type Certificate struct {
	FileName string
	Content  []byte
}

func orNA(s string) string {
	if s == "" {
		return common.NotAvailable
	}
	return s
}

func timeOrNA(t time.Time) string {
	if t.IsZero() {
		return common.NotAvailable
	}
	return t.UTC().Format(time.RFC1123)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

// Render lays out the certificate on A4 portrait pages.
func Render(d Data) (*Certificate, error) {
	if d.File == nil || d.File.Name == "" {
		return nil, &CertificateError{Reason: "file information is missing"}
	}
	if d.Digests == nil || d.Digests.SHA256 == "" {
		return nil, &CertificateError{Reason: "digest set is missing"}
	}
	if d.GeneratedAt.IsZero() {
		d.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-18)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, footerText, "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()

	heading := func(s string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(40, 40, 40)
		pdf.CellFormat(0, 9, s, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(60, 60, 60)
	}
	line := func(s string) {
		pdf.SetX(25)
		pdf.CellFormat(0, 7, tr(s), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(40, 40, 40)
	pdf.CellFormat(0, 12, "File Integrity Certificate", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(0, 8, "Generated on: "+d.GeneratedAt.UTC().Format(time.RFC1123), "", 1, "L", false, 0, "")

	if d.VerifyURL != "" {
		png, err := qrcode.Encode(d.VerifyURL, qrcode.Medium, 256)
		if err != nil {
			return nil, &CertificateError{Reason: "encode QR code", Err: err}
		}
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("verify-qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("verify-qr", 160, 15, 30, 30, false, opts, 0, d.VerifyURL)
	}

	heading("File Information:")
	line("Name: " + Sanitize(d.File.Name))
	line("Size: " + d.File.HumanSize())
	line("Type: " + orNA(Sanitize(d.File.Type)))
	line("Modified: " + timeOrNA(d.File.Modified))

	heading("Hash Values:")
	line("SHA256:")
	line(d.Digests.SHA256)
	if d.Digests.SHA1 != "" {
		line("SHA1:")
		line(d.Digests.SHA1)
	}
	if d.Digests.SHA512 != "" {
		line("SHA512:")
		for _, l := range Wrap(d.Digests.SHA512, sha512Width) {
			line(l)
		}
	}
	if d.Digests.Checksum != "" {
		line("Simple hash: " + d.Digests.Checksum)
	}

	heading("Blockchain Information:")
	line("Wallet Address: " + orNA(d.Owner))
	line("Contract Address: " + orNA(d.Contract))
	line("Transaction Hash: " + orNA(d.TxHash))
	line("Registered At: " + timeOrNA(d.LedgerTimestamp))

	heading("IPFS Information:")
	line("IPFS CID: " + orNA(d.IPFSCID))

	heading("Additional Information:")
	line("Tags: " + orNA(Sanitize(d.Tags)))
	line("Notes:")
	notes := Sanitize(d.Notes)
	if notes == "" {
		line(common.NotAvailable)
	}
	for _, l := range Wrap(notes, notesWidth) {
		line(l)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &CertificateError{Reason: "render pdf", Err: err}
	}
	if buf.Len() == 0 {
		return nil, &CertificateError{Reason: "render pdf", Err: errors.New("empty document")}
	}

	return &Certificate{
		FileName: FileName(d.File.Name, d.GeneratedAt.UnixMilli()),
		Content:  buf.Bytes(),
	}, nil
}

// VerifyURL builds the public verification link for a digest, or "" when no
// base URL is configured.
func VerifyURL(base, sha256 string) string {
	if base == "" || sha256 == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/verify/" + sha256
}
