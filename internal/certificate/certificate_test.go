package certificate

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/digest"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sha512 = "9b71d224bd62f3785d96d46ad3ea3d73319bfbc2890caadae2dff72519673ca72323c3d99ba5c11d7c7acc6e14b8c5da0c4663475c2e5c3adef46f73bcdec043"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "report-2024.pdf", "report-2024.pdf"},
		{"latin1 kept", "café.txt", "café.txt"},
		{"emoji stripped", "🎉party.txt", "party.txt"},
		{"cjk stripped", "文件.doc", ".doc"},
		{"general punctuation stripped", "a—b", "ab"},
		{"other replaced", "Ωmega", "?mega"},
		{"control replaced", "a\tb", "a?b"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestWrap(t *testing.T) {
	lines := Wrap(sha512, 60)
	require.Len(t, lines, 3)
	assert.Len(t, lines[0], 60)
	assert.Len(t, lines[1], 60)
	assert.Len(t, lines[2], 8)
	assert.Equal(t, sha512, strings.Join(lines, ""))

	assert.Nil(t, Wrap("", 70))
	assert.Equal(t, []string{"short"}, Wrap("short", 70))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "certificate_my_file_pdf_1700000000000.pdf", FileName("my file.pdf", 1700000000000))
	assert.Equal(t, "certificate_party_txt_1.pdf", FileName("🎉party.txt", 1))
}

func validData(name string) Data {
	return Data{
		File:        &digest.FileInfo{Name: name, Type: "text/plain", Size: 10},
		Digests:     &digest.Set{SHA256: strings.Repeat("a", 64), SHA1: strings.Repeat("b", 40), SHA512: sha512},
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	for _, name := range []string{"plain.txt", "🎉 launch plan.txt"} {
		t.Run(name, func(t *testing.T) {
			c, err := Render(validData(name))
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(c.Content, []byte("%PDF-")))
			assert.True(t, strings.HasPrefix(c.FileName, "certificate_"))
			assert.True(t, strings.HasSuffix(c.FileName, "_1714564800000.pdf"))
		})
	}
}

func TestRender_OptionalFieldsAndQR(t *testing.T) {
	d := validData("doc.pdf")
	d.VerifyURL = "https://verify.example.org/verify/" + d.Digests.SHA256
	d.Notes = strings.Repeat("long notes ", 200)

	c, err := Render(d)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Content)
}

func TestRender_MissingRequired(t *testing.T) {
	d := validData("x")
	d.File = nil
	_, err := Render(d)
	assert.ErrorIs(t, err, common.ErrCertificate)

	d = validData("x")
	d.Digests = nil
	_, err = Render(d)
	var ce *CertificateError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, "digest set is missing", ce.Reason)
}

func TestFromRecord(t *testing.T) {
	r := &records.FileRecord{
		FileName: "a.txt",
		SHA256:   strings.Repeat("c", 64),
		IPFSCID:  records.Ptr("bafy"),
	}
	entry := &records.LedgerEntry{Uploader: "0xUploader", Tag: "legal", Timestamp: time.Unix(100, 0)}

	d := FromRecord(r, entry, "0xContract")
	assert.Equal(t, "a.txt", d.File.Name)
	assert.Equal(t, "bafy", d.IPFSCID)
	assert.Equal(t, "0xUploader", d.Owner)
	assert.Equal(t, "legal", d.Tags)
	assert.Equal(t, "0xContract", d.Contract)
	assert.Empty(t, d.TxHash)
	assert.Equal(t, common.NotAvailable, orNA(d.TxHash))
}

func TestVerifyURL(t *testing.T) {
	assert.Equal(t, "https://docs.example.org/verify/abc", VerifyURL("https://docs.example.org/", "abc"))
	assert.Empty(t, VerifyURL("", "abc"))
	assert.Empty(t, VerifyURL("https://docs.example.org", ""))
}
