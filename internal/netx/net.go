// Package netx holds the small HTTP helpers used by outbound integrations.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Part is one multipart form part. A non-empty FileName makes it a file part.
type Part struct {
	Field       string
	FileName    string
	ContentType string
	Content     []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// PostMultipart sends parts as multipart/form-data and reads the whole
// response. Non-2xx statuses are not errors here; callers inspect the
// response. Only transport failures are returned as errors.
func PostMultipart(ctx context.Context, client *http.Client, url string, header http.Header, parts []Part) (*Response, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for _, p := range parts {
		if err := writePart(w, p); err != nil {
			return nil, fmt.Errorf("write part %s: %w", p.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Status: resp.Status, Body: b}, nil
}

func writePart(w *multipart.Writer, p Part) error {
	if p.FileName == "" {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="%s"`, p.Field)}
		if p.ContentType != "" {
			h["Content-Type"] = []string{p.ContentType}
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		_, err = pw.Write(p.Content)
		return err
	}

	pw, err := w.CreateFormFile(p.Field, p.FileName)
	if err != nil {
		return err
	}
	_, err = pw.Write(p.Content)
	return err
}
