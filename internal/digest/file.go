package digest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// FileInfo describes the file a digest set was computed from.
type FileInfo struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// HumanSize renders Size the way listings show it ("1.2 MB").
func (f FileInfo) HumanSize() string {
	return humanize.Bytes(uint64(max(f.Size, 0)))
}

// DetectType sniffs the MIME type from the content.
func DetectType(content []byte) string {
	return mimetype.Detect(content).String()
}

// File is a loaded file together with its digests.
type File struct {
	Info    FileInfo
	Content []byte
	Digests Set
}

// ComputeFile reads path and computes its digests.
func (e *Engine) ComputeFile(ctx context.Context, path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("no file selected: %w", common.ErrInput)
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, common.ErrInput)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, common.ErrInput)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	set, err := e.Compute(ctx, content)
	if err != nil {
		return nil, err
	}

	return &File{
		Info: FileInfo{
			Name:     filepath.Base(path),
			Type:     DetectType(content),
			Size:     st.Size(),
			Modified: st.ModTime(),
		},
		Content: content,
		Digests: set,
	}, nil
}
