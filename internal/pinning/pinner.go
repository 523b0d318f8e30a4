// Package pinning uploads file content to a content-addressed store and
// returns the content identifier. Nothing is retried and no local state is
// touched; a failed pin leaves the caller free to try again.
package pinning

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docverify/internal/common"
)

// Pinner stores content under a display name and returns its identifier.
type Pinner interface {
	Pin(ctx context.Context, name string, content []byte) (string, error)
}

// PinningError describes a failed pin. Status is zero for transport failures.
type PinningError struct {
	Status int
	Body   string
	Err    error
}

func (e *PinningError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("pinning failed: status %d: %s", e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("pinning failed: %v", e.Err)
	default:
		return "pinning failed"
	}
}

func (e *PinningError) Unwrap() []error {
	if e.Err == nil {
		return []error{common.ErrPinning}
	}
	return []error{common.ErrPinning, e.Err}
}

var errEmptyResponse = errors.New("response carries no content identifier")

func validate(name string, content []byte) error {
	if name == "" {
		return fmt.Errorf("empty file name: %w", common.ErrInput)
	}
	if len(content) == 0 {
		return fmt.Errorf("empty content: %w", common.ErrInput)
	}
	return nil
}
