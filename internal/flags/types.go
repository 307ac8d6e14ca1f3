package flags

import (
	"errors"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
)

var ErrNotFound = errors.New("flag not found")

// HaltAll pauses new swap attempts on every chain.
const HaltAll = "swaps.halted"

// HaltKey is the flag that pauses new swap attempts on one chain.
func HaltKey(chain models.Chain) string {
	return HaltAll + "." + string(chain)
}

// Flag is an operator switch. Reason is shown to callers refused by it.
type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
