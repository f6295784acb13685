package posisync

import (
	"errors"
	"fmt"

	"github.com/hupe1980/posisync/model"
)

var (
	// ErrDuplicateInput is returned when two inputs name the same technology.
	ErrDuplicateInput = errors.New("duplicate technology input")

	// ErrUnknownTechnology is returned for an input outside the campaign's
	// technology set.
	ErrUnknownTechnology = errors.New("unknown technology")
)

func validateInputs(inputs []Input) error {
	seen := make(map[model.Technology]struct{}, len(inputs))
	for _, in := range inputs {
		if !in.Tech.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownTechnology, in.Tech)
		}
		if _, dup := seen[in.Tech]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateInput, in.Tech)
		}
		seen[in.Tech] = struct{}{}
	}
	return nil
}
