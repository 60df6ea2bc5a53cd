package game

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vovakirdan/decodey/internal/config"
)

// Kind classifies how a session was started.
type Kind string

const (
	KindDaily  Kind = "daily"
	KindCustom Kind = "custom"
)

// ID is a parsed game identifier. The wire form is
// "{difficulty}-{daily|custom}-{uuid}"; the id doubles as a classifier.
type ID struct {
	Difficulty config.Difficulty
	Kind       Kind
	UUID       uuid.UUID
	Raw        string
}

// IsDaily reports whether the id belongs to a daily challenge session.
func (id ID) IsDaily() bool {
	return id.Kind == KindDaily
}

// ParseID parses a wire game id. The UUID tail contains dashes, so the id
// splits on the first two separators only.
func ParseID(raw string) (ID, error) {
	parts := strings.SplitN(raw, "-", 3)
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("game: malformed game id %q", raw)
	}

	difficulty := config.Difficulty(parts[0])
	if !difficulty.Valid() {
		return ID{}, fmt.Errorf("game: unknown difficulty in game id %q", raw)
	}

	kind := Kind(parts[1])
	if kind != KindDaily && kind != KindCustom {
		return ID{}, fmt.Errorf("game: unknown kind in game id %q", raw)
	}

	u, err := uuid.Parse(parts[2])
	if err != nil {
		return ID{}, fmt.Errorf("game: bad uuid in game id %q: %w", raw, err)
	}

	return ID{
		Difficulty: difficulty,
		Kind:       kind,
		UUID:       u,
		Raw:        raw,
	}, nil
}
