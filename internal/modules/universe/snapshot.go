package universe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrEmptySnapshot is returned when a snapshot decodes to zero bonds. Importing it
// would wipe the universe.
var ErrEmptySnapshot = errors.New("snapshot contains no bonds")

// snapshotEnvelope is the object form of a snapshot. Either key is accepted.
type snapshotEnvelope struct {
	Bonds     []Bond `json:"bonds" msgpack:"bonds"`
	Analytics []Bond `json:"analytics" msgpack:"analytics"`
}

func (e snapshotEnvelope) bonds() []Bond {
	if len(e.Bonds) > 0 {
		return e.Bonds
	}
	return e.Analytics
}

// DecodeSnapshot decodes a universe snapshot. The format follows the key's extension
// (.msgpack or .mpk for MessagePack, anything else JSON). The payload is either a bare
// array of bonds or an object holding them under "bonds" or "analytics".
func DecodeSnapshot(key string, data []byte) ([]Bond, error) {
	var (
		bonds []Bond
		err   error
	)

	switch strings.ToLower(path.Ext(key)) {
	case ".msgpack", ".mpk":
		bonds, err = decodeMsgpackSnapshot(data)
	default:
		bonds, err = decodeJSONSnapshot(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	if len(bonds) == 0 {
		return nil, ErrEmptySnapshot
	}
	return bonds, nil
}

func decodeJSONSnapshot(data []byte) ([]Bond, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var bonds []Bond
		if err := json.Unmarshal(trimmed, &bonds); err != nil {
			return nil, err
		}
		return bonds, nil
	}

	var env snapshotEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.bonds(), nil
}

func decodeMsgpackSnapshot(data []byte) ([]Bond, error) {
	var bonds []Bond
	if err := msgpack.Unmarshal(data, &bonds); err == nil {
		return bonds, nil
	}

	var env snapshotEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env.bonds(), nil
}

// SnapshotImporter replaces the analytics universe with a snapshot held in object storage
type SnapshotImporter struct {
	fetcher ObjectFetcher
	repo    BondRepositoryInterface
	key     string
	log     zerolog.Logger
}

// NewSnapshotImporter creates a new snapshot importer
func NewSnapshotImporter(fetcher ObjectFetcher, repo BondRepositoryInterface, key string, log zerolog.Logger) *SnapshotImporter {
	return &SnapshotImporter{
		fetcher: fetcher,
		repo:    repo,
		key:     key,
		log:     log.With().Str("service", "snapshot_importer").Logger(),
	}
}

// Import downloads, decodes and stores the snapshot, returning the number of bonds written.
// The universe is left untouched when any step fails.
func (s *SnapshotImporter) Import(ctx context.Context) (int, error) {
	start := time.Now()
	s.log.Info().Str("key", s.key).Msg("Importing universe snapshot")

	data, err := s.fetcher.Download(ctx, s.key)
	if err != nil {
		return 0, fmt.Errorf("failed to download snapshot: %w", err)
	}

	bonds, err := DecodeSnapshot(s.key, data)
	if err != nil {
		return 0, err
	}

	n, err := s.repo.ReplaceAll(bonds)
	if err != nil {
		return 0, fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.log.Info().
		Int("bonds", n).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("Universe snapshot imported")
	return n, nil
}
