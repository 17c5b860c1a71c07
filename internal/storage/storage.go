// Package storage persists pipeline output: a filesystem store for the
// variant tree plus an optional object-store mirror.
package storage

import (
	"context"

	"assetgen/internal/infra"
)

// AssetSink accepts finished asset bytes under a relative key and returns
// the canonical key the asset was stored at.
type AssetSink interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// MirroredSink writes to a primary sink and best-effort mirrors every write
// to a secondary one. Mirror failures are logged, never returned: the local
// tree is the source of truth and the mirror is a convenience copy.
type MirroredSink struct {
	primary AssetSink
	mirror  AssetSink
	logger  infra.Logger
}

// NewMirroredSink wraps primary with a best-effort mirror.
func NewMirroredSink(primary, mirror AssetSink, logger infra.Logger) *MirroredSink {
	return &MirroredSink{primary: primary, mirror: mirror, logger: logger}
}

// Write implements AssetSink.
func (s *MirroredSink) Write(ctx context.Context, key string, data []byte) (string, error) {
	stored, err := s.primary.Write(ctx, key, data)
	if err != nil {
		return "", err
	}
	if s.mirror != nil {
		if _, mirrorErr := s.mirror.Write(ctx, stored, data); mirrorErr != nil {
			s.logger.Warn().Err(mirrorErr).Str("key", stored).Msg("storage: mirror write failed")
		}
	}
	return stored, nil
}
