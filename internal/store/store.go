// Package store persists the single lottery configuration document. Every
// backend reads and writes the whole document; there are no partial updates.
package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Farmer96/LuckGen/internal/models"
)

// ErrNotFound is returned by Load when no document has been saved yet.
var ErrNotFound = errors.New("lottery config not found")

// ConfigStore holds one LotteryConfig document. Save overwrites any previous
// version (last write wins).
type ConfigStore interface {
	Load(ctx context.Context) (*models.LotteryConfig, error)
	Save(ctx context.Context, cfg *models.LotteryConfig) error
	Delete(ctx context.Context) error
}

func encode(cfg *models.LotteryConfig) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "encode lottery config")
	}
	return data, nil
}

func decode(data []byte) (*models.LotteryConfig, error) {
	var cfg models.LotteryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode lottery config")
	}
	return &cfg, nil
}
