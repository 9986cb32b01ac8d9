package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/admission-go-api/internal/models"
)

type cachedProgramDirectory struct {
	inner  ProgramDirectory
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedProgramDirectory fronts a ProgramDirectory with a Redis read-through cache.
// A nil client returns inner unchanged.
func NewCachedProgramDirectory(inner ProgramDirectory, client *redis.Client, ttl time.Duration, logger zerolog.Logger) ProgramDirectory {
	if client == nil {
		return inner
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &cachedProgramDirectory{
		inner:  inner,
		cache:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "program_directory_cache").Logger(),
	}
}

func (d *cachedProgramDirectory) GetProgram(ctx context.Context, id uint) (models.Program, error) {
	var program models.Program
	key := fmt.Sprintf("admission:program:%d", id)
	if d.load(ctx, key, &program) {
		return program, nil
	}

	program, err := d.inner.GetProgram(ctx, id)
	if err != nil {
		return models.Program{}, err
	}

	d.store(ctx, key, program)
	return program, nil
}

func (d *cachedProgramDirectory) ProgramCode(ctx context.Context, id uint) (string, error) {
	key := fmt.Sprintf("admission:program:%d:code", id)
	if cached, err := d.cache.Get(ctx, key).Result(); err == nil && cached != "" {
		return cached, nil
	} else if err != nil && !errors.Is(err, redis.Nil) {
		d.logger.Warn().Err(err).Uint("program_id", id).Msg("failed to read program code cache")
	}

	code, err := d.inner.ProgramCode(ctx, id)
	if err != nil {
		return "", err
	}

	if err := d.cache.Set(ctx, key, code, d.ttl).Err(); err != nil {
		d.logger.Warn().Err(err).Uint("program_id", id).Msg("failed to store program code cache")
	}
	return code, nil
}

func (d *cachedProgramDirectory) CertificateRequirements(ctx context.Context, programID uint) ([]models.CertificateRequirement, error) {
	var requirements []models.CertificateRequirement
	key := fmt.Sprintf("admission:program:%d:requirements", programID)
	if d.load(ctx, key, &requirements) {
		return requirements, nil
	}

	requirements, err := d.inner.CertificateRequirements(ctx, programID)
	if err != nil {
		return nil, err
	}

	d.store(ctx, key, requirements)
	return requirements, nil
}

func (d *cachedProgramDirectory) load(ctx context.Context, key string, target interface{}) bool {
	cached, err := d.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			d.logger.Warn().Err(err).Str("key", key).Msg("failed to read program cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("discarding malformed program cache entry")
		return false
	}

	d.logger.Debug().Str("key", key).Msg("program cache hit")
	return true
}

func (d *cachedProgramDirectory) store(ctx context.Context, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, payload, d.ttl).Err(); err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("failed to store program cache")
	}
}
