package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/admission-go-api/internal/repository"
)

// DefaultFallbackCode prefixes numbers for programs whose code cannot be resolved.
const DefaultFallbackCode = "GEN"

// ErrNumberAllocation indicates no application number could be produced.
var ErrNumberAllocation = errors.New("application number allocation failed")

const maxPrefixLength = 12

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]+`)

// NumberGenerator derives application numbers of the form {code}{year}{seq:04d}.
type NumberGenerator struct {
	directory    repository.ProgramDirectory
	fallbackCode string
	logger       zerolog.Logger
}

// NewNumberGenerator builds a generator. An empty fallbackCode disables the generic prefix
// and makes unresolvable programs fail allocation.
func NewNumberGenerator(directory repository.ProgramDirectory, fallbackCode string, logger zerolog.Logger) *NumberGenerator {
	return &NumberGenerator{
		directory:    directory,
		fallbackCode: strings.ToUpper(strings.TrimSpace(fallbackCode)),
		logger:       logger.With().Str("component", "number_generator").Logger(),
	}
}

// Prefix resolves the number prefix for a program.
func (g *NumberGenerator) Prefix(ctx context.Context, programID uint) (string, error) {
	code, err := g.directory.ProgramCode(ctx, programID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: resolve program %d: %w", ErrNumberAllocation, programID, err)
	}

	if err == nil {
		prefix := NormalizeProgramCode(code)
		switch {
		case len(prefix) > maxPrefixLength:
			return "", fmt.Errorf("%w: program %d code %q exceeds %d characters", ErrNumberAllocation, programID, code, maxPrefixLength)
		case prefix != "":
			return prefix, nil
		}
	}

	if g.fallbackCode == "" {
		return "", fmt.Errorf("%w: program %d has no usable code", ErrNumberAllocation, programID)
	}

	g.logger.Warn().Uint("program_id", programID).Str("fallback_code", g.fallbackCode).Msg("program code unresolved, using fallback prefix")
	return g.fallbackCode, nil
}

// NormalizeProgramCode upper-cases a program code and drops separators, so B-TECH becomes BTECH.
func NormalizeProgramCode(code string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(strings.TrimSpace(code)), "")
}

// Allocate reserves the next sequence for prefix/year. sequences must be bound to the
// transaction that inserts the application so the number and the row commit together.
func (g *NumberGenerator) Allocate(ctx context.Context, sequences repository.SequenceRepository, prefix string, year int) (string, error) {
	seq, err := sequences.Next(ctx, prefix, year)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNumberAllocation, err)
	}

	return FormatApplicationNumber(prefix, year, seq), nil
}

// FormatApplicationNumber renders e.g. BCA20250007.
func FormatApplicationNumber(prefix string, year, sequence int) string {
	return fmt.Sprintf("%s%d%04d", prefix, year, sequence)
}
