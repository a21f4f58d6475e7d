package services

import (
	"context"
	"log/slog"
	"time"

	"triviaroom/roomcode"
)

// Rules holds the tunable limits of a game. Zero values are not meaningful; start from DefaultRules.
type Rules struct {
	NameMinLength int
	NameMaxLength int

	DefaultMaxPlayers int
	MaxPlayersLimit   int
	MinPlayers        int

	DefaultTimeLimit int
	MinTimeLimit     int
	MaxTimeLimit     int

	DefaultQuestionCount int
	MaxQuestionCount     int

	DefaultGameMode string

	BaseScore           int
	TimeBonusMultiplier float64

	CodeAttempts  int
	RoomTTL       time.Duration
	CleanupPeriod int
}

func DefaultRules() Rules {
	return Rules{
		NameMinLength:        1,
		NameMaxLength:        20,
		DefaultMaxPlayers:    8,
		MaxPlayersLimit:      20,
		MinPlayers:           2,
		DefaultTimeLimit:     30,
		MinTimeLimit:         5,
		MaxTimeLimit:         120,
		DefaultQuestionCount: 10,
		MaxQuestionCount:     50,
		DefaultGameMode:      "classic",
		BaseScore:            100,
		TimeBonusMultiplier:  0.5,
		CodeAttempts:         10,
		RoomTTL:              24 * time.Hour,
		CleanupPeriod:        20,
	}
}

type deps struct {
	logger  *slog.Logger
	cache   *versionedCache
	now     func() time.Time
	newCode func() string
}

func defaultDeps() deps {
	return deps{
		logger:  slog.Default(),
		cache:   newVersionedCache(noopCache{}),
		now:     func() time.Time { return time.Now().UTC() },
		newCode: roomcode.Generate,
	}
}

type Option func(*deps)

func WithLogger(logger *slog.Logger) Option {
	return func(d *deps) {
		d.logger = logger
	}
}

// WithCache sets the snapshot cache. Services built with the same Option share its
// invalidation versions, so pass one Option value to every service of a process.
func WithCache(cache SnapshotCache) Option {
	if cache == nil {
		return func(*deps) {}
	}
	versioned := newVersionedCache(cache)
	return func(d *deps) {
		d.cache = versioned
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *deps) {
		d.now = now
	}
}

func WithCodeGenerator(gen func() string) Option {
	return func(d *deps) {
		d.newCode = gen
	}
}

func (d *deps) invalidate(ctx context.Context, code string) {
	if err := d.cache.Invalidate(ctx, code); err != nil {
		d.logger.Warn("failed to invalidate room snapshot",
			slog.String("room", code),
			slog.String("error", err.Error()),
		)
	}
}
