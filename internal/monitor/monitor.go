// Package monitor polls MPRIS media players over the D-Bus session bus.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/nowpaper/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisPath       = "/org/mpris/MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"

	defaultTimeout = 2 * time.Second

	unknownTitle  = "Unknown Title"
	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
)

// knownPlayers are tried in order before any other MPRIS name on the bus
var knownPlayers = []string{
	"org.mpris.MediaPlayer2.spotifyd",
	"org.mpris.MediaPlayer2.spotify",
	"org.mpris.MediaPlayer2.vlc",
	"org.mpris.MediaPlayer2.mpd",
	"org.mpris.MediaPlayer2.mopidy",
}

// Options configures the MPRIS source
type Options struct {
	// Player is a preferred bus name, with or without the MPRIS prefix
	Player string
	// Timeout bounds a whole Fetch
	Timeout time.Duration
}

// MprisSource polls one MPRIS player for its current track
type MprisSource struct {
	logger    *zap.Logger
	dial      func(ctx context.Context) (DBusClient, error)
	timeout   time.Duration
	preferred []string

	mu     sync.Mutex
	conn   DBusClient // Interface for testability
	player string     // Well-known name of the player in use, empty until discovered
}

// NewMprisSource creates a source; the bus connection is opened on first Fetch
func NewMprisSource(logger *zap.Logger, opts Options) *MprisSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	preferred := knownPlayers
	if opts.Player != "" {
		name := opts.Player
		if !strings.HasPrefix(name, mprisPrefix) {
			name = mprisPrefix + name
		}
		preferred = append([]string{name}, knownPlayers...)
	}

	return &MprisSource{
		logger:    logger,
		dial:      NewStdDBusClient,
		timeout:   timeout,
		preferred: preferred,
	}
}

// Fetch returns the current track of the player, or nil when it reports no
// metadata. Any failure forgets the player so the next call rediscovers it.
func (s *MprisSource) Fetch(ctx context.Context) (*domain.TrackSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.conn == nil {
		conn, err := s.dial(ctx)
		if err != nil {
			return nil, fmt.Errorf("session bus connection failed: %w", err)
		}
		s.conn = conn
	}

	if s.player == "" {
		player, err := s.findPlayer(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNoPlayer) {
				s.resetConn()
			}
			return nil, err
		}
		s.player = player
		s.logger.Info("Connected to media player", zap.String("player", player))
	}

	snap, err := s.readPlayer(ctx, s.player)
	if err != nil {
		s.logger.Warn("Lost media player", zap.String("player", s.player), zap.Error(err))
		s.player = ""
		return nil, err
	}
	return snap, nil
}

// Close releases the bus connection
func (s *MprisSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.player = ""
	return err
}

func (s *MprisSource) resetConn() {
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
	}
	s.conn = nil
}

// findPlayer picks the first preferred player on the bus, then any MPRIS player
func (s *MprisSource) findPlayer(ctx context.Context) (string, error) {
	names, err := s.conn.ListNames(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list bus names: %w", err)
	}

	available := make(map[string]bool)
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			available[name] = true
		}
	}

	for _, name := range s.preferred {
		if available[name] {
			return name, nil
		}
	}
	for _, name := range names {
		if available[name] {
			return name, nil
		}
	}
	return "", domain.ErrNoPlayer
}

// readPlayer fetches Metadata, PlaybackStatus and Position from a player
func (s *MprisSource) readPlayer(ctx context.Context, player string) (*domain.TrackSnapshot, error) {
	metaVariant, err := s.conn.GetProperty(ctx, player, mprisPath, playerInterface+".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	// SAFE CAST: Some players return nil or unexpected types when idle
	metadata, ok := metaVariant.Value().(map[string]dbus.Variant)
	if !ok || len(metadata) == 0 {
		return nil, nil
	}

	statusVariant, err := s.conn.GetProperty(ctx, player, mprisPath, playerInterface+".PlaybackStatus")
	if err != nil {
		return nil, fmt.Errorf("failed to get playback status: %w", err)
	}
	status, ok := statusVariant.Value().(string)
	if !ok {
		return nil, fmt.Errorf("invalid playback status format")
	}

	// Not every player implements Position; treat it as the start of the track
	var position uint64
	if posVariant, err := s.conn.GetProperty(ctx, player, mprisPath, playerInterface+".Position"); err != nil {
		s.logger.Debug("Position unavailable", zap.String("player", player), zap.Error(err))
	} else {
		position = toMicros(posVariant.Value())
	}

	snap := parseSnapshot(metadata, status, position)
	return &snap, nil
}

// parseSnapshot converts MPRIS metadata to the domain model
func parseSnapshot(metadata map[string]dbus.Variant, status string, position uint64) domain.TrackSnapshot {
	snap := domain.TrackSnapshot{
		Title:          unknownTitle,
		Artist:         unknownArtist,
		Album:          unknownAlbum,
		Status:         domain.ParsePlayerStatus(status),
		PositionMicros: position,
	}

	if titleVar, ok := metadata["xesam:title"]; ok {
		if title, ok := titleVar.Value().(string); ok {
			snap.Title = title
		}
	}

	// Extract artist (can be an array)
	if artistVar, ok := metadata["xesam:artist"]; ok {
		switch artists := artistVar.Value().(type) {
		case []string:
			snap.Artist = strings.Join(artists, ", ")
		case string:
			snap.Artist = artists
		}
	}

	if albumVar, ok := metadata["xesam:album"]; ok {
		if album, ok := albumVar.Value().(string); ok {
			snap.Album = album
		}
	}

	if lengthVar, ok := metadata["mpris:length"]; ok {
		snap.LengthMicros = toMicros(lengthVar.Value())
	}

	if artVar, ok := metadata["mpris:artUrl"]; ok {
		if artURL, ok := artVar.Value().(string); ok {
			snap.ArtURL = artURL
		}
	}

	return snap
}

// toMicros accepts any D-Bus integer; players disagree on int64 vs uint64.
// Negative and non-integer values become 0.
func toMicros(v any) uint64 {
	switch n := v.(type) {
	case int64:
		return uint64(max(n, 0))
	case uint64:
		return n
	case int32:
		return uint64(max(n, 0))
	case uint32:
		return uint64(n)
	case int16:
		return uint64(max(n, 0))
	case uint16:
		return uint64(n)
	case byte:
		return uint64(n)
	case int:
		return uint64(max(n, 0))
	default:
		return 0
	}
}
