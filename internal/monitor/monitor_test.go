package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/genricoloni/nowpaper/internal/domain"
	"github.com/genricoloni/nowpaper/internal/monitor/mocks"
	"github.com/godbus/dbus/v5"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const (
	metadataProp = playerInterface + ".Metadata"
	statusProp   = playerInterface + ".PlaybackStatus"
	positionProp = playerInterface + ".Position"
)

// newTestSource wires a source to a mocked bus client
func newTestSource(client DBusClient, opts Options) *MprisSource {
	src := NewMprisSource(zap.NewNop(), opts)
	src.dial = func(ctx context.Context) (DBusClient, error) {
		return client, nil
	}
	return src
}

func queenMetadata() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"xesam:title":  dbus.MakeVariant("Bohemian Rhapsody"),
		"xesam:artist": dbus.MakeVariant([]string{"Queen"}),
		"xesam:album":  dbus.MakeVariant("A Night at the Opera"),
		"mpris:length": dbus.MakeVariant(int64(354_000_000)),
		"mpris:artUrl": dbus.MakeVariant("https://example.com/cover.jpg"),
	}
}

func expectPlayer(client *mocks.MockDBusClient, player string, metadata map[string]dbus.Variant, status string, position int64) {
	client.EXPECT().GetProperty(gomock.Any(), player, mprisPath, metadataProp).
		Return(dbus.MakeVariant(metadata), nil)
	client.EXPECT().GetProperty(gomock.Any(), player, mprisPath, statusProp).
		Return(dbus.MakeVariant(status), nil)
	client.EXPECT().GetProperty(gomock.Any(), player, mprisPath, positionProp).
		Return(dbus.MakeVariant(position), nil)
}

func TestFetch_HappyPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDBusClient(ctrl)

	client.EXPECT().ListNames(gomock.Any()).
		Return([]string{"org.freedesktop.DBus", "org.mpris.MediaPlayer2.spotify"}, nil)
	expectPlayer(client, "org.mpris.MediaPlayer2.spotify", queenMetadata(), "Playing", 60_000_000)

	src := newTestSource(client, Options{})
	snap, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a snapshot")
	}

	want := domain.TrackSnapshot{
		Title:          "Bohemian Rhapsody",
		Artist:         "Queen",
		Album:          "A Night at the Opera",
		Status:         domain.StatusPlaying,
		PositionMicros: 60_000_000,
		LengthMicros:   354_000_000,
		ArtURL:         "https://example.com/cover.jpg",
	}
	if *snap != want {
		t.Errorf("snapshot mismatch:\n got %+v\nwant %+v", *snap, want)
	}
}

func TestFetch_ReusesDiscoveredPlayer(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDBusClient(ctrl)

	client.EXPECT().ListNames(gomock.Any()).
		Return([]string{"org.mpris.MediaPlayer2.vlc"}, nil).Times(1)
	expectPlayer(client, "org.mpris.MediaPlayer2.vlc", queenMetadata(), "Playing", 1)
	expectPlayer(client, "org.mpris.MediaPlayer2.vlc", queenMetadata(), "Paused", 2)

	dials := 0
	src := newTestSource(client, Options{})
	src.dial = func(ctx context.Context) (DBusClient, error) {
		dials++
		return client, nil
	}

	for range 2 {
		if _, err := src.Fetch(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if dials != 1 {
		t.Errorf("expected one dial, got %d", dials)
	}
}

func TestFetch_PlayerPreference(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		names     []string
		want      string
	}{
		{
			name:  "Known player beats bus order",
			names: []string{"org.mpris.MediaPlayer2.firefox", "org.mpris.MediaPlayer2.mpd"},
			want:  "org.mpris.MediaPlayer2.mpd",
		},
		{
			name:  "Spotifyd before spotify",
			names: []string{"org.mpris.MediaPlayer2.spotify", "org.mpris.MediaPlayer2.spotifyd"},
			want:  "org.mpris.MediaPlayer2.spotifyd",
		},
		{
			name:  "Any MPRIS player as last resort",
			names: []string{"org.freedesktop.Notifications", "org.mpris.MediaPlayer2.firefox"},
			want:  "org.mpris.MediaPlayer2.firefox",
		},
		{
			name:      "Configured short name",
			preferred: "firefox",
			names:     []string{"org.mpris.MediaPlayer2.spotify", "org.mpris.MediaPlayer2.firefox"},
			want:      "org.mpris.MediaPlayer2.firefox",
		},
		{
			name:      "Configured full name",
			preferred: "org.mpris.MediaPlayer2.vlc",
			names:     []string{"org.mpris.MediaPlayer2.spotifyd", "org.mpris.MediaPlayer2.vlc"},
			want:      "org.mpris.MediaPlayer2.vlc",
		},
		{
			name:      "Configured player missing",
			preferred: "firefox",
			names:     []string{"org.mpris.MediaPlayer2.mopidy"},
			want:      "org.mpris.MediaPlayer2.mopidy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockDBusClient(ctrl)

			client.EXPECT().ListNames(gomock.Any()).Return(tt.names, nil)
			expectPlayer(client, tt.want, queenMetadata(), "Playing", 0)

			src := newTestSource(client, Options{Player: tt.preferred})
			if _, err := src.Fetch(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src.player != tt.want {
				t.Errorf("expected player %s, got %s", tt.want, src.player)
			}
		})
	}
}

func TestFetch_NoPlayer(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDBusClient(ctrl)

	client.EXPECT().ListNames(gomock.Any()).Return([]string{"org.freedesktop.DBus"}, nil)

	src := newTestSource(client, Options{})
	snap, err := src.Fetch(context.Background())
	if !errors.Is(err, domain.ErrNoPlayer) {
		t.Fatalf("expected ErrNoPlayer, got %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot, got %+v", snap)
	}
	if src.conn == nil {
		t.Error("connection should be kept when the bus is healthy")
	}
}

func TestFetch_DialError(t *testing.T) {
	src := NewMprisSource(zap.NewNop(), Options{})
	src.dial = func(ctx context.Context) (DBusClient, error) {
		return nil, errors.New("no session bus")
	}

	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if src.conn != nil {
		t.Error("connection should stay unset after a failed dial")
	}
}

func TestFetch_ListNamesErrorResetsConnection(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDBusClient(ctrl)

	client.EXPECT().ListNames(gomock.Any()).Return(nil, errors.New("bus gone"))
	client.EXPECT().Close().Return(nil)

	src := newTestSource(client, Options{})
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if src.conn != nil {
		t.Error("connection should be reset after a bus error")
	}
}

func TestFetch_ReadErrorForgetsPlayer(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDBusClient(ctrl)

	client.EXPECT().ListNames(gomock.Any()).Return([]string{"org.mpris.MediaPlayer2.mpd"}, nil)
	client.EXPECT().GetProperty(gomock.Any(), "org.mpris.MediaPlayer2.mpd", mprisPath, metadataProp).
		Return(dbus.Variant{}, errors.New("name has no owner"))

	src := newTestSource(client, Options{})
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if src.player != "" {
		t.Errorf("player should be forgotten, got %s", src.player)
	}
}

func TestFetch_EmptyMetadata(t *testing.T) {
	tests := []struct {
		name    string
		variant dbus.Variant
	}{
		{name: "Empty map", variant: dbus.MakeVariant(map[string]dbus.Variant{})},
		{name: "Wrong type", variant: dbus.MakeVariant("nothing")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockDBusClient(ctrl)

			client.EXPECT().ListNames(gomock.Any()).Return([]string{"org.mpris.MediaPlayer2.mpd"}, nil)
			client.EXPECT().GetProperty(gomock.Any(), gomock.Any(), mprisPath, metadataProp).Return(tt.variant, nil)

			src := newTestSource(client, Options{})
			snap, err := src.Fetch(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if snap != nil {
				t.Errorf("expected nil snapshot, got %+v", snap)
			}
		})
	}
}

func TestFetch_PositionUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDBusClient(ctrl)

	player := "org.mpris.MediaPlayer2.mpd"
	client.EXPECT().ListNames(gomock.Any()).Return([]string{player}, nil)
	client.EXPECT().GetProperty(gomock.Any(), player, mprisPath, metadataProp).
		Return(dbus.MakeVariant(queenMetadata()), nil)
	client.EXPECT().GetProperty(gomock.Any(), player, mprisPath, statusProp).
		Return(dbus.MakeVariant("Paused"), nil)
	client.EXPECT().GetProperty(gomock.Any(), player, mprisPath, positionProp).
		Return(dbus.Variant{}, errors.New("not supported"))

	src := newTestSource(client, Options{})
	snap, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.PositionMicros != 0 {
		t.Errorf("expected position 0, got %d", snap.PositionMicros)
	}
	if snap.Status != domain.StatusPaused {
		t.Errorf("expected Paused, got %s", snap.Status)
	}
}

func TestFetch_AppliesTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDBusClient(ctrl)

	client.EXPECT().ListNames(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]string, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Error("expected a deadline on the bus call")
		} else if time.Until(deadline) > 50*time.Millisecond {
			t.Errorf("deadline too far away: %v", time.Until(deadline))
		}
		return nil, nil
	})

	src := newTestSource(client, Options{Timeout: 50 * time.Millisecond})
	if _, err := src.Fetch(context.Background()); !errors.Is(err, domain.ErrNoPlayer) {
		t.Errorf("expected ErrNoPlayer, got %v", err)
	}
}

func TestClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDBusClient(ctrl)

	client.EXPECT().ListNames(gomock.Any()).Return(nil, nil)
	client.EXPECT().Close().Return(nil).Times(1)

	src := newTestSource(client, Options{})
	_, _ = src.Fetch(context.Background())

	if err := src.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A second close is a no-op
	if err := src.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseSnapshot(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]dbus.Variant
		status   string
		want     domain.TrackSnapshot
	}{
		{
			name:     "Missing fields use placeholders",
			metadata: map[string]dbus.Variant{"mpris:trackid": dbus.MakeVariant("/track/1")},
			status:   "Playing",
			want: domain.TrackSnapshot{
				Title:  unknownTitle,
				Artist: unknownArtist,
				Album:  unknownAlbum,
				Status: domain.StatusPlaying,
			},
		},
		{
			name: "Multiple artists are joined",
			metadata: map[string]dbus.Variant{
				"xesam:title":  dbus.MakeVariant("Under Pressure"),
				"xesam:artist": dbus.MakeVariant([]string{"Queen", "David Bowie"}),
			},
			status: "Paused",
			want: domain.TrackSnapshot{
				Title:  "Under Pressure",
				Artist: "Queen, David Bowie",
				Album:  unknownAlbum,
				Status: domain.StatusPaused,
			},
		},
		{
			name: "Single string artist",
			metadata: map[string]dbus.Variant{
				"xesam:artist": dbus.MakeVariant("Radiohead"),
				"mpris:length": dbus.MakeVariant(uint64(1_000_000)),
			},
			status: "Stopped",
			want: domain.TrackSnapshot{
				Title:        unknownTitle,
				Artist:       "Radiohead",
				Album:        unknownAlbum,
				Status:       domain.StatusStopped,
				LengthMicros: 1_000_000,
			},
		},
		{
			name:     "Unknown status is stopped",
			metadata: map[string]dbus.Variant{"xesam:title": dbus.MakeVariant("Song")},
			status:   "Buffering",
			want: domain.TrackSnapshot{
				Title:  "Song",
				Artist: unknownArtist,
				Album:  unknownAlbum,
				Status: domain.StatusStopped,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSnapshot(tt.metadata, tt.status, 0)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToMicros(t *testing.T) {
	tests := []struct {
		in   any
		want uint64
	}{
		{int64(42), 42},
		{int64(-5), 0},
		{uint64(42), 42},
		{int32(7), 7},
		{int32(-7), 0},
		{uint32(7), 7},
		{int16(3), 3},
		{uint16(3), 3},
		{byte(1), 1},
		{"42", 0},
		{nil, 0},
	}

	for _, tt := range tests {
		if got := toMicros(tt.in); got != tt.want {
			t.Errorf("toMicros(%#v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
