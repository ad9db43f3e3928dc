package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hubforge/homehub/internal/device"
	"github.com/hubforge/homehub/internal/infrastructure/logging"
)

// SpeakerAdapter talks to a speaker HTTP bridge (node-sonos-http-api
// compatible): /zones for group topology, /{room}/playpause,
// /{room}/volume/{n}, /{room}/join/{target}, /{room}/leave for control,
// /{room}/led/... for the verification blink.
type SpeakerAdapter struct {
	client *http.Client
	logger *logging.Logger
}

// zone mirrors one entry of the bridge's /zones response.
type zone struct {
	Coordinator zoneMember   `json:"coordinator"`
	Members     []zoneMember `json:"members"`
}

type zoneMember struct {
	RoomName string `json:"roomName"`
}

// NewSpeakerAdapter creates a speaker bridge adapter. A non-positive
// timeout falls back to the default.
func NewSpeakerAdapter(timeout time.Duration, logger *logging.Logger) *SpeakerAdapter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SpeakerAdapter{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Discover queries the bridge's group topology. Any failure returns an
// empty set; the caller treats that as offline, never as an error.
func (a *SpeakerAdapter) Discover(ctx context.Context, address string) []device.SpeakerMember {
	raw, err := a.get(ctx, baseURL(address)+"/zones")
	if err != nil {
		a.logger.Warn("speaker discovery failed", "address", address, "error", err)
		return nil
	}

	var zones []zone
	if err := json.Unmarshal(raw, &zones); err != nil {
		a.logger.Warn("speaker discovery returned malformed topology",
			"address", address, "error", err)
		return nil
	}

	var members []device.SpeakerMember
	for _, z := range zones {
		group := z.Coordinator.RoomName
		for _, m := range z.Members {
			members = append(members, device.SpeakerMember{
				Name:        m.RoomName,
				Address:     baseURL(address),
				Group:       group,
				Coordinator: m.RoomName == group,
			})
		}
	}
	return members
}

// Toggle flips play/pause on one member.
func (a *SpeakerAdapter) Toggle(ctx context.Context, m device.SpeakerMember) error {
	return a.command(ctx, m, "playpause")
}

// SetVolume sets an absolute volume on one member.
func (a *SpeakerAdapter) SetVolume(ctx context.Context, m device.SpeakerMember, volume int) error {
	return a.command(ctx, m, "volume/"+strconv.Itoa(volume))
}

// Join makes a member follow the target room's group.
func (a *SpeakerAdapter) Join(ctx context.Context, m device.SpeakerMember, target string) error {
	return a.command(ctx, m, "join/"+url.PathEscape(target))
}

// Unjoin removes a member from its group.
func (a *SpeakerAdapter) Unjoin(ctx context.Context, m device.SpeakerMember) error {
	return a.command(ctx, m, "leave")
}

// Blink flashes the member's status LED as a physical verification cue.
func (a *SpeakerAdapter) Blink(ctx context.Context, m device.SpeakerMember) error {
	if err := a.command(ctx, m, "led/off"); err != nil {
		return err
	}
	return a.command(ctx, m, "led/on")
}

func (a *SpeakerAdapter) command(ctx context.Context, m device.SpeakerMember, path string) error {
	_, err := a.get(ctx, m.Address+"/"+url.PathEscape(m.Name)+"/"+path)
	return err
}

func (a *SpeakerAdapter) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrBadStatus, resp.StatusCode, u)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrRequestFailed, err)
	}
	return body, nil
}

func baseURL(address string) string {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return strings.TrimSuffix(address, "/")
}
