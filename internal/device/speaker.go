package device

import (
	"context"
	"fmt"
)

// speakerGroup models a set of multi-room speakers discovered on the
// local network. Every dispatch starts with a discovery scan; an empty
// result means offline, never an error. Commands fan out to the group's
// coordinators (members follow their coordinator), joins target every
// member outside the configured join target's group.
type speakerGroup struct {
	base
}

func newSpeakerGroup(desc Descriptor, env Env) Instance {
	return &speakerGroup{base: newBase(desc, env, TransportHTTP,
		"toggle", "volume", "join", "unjoin", "getState")}
}

func (g *speakerGroup) Dispatch(ctx context.Context, action string, msg any) (Result, error) {
	switch action {
	case "getState":
		return g.getState(ctx), nil
	case "toggle":
		return g.fanOutToggle(ctx), nil
	case "volume":
		vol, ok := intValue(msg)
		if !ok {
			return Result{}, fmt.Errorf("%w: volume requires an integer payload", ErrValidation)
		}
		return g.fanOutVolume(ctx, vol), nil
	case "join":
		if g.desc.JoinTarget == "" {
			return Result{}, fmt.Errorf("%w: join requires a configured join_target", ErrValidation)
		}
		return g.fanOutJoin(ctx), nil
	case "unjoin":
		return g.fanOutUnjoin(ctx), nil
	default:
		return g.unknownAction(action)
	}
}

func (g *speakerGroup) Refresh(ctx context.Context) {
	g.getState(ctx)
}

func (g *speakerGroup) getState(ctx context.Context) Result {
	members := g.env.Speakers.Discover(ctx, g.desc.Address)
	if len(members) == 0 {
		return g.markOffline(ctx, "no speakers discovered")
	}

	names := make([]any, 0, len(members))
	coordinators := make([]any, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
		if m.Coordinator {
			coordinators = append(coordinators, m.Name)
		}
	}

	changed := map[string]any{
		"online":       true,
		"members":      names,
		"coordinators": coordinators,
	}
	if err := g.mergeAndPersist(ctx, changed); err != nil {
		return Result{OK: false, Err: err.Error()}
	}
	return Result{OK: true, Changed: changed}
}

func (g *speakerGroup) fanOutToggle(ctx context.Context) Result {
	return g.fanOut(ctx, "toggle", func(m SpeakerMember) error {
		return g.env.Speakers.Toggle(ctx, m)
	}, true)
}

func (g *speakerGroup) fanOutVolume(ctx context.Context, vol int) Result {
	res := g.fanOut(ctx, "volume", func(m SpeakerMember) error {
		return g.env.Speakers.SetVolume(ctx, m, vol)
	}, false)
	if res.OK {
		res.Changed = map[string]any{"volume": vol}
		if err := g.mergeAndPersist(ctx, res.Changed); err != nil {
			return Result{OK: false, Err: err.Error()}
		}
	}
	return res
}

func (g *speakerGroup) fanOutJoin(ctx context.Context) Result {
	members := g.env.Speakers.Discover(ctx, g.desc.Address)
	if len(members) == 0 {
		return g.markOffline(ctx, "no speakers discovered")
	}

	target := g.desc.JoinTarget
	joined := 0
	for _, m := range members {
		if m.Name == target || m.Group == target {
			continue
		}
		if err := g.env.Speakers.Join(ctx, m, target); err != nil {
			g.env.log().Warn("speaker join failed",
				"device", g.desc.Name, "member", m.Name, "error", err)
			continue
		}
		joined++
	}
	g.blinkCoordinators(ctx, members)

	changed := map[string]any{"joined": joined, "join_target": target}
	if err := g.mergeAndPersist(ctx, changed); err != nil {
		return Result{OK: false, Err: err.Error()}
	}
	return Result{OK: true, Changed: changed}
}

func (g *speakerGroup) fanOutUnjoin(ctx context.Context) Result {
	members := g.env.Speakers.Discover(ctx, g.desc.Address)
	if len(members) == 0 {
		return g.markOffline(ctx, "no speakers discovered")
	}

	for _, m := range members {
		if err := g.env.Speakers.Unjoin(ctx, m); err != nil {
			g.env.log().Warn("speaker unjoin failed",
				"device", g.desc.Name, "member", m.Name, "error", err)
		}
	}
	g.blinkCoordinators(ctx, members)

	changed := map[string]any{"joined": 0}
	if err := g.mergeAndPersist(ctx, changed); err != nil {
		return Result{OK: false, Err: err.Error()}
	}
	return Result{OK: true, Changed: changed}
}

// fanOut discovers the group and applies one command to every
// coordinator, or to every member when coordinatorsOnly is false.
// Per-member failures are logged and skipped; only a failed discovery
// degrades the whole operation.
func (g *speakerGroup) fanOut(ctx context.Context, name string, cmd func(SpeakerMember) error, coordinatorsOnly bool) Result {
	members := g.env.Speakers.Discover(ctx, g.desc.Address)
	if len(members) == 0 {
		return g.markOffline(ctx, "no speakers discovered")
	}

	for _, m := range members {
		if coordinatorsOnly && !m.Coordinator {
			continue
		}
		if err := cmd(m); err != nil {
			g.env.log().Warn("speaker command failed",
				"device", g.desc.Name, "command", name, "member", m.Name, "error", err)
		}
	}
	return Result{OK: true}
}

// blinkCoordinators flashes the coordinator LEDs as a physical
// verification cue. Not state-bearing; failures are ignored.
func (g *speakerGroup) blinkCoordinators(ctx context.Context, members []SpeakerMember) {
	for _, m := range members {
		if !m.Coordinator {
			continue
		}
		if err := g.env.Speakers.Blink(ctx, m); err != nil {
			g.env.log().Debug("speaker blink failed",
				"device", g.desc.Name, "member", m.Name, "error", err)
		}
	}
}
