package device

import (
	"context"
	"strings"
)

// plug is a wifi smart plug with a myStrom-style REST API:
// /relay?state=1|0 switches the relay, /toggle flips it, /report
// returns the current relay state and power draw.
type plug struct {
	base
}

func newPlug(desc Descriptor, env Env) Instance {
	return &plug{base: newBase(desc, env, TransportHTTP,
		"on", "off", "toggle", "getState")}
}

func (p *plug) Dispatch(ctx context.Context, action string, _ any) (Result, error) {
	switch action {
	case "on":
		return p.setRelay(ctx, true), nil
	case "off":
		return p.setRelay(ctx, false), nil
	case "toggle":
		return p.command(ctx, "/toggle"), nil
	case "getState":
		return p.report(ctx), nil
	default:
		return p.unknownAction(action)
	}
}

func (p *plug) Refresh(ctx context.Context) {
	p.report(ctx)
}

func (p *plug) setRelay(ctx context.Context, on bool) Result {
	path := "/relay?state=0"
	if on {
		path = "/relay?state=1"
	}
	return p.command(ctx, path)
}

// command issues a write to the plug and re-fetches state afterwards,
// so the persisted document reflects what the device reports rather
// than what we asked for.
func (p *plug) command(ctx context.Context, path string) Result {
	if _, err := p.env.HTTP.GetJSON(ctx, p.url(path)); err != nil {
		p.env.log().Warn("plug command failed",
			"device", p.desc.Name, "path", path, "error", err)
		return p.markOffline(ctx, "device unreachable")
	}
	return p.report(ctx)
}

func (p *plug) report(ctx context.Context) Result {
	doc, err := p.env.HTTP.GetJSON(ctx, p.url("/report"))
	if err != nil {
		p.env.log().Warn("plug report failed",
			"device", p.desc.Name, "error", err)
		return p.markOffline(ctx, "device unreachable")
	}

	changed := make(map[string]any, len(doc)+1)
	mergeDoc(changed, doc)
	changed["online"] = true

	if err := p.mergeAndPersist(ctx, changed); err != nil {
		return Result{OK: false, Err: err.Error()}
	}
	return Result{OK: true, Changed: changed}
}

func (p *plug) url(path string) string {
	addr := p.desc.Address
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimSuffix(addr, "/") + path
}
