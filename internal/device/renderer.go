package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// renderer is a network media renderer with a Volumio-style REST API:
// /api/v1/getState for the full playback state, /api/v1/commands/?cmd=
// for transport control. Every response body merges into state.
type renderer struct {
	base
}

func newRenderer(desc Descriptor, env Env) Instance {
	return &renderer{base: newBase(desc, env, TransportHTTP,
		"pause", "stop", "toggle", "prev", "next", "volume", "getState")}
}

func (r *renderer) Dispatch(ctx context.Context, action string, msg any) (Result, error) {
	switch action {
	case "pause", "stop", "toggle", "prev", "next":
		return r.command(ctx, "cmd="+action), nil
	case "volume":
		vol, ok := intValue(msg)
		if !ok {
			return Result{}, fmt.Errorf("%w: volume requires an integer payload", ErrValidation)
		}
		return r.command(ctx, "cmd=volume&volume="+strconv.Itoa(vol)), nil
	case "getState":
		return r.getState(ctx), nil
	default:
		return r.unknownAction(action)
	}
}

func (r *renderer) Refresh(ctx context.Context) {
	r.getState(ctx)
}

func (r *renderer) command(ctx context.Context, query string) Result {
	doc, err := r.env.HTTP.GetJSON(ctx, r.url("/api/v1/commands/?"+query))
	if err != nil {
		r.env.log().Warn("renderer command failed",
			"device", r.desc.Name, "query", query, "error", err)
		return r.markOffline(ctx, "renderer unreachable")
	}
	return r.merge(ctx, doc)
}

func (r *renderer) getState(ctx context.Context) Result {
	doc, err := r.env.HTTP.GetJSON(ctx, r.url("/api/v1/getState"))
	if err != nil {
		r.env.log().Warn("renderer getState failed",
			"device", r.desc.Name, "error", err)
		return r.markOffline(ctx, "renderer unreachable")
	}
	return r.merge(ctx, doc)
}

func (r *renderer) merge(ctx context.Context, doc map[string]any) Result {
	changed := make(map[string]any, len(doc)+1)
	mergeDoc(changed, doc)
	changed["online"] = true

	if err := r.mergeAndPersist(ctx, changed); err != nil {
		return Result{OK: false, Err: err.Error()}
	}
	return Result{OK: true, Changed: changed}
}

func (r *renderer) url(path string) string {
	addr := r.desc.Address
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimSuffix(addr, "/") + path
}
