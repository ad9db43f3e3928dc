package device

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Lamp validation bounds and enumerations, matching what zigbee2mqtt
// accepts for dimmable colour-temperature bulbs.
const (
	brightnessMin = 1
	brightnessMax = 253

	colorTempMin = 250
	colorTempMax = 453

	defaultTransition = 1
)

var colorTempPresets = []string{"coolest", "cool", "neutral", "warm", "warmest"}

var lampEffects = []string{
	"blink", "breathe", "okay", "channel_change", "finish_effect", "stop_effect",
}

// zigbeeLamp extends the zigbee switch with brightness, colour
// temperature, and effect control. Commands publish only the changed
// keys, and only the changed keys merge into local state.
type zigbeeLamp struct {
	zigbeeSwitch
}

func newZigbeeLamp(desc Descriptor, env Env) Instance {
	return &zigbeeLamp{zigbeeSwitch{base: newBase(desc, env, TransportBus,
		"on", "off", "toggle", "brightness", "color_temp", "effect", "getState")}}
}

func (l *zigbeeLamp) Dispatch(ctx context.Context, action string, msg any) (Result, error) {
	switch action {
	case "brightness":
		return l.setBrightness(ctx, msg)
	case "color_temp":
		return l.setColorTemp(ctx, msg)
	case "effect":
		return l.doEffect(ctx, msg)
	default:
		return l.zigbeeSwitch.Dispatch(ctx, action, msg)
	}
}

func (l *zigbeeLamp) setBrightness(ctx context.Context, msg any) (Result, error) {
	value, transition, err := lampArgs(msg, "brightness")
	if err != nil {
		return Result{}, err
	}
	bri, ok := intValue(value)
	if !ok || bri < brightnessMin || bri > brightnessMax {
		return Result{}, fmt.Errorf("%w: brightness must be an integer between %d and %d",
			ErrValidation, brightnessMin, brightnessMax)
	}

	changed := map[string]any{"brightness": bri, "transition": transition}
	return l.publishAndMerge(ctx, changed)
}

func (l *zigbeeLamp) setColorTemp(ctx context.Context, msg any) (Result, error) {
	value, transition, err := lampArgs(msg, "colorTemp", "color_temp")
	if err != nil {
		return Result{}, err
	}

	var ct any
	if n, ok := intValue(value); ok && n >= colorTempMin && n <= colorTempMax {
		ct = n
	} else if s, ok := value.(string); ok && slices.Contains(colorTempPresets, s) {
		ct = s
	} else {
		return Result{}, fmt.Errorf("%w: color_temp must be an integer between %d and %d or one of %s",
			ErrValidation, colorTempMin, colorTempMax, strings.Join(colorTempPresets, ", "))
	}

	changed := map[string]any{"color_temp": ct, "transition": transition}
	return l.publishAndMerge(ctx, changed)
}

func (l *zigbeeLamp) doEffect(ctx context.Context, msg any) (Result, error) {
	value := msg
	if m, ok := msg.(map[string]any); ok {
		value = m["effect"]
	}
	effect, ok := value.(string)
	if !ok || !slices.Contains(lampEffects, effect) {
		return Result{}, fmt.Errorf("%w: effect must be one of %s",
			ErrValidation, strings.Join(lampEffects, ", "))
	}

	changed := map[string]any{"effect": effect}
	return l.publishAndMerge(ctx, changed)
}

func (l *zigbeeLamp) publishAndMerge(ctx context.Context, changed map[string]any) (Result, error) {
	if err := l.publishSet(changed); err != nil {
		l.env.log().Warn("lamp command publish failed",
			"device", l.desc.Name, "error", err)
		return Result{OK: false, Err: "bus publish failed"}, nil
	}
	if err := l.mergeAndPersist(ctx, changed); err != nil {
		return Result{OK: false, Err: err.Error()}, nil
	}
	return Result{OK: true, Changed: changed}, nil
}

// lampArgs pulls the action value and optional transition out of a
// payload. A bare number or string is the value itself; an object
// carries the value under one of the given keys plus a "transition".
func lampArgs(msg any, keys ...string) (value any, transition int, err error) {
	transition = defaultTransition
	value = msg

	if m, ok := msg.(map[string]any); ok {
		for _, k := range keys {
			if v, present := m[k]; present {
				value = v
				break
			}
		}
		if t, present := m["transition"]; present {
			n, ok := intValue(t)
			if !ok || n < 0 {
				return nil, 0, fmt.Errorf("%w: transition must be a non-negative integer", ErrValidation)
			}
			transition = n
		}
	}

	return value, transition, nil
}
