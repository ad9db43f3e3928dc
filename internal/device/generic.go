package device

// generic is the fallback for unrecognised type strings: a passive
// variant with an empty capability set. It still persists telemetry
// through the default ReceiveMessage, so an unknown device's data is
// kept rather than dropped.
type generic struct {
	base
}

func newGeneric(desc Descriptor, env Env) Instance {
	return &generic{base: newBase(desc, env, TransportNone)}
}
