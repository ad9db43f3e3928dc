// Package transport holds the outbound adapters device handlers call:
// a short-timeout HTTP JSON client for device-native REST APIs and a
// speaker bridge adapter for multi-room group discovery and control.
//
// Adapters never let transport failures escape as anything other than
// an error return (HTTP) or an empty result set (discovery); the device
// model converts both into offline/degraded state.
package transport
