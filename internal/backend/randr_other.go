//go:build !linux

package backend

// RandRName is the registry name of the X11 RandR backend, which is only
// built on Linux.
const RandRName = "randr"
