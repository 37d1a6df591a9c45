// device.go - static device capability descriptor for the reduction heuristic
//
// Dieses Modul ersetzt des Lehrers subprocess-basierte Geraeteerkennung
// (discover/*, ml/device_env.go) durch einen einfachen Werttyp: die
// Heuristik in reduction.go braucht nur drei Zahlen (Warp-Breite, maximale
// Threads pro Multiprozessor, Anzahl Multiprozessoren), keine laufende
// Subprozess-Kommunikation mit einem Treiber.
package schedule

// DeviceCapabilities names the target accelerator limits the reduction
// heuristic (spec.md §4.9) reasons about.
type DeviceCapabilities struct {
	WarpSize                    int
	MaxThreadsPerMultiprocessor int
	MultiprocessorCount         int
}

// DefaultDeviceCapabilities returns a representative capability set used
// when the runtime package has not yet probed or been given a concrete
// device descriptor.
func DefaultDeviceCapabilities() DeviceCapabilities {
	return DeviceCapabilities{
		WarpSize:                    32,
		MaxThreadsPerMultiprocessor: 2048,
		MultiprocessorCount:         80,
	}
}
