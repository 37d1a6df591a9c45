// config_features.go - Cache- und Scheduler-Feature-Flags
//
// Dieses Modul enthaelt:
//   - DisableFusionCache: realisiert den in spec.md §7 beschriebenen
//     "optionalen Fallback-Hook" als Konfigurations-Flag
//   - DumpEffectiveTransform: Debug-Ausgabe nach dem Scheduling (Graph-ID und
//     gewaehlte Launch-Parameter), analog zu original_source's NVFUSER_DUMP=transform_propagator
package envconfig

var (
	// DisableFusionCache deaktiviert den Ausfuehrungs-Cache vollstaendig.
	// Wenn gesetzt, gibt der Aufrufer-Wrapper um runtime.Cache
	// runtime.ErrFallbackRequested zurueck, statt den Cache zu befragen;
	// der Kern selbst implementiert keinen Fallback, nur den Haken dafuer
	// (spec.md §7).
	DisableFusionCache = Bool("FUSER_DISABLE_FUSION_CACHE")

	// DumpEffectiveTransform protokolliert nach dem Scheduling auf Debug-Ebene
	// die Graph-ID und die vom Scheduler gewaehlten Launch-Parameter; die
	// einzelnen Split/Merge/rFactor/ComputeAt-Schritte werden nicht ausgegeben.
	DumpEffectiveTransform = Bool("FUSER_DUMP_TRANSFORM")
)
