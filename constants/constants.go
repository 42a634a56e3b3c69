// Package constants defines a collection of names and keywords that have
// special meanings within the context of the app. These values are used to
// enforce naming constraints, avoid conflicts, and ensure consistency across
// various components of the system. This package centralizes these constants to
// maintain a single source of truth for all identifiers, making it easier to
// update and reference them throughout the codebase.
package constants

const (
	AppName               = "rivulet"
	AppNameUpper          = "RIVULET"
	InternalNamespaceName = AppName + "_internal"
	DefaultNamespaceName  = "default"

	// Default service bindings applied to the namespace created on startup.
	// Mappings are not restricted to these values.
	DefaultStreamingEngine = "STORM"
	DefaultTimeSeriesStore = "AMBARI_METRICS_COLLECTOR"
)

func IsReservedNamespaceName(name string) bool {
	return name == InternalNamespaceName
}
