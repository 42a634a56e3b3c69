package catalog

import "go.jetify.com/typeid"

type namespacePrefix struct{}

func (namespacePrefix) Prefix() string { return "ns" }

// NamespaceID is the unique identifier for a Namespace.
type NamespaceID struct {
	typeid.TypeID[namespacePrefix]
}

// Namespace is a named deployment grouping under which services are bound to
// clusters. Names are unique across all namespaces.
type Namespace struct {
	ID              NamespaceID `json:"id"`
	Name            string      `json:"name"`
	StreamingEngine string      `json:"streaming_engine"`
	TimeSeriesStore string      `json:"time_series_store,omitempty"`
	Description     string      `json:"description,omitempty"`
}

// NewNamespace creates a new Namespace with a generated ID.
func NewNamespace(name string, streamingEngine string, timeSeriesStore string) *Namespace {
	return &Namespace{
		ID:              NewID[NamespaceID](),
		Name:            name,
		StreamingEngine: streamingEngine,
		TimeSeriesStore: timeSeriesStore,
	}
}
