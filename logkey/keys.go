package logkey

const (
	Service   = "service"
	Component = "component"

	NamespaceID   = "namespace.id"
	NamespaceName = "namespace.name"

	ClusterID   = "cluster.id"
	ServiceName = "service.name"

	TopologyID = "topology.id"

	NotifSubject = "notif.subject"
	NotifEventID = "notif.event.id"
)

var HTTPKeys = []string{
	NamespaceID,
	NamespaceName,

	ClusterID,
	ServiceName,

	TopologyID,
}
