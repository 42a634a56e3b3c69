package catalogapi

import (
	"fmt"

	"github.com/cohesivestack/valgo"
	"go.jetify.com/typeid"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/constants"
)

const maxNameLength = 100

type CreateNamespaceRequest struct {
	Name            string `json:"name"`
	StreamingEngine string `json:"streaming_engine"`
	TimeSeriesStore string `json:"time_series_store"`
	Description     string `json:"description"`
}

func (r CreateNamespaceRequest) Validate() error {
	return valgo.Is(
		namespaceNameValidator(r.Name, "name"),
		valgo.String(r.StreamingEngine, "streaming_engine").Not().Blank().MaxLength(maxNameLength),
		valgo.String(r.TimeSeriesStore, "time_series_store").MaxLength(maxNameLength),
	).Error()
}

type UpdateNamespaceRequest struct {
	ID              string `param:"namespace_id" json:"-"`
	Name            string `json:"name"`
	StreamingEngine string `json:"streaming_engine"`
	TimeSeriesStore string `json:"time_series_store"`
	Description     string `json:"description"`
}

func (r UpdateNamespaceRequest) Validate() error {
	v := valgo.In("params", valgo.Is(IDValidator[catalog.NamespaceID](r.ID, "namespace_id")))
	v.Is(
		namespaceNameValidator(r.Name, "name"),
		valgo.String(r.StreamingEngine, "streaming_engine").Not().Blank().MaxLength(maxNameLength),
		valgo.String(r.TimeSeriesStore, "time_series_store").MaxLength(maxNameLength),
	)
	return v.ToError()
}

type GetNamespaceRequest struct {
	ID     string `param:"namespace_id" json:"-"`
	Detail bool   `query:"detail" json:"-"`
}

func (r GetNamespaceRequest) Validate() error {
	return valgo.In("params", valgo.Is(IDValidator[catalog.NamespaceID](r.ID, "namespace_id"))).Error()
}

type GetNamespaceByNameRequest struct {
	Name   string `param:"namespace_name" json:"-"`
	Detail bool   `query:"detail" json:"-"`
}

func (r GetNamespaceByNameRequest) Validate() error {
	return valgo.In("params", valgo.Is(
		valgo.String(r.Name, "namespace_name").Not().Blank().MaxLength(maxNameLength),
	)).Error()
}

type ListNamespacesRequest struct {
	StreamingEngine string `query:"streaming_engine" json:"-"`
	TimeSeriesStore string `query:"time_series_store" json:"-"`
	Detail          bool   `query:"detail" json:"-"`
}

func (r ListNamespacesRequest) Validate() error {
	return valgo.Is(
		valgo.String(r.StreamingEngine, "streaming_engine").MaxLength(maxNameLength),
		valgo.String(r.TimeSeriesStore, "time_series_store").MaxLength(maxNameLength),
	).Error()
}

type NamespaceResponse struct {
	catalog.Namespace
}

// NamespaceDetailResponse pairs a namespace with its service cluster
// mappings.
type NamespaceDetailResponse struct {
	catalog.Namespace
	Mappings []catalog.ServiceClusterMapping `json:"mappings"`
}

type PutMappingRequest struct {
	NamespaceID string `param:"namespace_id" json:"-"`
	ServiceName string `json:"service_name"`
	ClusterID   string `json:"cluster_id"`
}

func (r PutMappingRequest) Validate() error {
	v := valgo.In("params", valgo.Is(IDValidator[catalog.NamespaceID](r.NamespaceID, "namespace_id")))
	v.Is(
		serviceNameValidator(r.ServiceName, "service_name"),
		IDValidator[catalog.ClusterID](r.ClusterID, "cluster_id"),
	)
	return v.ToError()
}

type ListMappingsRequest struct {
	NamespaceID string `param:"namespace_id" json:"-"`
	ServiceName string `query:"service_name" json:"-"`
}

func (r ListMappingsRequest) Validate() error {
	return valgo.In("params", valgo.Is(IDValidator[catalog.NamespaceID](r.NamespaceID, "namespace_id"))).Error()
}

type DeleteMappingRequest struct {
	NamespaceID string `param:"namespace_id" json:"-"`
	ServiceName string `param:"service_name" json:"-"`
	ClusterID   string `param:"cluster_id" json:"-"`
}

func (r DeleteMappingRequest) Validate() error {
	return valgo.In("params", valgo.Is(
		IDValidator[catalog.NamespaceID](r.NamespaceID, "namespace_id"),
		serviceNameValidator(r.ServiceName, "service_name"),
		IDValidator[catalog.ClusterID](r.ClusterID, "cluster_id"),
	)).Error()
}

type MappingPayload struct {
	ServiceName string `json:"service_name"`
	ClusterID   string `json:"cluster_id"`
}

func (p MappingPayload) validation() *valgo.Validation {
	return valgo.Is(
		serviceNameValidator(p.ServiceName, "service_name"),
		IDValidator[catalog.ClusterID](p.ClusterID, "cluster_id"),
	)
}

type ReplaceMappingsRequest struct {
	NamespaceID string           `param:"namespace_id" json:"-"`
	Mappings    []MappingPayload `json:"mappings"`
}

func (r ReplaceMappingsRequest) Validate() error {
	v := valgo.In("params", valgo.Is(IDValidator[catalog.NamespaceID](r.NamespaceID, "namespace_id")))
	for i, m := range r.Mappings {
		v.InRow("mappings", i, m.validation())
	}
	return v.ToError()
}

type MappingResponse struct {
	catalog.ServiceClusterMapping
}

type CreateTopologyRequest struct {
	NamespaceID string `json:"namespace_id"`
	Name        string `json:"name"`
}

func (r CreateTopologyRequest) Validate() error {
	return valgo.Is(
		IDValidator[catalog.NamespaceID](r.NamespaceID, "namespace_id"),
		valgo.String(r.Name, "name").Not().Blank().MaxLength(maxNameLength),
	).Error()
}

type GetTopologyRequest struct {
	ID string `param:"topology_id" json:"-"`
}

func (r GetTopologyRequest) Validate() error {
	return valgo.In("params", valgo.Is(IDValidator[catalog.TopologyID](r.ID, "topology_id"))).Error()
}

type DeleteTopologyRequest struct {
	ID string `param:"topology_id" json:"-"`
}

func (r DeleteTopologyRequest) Validate() error {
	return valgo.In("params", valgo.Is(IDValidator[catalog.TopologyID](r.ID, "topology_id"))).Error()
}

type TopologyResponse struct {
	catalog.Topology
}

func IDValidator[ID catalog.ID, PT typeid.SubtypePtr[ID]](identifier string, nameAndTitle ...string) valgo.Validator {
	typeName := catalog.GetTypeNameFromID[ID]()

	var parsed ID
	var parseErr error

	return valgo.String(identifier, nameAndTitle...).
		Passing(func(_ string) bool {
			parsed, parseErr = catalog.ParseID[ID, PT](identifier)
			return parseErr == nil
		}, fmt.Sprintf("Must be a valid %s ID", typeName)).
		Passing(func(_ string) bool {
			if parseErr == nil {
				return parsed.Suffix() != "" || !parsed.IsZero()
			}
			return true
		}, "Must not be empty")
}

func nameValidator(name string, nameAndTitle ...string) *valgo.ValidatorString[string] {
	return valgo.String(name, nameAndTitle...).Not().Blank().MaxLength(maxNameLength)
}

func namespaceNameValidator(name string, nameAndTitle ...string) valgo.Validator {
	return nameValidator(name, nameAndTitle...).
		Passing(func(_ string) bool {
			return !constants.IsReservedNamespaceName(name)
		}, "Name is a reserved value")
}

func serviceNameValidator(name string, nameAndTitle ...string) valgo.Validator {
	return nameValidator(name, nameAndTitle...)
}
