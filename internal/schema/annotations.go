package schema

// Annotation is the tagged union of per-field metadata the IR builder needs
// to reinterpret a resolved field/argument without re-resolving any name
// against metadataresolve.Metadata. schema.Field/InputValue carry no
// free-form metadata slot of their own, so Schema keeps annotations in a
// side map keyed by (TypeName, FieldName).
type Annotation struct {
	ModelSelectOne          *ModelSelectOneAnnotation
	ModelSelectMany         *ModelSelectManyAnnotation
	ModelFilterArgument     *ModelFilterArgumentAnnotation
	FilterRelationship      *FilterRelationshipAnnotation
	Command                 *CommandAnnotation
	Node                    *NodeAnnotation
	ApolloEntities          *ApolloEntitiesAnnotation
	ApolloService           *ApolloServiceAnnotation
	TypeName                *TypeNameAnnotation
}

// ModelSelectOneAnnotation marks a root query field generated from a
// model's select_unique definition.
type ModelSelectOneAnnotation struct {
	Model        string
	UniqueFields []string
}

// ModelSelectManyAnnotation marks a root query field generated from a
// model's select_many definition.
type ModelSelectManyAnnotation struct {
	Model string
}

// ModelFilterArgumentAnnotation marks the `where` input-object field that
// compares one scalar field of a model's boolean expression type.
type ModelFilterArgumentAnnotation struct {
	BooleanExpressionType string
	Field                 string
}

// FilterRelationshipAnnotation marks a `where` input-object field that
// recurses into a Local relationship's target filter type.
type FilterRelationshipAnnotation struct {
	Relationship string
}

// CommandAnnotation marks a root field generated from a Command.
type CommandAnnotation struct {
	Command string
}

// NodeAnnotation marks the Relay-style `node(id: ID!)` root field.
type NodeAnnotation struct{}

// ApolloEntitiesAnnotation marks the Apollo Federation `_entities` root
// field.
type ApolloEntitiesAnnotation struct{}

// ApolloServiceAnnotation marks the Apollo Federation `_service` root
// field.
type ApolloServiceAnnotation struct{}

// TypeNameAnnotation marks an output object type as backed by one resolved
// OpenDD object type, so the IR builder can map a selection set back onto
// metadataresolve.ObjectType fields.
type TypeNameAnnotation struct {
	ObjectType string
}

// FieldKey identifies one field/argument slot an Annotation is attached to.
type FieldKey struct {
	TypeName  string
	FieldName string
}

// Annotations is the side table of spec.md §4.2's "added" Annotations
// requirement.
type Annotations map[FieldKey]*Annotation

func (a Annotations) Set(typeName, fieldName string, ann *Annotation) {
	a[FieldKey{TypeName: typeName, FieldName: fieldName}] = ann
}

func (a Annotations) Get(typeName, fieldName string) *Annotation {
	return a[FieldKey{TypeName: typeName, FieldName: fieldName}]
}
