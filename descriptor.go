package restive

import "github.com/broady/restive/internal/meta"

// Descriptor types are produced by Describe and by building a client.
// They cannot be constructed outside this module.
type (
	ServiceDescriptor   = meta.ServiceDescriptor
	MethodDescriptor    = meta.MethodDescriptor
	ParameterDescriptor = meta.ParameterDescriptor
	Role                = meta.Role
	ReturnShape         = meta.ReturnShape
	BodyMethod          = meta.BodyMethod
	StatusPolicy        = meta.StatusPolicy
)

const (
	RoleUnlabeledQuery = meta.RoleUnlabeledQuery
	RolePath           = meta.RolePath
	RoleQuery          = meta.RoleQuery
	RoleHeader         = meta.RoleHeader
	RoleBody           = meta.RoleBody
	RoleCancellation   = meta.RoleCancellation

	ShapeVoid       = meta.ShapeVoid
	ShapeRawText    = meta.ShapeRawText
	ShapeRawMessage = meta.ShapeRawMessage
	ShapeWrapped    = meta.ShapeWrapped
	ShapeTyped      = meta.ShapeTyped

	BodyJSON = meta.BodyJSON
	BodyForm = meta.BodyForm
	BodyRaw  = meta.BodyRaw

	StatusStrict = meta.StatusStrict
	StatusAny    = meta.StatusAny
)
