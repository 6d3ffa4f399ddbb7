// Package deploy describes the generated handler as a deployable function and
// binds it into the service manifest.
package deploy

// ReservedKey is the manifest key the generated function is registered under.
const ReservedKey = "healthcheckPlugin"

// Description is the fixed description of the generated function.
const Description = "Invokes the service's health checks on a schedule"

// Descriptor is the manifest entry of the generated function.
type Descriptor struct {
	Description string   `yaml:"description" json:"description"`
	Handler     string   `yaml:"handler" json:"handler"`
	Name        string   `yaml:"name" json:"name"`
	MemorySize  int      `yaml:"memorySize" json:"memorySize"`
	Timeout     int      `yaml:"timeout" json:"timeout"`
	Role        *RoleRef `yaml:"role,omitempty" json:"role,omitempty"`
	Events      []Event  `yaml:"events" json:"events"`
	Package     Package  `yaml:"package" json:"package"`
}

// RoleRef references the runtime identity of an execution role.
type RoleRef struct {
	GetAtt []string `yaml:"Fn::GetAtt,flow" json:"Fn::GetAtt"`
}

// NewRoleRef returns a reference to role's ARN.
func NewRoleRef(role string) *RoleRef {
	return &RoleRef{GetAtt: []string{role, "Arn"}}
}

// Event is one trigger. Exactly one field is set.
type Event struct {
	HTTP     *HTTPEvent     `yaml:"http,omitempty" json:"http,omitempty"`
	Schedule *ScheduleEvent `yaml:"schedule,omitempty" json:"schedule,omitempty"`
}

type HTTPEvent struct {
	Path    string `yaml:"path" json:"path"`
	Method  string `yaml:"method" json:"method"`
	Private bool   `yaml:"private" json:"private"`
}

type ScheduleEvent struct {
	Rate string `yaml:"rate" json:"rate"`
}

// Package restricts what the generated function ships.
type Package struct {
	Patterns []string `yaml:"patterns" json:"patterns"`
}
