package approval

import "fmt"

// ResolveFunc computes the status reached by a permitted action. It receives
// the request's approvers and the acting identity.
type ResolveFunc func(approvers Approvers, actor string) Status

// MachineBuilder assembles the transition table of a Machine
type MachineBuilder interface {
	// Configure returns the configuration for a stage
	Configure(stage Stage) StageConfiguration

	// Build freezes the configured transitions into a Machine
	Build() *Machine
}

// StageConfiguration configures the actions permitted in one stage
type StageConfiguration interface {
	// PermitFunc allows an action whose target depends on the approvers
	PermitFunc(action Action, resolve ResolveFunc) StageConfiguration
}

type stageConfig struct {
	stage       Stage
	transitions map[Action]ResolveFunc
}

type machineBuilder struct {
	configurations map[Stage]*stageConfig
}

// NewBuilder creates an empty machine builder
func NewBuilder() MachineBuilder {
	return &machineBuilder{
		configurations: make(map[Stage]*stageConfig),
	}
}

// Configure returns the configuration for a stage. Terminal stages cannot be configured.
func (b *machineBuilder) Configure(stage Stage) StageConfiguration {
	if !stage.IsValid() {
		panic(fmt.Sprintf("invalid stage: %s", stage))
	}
	if stage.IsTerminal() {
		panic(fmt.Sprintf("terminal stage cannot have transitions: %s", stage))
	}

	config, exists := b.configurations[stage]
	if !exists {
		config = &stageConfig{
			stage:       stage,
			transitions: make(map[Action]ResolveFunc),
		}
		b.configurations[stage] = config
	}
	return config
}

// Build copies the configured transitions into an immutable Machine
func (b *machineBuilder) Build() *Machine {
	table := make(map[Stage]map[Action]ResolveFunc, len(b.configurations))
	for stage, config := range b.configurations {
		actions := make(map[Action]ResolveFunc, len(config.transitions))
		for action, resolve := range config.transitions {
			actions[action] = resolve
		}
		table[stage] = actions
	}
	return &Machine{transitions: table}
}

// PermitFunc allows an action with a computed target
func (c *stageConfig) PermitFunc(action Action, resolve ResolveFunc) StageConfiguration {
	if resolve == nil {
		panic(fmt.Sprintf("nil resolver for %s in %s", action, c.stage))
	}
	c.transitions[action] = resolve
	return c
}
