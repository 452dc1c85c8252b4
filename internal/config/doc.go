// Package config defines the format-agnostic model of a layer declaration,
// along with the Loader interface that format adapters implement.
//
// The `config.Model` is the single input of the planner. Concrete loaders
// for HCL and YAML live in separate packages.
package config
