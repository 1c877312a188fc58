// Package avdeccconfig holds the construction parameters for a
// controller instance: which network interface to bind, discovery
// timing, the controller's own identity fields and logging defaults.
//
// Values can be built programmatically or loaded from a YAML file in
// the shape consumed by the avdecc-discoverd command.
package avdeccconfig
