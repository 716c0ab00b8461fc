// Package config defines the format-agnostic model of a project file (tasks,
// pipelines, watch rules and the root pipeline) and compiles it into the
// explicit task registry, pipeline trees and watch rules the rest of the
// application runs. Concrete loaders, such as the HCL one, live in separate
// packages.
package config
