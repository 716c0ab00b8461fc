package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode every top-level construct a project file may
// hold. Any file may contain any block; the loader merges them.
type fileRoot struct {
	Root      hcl.Expression   `hcl:"root,optional"`
	Tasks     []*taskBlock     `hcl:"task,block"`
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Watches   []*watchBlock    `hcl:"watch,block"`
}

// taskBlock maps to:
//
//	task "styles" {
//	  processor = "concat"
//	  inputs    = ["css/*.css", "blocks/*.css"]
//	  output    = "css/styles.min.css"
//	  options   = { name = "css/styles.min.css" }
//	}
type taskBlock struct {
	Name      string         `hcl:"name,label"`
	Processor string         `hcl:"processor"`
	Inputs    []string       `hcl:"inputs,optional"`
	Output    string         `hcl:"output,optional"`
	Options   hcl.Expression `hcl:"options,optional"`
}

// pipelineBlock maps to a block holding exactly one of `series` or
// `parallel`, each a list of task or pipeline names.
type pipelineBlock struct {
	Name     string    `hcl:"name,label"`
	Series   *[]string `hcl:"series,optional"`
	Parallel *[]string `hcl:"parallel,optional"`
}

type watchBlock struct {
	Name    string `hcl:"name,label"`
	Pattern string `hcl:"pattern"`
	Run     string `hcl:"run"`
}
