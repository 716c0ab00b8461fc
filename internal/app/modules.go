package app

import (
	"github.com/specialistvlad/assetgrid/internal/processor"
	"github.com/specialistvlad/assetgrid/modules/concat"
	"github.com/specialistvlad/assetgrid/modules/copy"
	"github.com/specialistvlad/assetgrid/modules/include"
)

// coreModules is the definitive list of all processors that are compiled
// into the assetgrid binary. The clean processor is built into the task
// registry.
var coreModules = []processor.Module{
	&concat.Module{},
	&include.Module{},
	&copy.Module{},
}
