package queryir

import "github.com/opendd/ddnengine/internal/metadataresolve"

// UsagesCounts is spec.md §3/§4.3's post-hoc billing/observability
// side-channel: every model or command referenced while building the IR
// bumps its entry here, independent of whether the field ultimately reaches
// the planner as a local or remote selection.
type UsagesCounts struct {
	Models   map[metadataresolve.Qualified[metadataresolve.ModelName]]int
	Commands map[metadataresolve.Qualified[metadataresolve.CommandName]]int
}

func newUsagesCounts() *UsagesCounts {
	return &UsagesCounts{
		Models:   map[metadataresolve.Qualified[metadataresolve.ModelName]]int{},
		Commands: map[metadataresolve.Qualified[metadataresolve.CommandName]]int{},
	}
}

func (u *UsagesCounts) bumpModel(name metadataresolve.Qualified[metadataresolve.ModelName]) {
	u.Models[name]++
}

func (u *UsagesCounts) bumpCommand(name metadataresolve.Qualified[metadataresolve.CommandName]) {
	u.Commands[name]++
}
