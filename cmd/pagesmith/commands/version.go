package commands

import "git.home.luguber.info/inful/pagesmith/internal/version"

// VersionCmd prints build information.
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Global) error {
	printf(g, "%s\n", version.String())
	return nil
}
