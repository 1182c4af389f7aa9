package clcdk

import (
	"path/filepath"
	"strconv"
)

type conventions struct {
	qualifier  string
	mainRegion string
}

// NewConventions inits a convention instance.
func NewConventions(qual, mainRegion string) Conventions {
	return conventions{qualifier: qual, mainRegion: mainRegion}
}

func (c conventions) StackName(component string, instance int) string {
	return c.Qualifier() + component + strconv.Itoa(instance)
}

func (c conventions) Qualifier() string {
	return c.qualifier
}

func (c conventions) MainRegion() string {
	return c.mainRegion
}

func (c conventions) BuildDir() string {
	return filepath.Join("clcdk", "builds")
}

// Conventions describes the interface for retrieving info that needs to be consistent between
// the stack and the other programs, i.e: magefiles. Conventions are shared between all stacks,
// instances, accounts and regions.
type Conventions interface {
	StackName(component string, instance int) string
	Qualifier() string
	MainRegion() string
	BuildDir() string
}
