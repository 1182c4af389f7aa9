// Package clbuildinfo provides build-time information to the rest of the application.
package clbuildinfo

import (
	"go.uber.org/fx"
)

// Info provides build-time information to the rest of the application.
type Info struct {
	version string
}

// New initializes the build info component.
func New(version string) *Info {
	return &Info{version: version}
}

// Version as determined at build time.
func (in Info) Version() string {
	return in.version
}

// moduleName for naming conventions.
const moduleName = "clbuildinfo"

// Provide configures the DI for providing the build info.
func Provide(version string) fx.Option {
	return fx.Module(moduleName,
		fx.Supply(fx.Annotate(version, fx.ResultTags(`name:"version"`))),
		fx.Provide(fx.Annotate(New, fx.ParamTags(`name:"version"`))),
	)
}

// TestProvide provides di for testing where no specific version is required to be provided.
func TestProvide() fx.Option {
	return Provide("v0.0.0-test")
}
