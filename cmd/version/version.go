package version

import (
	"encoding/json"
	"fmt"
	"runtime"
)

var (
	// semantic version
	version string
	// build time in ISO-8601 format
	build string
	// where the executable came from, can be:
	// - "source" or "" for build from source
	// - "github" for from github release
	// - "docker" for from the container image
	source string
)

// Cmd is a kong command for version
type Cmd struct {
	JSON      bool `short:"j" help:"Output in JSON format." default:"false"`
	All       bool `short:"a" help:"Output all version details." default:"false"`
	BuildTime bool `short:"b" help:"Output build time." default:"false"`
	Source    bool `short:"s" help:"Source of the executable." default:"false"`
	GoVersion bool `short:"g" help:"Go runtime the executable was built with." default:"false"`
}

// Run does actual version job
func (c Cmd) Run() error {
	if c.All {
		c.BuildTime = true
		c.Source = true
		c.GoVersion = true
	}
	goVersion := runtime.Version()

	if !c.JSON {
		fmt.Println(version)
		if c.BuildTime {
			fmt.Println(build)
		}
		if c.Source {
			fmt.Println(source)
		}
		if c.GoVersion {
			fmt.Println(goVersion)
		}
		return nil
	}

	v := struct {
		Version   string
		BuildTime *string `json:",omitempty"`
		Source    *string `json:",omitempty"`
		GoVersion *string `json:",omitempty"`
	}{
		Version: version,
	}
	if c.BuildTime {
		v.BuildTime = &build
	}
	if c.Source {
		v.Source = &source
	}
	if c.GoVersion {
		v.GoVersion = &goVersion
	}
	buf, _ := json.Marshal(v)
	fmt.Println(string(buf))

	return nil
}
