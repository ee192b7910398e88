// options.go
//
// Mirror runtime options, loadable from a TOML file:
//
//	[output]
//	max-array-size = 4
//	max-output-depth = 16
//
//	[filter]
//	property-file = "visible.properties"
//
// An absent file yields the defaults; a malformed file is an error (unlike
// the cosmetic property filter, options are explicit configuration).
package protocore

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// MirrorOptions configures rendering budgets and the property filter.
type MirrorOptions struct {
	Output struct {
		MaxArraySize   int `toml:"max-array-size"`
		MaxOutputDepth int `toml:"max-output-depth"`
	} `toml:"output"`
	Filter struct {
		PropertyFile string `toml:"property-file"`
	} `toml:"filter"`
}

// DefaultOptions returns the stock budgets and no property filter.
func DefaultOptions() MirrorOptions {
	var opts MirrorOptions
	opts.Output.MaxArraySize = DefaultMaxArraySize
	opts.Output.MaxOutputDepth = DefaultMaxOutputDepth
	return opts
}

// LoadOptions reads options from a TOML file, filling unset fields from the
// defaults. A missing file returns the defaults without error.
func LoadOptions(path string) (MirrorOptions, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("read options %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options %s: %w", path, err)
	}
	if opts.Output.MaxArraySize == 0 {
		opts.Output.MaxArraySize = DefaultMaxArraySize
	}
	if opts.Output.MaxOutputDepth == 0 {
		opts.Output.MaxOutputDepth = DefaultMaxOutputDepth
	}
	return opts, nil
}
