// Package formats provides the SCML (Spriter) codec for rig animation sets.
//
// WriteSCML and ExportSCMLFile encode an animation set with its image
// manifest; ParseSCML and ParseSCMLFile decode it again.
package formats

import "go.uber.org/zap"

// Option configures encoding and parsing.
type Option func(*options)

type options struct {
	log              *zap.Logger
	scmlVersion      string
	generator        string
	generatorVersion string
	encoding         string
}

// WithLogger routes codec debug output to log.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithGenerator overrides the generator recorded in exported files.
func WithGenerator(name, version string) Option {
	return func(o *options) {
		if name != "" {
			o.generator = name
		}
		if version != "" {
			o.generatorVersion = version
		}
	}
}

// WithEncoding writes exported documents in the labelled character set,
// e.g. "euc-kr", instead of UTF-8.
func WithEncoding(label string) Option {
	return func(o *options) {
		o.encoding = label
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		log:              zap.NewNop(),
		scmlVersion:      SCMLVersion,
		generator:        DefaultGenerator,
		generatorVersion: GeneratorVersion,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
