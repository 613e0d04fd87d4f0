package config

import "time"

// Version is reported by `typeval version`.
var Version = "0.3.0"

// ConfigFileName is looked up by FindConfig, along with ConfigBaseName
// under the other document extensions.
const (
	ConfigBaseName = "typeval"
	ConfigFileName = ConfigBaseName + ".yaml"
)

// DocumentFileExtensions are the recognized type document extensions.
var DocumentFileExtensions = []string{".yaml", ".yml"}

// Evaluation limits
const (
	// DefaultMaxDepth bounds nested resolutions and subtype recursion.
	DefaultMaxDepth        = 1000
	DefaultCacheSize       = 4096
	DefaultTemplateTimeout = 250 * time.Millisecond
	DefaultParallelism     = 4
	DefaultLogLevel        = "info"
	DefaultLogMaxSizeMB    = 10
	DefaultLogMaxBackups   = 3
)

// Built-in generic names understood by the document loader
const (
	ArrayTypeName         = "Array"
	ReadonlyArrayTypeName = "ReadonlyArray"
	ObjectKeywordName     = "object"
)

// Intrinsic string mapping names
const (
	UppercaseName    = "Uppercase"
	LowercaseName    = "Lowercase"
	CapitalizeName   = "Capitalize"
	UncapitalizeName = "Uncapitalize"
)

// Array-like structure as seen by object comparisons
const LengthPropertyName = "length"
