package chunking

import "log"

const (
	DefaultMaxUnitsPerChunk = 5000
	DefaultOverlapUnits     = 819
	DefaultCharsPerUnit     = 4
)

// Config controls chunk size and overlap. Sizes are expressed in approximate
// token units; CharsPerUnit converts them to a character budget.
type Config struct {
	MaxUnitsPerChunk int
	OverlapUnits     int
	CharsPerUnit     int
}

// DefaultConfig provides the defaults used for document indexing.
func DefaultConfig() Config {
	return Config{
		MaxUnitsPerChunk: DefaultMaxUnitsPerChunk,
		OverlapUnits:     DefaultOverlapUnits,
		CharsPerUnit:     DefaultCharsPerUnit,
	}
}

// normalize fills zero values with defaults and drops an overlap that could
// never make progress.
func (c Config) normalize() Config {
	if c.MaxUnitsPerChunk <= 0 {
		c.MaxUnitsPerChunk = DefaultMaxUnitsPerChunk
	}
	if c.CharsPerUnit <= 0 {
		c.CharsPerUnit = DefaultCharsPerUnit
	}
	if c.OverlapUnits < 0 {
		c.OverlapUnits = 0
	}
	if c.OverlapUnits >= c.MaxUnitsPerChunk {
		log.Printf("chunking: overlap %d >= max units %d, using zero overlap", c.OverlapUnits, c.MaxUnitsPerChunk)
		c.OverlapUnits = 0
	}
	return c
}

// MaxChars is the character budget of a single chunk.
func (c Config) MaxChars() int {
	return c.MaxUnitsPerChunk * c.CharsPerUnit
}

// OverlapChars is the number of characters carried from one chunk into the next.
func (c Config) OverlapChars() int {
	return c.OverlapUnits * c.CharsPerUnit
}
