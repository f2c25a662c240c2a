package log

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("development", ""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("production", ""))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("production", "WARN"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("development", "error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("production", "bogus"))
}
