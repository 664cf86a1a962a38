package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	SetLevel("info")
	Debugf("quiet %d", 1)
	assert.Empty(t, buf.String(), "info 级别下 debug 不应输出")

	Infof("hello %s", "world")
	assert.Contains(t, buf.String(), "hello world")

	buf.Reset()
	SetLevel("debug")
	Debugf("loud %d", 2)
	assert.Contains(t, buf.String(), "loud 2")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel(" Warning ").String())
	assert.Equal(t, "ERROR", parseLevel("ERROR").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}
