package klog

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New("kernel", "debug", &buf)
	assert.True(t, l.IsDebug())
	assert.False(t, l.IsTrace())
	l.Debug("mmap rejected", "err", "-EEXIST")
	assert.Contains(t, buf.String(), "kernel: mmap rejected")
	assert.Contains(t, buf.String(), "err=-EEXIST")

	buf.Reset()
	l.Trace("hidden")
	assert.Empty(t, buf.String())
}

func TestUnknownLevel(t *testing.T) {
	l := New("k", "loud", nil)
	assert.Equal(t, hclog.Info, l.GetLevel())
}
