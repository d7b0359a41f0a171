package proctitle

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "dailyhi", clean("  dailyhi "))
	assert.Equal(t, "dailyhi-deliver", clean("dailyhi-delivery-worker"))
	assert.Empty(t, clean("   "))
}

func TestSetRejectsEmpty(t *testing.T) {
	assert.Error(t, Set(" "))
}

func TestSetRewritesArgv0(t *testing.T) {
	orig := os.Args[0]
	t.Cleanup(func() { os.Args[0] = orig })

	_ = Set("dailyhi-test")
	assert.Equal(t, "dailyhi-test", os.Args[0])
}
