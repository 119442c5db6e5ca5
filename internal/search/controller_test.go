package search_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
	"github.com/xinlong-d2/signup-admin/internal/search"
)

func newController(t *testing.T) (*search.Controller, *clock.Manual, *[]string) {
	t.Helper()
	clk := clock.NewManual(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	var commits []string
	c := search.New(clk, 300*time.Millisecond, func(term string) { commits = append(commits, term) })
	return c, clk, &commits
}

func TestInput_CommitsAfterQuietPeriod(t *testing.T) {
	c, clk, commits := newController(t)

	c.Input("王")
	assert.Equal(t, "王", c.Raw(), "raw input is visible immediately")
	assert.Equal(t, "", c.Committed())
	assert.True(t, c.Pending())

	clk.Advance(299 * time.Millisecond)
	assert.Equal(t, "", c.Committed())

	clk.Advance(time.Millisecond)
	assert.Equal(t, "王", c.Committed())
	assert.False(t, c.Pending())
	assert.Equal(t, []string{"王"}, *commits)
}

func TestInput_KeystrokesRestartTheTimer(t *testing.T) {
	c, clk, commits := newController(t)

	c.Input("王")
	clk.Advance(200 * time.Millisecond)
	c.Input("王小")
	clk.Advance(200 * time.Millisecond)
	c.Input("王小明")
	clk.Advance(200 * time.Millisecond)
	assert.Empty(t, *commits, "no commit while typing")

	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"王小明"}, *commits, "only the final value is committed")
	assert.Zero(t, clk.Pending())
}

func TestInput_UnchangedTermDoesNotRecommit(t *testing.T) {
	c, clk, commits := newController(t)

	c.Input("a")
	clk.Advance(time.Second)
	c.Input("ab")
	c.Input("a")
	clk.Advance(time.Second)

	assert.Equal(t, []string{"a"}, *commits)
}

func TestFlush(t *testing.T) {
	c, clk, commits := newController(t)

	c.Input("李")
	require.True(t, c.Flush())
	assert.Equal(t, "李", c.Committed())
	assert.False(t, c.Pending())

	clk.Advance(time.Second)
	assert.Equal(t, []string{"李"}, *commits, "cancelled timer must not fire again")
	assert.False(t, c.Flush())
}

func TestStop(t *testing.T) {
	c, clk, commits := newController(t)

	c.Input("x")
	c.Stop()
	clk.Advance(time.Second)
	c.Input("y")
	clk.Advance(time.Second)

	assert.Empty(t, *commits)
	assert.Equal(t, "", c.Committed())
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "", search.Prefix(""))
	assert.Equal(t, "", search.Prefix("   "))
	assert.Equal(t, "Wang", search.Prefix("Wang"))
	assert.Equal(t, " 王", search.Prefix(" 王"), "prefix is matched as typed")
}
