package fs

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrfs/attrfs/pkg/object"
)

// collect drains a cursor into a name slice.
func collect(c *Cursor) []string {
	var names []string
	for {
		ent, ok := c.Next()
		if !ok {
			return names
		}
		names = append(names, ent.Name)
	}
}

// TestCursorEnumeratesInInsertionOrder verifies a plain enumeration
// yields every live entry once, in creation order.
func TestCursorEnumeratesInInsertionOrder(t *testing.T) {
	f := New()
	o := newTestObject("dev", nil, nil)
	require.NoError(t, f.CreateDir(o))
	for _, name := range []string{"alpha", "beta", "gamma"} {
		require.NoError(t, f.CreateFile(o, &object.Attribute{Name: name, Mode: 0444}))
	}

	c := f.OpenDir(f.DirOf(o))
	defer c.Close()
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, collect(c))

	// Exhausted cursors stay exhausted.
	_, ok := c.Next()
	assert.False(t, ok)
}

// TestCursorsDoNotSeeEachOther verifies cursor markers are invisible to
// concurrent enumerations of the same directory.
func TestCursorsDoNotSeeEachOther(t *testing.T) {
	f := New()
	o := newTestObject("dev", nil, nil)
	require.NoError(t, f.CreateDir(o))
	require.NoError(t, f.CreateFile(o, &object.Attribute{Name: "only", Mode: 0444}))

	c1 := f.OpenDir(f.DirOf(o))
	defer c1.Close()
	c2 := f.OpenDir(f.DirOf(o))
	defer c2.Close()

	assert.Equal(t, []string{"only"}, collect(c1))
	assert.Equal(t, []string{"only"}, collect(c2))
}

// TestCursorSurvivesRemoval verifies enumeration continues correctly when
// entries are removed mid-walk, including the entry the cursor sits on.
func TestCursorSurvivesRemoval(t *testing.T) {
	f := New()
	o := newTestObject("dev", nil, nil)
	require.NoError(t, f.CreateDir(o))
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, f.CreateFile(o, &object.Attribute{Name: name, Mode: 0444}))
	}

	c := f.OpenDir(f.DirOf(o))
	defer c.Close()

	ent, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "a", ent.Name)

	// Remove the entry just yielded and the next one in line.
	require.NoError(t, f.RemoveFile(o, "a"))
	require.NoError(t, f.RemoveFile(o, "b"))

	assert.Equal(t, []string{"c", "d"}, collect(c))
}

// TestCursorSeesLateAdditions verifies entries created past the cursor's
// position are yielded.
func TestCursorSeesLateAdditions(t *testing.T) {
	f := New()
	o := newTestObject("dev", nil, nil)
	require.NoError(t, f.CreateDir(o))
	require.NoError(t, f.CreateFile(o, &object.Attribute{Name: "a", Mode: 0444}))

	c := f.OpenDir(f.DirOf(o))
	defer c.Close()

	ent, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "a", ent.Name)

	require.NoError(t, f.CreateFile(o, &object.Attribute{Name: "b", Mode: 0444}))
	assert.Equal(t, []string{"b"}, collect(c))
}

// TestCursorSeek verifies absolute repositioning by live-entry index.
func TestCursorSeek(t *testing.T) {
	f := New()
	o := newTestObject("dev", nil, nil)
	require.NoError(t, f.CreateDir(o))
	for i := 0; i < 5; i++ {
		require.NoError(t, f.CreateFile(o, &object.Attribute{Name: fmt.Sprintf("attr%d", i), Mode: 0444}))
	}

	c := f.OpenDir(f.DirOf(o))
	defer c.Close()

	c.Seek(3)
	assert.Equal(t, []string{"attr3", "attr4"}, collect(c))

	c.Seek(0)
	ent, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "attr0", ent.Name)

	c.Seek(99)
	_, ok = c.Next()
	assert.False(t, ok)
}

// TestConcurrentEnumerationAndMutation hammers one directory with
// parallel enumerations, creates and removes. The assertions are loose;
// the point is that no walk panics or yields a dead entry.
func TestConcurrentEnumerationAndMutation(t *testing.T) {
	f := New()
	o := newTestObject("dev", nil, nil)
	require.NoError(t, f.CreateDir(o))
	for i := 0; i < 20; i++ {
		require.NoError(t, f.CreateFile(o, &object.Attribute{Name: fmt.Sprintf("stable%d", i), Mode: 0444}))
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				name := fmt.Sprintf("churn%d_%d", w, i)
				if err := f.CreateFile(o, &object.Attribute{Name: name, Mode: 0444}); err != nil {
					t.Errorf("create %s: %v", name, err)
					return
				}
				if err := f.RemoveFile(o, name); err != nil {
					t.Errorf("remove %s: %v", name, err)
					return
				}
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				c := f.OpenDir(f.DirOf(o))
				seen := 0
				for {
					ent, ok := c.Next()
					if !ok {
						break
					}
					if ent.Name == "" {
						t.Error("enumeration yielded a nameless entry")
					}
					seen++
				}
				c.Close()
				if seen < 20 {
					t.Errorf("enumeration lost stable entries: saw %d", seen)
				}
			}
		}()
	}
	wg.Wait()

	// All churn entries are gone; the stable set survived intact.
	c := f.OpenDir(f.DirOf(o))
	defer c.Close()
	assert.Len(t, collect(c), 20)
}
