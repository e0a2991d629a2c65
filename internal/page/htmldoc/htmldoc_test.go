package htmldoc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/teamscrape/internal/locator"
	"github.com/v0xg/teamscrape/internal/page"
)

const fixture = `<html><head><title> Chat | Team </title></head><body>
<form>
  <input id="email" type="email">
  <button id="next">Next</button>
  <div id="hidden-attr" hidden>x</div>
  <div style="display: none"><span id="hidden-parent">y</span></div>
</form>
<ul id="list"><li class="item">one</li><li class="item">two<br>lines</li><li class="item">three</li></ul>
</body></html>`

func TestTitle(t *testing.T) {
	d, err := New(fixture)
	require.NoError(t, err)

	title, err := d.Title(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Chat | Team", title)
}

func TestWaitVisible(t *testing.T) {
	d, err := New(fixture)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = d.WaitVisible(ctx, locator.ID("email"), time.Second)
	assert.NoError(t, err)

	for _, id := range []string{"hidden-attr", "hidden-parent", "missing"} {
		_, err := d.WaitVisible(ctx, locator.ID(id), time.Second)
		assert.ErrorIs(t, err, page.ErrTimeout, id)
	}

	// Present but hidden still satisfies a presence wait.
	_, err = d.WaitPresent(ctx, locator.ID("hidden-attr"), time.Second)
	assert.NoError(t, err)
}

func TestWaitHonoursCancelledContext(t *testing.T) {
	d, err := New(fixture)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.WaitPresent(ctx, locator.ID("email"), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindAllKeepsDocumentOrder(t *testing.T) {
	d, err := New(fixture)
	require.NoError(t, err)

	list, err := d.Find(context.Background(), locator.ID("list"))
	require.NoError(t, err)

	items, err := list.FindAll(locator.CSS("li.item"))
	require.NoError(t, err)
	require.Len(t, items, 3)

	var texts []string
	for _, it := range items {
		text, err := it.Text()
		require.NoError(t, err)
		texts = append(texts, text)
	}
	assert.Equal(t, []string{"one", "two\nlines", "three"}, texts)

	_, err = list.Find(locator.ID("email"))
	assert.ErrorIs(t, err, page.ErrNotFound)
}

func TestInputAndClickHandlers(t *testing.T) {
	d, err := New(fixture)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.OnClick(locator.ID("next"), func(d *Document) error {
		return d.Load(`<html><body><input id="password"></body></html>`)
	}))

	email, err := d.Find(ctx, locator.ID("email"))
	require.NoError(t, err)
	require.NoError(t, email.Input(ctx, "user@example.com"))

	value, ok, err := email.Attribute("value")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user@example.com", value)

	next, err := d.Find(ctx, locator.ID("next"))
	require.NoError(t, err)
	require.NoError(t, next.Click(ctx))

	_, err = d.WaitVisible(ctx, locator.ID("password"), time.Second)
	assert.NoError(t, err)
	_, err = d.Find(ctx, locator.ID("email"))
	assert.ErrorIs(t, err, page.ErrNotFound)

	assert.Equal(t, []Keystroke{{ID: "email", Text: "user@example.com"}}, d.Typed())
	assert.Equal(t, []string{"next"}, d.Clicks())

	html, err := d.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, `<input id="password"/>`)
}

func TestInteractionsHonourCancelledContext(t *testing.T) {
	d, err := New(fixture)
	require.NoError(t, err)
	email, err := d.Find(context.Background(), locator.ID("email"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, email.Input(ctx, "x"), context.Canceled)
	assert.ErrorIs(t, email.Click(ctx), context.Canceled)

	assert.Empty(t, d.Typed())
	assert.Empty(t, d.Clicks())

	html, err := d.HTML()
	require.NoError(t, err)
	assert.NotContains(t, html, `value="x"`)
}
