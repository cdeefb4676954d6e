package bot

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"mvdham/bolwatch/internal/extractor"
	"mvdham/bolwatch/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefix = "https://www.bol.com"

// mockSource implements extractor.Source and counts extraction attempts
type mockSource struct {
	mu     sync.Mutex
	result *extractor.Result
	err    error
	calls  int
}

var _ extractor.Source = (*mockSource)(nil)

func (m *mockSource) Extract(url string) (*extractor.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestDispatcher(t *testing.T, src *mockSource) (*Dispatcher, store.Store) {
	st := store.NewFileStore(filepath.Join(t.TempDir(), "products.json"))
	return NewDispatcher(st, src, prefix), st
}

func TestHelpListsCommands(t *testing.T) {
	d, _ := newTestDispatcher(t, &mockSource{})
	text := d.Help()
	assert.Contains(t, text, "/add")
	assert.Contains(t, text, "/list")
	assert.Contains(t, text, "/remove")
	assert.Contains(t, text, "/help")
}

func TestAddThenListShowsOneEntry(t *testing.T) {
	src := &mockSource{result: &extractor.Result{Name: "Test Product", Price: 38.99}}
	d, st := newTestDispatcher(t, src)

	var interim []string
	reply := d.Add(12345, "https://www.bol.com/p/x/", func(text string) {
		interim = append(interim, text)
	})

	assert.Contains(t, reply, "✅ Added to monitoring")
	assert.Contains(t, reply, "Test Product")
	assert.Contains(t, reply, "€38.99")
	require.Len(t, interim, 1)
	assert.Contains(t, interim[0], "Fetching product information")

	listing := d.List(12345)
	assert.Contains(t, listing, "Test Product")
	assert.Contains(t, listing, "€38.99")
	assert.Contains(t, listing, "https://www.bol.com/p/x/")

	products := st.Products("12345")
	assert.Len(t, products, 1)
}

func TestAddRejectsMissingURL(t *testing.T) {
	src := &mockSource{}
	d, _ := newTestDispatcher(t, src)

	reply := d.Add(12345, "   ", nil)
	assert.Contains(t, reply, "Please provide a Bol.com product URL")
	assert.Equal(t, 0, src.callCount())
}

func TestAddRejectsForeignDomainWithoutFetching(t *testing.T) {
	src := &mockSource{result: &extractor.Result{Name: "X", Price: 1}}
	d, st := newTestDispatcher(t, src)

	var interim []string
	reply := d.Add(12345, "https://evil.example.com/p/x/", func(text string) {
		interim = append(interim, text)
	})

	assert.Equal(t, "Please provide a valid Bol.com URL", reply)
	assert.Equal(t, 0, src.callCount(), "rejected URL must not trigger a fetch")
	assert.Empty(t, interim)
	assert.Empty(t, st.Products("12345"))
}

func TestAddRejectsDuplicate(t *testing.T) {
	src := &mockSource{result: &extractor.Result{Name: "Test Product", Price: 38.99}}
	d, _ := newTestDispatcher(t, src)

	d.Add(12345, "https://www.bol.com/p/x/", nil)
	reply := d.Add(12345, "https://www.bol.com/p/x/", nil)

	assert.Equal(t, "This product is already being monitored!", reply)
	assert.Equal(t, 1, src.callCount(), "duplicate must be rejected before fetching")
}

func TestAddExtractionFailure(t *testing.T) {
	src := &mockSource{err: errors.New("could not retrieve")}
	d, st := newTestDispatcher(t, src)

	reply := d.Add(12345, "https://www.bol.com/p/x/", nil)
	assert.Contains(t, reply, "couldn't fetch the product information")
	assert.Empty(t, st.Products("12345"))
}

func TestListEmpty(t *testing.T) {
	d, _ := newTestDispatcher(t, &mockSource{})
	assert.Equal(t, "You have no products being monitored.", d.List(12345))
}

func TestRemoveFlow(t *testing.T) {
	src := &mockSource{result: &extractor.Result{Name: "Test Product", Price: 38.99}}
	d, st := newTestDispatcher(t, src)
	d.Add(12345, "https://www.bol.com/p/x/", nil)

	text, markup := d.Remove(12345)
	assert.Equal(t, "Select a product to remove:", text)
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 1)

	button := markup.InlineKeyboard[0][0]
	assert.Contains(t, button.Text, "Test Product")
	assert.Contains(t, button.Text, "€38.99")

	reply := d.Resolve(12345, *button.CallbackData)
	assert.Equal(t, "✅ Removed Test Product from monitoring.", reply)
	assert.Empty(t, st.Products("12345"))
}

func TestRemoveWithNothingMonitored(t *testing.T) {
	d, _ := newTestDispatcher(t, &mockSource{})
	text, markup := d.Remove(12345)
	assert.Equal(t, "You have no products to remove.", text)
	assert.Nil(t, markup)
}

func TestStaleTokenIsRejected(t *testing.T) {
	src := &mockSource{result: &extractor.Result{Name: "Test Product", Price: 38.99}}
	d, _ := newTestDispatcher(t, src)
	d.Add(12345, "https://www.bol.com/p/x/", nil)

	_, markup := d.Remove(12345)
	require.NotNil(t, markup)
	token := *markup.InlineKeyboard[0][0].CallbackData

	// First selection succeeds and consumes the token
	reply := d.Resolve(12345, token)
	assert.Contains(t, reply, "✅ Removed")

	// Replaying the now-stale token yields the explicit error, not a crash
	reply = d.Resolve(12345, token)
	assert.Equal(t, "❌ Error: Invalid removal request.", reply)
}

func TestOverwrittenMenuTokenIsRejected(t *testing.T) {
	src := &mockSource{result: &extractor.Result{Name: "Product A", Price: 10}}
	d, st := newTestDispatcher(t, src)
	d.Add(12345, "https://www.bol.com/p/a/", nil)
	src.result = &extractor.Result{Name: "Product B", Price: 20}
	d.Add(12345, "https://www.bol.com/p/b/", nil)

	_, oldMenu := d.Remove(12345)
	require.NotNil(t, oldMenu)
	staleToken := *oldMenu.InlineKeyboard[0][0].CallbackData

	// A second /remove overwrites the first menu; its tokens go stale
	_, newMenu := d.Remove(12345)
	require.NotNil(t, newMenu)

	reply := d.Resolve(12345, staleToken)
	assert.Equal(t, "❌ Error: Invalid removal request.", reply)
	assert.Len(t, st.Products("12345"), 2, "stale token must not remove anything")

	// A token from the current menu removes exactly the product it labels
	button := newMenu.InlineKeyboard[0][0]
	reply = d.Resolve(12345, *button.CallbackData)
	assert.Contains(t, reply, "✅ Removed")
	remaining := st.Products("12345")
	require.Len(t, remaining, 1)
	for _, p := range remaining {
		assert.NotContains(t, button.Text, p.Name)
	}
}

func TestMenuButtonsHaveStableOrder(t *testing.T) {
	src := &mockSource{result: &extractor.Result{Name: "Product A", Price: 10}}
	d, _ := newTestDispatcher(t, src)
	for i := 0; i < 6; i++ {
		src.result = &extractor.Result{Name: fmt.Sprintf("Product %d", i), Price: float64(i + 1)}
		d.Add(12345, fmt.Sprintf("https://www.bol.com/p/%d/", i), nil)
	}

	// Rebuilding the menu must bind the same position to the same product
	_, first := d.Remove(12345)
	require.NotNil(t, first)
	_, second := d.Remove(12345)
	require.NotNil(t, second)
	require.Len(t, second.InlineKeyboard, 6)
	for i := range first.InlineKeyboard {
		assert.Equal(t, first.InlineKeyboard[i][0].Text, second.InlineKeyboard[i][0].Text)
	}
}

func TestUnknownTokenIsRejected(t *testing.T) {
	d, _ := newTestDispatcher(t, &mockSource{})
	assert.Equal(t, "❌ Error: Invalid removal request.", d.Resolve(12345, "rm_99"))
	assert.Equal(t, "❌ Error: Invalid removal request.", d.Resolve(12345, "garbage"))
}

func TestTokensAreScopedPerChat(t *testing.T) {
	src := &mockSource{result: &extractor.Result{Name: "Test Product", Price: 38.99}}
	d, st := newTestDispatcher(t, src)
	d.Add(12345, "https://www.bol.com/p/x/", nil)

	_, markup := d.Remove(12345)
	require.NotNil(t, markup)
	token := *markup.InlineKeyboard[0][0].CallbackData

	// Another chat replaying the same token must not remove anything
	reply := d.Resolve(67890, token)
	assert.Equal(t, "❌ Error: Invalid removal request.", reply)
	assert.Len(t, st.Products("12345"), 1)
}

func TestTokenForAlreadyRemovedProduct(t *testing.T) {
	src := &mockSource{result: &extractor.Result{Name: "Test Product", Price: 38.99}}
	d, st := newTestDispatcher(t, src)
	d.Add(12345, "https://www.bol.com/p/x/", nil)

	_, markup := d.Remove(12345)
	require.NotNil(t, markup)
	token := *markup.InlineKeyboard[0][0].CallbackData

	// The product disappears between menu and selection
	_, _, err := st.Delete("12345", "https://www.bol.com/p/x/")
	require.NoError(t, err)

	reply := d.Resolve(12345, token)
	assert.Equal(t, "❌ Error: Product not found.", reply)
}
