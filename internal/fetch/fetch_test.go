package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"examseed/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedPage struct {
	items []string
	last  bool
	err   error
}

type fakeLister struct {
	pages  []scriptedPage
	legacy []string
	calls  []int
	sizes  []int
}

func (f *fakeLister) ListPage(_ context.Context, _ types.Collection, page, size int) (types.Page, error) {
	f.calls = append(f.calls, page)
	f.sizes = append(f.sizes, size)
	if page >= len(f.pages) {
		return types.Page{Last: true}, nil
	}
	p := f.pages[page]
	if p.err != nil {
		return types.Page{}, p.err
	}
	return types.Page{Content: rawStrings(p.items), Last: p.last}, nil
}

func (f *fakeLister) ListAll(_ context.Context, _ types.Collection) ([]json.RawMessage, error) {
	if f.legacy == nil {
		return nil, errors.New("connection refused")
	}
	return rawStrings(f.legacy), nil
}

func rawStrings(items []string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, s := range items {
		data, _ := json.Marshal(s)
		out = append(out, data)
	}
	return out
}

func TestAll_StopsOnEmptyPage(t *testing.T) {
	lister := &fakeLister{pages: []scriptedPage{
		{items: []string{"a", "b"}},
		{items: []string{"c"}},
		{items: nil, last: true},
	}}

	got, err := All(context.Background(), lister, types.CollectionStudents, Options{PageSize: 2}, JSON[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, []int{0, 1, 2}, lister.calls)
	assert.Equal(t, []int{2, 2, 2}, lister.sizes)
}

func TestAll_StopsOnLastFlag(t *testing.T) {
	lister := &fakeLister{pages: []scriptedPage{
		{items: []string{"only"}, last: true},
		{items: []string{"never"}},
	}}

	got, err := All(context.Background(), lister, types.CollectionSchools, Options{}, JSON[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, got)
	assert.Equal(t, []int{0}, lister.calls)
	assert.Equal(t, []int{100}, lister.sizes, "page size defaults to 100")
}

func TestAll_NoDeduplication(t *testing.T) {
	lister := &fakeLister{pages: []scriptedPage{
		{items: []string{"a", "a"}},
		{items: []string{"a"}, last: true},
	}}
	got, err := All(context.Background(), lister, types.CollectionExams, Options{}, JSON[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a", "a"}, got)
}

func TestAll_ErrorReturnsPartialResult(t *testing.T) {
	boom := errors.New("unexpected status 500")
	lister := &fakeLister{pages: []scriptedPage{
		{items: []string{"a", "b"}},
		{err: boom},
		{items: []string{"c"}, last: true},
	}}

	got, err := All(context.Background(), lister, types.CollectionStudents, Options{}, JSON[string])
	assert.Equal(t, []string{"a", "b"}, got)

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Page)
	assert.Equal(t, 2, partial.Fetched)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 1}, lister.calls)
}

func TestAll_UndecodableItem(t *testing.T) {
	lister := &fakeLister{pages: []scriptedPage{{items: []string{"a"}, last: true}}}
	got, err := All(context.Background(), lister, types.CollectionStudents, Options{}, JSON[int])

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Empty(t, got)
}

func TestAll_MaxPages(t *testing.T) {
	lister := &fakeLister{pages: []scriptedPage{
		{items: []string{"a"}},
		{items: []string{"b"}},
		{items: []string{"c"}},
	}}
	got, err := All(context.Background(), lister, types.CollectionStudents, Options{MaxPages: 2}, JSON[string])
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, []int{0, 1}, lister.calls)

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.ErrorIs(t, err, ErrPageLimit)
	assert.Equal(t, 2, partial.Page)
	assert.Equal(t, 2, partial.Fetched)
}

func TestAll_MaxPagesEndingOnLastPage(t *testing.T) {
	lister := &fakeLister{pages: []scriptedPage{
		{items: []string{"a"}},
		{items: []string{"b"}, last: true},
	}}
	got, err := All(context.Background(), lister, types.CollectionStudents, Options{MaxPages: 2}, JSON[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lister := &fakeLister{pages: []scriptedPage{{items: []string{"a"}, last: true}}}
	got, err := All(ctx, lister, types.CollectionStudents, Options{}, JSON[string])
	assert.Empty(t, got)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, lister.calls)
}

func TestLegacy(t *testing.T) {
	got, err := Legacy(context.Background(), &fakeLister{legacy: []string{"x", "y"}}, types.CollectionRegions, JSON[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)

	_, err = Legacy(context.Background(), &fakeLister{}, types.CollectionRegions, JSON[string])
	var partial *PartialError
	assert.ErrorAs(t, err, &partial)
}

func TestCollection_ChoosesForm(t *testing.T) {
	lister := &fakeLister{
		pages:  []scriptedPage{{items: []string{"paged"}, last: true}},
		legacy: []string{"legacy"},
	}

	got, err := Collection(context.Background(), lister, types.CollectionRegions, false, Options{}, JSON[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy"}, got, "regions are only served by the legacy list")

	got, err = Collection(context.Background(), lister, types.CollectionSchools, false, Options{}, JSON[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"paged"}, got)

	got, err = Collection(context.Background(), lister, types.CollectionSchools, true, Options{}, JSON[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy"}, got)
}
