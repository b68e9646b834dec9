package query

import (
	"context"
	"iter"
	"path"
	"path/filepath"
	"sync"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/resgrid/internal/filter"
	"github.com/agentic-research/resgrid/internal/modules"
	"github.com/agentic-research/resgrid/internal/origin"
	"github.com/agentic-research/resgrid/internal/repository"
	"github.com/agentic-research/resgrid/internal/resource"
)

type fixture struct {
	engine  *Engine
	repo    *repository.Repository
	tree    *origin.MemoryTree
	edits   *origin.FileOrigin
	bundled *origin.ClasspathOrigin
	stored  *origin.RepositoryOrigin
}

func newTestFS(t *testing.T, files ...string) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	for _, f := range files {
		require.NoError(t, fsys.MkdirAll(path.Dir(f), 0o755))
		require.NoError(t, util.WriteFile(fsys, f, []byte(f), 0o644))
	}
	return fsys
}

// newFixture builds a layered tree:
//
//	edits:      moduleA/foo.js, moduleA/css/foobar.css, custom/bar.js
//	bundled:    moduleA/foo.js, moduleA/bar.js, lib/jquery.js, lib/css/theme.css, moduleB/x.js
//	repository: moduleA/templates/page.ftl (activated), moduleA/templates/draft.ftl
//
// moduleA is a registered module, moduleB owns a definition, lib is neither.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo, err := repository.Open(filepath.Join(t.TempDir(), "resources.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Put(ctx, repository.Record{Path: "/moduleA/templates/page.ftl", ActivationStatus: repository.StatusActivated}))
	require.NoError(t, repo.Put(ctx, repository.Record{Path: "/moduleA/templates/draft.ftl", ActivationStatus: repository.StatusNotActivated}))

	f := &fixture{
		repo:    repo,
		stored:  origin.NewRepositoryOrigin("repository", repo),
		edits:   origin.NewFileOrigin("light-modules", newTestFS(t, "moduleA/foo.js", "moduleA/css/foobar.css", "custom/bar.js")),
		bundled: origin.NewClasspathOrigin("classpath", newTestFS(t, "moduleA/foo.js", "moduleA/bar.js", "lib/jquery.js", "lib/css/theme.css", "moduleB/x.js")),
	}
	f.tree, err = origin.NewLayeredTree(ctx, "resources", nil, f.stored, f.edits, f.bundled)
	require.NoError(t, err)

	f.engine, err = New(ctx, f.tree, filter.NewEvaluator(nil, repo),
		WithRegistries(
			modules.StaticModules{"moduleA"},
			modules.StaticDefinitions{{Name: "x", Module: "moduleB"}},
		))
	require.NoError(t, err)
	return f
}

var visiblePaths = []string{
	"/custom",
	"/custom/bar.js",
	"/moduleA",
	"/moduleA/bar.js",
	"/moduleA/css",
	"/moduleA/css/foobar.css",
	"/moduleA/foo.js",
	"/moduleA/templates",
	"/moduleA/templates/draft.ftl",
	"/moduleA/templates/page.ftl",
	"/moduleB",
	"/moduleB/x.js",
}

func paths(rs []*resource.Resource) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, RowID(r))
	}
	return out
}

func TestFetch_NoFilterReturnsVisibleResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, flt := range []filter.Filter{nil, {}, {filter.ColumnName: filter.Text("")}, {filter.ColumnStatus: nil}} {
		page, err := f.engine.Fetch(ctx, flt, 0, Unlimited)
		require.NoError(t, err)
		assert.Equal(t, visiblePaths, paths(page))
	}
}

func TestFetch_HidesClasspathOnlyNonModuleSubtree(t *testing.T) {
	f := newFixture(t)
	page, err := f.engine.Fetch(context.Background(), nil, 0, Unlimited)
	require.NoError(t, err)

	for _, p := range paths(page) {
		assert.NotContains(t, p, "/lib", "lib is classpath-only and not a module")
	}
	assert.Contains(t, paths(page), "/moduleB/x.js", "moduleB is classpath-only but owns a definition")
	assert.Contains(t, paths(page), "/custom/bar.js", "custom has an editable layer")
}

func TestFetch_Filters(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		filter filter.Filter
		want   []string
	}{
		{
			name:   "name substring",
			filter: filter.Filter{filter.ColumnName: filter.Text("foo")},
			want:   []string{"/moduleA/css/foobar.css", "/moduleA/foo.js"},
		},
		{
			name:   "type",
			filter: filter.Filter{filter.ColumnType: filter.Text("css")},
			want:   []string{"/moduleA/css/foobar.css"},
		},
		{
			name:   "overridden",
			filter: filter.Filter{filter.ColumnOverridden: filter.Bool(true)},
			want:   []string{"/moduleA", "/moduleA/foo.js"},
		},
		{
			name:   "overridden false is no constraint",
			filter: filter.Filter{filter.ColumnOverridden: filter.Bool(false)},
			want:   visiblePaths,
		},
		{
			name:   "origin by kind",
			filter: filter.Filter{filter.ColumnOrigin: filter.OriginValue{Origin: origin.NewClasspathOrigin("another-jar", memfs.New())}},
			want:   []string{"/moduleA", "/moduleA/bar.js", "/moduleA/foo.js", "/moduleB", "/moduleB/x.js"},
		},
		{
			name:   "origin repository",
			filter: filter.Filter{filter.ColumnOrigin: filter.OriginValue{Origin: f.stored}},
			want:   []string{"/moduleA", "/moduleA/templates", "/moduleA/templates/draft.ftl", "/moduleA/templates/page.ftl"},
		},
		{
			name:   "status activated",
			filter: filter.Filter{filter.ColumnStatus: filter.StatusValue{Code: repository.StatusActivated}},
			want:   []string{"/moduleA/templates/page.ftl"},
		},
		{
			name:   "status not activated ignores resources without records",
			filter: filter.Filter{filter.ColumnStatus: filter.StatusValue{Code: repository.StatusNotActivated}},
			want:   []string{"/moduleA/templates/draft.ftl"},
		},
		{
			name: "combined",
			filter: filter.Filter{
				filter.ColumnName:       filter.Text(".js"),
				filter.ColumnOverridden: filter.Bool(true),
			},
			want: []string{"/moduleA/foo.js"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.engine.Fetch(context.Background(), tt.filter, 0, Unlimited)
			require.NoError(t, err)
			assert.Equal(t, tt.want, paths(page))
		})
	}
}

func TestFetch_PaginationIsSliceOfFullOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, flt := range []filter.Filter{nil, {filter.ColumnName: filter.Text("o")}} {
		full, err := f.engine.Fetch(ctx, flt, 0, Unlimited)
		require.NoError(t, err)

		for offset := 0; offset <= len(full)+1; offset++ {
			for limit := 0; limit <= len(full)+1; limit++ {
				page, err := f.engine.Fetch(ctx, flt, offset, limit)
				require.NoError(t, err)

				lo := min(offset, len(full))
				hi := min(offset+limit, len(full))
				assert.Equal(t, paths(full[lo:hi]), paths(page), "offset=%d limit=%d", offset, limit)
			}
		}
	}
}

func TestFetch_NegativeOffset(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Fetch(context.Background(), nil, -1, 10)
	assert.Error(t, err)
}

func TestCount_EqualsUnlimitedFetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	filters := []filter.Filter{
		nil,
		{filter.ColumnName: filter.Text("foo")},
		{filter.ColumnOverridden: filter.Bool(true)},
		{filter.ColumnStatus: filter.StatusValue{Code: repository.StatusActivated}},
		{filter.ColumnType: filter.Text("nothing-matches-this")},
	}
	for _, flt := range filters {
		full, err := f.engine.Fetch(ctx, flt, 0, Unlimited)
		require.NoError(t, err)
		n, err := f.engine.Count(ctx, flt)
		require.NoError(t, err)
		assert.Equal(t, len(full), n, "filter %q", flt.String())
	}
}

func TestCount_RecomputesEveryCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flt := filter.Filter{filter.ColumnStatus: filter.StatusValue{Code: repository.StatusActivated}}

	n, err := f.engine.Count(ctx, flt)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, f.repo.Put(ctx, repository.Record{Path: "/moduleA/templates/draft.ftl", ActivationStatus: repository.StatusActivated}))

	n, err = f.engine.Count(ctx, flt)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestQuery_UnknownColumnFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bogus := filter.Filter{filter.Column("bogus"): filter.Text("x")}

	page, err := f.engine.Fetch(ctx, bogus, 0, Unlimited)
	assert.ErrorIs(t, err, filter.ErrUnsupportedColumn)
	assert.Nil(t, page)

	_, err = f.engine.Count(ctx, bogus)
	assert.ErrorIs(t, err, filter.ErrUnsupportedColumn)
}

func TestQuery_RepositoryFailureAbortsQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Close())

	flt := filter.Filter{filter.ColumnStatus: filter.StatusValue{Code: repository.StatusActivated}}
	page, err := f.engine.Fetch(ctx, flt, 0, Unlimited)
	assert.ErrorIs(t, err, filter.ErrRepositoryUnavailable)
	assert.Nil(t, page, "no partial page")

	_, err = f.engine.Count(ctx, flt)
	assert.ErrorIs(t, err, filter.ErrRepositoryUnavailable)
}

// visitCounter wraps a tree and counts predicate evaluations.
type visitCounter struct {
	origin.Tree
	visits int
}

func (c *visitCounter) Find(ctx context.Context, root string, pred origin.Predicate) iter.Seq2[*resource.Resource, error] {
	return c.Tree.Find(ctx, root, func(r *resource.Resource) (bool, error) {
		c.visits++
		return pred(r)
	})
}

func TestFetch_StopsTraversalWhenPageIsFull(t *testing.T) {
	f := newFixture(t)
	counter := &visitCounter{Tree: f.tree}
	engine, err := New(context.Background(), counter, nil, WithRegistries(modules.StaticModules{"moduleA"}, nil))
	require.NoError(t, err)

	page, err := engine.Fetch(context.Background(), nil, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"/custom"}, paths(page))
	assert.Equal(t, 1, counter.visits)

	counter.visits = 0
	_, err = engine.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, f.tree.Len(), counter.visits, "count visits the whole tree")
}

func TestFetch_ConcurrentQueriesDoNotShareVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	queries := []struct {
		filter filter.Filter
		want   []string
	}{
		{nil, visiblePaths},
		{filter.Filter{filter.ColumnName: filter.Text("foo")}, []string{"/moduleA/css/foobar.css", "/moduleA/foo.js"}},
		{filter.Filter{filter.ColumnOverridden: filter.Bool(true)}, []string{"/moduleA", "/moduleA/foo.js"}},
	}

	var wg sync.WaitGroup
	for i := range 30 {
		q := queries[i%len(queries)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := f.engine.Fetch(ctx, q.filter, 0, Unlimited)
			if assert.NoError(t, err) {
				assert.Equal(t, q.want, paths(page))
			}
		}()
	}
	wg.Wait()
}

func TestRefreshModules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mods := modules.StaticModules{"moduleA"}

	engine, err := New(ctx, f.tree, nil, WithRegistries(&mods, nil))
	require.NoError(t, err)
	n, err := engine.Count(ctx, filter.Filter{filter.ColumnName: filter.Text("jquery")})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	mods = append(mods, "lib")
	require.NoError(t, engine.RefreshModules(ctx))
	assert.True(t, engine.Modules().Contains("lib"))

	n, err = engine.Count(ctx, filter.Filter{filter.ColumnName: filter.Text("jquery")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStream_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.Fetch(ctx, nil, 0, Unlimited)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_ZeroLimitStillValidates(t *testing.T) {
	f := newFixture(t)
	page, err := f.engine.Fetch(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = f.engine.Fetch(context.Background(), filter.Filter{"bogus": filter.Text("x")}, 0, 0)
	assert.ErrorIs(t, err, filter.ErrUnsupportedColumn)
}

func TestQuery_UnknownColumnFailsOnEmptyTree(t *testing.T) {
	engine, err := New(context.Background(), origin.NewMemoryTree(nil), nil)
	require.NoError(t, err)

	_, err = engine.Count(context.Background(), filter.Filter{"bogus": filter.Bool(true)})
	assert.ErrorIs(t, err, filter.ErrUnsupportedColumn)
}

func TestCriteria_Filter(t *testing.T) {
	f := newFixture(t)
	origins := []resource.Origin{f.stored, f.edits, f.bundled}

	flt, err := Criteria{Name: "foo", Origin: "classpath", Status: "activated"}.Filter(origins)
	require.NoError(t, err)
	assert.Equal(t, "name=foo origin=classpath overridden=false status=2", flt.String())

	_, err = Criteria{Origin: "nowhere"}.Filter(origins)
	assert.ErrorIs(t, err, filter.ErrInvalidValue)

	_, err = Criteria{Status: "published"}.Filter(origins)
	assert.ErrorIs(t, err, filter.ErrInvalidValue)
}

func TestPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.engine.Page(ctx, filter.Filter{filter.ColumnName: filter.Text("page")}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Rows, 1)

	row := page.Rows[0]
	assert.Equal(t, "/moduleA/templates/page.ftl", row.ID)
	assert.Equal(t, []string{"repository"}, row.Origins)
	assert.Equal(t, "activated", row.Status)
	assert.False(t, row.Dir)

	page, err = f.engine.Page(ctx, nil, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, len(visiblePaths), page.Total)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "/moduleA", page.Rows[0].ID)
	assert.True(t, page.Rows[0].Dir)
	assert.True(t, page.Rows[0].Overridden)
	assert.Equal(t, []string{"repository", "light-modules", "classpath"}, page.Rows[0].Origins)
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(map[string]string{"Name": "foo", "TYPE": "css", "overridden": "true", "status": "2", "origin": "classpath"})
	require.NoError(t, err)
	assert.Equal(t, Criteria{Name: "foo", Type: "css", Origin: "classpath", Overridden: true, Status: "2"}, c)

	_, err = ParseCriteria(map[string]string{"bogus": "x"})
	assert.ErrorIs(t, err, filter.ErrUnsupportedColumn)

	_, err = ParseCriteria(map[string]string{"overridden": "maybe"})
	assert.ErrorIs(t, err, filter.ErrInvalidValue)
}

func TestCriteria_Merge(t *testing.T) {
	base := Criteria{Name: "foo", Status: "activated"}
	got := base.Merge(Criteria{Name: "bar", Overridden: true})
	assert.Equal(t, Criteria{Name: "bar", Status: "activated", Overridden: true}, got)
}
