package repositorycache

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/goliatone/go-cache-intercept/cache"
	"github.com/goliatone/go-cache-intercept/interceptor"
	"github.com/goliatone/go-cache-intercept/pkg/testsupport"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// TestUser represents a test entity
type TestUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// mockRepository records every call and returns the configured results
type mockRepository[T any] struct {
	mu            sync.Mutex
	calls         []string
	getResult     T
	getError      error
	getByIDResult T
	getByIDError  error
	identResult   T
	identError    error
	listRecords   []T
	listTotal     int
	listError     error
	countResult   int
	countError    error
	writeResult   T
	writeError    error
}

// Helper method to record method calls
func (m *mockRepository[T]) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
}

// Helper method to get recorded calls
func (m *mockRepository[T]) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRepository[T]) countCalls(method string) int {
	n := 0
	for _, c := range m.getCalls() {
		if c == method {
			n++
		}
	}
	return n
}

func (m *mockRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("Get")
	return m.getResult, m.getError
}

func (m *mockRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByID")
	return m.getByIDResult, m.getByIDError
}

func (m *mockRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	m.recordCall("List")
	return m.listRecords, m.listTotal, m.listError
}

func (m *mockRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.recordCall("Count")
	return m.countResult, m.countError
}

func (m *mockRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIdentifier")
	return m.identResult, m.identError
}

func (m *mockRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetTx")
	return m.getResult, m.getError
}

func (m *mockRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIDTx")
	return m.getByIDResult, m.getByIDError
}

func (m *mockRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	m.recordCall("ListTx")
	return m.listRecords, m.listTotal, m.listError
}

func (m *mockRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	m.recordCall("CountTx")
	return m.countResult, m.countError
}

func (m *mockRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIdentifierTx")
	return m.identResult, m.identError
}

func (m *mockRepository[T]) write(method string) (T, error) {
	m.recordCall(method)
	return m.writeResult, m.writeError
}

func (m *mockRepository[T]) writeMany(method string) ([]T, error) {
	m.recordCall(method)
	if m.writeError != nil {
		return nil, m.writeError
	}
	return []T{m.writeResult}, nil
}

func (m *mockRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	return m.write("Create")
}
func (m *mockRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	return m.write("CreateTx")
}
func (m *mockRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return m.writeMany("CreateMany")
}
func (m *mockRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return m.writeMany("CreateManyTx")
}
func (m *mockRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	return m.write("GetOrCreate")
}
func (m *mockRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	return m.write("GetOrCreateTx")
}
func (m *mockRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return m.write("Update")
}
func (m *mockRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return m.write("UpdateTx")
}
func (m *mockRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return m.writeMany("UpdateMany")
}
func (m *mockRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return m.writeMany("UpdateManyTx")
}
func (m *mockRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return m.write("Upsert")
}
func (m *mockRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return m.write("UpsertTx")
}
func (m *mockRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return m.writeMany("UpsertMany")
}
func (m *mockRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return m.writeMany("UpsertManyTx")
}
func (m *mockRepository[T]) Delete(ctx context.Context, record T) error {
	_, err := m.write("Delete")
	return err
}
func (m *mockRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	_, err := m.write("DeleteTx")
	return err
}
func (m *mockRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	_, err := m.write("DeleteMany")
	return err
}
func (m *mockRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	_, err := m.write("DeleteManyTx")
	return err
}
func (m *mockRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	_, err := m.write("DeleteWhere")
	return err
}
func (m *mockRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	_, err := m.write("DeleteWhereTx")
	return err
}
func (m *mockRepository[T]) ForceDelete(ctx context.Context, record T) error {
	_, err := m.write("ForceDelete")
	return err
}
func (m *mockRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	_, err := m.write("ForceDeleteTx")
	return err
}

func (m *mockRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	m.recordCall("Raw")
	return m.listRecords, nil
}
func (m *mockRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	m.recordCall("RawTx")
	return m.listRecords, nil
}
func (m *mockRepository[T]) Handlers() repository.ModelHandlers[T] {
	panic("Handlers not implemented in mock")
}

type fixture[T any] struct {
	base     *mockRepository[T]
	cached   *CachedRepository[T]
	caches   *testsupport.RecordingManager
	registry *interceptor.Registry
}

func newFixture[T any](t *testing.T, opts ...Option) *fixture[T] {
	t.Helper()

	registry := interceptor.NewRegistry()
	caches := testsupport.NewRecordingManager()
	base := &mockRepository[T]{}

	cached, err := New[T](base, registry, interceptor.New(registry, caches), opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	return &fixture[T]{base: base, cached: cached, caches: caches, registry: registry}
}

func (f *fixture[T]) recording(suffix string) *testsupport.RecordingCache {
	return f.caches.Recording(f.cached.Namespace() + "." + suffix)
}

// noCriteria is the generated key of reads called without criteria
var noCriteria = []repository.SelectCriteria(nil)

func TestNew(t *testing.T) {
	f := newFixture[TestUser](t)

	if f.cached.Namespace() != "test_user" {
		t.Errorf("expected namespace test_user, got %q", f.cached.Namespace())
	}

	sites := f.registry.Sites()
	if len(sites) != len(signatures) {
		t.Fatalf("expected %d sites, got %d: %v", len(signatures), len(sites), sites)
	}

	ops := f.registry.Operations("test_user.GetByID")
	if len(ops) != 1 {
		t.Fatalf("expected one operation for GetByID, got %d", len(ops))
	}
	if ops[0].Kind != interceptor.KindCacheable || ops[0].Key != "#id" {
		t.Errorf("unexpected GetByID operation: %s", ops[0].Operation)
	}
	if !reflect.DeepEqual(ops[0].CacheNames, []string{"test_user.get_by_id"}) {
		t.Errorf("unexpected caches %v", ops[0].CacheNames)
	}

	if ops := f.registry.Operations("test_user.GetTx"); len(ops) != 0 {
		t.Errorf("expected no declaration for Tx reads, got %d", len(ops))
	}
}

func TestNamespace(t *testing.T) {
	if got := Namespace[TestUser](); got != "test_user" {
		t.Errorf("expected test_user, got %q", got)
	}
	if got := Namespace[*TestUser](); got != "test_user" {
		t.Errorf("expected pointer types to use the element name, got %q", got)
	}

	f := newFixture[TestUser](t, WithNamespace("AccountEvents"))
	if f.cached.Namespace() != "account_events" {
		t.Errorf("expected account_events, got %q", f.cached.Namespace())
	}
	if ops := f.registry.Operations("account_events.List"); len(ops) != 1 {
		t.Errorf("expected List declared under the custom namespace")
	}
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"TestUser":           "test_user",
		"HTTPServer":         "http_server",
		"User2FA":            "user_2_fa",
		"*models.User":       "models_user",
		"Page[models.User]":  "page_models_user",
		"already_snake_case": "already_snake_case",
		"kebab-case name":    "kebab_case_name",
		"ABc":                "a_bc",
		"v2beta":             "v_2beta",
		"map[string]int":     "map_string_int",
		"__Order__":          "order",
		"":                   "",
	}

	for in, want := range tests {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCacheNames(t *testing.T) {
	want := []string{
		"user.get",
		"user.get_by_id",
		"user.get_by_identifier",
		"user.list",
		"user.count",
	}
	if got := CacheNames("user"); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// Test cache hit scenarios for read methods
func TestCachedReadMethods_CacheHit(t *testing.T) {
	tests := []struct {
		name          string
		seed          func(*fixture[TestUser])
		testOperation func(*CachedRepository[TestUser]) error
	}{
		{
			name: "Get_CacheHit",
			seed: func(f *fixture[TestUser]) {
				f.recording(CacheGet).Seed(noCriteria, TestUser{ID: "cached-1", Name: "Cached User"})
			},
			testOperation: func(cached *CachedRepository[TestUser]) error {
				user, err := cached.Get(context.Background())
				if err != nil {
					return err
				}
				if user.ID != "cached-1" {
					return errors.New("expected cached user cached-1, got " + user.ID)
				}
				return nil
			},
		},
		{
			name: "GetByID_CacheHit",
			seed: func(f *fixture[TestUser]) {
				f.recording(CacheGetByID).Seed("user-1", TestUser{ID: "user-1", Name: "Cached User"})
			},
			testOperation: func(cached *CachedRepository[TestUser]) error {
				user, err := cached.GetByID(context.Background(), "user-1")
				if err != nil {
					return err
				}
				if user.Name != "Cached User" {
					return errors.New("expected cached user, got " + user.Name)
				}
				return nil
			},
		},
		{
			name: "GetByIdentifier_CacheHit",
			seed: func(f *fixture[TestUser]) {
				f.recording(CacheGetByIdentifier).Seed("alice", TestUser{ID: "user-7", Name: "alice"})
			},
			testOperation: func(cached *CachedRepository[TestUser]) error {
				user, err := cached.GetByIdentifier(context.Background(), "alice")
				if err != nil {
					return err
				}
				if user.ID != "user-7" {
					return errors.New("expected user-7, got " + user.ID)
				}
				return nil
			},
		},
		{
			name: "List_CacheHit",
			seed: func(f *fixture[TestUser]) {
				f.recording(CacheList).Seed(noCriteria, listResult[TestUser]{
					Records: []TestUser{{ID: "1", Name: "User 1"}, {ID: "2", Name: "User 2"}},
					Total:   2,
				})
			},
			testOperation: func(cached *CachedRepository[TestUser]) error {
				records, total, err := cached.List(context.Background())
				if err != nil {
					return err
				}
				if len(records) != 2 || total != 2 {
					return errors.New("expected 2 cached records")
				}
				return nil
			},
		},
		{
			name: "Count_CacheHit",
			seed: func(f *fixture[TestUser]) {
				f.recording(CacheCount).Seed(noCriteria, 42)
			},
			testOperation: func(cached *CachedRepository[TestUser]) error {
				count, err := cached.Count(context.Background())
				if err != nil {
					return err
				}
				if count != 42 {
					return errors.New("expected cached count 42")
				}
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture[TestUser](t)
			tt.seed(f)

			if err := tt.testOperation(f.cached); err != nil {
				t.Fatal(err)
			}
			if calls := f.base.getCalls(); len(calls) != 0 {
				t.Errorf("expected no base repository calls, got %v", calls)
			}
		})
	}
}

// Test cache miss scenarios: first call loads, second call is served from cache
func TestCachedReadMethods_CacheMiss(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		cache  string
		key    any
		setup  func(*mockRepository[TestUser])
		call   func(*CachedRepository[TestUser]) (any, error)
		want   any
	}{
		{
			name:   "Get",
			method: "Get",
			cache:  CacheGet,
			key:    noCriteria,
			setup: func(m *mockRepository[TestUser]) {
				m.getResult = TestUser{ID: "1", Name: "First"}
			},
			call: func(c *CachedRepository[TestUser]) (any, error) {
				return c.Get(ctx)
			},
			want: TestUser{ID: "1", Name: "First"},
		},
		{
			name:   "GetByID",
			method: "GetByID",
			cache:  CacheGetByID,
			key:    "user-1",
			setup: func(m *mockRepository[TestUser]) {
				m.getByIDResult = TestUser{ID: "user-1", Name: "Loaded"}
			},
			call: func(c *CachedRepository[TestUser]) (any, error) {
				return c.GetByID(ctx, "user-1")
			},
			want: TestUser{ID: "user-1", Name: "Loaded"},
		},
		{
			name:   "GetByIdentifier",
			method: "GetByIdentifier",
			cache:  CacheGetByIdentifier,
			key:    "bob",
			setup: func(m *mockRepository[TestUser]) {
				m.identResult = TestUser{ID: "user-2", Name: "bob"}
			},
			call: func(c *CachedRepository[TestUser]) (any, error) {
				return c.GetByIdentifier(ctx, "bob")
			},
			want: TestUser{ID: "user-2", Name: "bob"},
		},
		{
			name:   "List",
			method: "List",
			cache:  CacheList,
			key:    noCriteria,
			setup: func(m *mockRepository[TestUser]) {
				m.listRecords = []TestUser{{ID: "1"}, {ID: "2"}, {ID: "3"}}
				m.listTotal = 3
			},
			call: func(c *CachedRepository[TestUser]) (any, error) {
				records, total, err := c.List(ctx)
				return listResult[TestUser]{Records: records, Total: total}, err
			},
			want: listResult[TestUser]{Records: []TestUser{{ID: "1"}, {ID: "2"}, {ID: "3"}}, Total: 3},
		},
		{
			name:   "Count",
			method: "Count",
			cache:  CacheCount,
			key:    noCriteria,
			setup: func(m *mockRepository[TestUser]) {
				m.countResult = 7
			},
			call: func(c *CachedRepository[TestUser]) (any, error) {
				return c.Count(ctx)
			},
			want: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture[TestUser](t)
			tt.setup(f.base)

			for i := 0; i < 2; i++ {
				got, err := tt.call(f.cached)
				if err != nil {
					t.Fatalf("call %d failed: %v", i, err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Fatalf("call %d: expected %+v, got %+v", i, tt.want, got)
				}
			}

			if n := f.base.countCalls(tt.method); n != 1 {
				t.Errorf("expected base %s to be called once, got %d", tt.method, n)
			}
			stored, ok := f.recording(tt.cache).Peek(tt.key)
			if !ok {
				t.Fatalf("expected an entry in %s", tt.cache)
			}
			if !reflect.DeepEqual(stored, tt.want) {
				t.Errorf("expected stored %+v, got %+v", tt.want, stored)
			}
		})
	}
}

func TestCachedReads_WithCriteriaBypassCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture[TestUser](t)
	f.base.getByIDResult = TestUser{ID: "user-1"}

	for i := 0; i < 2; i++ {
		if _, err := f.cached.GetByID(ctx, "user-1", nil); err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if _, err := f.cached.Count(ctx, nil); err != nil {
			t.Fatalf("Count failed: %v", err)
		}
	}

	if n := f.base.countCalls("GetByID"); n != 2 {
		t.Errorf("expected GetByID with criteria to reach the base twice, got %d", n)
	}
	if n := f.base.countCalls("Count"); n != 2 {
		t.Errorf("expected Count with criteria to reach the base twice, got %d", n)
	}
	if f.recording(CacheGetByID).Len() != 0 || f.recording(CacheCount).Len() != 0 {
		t.Error("expected nothing cached for reads with criteria")
	}
}

func TestCachedReads_NilRecordIsCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture[*TestUser](t)

	for i := 0; i < 2; i++ {
		user, err := f.cached.GetByID(ctx, "missing")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if user != nil {
			t.Fatalf("expected nil user, got %+v", user)
		}
	}

	if n := f.base.countCalls("GetByID"); n != 1 {
		t.Errorf("expected a cached absence to skip the base, got %d calls", n)
	}
	stored, ok := f.recording(CacheGetByID).Peek("missing")
	if !ok || !cache.IsNull(stored) {
		t.Errorf("expected NullValue stored, got %v (found=%v)", stored, ok)
	}
}

// Test error propagation from base repository
func TestCachedReadMethods_ErrorPropagation(t *testing.T) {
	ctx := context.Background()
	expectedErr := errors.New("database connection failed")

	tests := []struct {
		name  string
		setup func(*mockRepository[TestUser])
		call  func(*CachedRepository[TestUser]) error
		cache string
	}{
		{
			name:  "Get",
			setup: func(m *mockRepository[TestUser]) { m.getError = expectedErr },
			call: func(c *CachedRepository[TestUser]) error {
				_, err := c.Get(ctx)
				return err
			},
			cache: CacheGet,
		},
		{
			name:  "GetByID",
			setup: func(m *mockRepository[TestUser]) { m.getByIDError = expectedErr },
			call: func(c *CachedRepository[TestUser]) error {
				_, err := c.GetByID(ctx, "user-1")
				return err
			},
			cache: CacheGetByID,
		},
		{
			name:  "List",
			setup: func(m *mockRepository[TestUser]) { m.listError = expectedErr },
			call: func(c *CachedRepository[TestUser]) error {
				records, total, err := c.List(ctx)
				if records != nil || total != 0 {
					return errors.New("expected empty results alongside the error")
				}
				return err
			},
			cache: CacheList,
		},
		{
			name:  "Count",
			setup: func(m *mockRepository[TestUser]) { m.countError = expectedErr },
			call: func(c *CachedRepository[TestUser]) error {
				_, err := c.Count(ctx)
				return err
			},
			cache: CacheCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture[TestUser](t)
			tt.setup(f.base)

			for i := 0; i < 2; i++ {
				if err := tt.call(f.cached); !errors.Is(err, expectedErr) {
					t.Fatalf("expected %v, got %v", expectedErr, err)
				}
			}
			if n := f.base.countCalls(tt.name); n != 2 {
				t.Errorf("expected failures not to be cached, base called %d times", n)
			}
			if f.recording(tt.cache).Len() != 0 {
				t.Error("expected no cache entry after an error")
			}
		})
	}
}

func TestCachedReads_WithSync(t *testing.T) {
	ctx := context.Background()
	f := newFixture[TestUser](t, WithSync())
	f.base.getByIDResult = TestUser{ID: "user-1"}

	ops := f.registry.Operations("test_user.GetByID")
	if len(ops) != 1 || !ops[0].Sync {
		t.Fatalf("expected a sync GetByID declaration")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := f.cached.GetByID(ctx, "user-1")
			if err != nil || user.ID != "user-1" {
				t.Errorf("unexpected result %+v, %v", user, err)
			}
		}()
	}
	wg.Wait()

	if _, err := f.cached.GetByID(ctx, "user-1"); err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if _, ok := f.recording(CacheGetByID).Peek("user-1"); !ok {
		t.Error("expected the loaded record to be cached")
	}
}

// primeReads fills every read cache through the decorator
func primeReads(t *testing.T, f *fixture[TestUser]) {
	t.Helper()
	ctx := context.Background()

	f.base.getResult = TestUser{ID: "1"}
	f.base.getByIDResult = TestUser{ID: "1"}
	f.base.identResult = TestUser{ID: "1"}
	f.base.listRecords = []TestUser{{ID: "1"}}
	f.base.listTotal = 1
	f.base.countResult = 1

	if _, err := f.cached.Get(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cached.GetByID(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cached.GetByIdentifier(ctx, "one"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.cached.List(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cached.Count(ctx); err != nil {
		t.Fatal(err)
	}

	for _, suffix := range []string{CacheGet, CacheGetByID, CacheGetByIdentifier, CacheList, CacheCount} {
		if f.recording(suffix).Len() != 1 {
			t.Fatalf("expected %s primed", suffix)
		}
	}
}

func populated(f *fixture[TestUser]) []string {
	var out []string
	for _, suffix := range []string{CacheGet, CacheGetByID, CacheGetByIdentifier, CacheList, CacheCount} {
		if f.recording(suffix).Len() > 0 {
			out = append(out, suffix)
		}
	}
	sort.Strings(out)
	return out
}

// Test write operations delegate to the base and invalidate read caches
func TestWriteMethods_Invalidation(t *testing.T) {
	ctx := context.Background()
	record := TestUser{ID: "1", Name: "Record"}
	records := []TestUser{record}

	afterCreate := []string{CacheGet, CacheGetByID, CacheGetByIdentifier}
	sort.Strings(afterCreate)

	tests := []struct {
		method    string
		call      func(*CachedRepository[TestUser]) error
		remaining []string
	}{
		{"Create", func(c *CachedRepository[TestUser]) error {
			_, err := c.Create(ctx, record)
			return err
		}, afterCreate},
		{"CreateTx", func(c *CachedRepository[TestUser]) error {
			_, err := c.CreateTx(ctx, nil, record)
			return err
		}, afterCreate},
		{"CreateMany", func(c *CachedRepository[TestUser]) error {
			_, err := c.CreateMany(ctx, records)
			return err
		}, afterCreate},
		{"CreateManyTx", func(c *CachedRepository[TestUser]) error {
			_, err := c.CreateManyTx(ctx, nil, records)
			return err
		}, afterCreate},
		{"GetOrCreate", func(c *CachedRepository[TestUser]) error {
			_, err := c.GetOrCreate(ctx, record)
			return err
		}, afterCreate},
		{"GetOrCreateTx", func(c *CachedRepository[TestUser]) error {
			_, err := c.GetOrCreateTx(ctx, nil, record)
			return err
		}, afterCreate},
		{"Update", func(c *CachedRepository[TestUser]) error {
			_, err := c.Update(ctx, record)
			return err
		}, nil},
		{"UpdateTx", func(c *CachedRepository[TestUser]) error {
			_, err := c.UpdateTx(ctx, nil, record)
			return err
		}, nil},
		{"UpdateMany", func(c *CachedRepository[TestUser]) error {
			_, err := c.UpdateMany(ctx, records)
			return err
		}, nil},
		{"UpdateManyTx", func(c *CachedRepository[TestUser]) error {
			_, err := c.UpdateManyTx(ctx, nil, records)
			return err
		}, nil},
		{"Upsert", func(c *CachedRepository[TestUser]) error {
			_, err := c.Upsert(ctx, record)
			return err
		}, nil},
		{"UpsertTx", func(c *CachedRepository[TestUser]) error {
			_, err := c.UpsertTx(ctx, nil, record)
			return err
		}, nil},
		{"UpsertMany", func(c *CachedRepository[TestUser]) error {
			_, err := c.UpsertMany(ctx, records)
			return err
		}, nil},
		{"UpsertManyTx", func(c *CachedRepository[TestUser]) error {
			_, err := c.UpsertManyTx(ctx, nil, records)
			return err
		}, nil},
		{"Delete", func(c *CachedRepository[TestUser]) error {
			return c.Delete(ctx, record)
		}, nil},
		{"DeleteTx", func(c *CachedRepository[TestUser]) error {
			return c.DeleteTx(ctx, nil, record)
		}, nil},
		{"DeleteMany", func(c *CachedRepository[TestUser]) error {
			return c.DeleteMany(ctx)
		}, nil},
		{"DeleteManyTx", func(c *CachedRepository[TestUser]) error {
			return c.DeleteManyTx(ctx, nil)
		}, nil},
		{"DeleteWhere", func(c *CachedRepository[TestUser]) error {
			return c.DeleteWhere(ctx)
		}, nil},
		{"DeleteWhereTx", func(c *CachedRepository[TestUser]) error {
			return c.DeleteWhereTx(ctx, nil)
		}, nil},
		{"ForceDelete", func(c *CachedRepository[TestUser]) error {
			return c.ForceDelete(ctx, record)
		}, nil},
		{"ForceDeleteTx", func(c *CachedRepository[TestUser]) error {
			return c.ForceDeleteTx(ctx, nil, record)
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			f := newFixture[TestUser](t)
			primeReads(t, f)
			f.base.writeResult = record

			if err := tt.call(f.cached); err != nil {
				t.Fatalf("%s failed: %v", tt.method, err)
			}
			if n := f.base.countCalls(tt.method); n != 1 {
				t.Errorf("expected base %s called once, got %d", tt.method, n)
			}
			if got := populated(f); !reflect.DeepEqual(got, tt.remaining) {
				t.Errorf("expected caches %v to survive, got %v", tt.remaining, got)
			}
		})

		t.Run(tt.method+"_Error", func(t *testing.T) {
			f := newFixture[TestUser](t)
			primeReads(t, f)
			writeErr := errors.New("constraint violation")
			f.base.writeError = writeErr

			if err := tt.call(f.cached); !errors.Is(err, writeErr) {
				t.Fatalf("expected %v, got %v", writeErr, err)
			}
			if got := populated(f); len(got) != 5 {
				t.Errorf("expected a failed write to keep every cache, got %v", got)
			}
		})
	}
}

func TestWriteMethods_ReturnBaseResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture[TestUser](t)
	f.base.writeResult = TestUser{ID: "new-1", Name: "Created"}

	created, err := f.cached.Create(ctx, TestUser{Name: "Created"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != "new-1" {
		t.Errorf("expected base result, got %+v", created)
	}

	updated, err := f.cached.UpdateMany(ctx, []TestUser{created})
	if err != nil {
		t.Fatalf("UpdateMany failed: %v", err)
	}
	if len(updated) != 1 || updated[0].ID != "new-1" {
		t.Errorf("expected base result, got %+v", updated)
	}
}

func TestWriteMethods_EvictionFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture[TestUser](t)
	storeErr := errors.New("cache unavailable")
	f.recording(CacheCount).FailOn("clear", storeErr)

	err := f.cached.Delete(ctx, TestUser{ID: "1"})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected %v, got %v", storeErr, err)
	}

	var cse *interceptor.CacheStoreError
	if !errors.As(err, &cse) {
		t.Fatalf("expected a CacheStoreError, got %T", err)
	}
	if cse.Cache != "test_user.count" {
		t.Errorf("expected failing cache test_user.count, got %q", cse.Cache)
	}
	if n := f.base.countCalls("Delete"); n != 1 {
		t.Errorf("expected the delete to run before eviction, got %d calls", n)
	}
}

// Transaction reads and raw queries bypass the cache entirely
func TestPassThroughMethods(t *testing.T) {
	ctx := context.Background()
	f := newFixture[TestUser](t)
	f.base.getByIDResult = TestUser{ID: "tx-1"}
	f.base.listRecords = []TestUser{{ID: "raw"}}

	for i := 0; i < 2; i++ {
		if _, err := f.cached.GetTx(ctx, nil); err != nil {
			t.Fatal(err)
		}
		if user, err := f.cached.GetByIDTx(ctx, nil, "tx-1"); err != nil || user.ID != "tx-1" {
			t.Fatalf("unexpected GetByIDTx result %+v, %v", user, err)
		}
		if _, _, err := f.cached.ListTx(ctx, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := f.cached.CountTx(ctx, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := f.cached.GetByIdentifierTx(ctx, nil, "x"); err != nil {
			t.Fatal(err)
		}
		if rows, err := f.cached.Raw(ctx, "SELECT 1"); err != nil || len(rows) != 1 {
			t.Fatalf("unexpected Raw result %v, %v", rows, err)
		}
		if _, err := f.cached.RawTx(ctx, nil, "SELECT 1"); err != nil {
			t.Fatal(err)
		}
	}

	for _, method := range []string{"GetTx", "GetByIDTx", "ListTx", "CountTx", "GetByIdentifierTx", "Raw", "RawTx"} {
		if n := f.base.countCalls(method); n != 2 {
			t.Errorf("expected %s to reach the base twice, got %d", method, n)
		}
	}
	if names := f.caches.Names(); len(names) != 0 {
		t.Errorf("expected no cache touched, got %v", names)
	}
}

func TestMemoryManagerIntegration(t *testing.T) {
	ctx := context.Background()

	registry := interceptor.NewRegistry()
	manager, err := cache.NewMemoryManager(cache.DefaultConfig(), CacheNames(Namespace[TestUser]())...)
	if err != nil {
		t.Fatalf("NewMemoryManager failed: %v", err)
	}
	base := &mockRepository[TestUser]{
		listRecords: []TestUser{{ID: "1"}, {ID: "2"}},
		listTotal:   2,
		writeResult: TestUser{ID: "3"},
	}

	cached, err := New[TestUser](base, registry, interceptor.New(registry, manager), WithSync())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		records, total, err := cached.List(ctx)
		if err != nil || total != 2 || len(records) != 2 {
			t.Fatalf("unexpected List result %v, %d, %v", records, total, err)
		}
	}
	if n := base.countCalls("List"); n != 1 {
		t.Errorf("expected one base List, got %d", n)
	}

	if _, err := cached.Create(ctx, TestUser{}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, _, err := cached.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if n := base.countCalls("List"); n != 2 {
		t.Errorf("expected Create to invalidate List, base called %d times", n)
	}
}

// Test that CachedRepository satisfies the Repository interface
func TestRepositoryInterfaceSatisfaction(t *testing.T) {
	var _ repository.Repository[TestUser] = &CachedRepository[TestUser]{}
}
