package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/docsearch/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		AnyTimes()

	s := NewStoreForTest(c)
	if err := s.WaitForReady(context.Background(), 250*time.Millisecond); err == nil {
		t.Fatal("expected timeout")
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

// --- hash.go tests ---

func TestHSet_SortedFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HSET", "rec:1", "a", "1", "b", "2")).
		Return(mock.Result(mock.RedisInt64(2)))

	s := NewStoreForTest(c)
	if err := s.HSet(context.Background(), "rec:1", map[string]string{"b": "2", "a": "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "rec:1", map[string]string{"f": "v"})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "rec:1")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"file_name": mock.RedisString("notes.txt"),
		})))

	s := NewStoreForTest(c)
	m, err := s.HGetAll(context.Background(), "rec:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["file_name"] != "notes.txt" {
		t.Errorf("fields = %v", m)
	}
}

func TestHGetAll_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "rec:404")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	_, err := s.HGetAll(context.Background(), "rec:404")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestDel_ReportsExistence(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		want bool
	}{
		{"existed", 1, true},
		{"absent", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)
			c.EXPECT().
				Do(gomock.Any(), mock.Match("DEL", "rec:1")).
				Return(mock.Result(mock.RedisInt64(tt.n)))

			got, err := NewStoreForTest(c).Del(context.Background(), "rec:1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Del() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "rec:1")).
		Return(mock.Result(mock.RedisInt64(1)))

	ok, err := NewStoreForTest(c).Exists(context.Background(), "rec:1")
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
}

// --- kv.go tests ---

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "emb:x")).
		Return(mock.Result(mock.RedisNil()))

	_, err := NewStoreForTest(c).Get(context.Background(), "emb:x")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "emb:x", "v", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := NewStoreForTest(c).SetWithTTL(context.Background(), "emb:x", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go tests ---

func TestCreateIndex_Args(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	def, err := db.NewIndex("ds:records:idx").
		Prefix("ds:rec:").
		Tag("tenant_id").
		ContainsTag("file_name_lc", "/").
		Text("content").
		Numeric("created_at").
		VectorHNSW("vector", 4, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := NewStoreForTest(c).CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(got, " ")
	for _, want := range []string{
		"FT.CREATE ds:records:idx ON HASH PREFIX 1 ds:rec: STOPWORDS 0 SCHEMA",
		"tenant_id TAG CASESENSITIVE",
		"file_name_lc TAG SEPARATOR / WITHSUFFIXTRIE",
		"content TEXT NOSTEM WITHSUFFIXTRIE",
		"created_at NUMERIC SORTABLE",
		"vector VECTOR HNSW 10 TYPE FLOAT32 DIM 4 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("FT.CREATE args %q missing %q", joined, want)
		}
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Index already exists")))

	def, _ := db.NewIndex("idx").Tag("tenant_id").Build()
	err := NewStoreForTest(c).CreateIndex(context.Background(), def)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestIndexExists_UnknownIndex(t *testing.T) {
	for _, msg := range []string{"Unknown index name", "idx: no such index"} {
		ctrl := gomock.NewController(t)
		c := mock.NewClient(ctrl)
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
			Return(mock.Result(mock.RedisError(msg)))

		ok, err := NewStoreForTest(c).IndexExists(context.Background(), "idx")
		if err != nil || ok {
			t.Errorf("%q: IndexExists() = %v, %v", msg, ok, err)
		}
	}
}

func TestBuildCreateArgs_Validation(t *testing.T) {
	if _, err := buildCreateArgs(&db.IndexDefinition{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := buildCreateArgs(&db.IndexDefinition{Name: "idx"}); err == nil {
		t.Error("expected error for no fields")
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("rec:1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"), mock.RedisString("0.1"),
				mock.RedisString("file_name"), mock.RedisString("notes.txt"),
			),
			mock.RedisString("rec:2"),
			mock.RedisArray(
				mock.RedisString("__vector_score"), mock.RedisString("1.4"),
			),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "idx",
		Tags:         map[string]string{"tenant_id": "user-1"},
		Vector:       []float32{0.1, 0.2},
		K:            20,
		ReturnFields: []string{"file_name"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[2] != `(@tenant_id:{user\-1})=>[KNN 20 @vector $BLOB AS __vector_score]` {
		t.Errorf("query = %q", got[2])
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	// cosine distance 0.1 maps to similarity 0.9
	if s := result.Entries[0].Score; s < 0.89 || s > 0.91 {
		t.Errorf("expected score ~0.9, got %f", s)
	}
	if result.Entries[1].Score != 0 {
		t.Errorf("distance > 1 must clamp to 0, got %f", result.Entries[1].Score)
	}
	if _, ok := result.Entries[0].Fields["__vector_score"]; ok {
		t.Error("score field should be stripped")
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	result, err := NewStoreForTest(c).SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx", Vector: []float32{0.1}, K: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := NewStoreForTest(c).SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx", Vector: []float32{0.1}, K: 10,
	})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	if _, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10}); err == nil {
		t.Error("expected error for empty index name")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 10}); err == nil {
		t.Error("expected error for empty vector")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}}); err == nil {
		t.Error("expected error for k=0")
	}
}

func TestSearchInfix_Query(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("rec:1"),
			mock.RedisArray(mock.RedisString("content"), mock.RedisString("quarterly revenue")),
		)))

	result, err := NewStoreForTest(c).SearchInfix(context.Background(), &db.InfixQuery{
		IndexName: "idx",
		Tags:      map[string]string{"tenant_id": "u1"},
		TagFields: []string{"file_name_lc"},
		Fields:    []string{"content"},
		Terms:     []string{"revenue", "q3-report.pdf"},
		Limit:     100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `@tenant_id:{u1} (@file_name_lc:{w'*revenue*'} | @content:(*revenue*)` +
		` | @file_name_lc:{w'*q3-report.pdf*'} | @content:(*q3* *report* *pdf*))`
	if got[2] != want {
		t.Errorf("query = %q, want %q", got[2], want)
	}
	if result.Entries[0].Fields["content"] != "quarterly revenue" {
		t.Errorf("entries = %+v", result.Entries)
	}
}

func TestBuildInfixQuery(t *testing.T) {
	tests := []struct {
		name      string
		tagFields []string
		fields    []string
		terms     []string
		want      string
	}{
		{
			"punctuation only keeps the name clause",
			[]string{"file_name_lc"}, []string{"content"}, []string{"---"},
			`(@file_name_lc:{w'*---*'})`,
		},
		{
			"short pieces dropped",
			nil, []string{"content"}, []string{"q3_a"},
			`(@content:(*q3*))`,
		},
		{
			"quote escaped in wildcard",
			[]string{"file_name_lc"}, nil, []string{"o'brien"},
			`(@file_name_lc:{w'*o\'brien*'})`,
		},
		{
			"no clause",
			nil, []string{"content"}, []string{"a.b"},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildInfixQuery(nil, tt.tagFields, tt.fields, tt.terms); got != tt.want {
				t.Errorf("buildInfixQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearchInfix_NoTermsSkipsCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	result, err := NewStoreForTest(c).SearchInfix(context.Background(), &db.InfixQuery{
		IndexName: "idx", Fields: []string{"content"}, Limit: 10,
	})
	if err != nil || len(result.Entries) != 0 {
		t.Errorf("SearchInfix() = %+v, %v", result, err)
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery("a-b@c"); got != `a\-b\@c` {
		t.Errorf("escapeQuery() = %q", got)
	}
}

func TestVectorToBytes(t *testing.T) {
	blob := vectorToBytes([]float32{1, 0.5})
	if len(blob) != 8 {
		t.Fatalf("blob len = %d, want 8", len(blob))
	}
	if blob[:4] != "\x00\x00\x80\x3f" {
		t.Errorf("1.0 encoded as % x", blob[:4])
	}
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
