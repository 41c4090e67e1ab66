package mysql

import (
	"context"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"crashwrangle/internal/storage"
	"crashwrangle/internal/table"
)

func TestCreateTableSQL(t *testing.T) {
	tb := table.New([]string{"UNIQUE KEY", "CRASH DATE", "CRASH TIME", "LATITUDE", "BOROUGH"})
	tb.SetType("UNIQUE KEY", table.TypeInt)
	tb.SetType("CRASH DATE", table.TypeDate)
	tb.SetType("CRASH TIME", table.TypeTime)
	tb.SetType("LATITUDE", table.TypeFloat)

	got, err := storage.CreateTableSQL("mysql", "crashes.collisions_clean", tb)
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `crashes`.`collisions_clean` (\n" +
		"  `UNIQUE KEY` BIGINT,\n" +
		"  `CRASH DATE` DATE,\n" +
		"  `CRASH TIME` TIME,\n" +
		"  `LATITUDE` DOUBLE,\n" +
		"  `BOROUGH` TEXT\n);"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got, want := quoteIdent("odd`name"), "`odd``name`"; got != want {
		t.Fatalf("got %q; want %q", got, want)
	}
}

func TestInsertSQL(t *testing.T) {
	d := time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	query, args := insertSQL("`t`", []string{"UNIQUE KEY", "CRASH DATE"}, [][]any{
		{int64(1), d},
		{int64(2), nil},
	})
	if want := "INSERT INTO `t` (`UNIQUE KEY`, `CRASH DATE`) VALUES (?, ?), (?, ?)"; query != want {
		t.Fatalf("query = %q; want %q", query, want)
	}
	if want := []any{int64(1), "2021-01-02", int64(2), nil}; !reflect.DeepEqual(args, want) {
		t.Fatalf("args = %#v; want %#v", args, want)
	}
}

func TestChunkRows(t *testing.T) {
	rows := make([][]any, 5)
	var sizes []int
	for _, c := range chunkRows(rows, 2) {
		sizes = append(sizes, len(c))
	}
	if want := []int{2, 2, 1}; !reflect.DeepEqual(sizes, want) {
		t.Fatalf("sizes = %v; want %v", sizes, want)
	}
	if got := len(chunkRows(rows, 0)); got != 5 {
		t.Fatalf("size 0 chunks = %d; want 5", got)
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	_, err := NewRepository(context.Background(), storage.Config{DSN: "no-slash-here", Table: "t"})
	if err == nil || !strings.Contains(err.Error(), "parse dsn") {
		t.Fatalf("err = %v; want parse dsn error", err)
	}
}

// TestSink_Integration runs against a live server when MYSQL_TEST_DSN is set.
func TestSink_Integration(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set; skipping MySQL integration test")
	}
	ctx := context.Background()
	tbl := "crashwrangle_it_" + strings.ReplaceAll(t.Name(), "/", "_")

	repo, err := NewRepository(ctx, storage.Config{DSN: dsn, Table: tbl})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer repo.Close()
	defer repo.Exec(ctx, "DROP TABLE IF EXISTS "+quoteIdent(tbl))

	tb := table.New([]string{"UNIQUE KEY", "BOROUGH"})
	tb.SetType("UNIQUE KEY", table.TypeInt)
	_ = tb.AppendRow([]table.Value{table.Int(1), table.String("Queens")})
	_ = tb.AppendRow([]table.Value{table.Int(2), table.Null()})

	n, err := storage.Sink(ctx, storage.Config{Kind: "mysql", DSN: dsn, Table: tbl}, tb, 10)
	if err != nil {
		t.Fatalf("Sink: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted %d; want 2", n)
	}
}
