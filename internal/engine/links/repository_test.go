package links

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"

	"linkroute/internal/engine/routing"
	"linkroute/internal/platform/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	// every pooled connection to :memory: would see its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(sqlDB, database.DriverSQLite)
	if _, err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func newTestLink(id, alias string) *Link {
	now := time.Now().Unix()
	return &Link{
		ID:           id,
		Alias:        alias,
		Kind:         KindURL,
		LongURL:      "https://example.com",
		OwnerID:      "user1",
		RedirectType: RedirectTemporary,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	link := newTestLink("link1", "abc")
	link.ScheduledRedirect = &ScheduledRedirect{Enabled: true, StartDate: &start, Message: "soon"}
	link.SplashScreen = &SplashScreen{Enabled: true, DelaySeconds: 3}
	link.MultipleDestinationRules = []routing.Rule{{
		ID:          "rule_1",
		Destination: "https://fr.example.com",
		Priority:    1,
		Conditions:  []routing.Condition{{Field: routing.FieldCountry, Operator: routing.OpEq, Value: "France"}},
	}}

	if err := repo.Create(ctx, link); err != nil {
		t.Fatalf("Failed to create link: %v", err)
	}

	fetched, err := repo.GetByID(ctx, "link1")
	if err != nil {
		t.Fatalf("Failed to get link: %v", err)
	}
	if fetched.Alias != "abc" {
		t.Errorf("Expected alias abc, got %s", fetched.Alias)
	}
	if fetched.ScheduledRedirect == nil || !fetched.ScheduledRedirect.StartDate.Equal(start) {
		t.Errorf("scheduled redirect not round tripped: %+v", fetched.ScheduledRedirect)
	}
	if fetched.Expiration != nil {
		t.Errorf("expected nil expiration, got %+v", fetched.Expiration)
	}
	if len(fetched.MultipleDestinationRules) != 1 || fetched.MultipleDestinationRules[0].Conditions[0].Value != "France" {
		t.Errorf("rules not round tripped: %+v", fetched.MultipleDestinationRules)
	}

	byAlias, err := repo.GetByAlias(ctx, "abc")
	if err != nil || byAlias.ID != "link1" {
		t.Errorf("GetByAlias() = %v, %v", byAlias, err)
	}

	if _, err := repo.GetByAlias(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := repo.Create(ctx, newTestLink("link2", "abc")); !errors.Is(err, ErrAliasTaken) {
		t.Errorf("Expected ErrAliasTaken, got %v", err)
	}
}

func TestRepository_EmptyRulesDecodeAsEmptySlice(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	if err := repo.Create(ctx, newTestLink("link1", "abc")); err != nil {
		t.Fatal(err)
	}
	fetched, err := repo.GetByID(ctx, "link1")
	if err != nil {
		t.Fatal(err)
	}
	if fetched.MultipleDestinationRules == nil || len(fetched.MultipleDestinationRules) != 0 {
		t.Errorf("expected empty non-nil rules, got %#v", fetched.MultipleDestinationRules)
	}
	if fetched.HasPassword {
		t.Error("link without hash reported as password protected")
	}
}

func TestRepository_UpdateVersioning(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	link := newTestLink("link1", "abc")
	if err := repo.Create(ctx, link); err != nil {
		t.Fatal(err)
	}

	link.Title = "first"
	if err := repo.Update(ctx, link, 1); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if link.Version != 2 {
		t.Errorf("version = %d, want 2", link.Version)
	}

	link.Title = "stale"
	if err := repo.Update(ctx, link, 1); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict, got %v", err)
	}

	ghost := newTestLink("ghost", "ghost")
	if err := repo.Update(ctx, ghost, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	fetched, _ := repo.GetByID(ctx, "link1")
	if fetched.Title != "first" || fetched.Version != 2 {
		t.Errorf("stored = %q v%d", fetched.Title, fetched.Version)
	}
}

func TestRepository_RestrictArchiveAndClicks(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	if err := repo.Create(ctx, newTestLink("link1", "abc")); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetRestriction(ctx, "link1", true, "phishing"); err != nil {
		t.Fatal(err)
	}
	at := time.Unix(1700000000, 0)
	if err := repo.IncrementClickCount(ctx, "link1", at); err != nil {
		t.Fatal(err)
	}
	if err := repo.IncrementClickCount(ctx, "link1", at); err != nil {
		t.Fatal(err)
	}

	fetched, _ := repo.GetByID(ctx, "link1")
	if !fetched.Restricted || fetched.RestrictionReason != "phishing" {
		t.Errorf("restriction not stored: %v %q", fetched.Restricted, fetched.RestrictionReason)
	}
	if fetched.ClickCount != 2 || fetched.LastClickAt == nil || *fetched.LastClickAt != at.Unix() {
		t.Errorf("click count = %d last = %v", fetched.ClickCount, fetched.LastClickAt)
	}

	if err := repo.Archive(ctx, "link1"); err != nil {
		t.Fatal(err)
	}
	list, err := repo.ListByOwner(ctx, "user1", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("archived link listed: %d", len(list))
	}

	if err := repo.Archive(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRepository_ListByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	for i, alias := range []string{"aaa", "bbb", "ccc"} {
		l := newTestLink(alias, alias)
		l.CreatedAt = int64(100 + i)
		if err := repo.Create(ctx, l); err != nil {
			t.Fatal(err)
		}
	}
	other := newTestLink("other", "other")
	other.OwnerID = "user2"
	if err := repo.Create(ctx, other); err != nil {
		t.Fatal(err)
	}

	page, err := repo.ListByOwner(ctx, "user1", 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Alias != "ccc" || page[1].Alias != "bbb" {
		t.Errorf("unexpected first page: %v", aliases(page))
	}
	page, _ = repo.ListByOwner(ctx, "user1", 2, 2)
	if len(page) != 1 || page[0].Alias != "aaa" {
		t.Errorf("unexpected second page: %v", aliases(page))
	}
}

func TestRepository_GetByAlias_DBError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDB.Close()

	mock.ExpectQuery("SELECT (.+) FROM links WHERE alias = ?").
		WithArgs("abc").
		WillReturnError(errors.New("connection reset"))

	repo := NewRepository(database.New(mockDB, database.DriverSQLite))
	_, err = repo.GetByAlias(context.Background(), "abc")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected driver error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRepository_PostgresPlaceholders(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatal(err)
	}
	defer mockDB.Close()

	mock.ExpectExec("UPDATE links SET click_count = click_count + 1, last_click_at = $1 WHERE id = $2").
		WithArgs(int64(1700000000), "link1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRepository(database.New(mockDB, database.DriverPostgres))
	if err := repo.IncrementClickCount(context.Background(), "link1", time.Unix(1700000000, 0)); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func aliases(links []*Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Alias
	}
	return out
}
