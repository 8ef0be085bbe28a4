package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gitporter/gitporter/internal/config"
	"github.com/gitporter/gitporter/internal/models"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(config.DatabaseConfig{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error: %v", err)
	}
}

func TestEnsureUserProvisionsPersonalNamespace(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	user, err := db.EnsureUser(ctx, "mona")
	if err != nil {
		t.Fatalf("EnsureUser() error: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("EnsureUser() returned user without id")
	}

	ns, err := db.PersonalNamespace(ctx, user.ID)
	if err != nil {
		t.Fatalf("PersonalNamespace() error: %v", err)
	}
	if ns == nil || ns.FullPath != "mona" || ns.Kind != models.NamespaceKindUser {
		t.Fatalf("unexpected personal namespace: %+v", ns)
	}

	again, err := db.EnsureUser(ctx, "mona")
	if err != nil {
		t.Fatalf("second EnsureUser() error: %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("EnsureUser() created a second user: %d != %d", again.ID, user.ID)
	}
}

func TestCreateGroupCollision(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	alice, _ := db.EnsureUser(ctx, "alice")
	bob, _ := db.EnsureUser(ctx, "bob")

	if _, err := db.CreateGroup(ctx, "tools", alice.ID); err != nil {
		t.Fatalf("CreateGroup() error: %v", err)
	}
	_, err := db.CreateGroup(ctx, "tools", bob.ID)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("CreateGroup() on taken path = %v, want ErrDuplicate", err)
	}

	found, err := db.FindNamespaceByFullPath(ctx, "tools")
	if err != nil || found == nil || found.OwnerID != alice.ID {
		t.Errorf("FindNamespaceByFullPath() = %+v, %v", found, err)
	}
}

func TestProjectImportIdentityUnique(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	user, _ := db.EnsureUser(ctx, "mona")
	ns, _ := db.PersonalNamespace(ctx, user.ID)

	project := &models.Project{
		Name:         "hello",
		NamespaceID:  ns.ID,
		CreatorID:    user.ID,
		ImportType:   "github",
		ImportSource: "mona/hello",
		ImportStatus: models.ImportStatusScheduled,
	}
	if err := db.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}

	duplicate := &models.Project{
		Name:         "hello-again",
		NamespaceID:  ns.ID,
		CreatorID:    user.ID,
		ImportType:   "github",
		ImportSource: "mona/hello",
	}
	if err := db.CreateProject(ctx, duplicate); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate CreateProject() = %v, want ErrDuplicate", err)
	}

	// Same source under a different provider is a distinct import.
	other := &models.Project{
		Name:         "hello",
		Path:         "hello-gitea",
		NamespaceID:  ns.ID,
		CreatorID:    user.ID,
		ImportType:   "gitea",
		ImportSource: "mona/hello",
	}
	if err := db.CreateProject(ctx, other); err != nil {
		t.Errorf("CreateProject() across providers = %v", err)
	}
}

func TestFindProjectByImportSource(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	user, _ := db.EnsureUser(ctx, "mona")
	ns, _ := db.PersonalNamespace(ctx, user.ID)

	missing, err := db.FindProjectByImportSource(ctx, user.ID, "github", "mona/none")
	if err != nil || missing != nil {
		t.Fatalf("FindProjectByImportSource() = %+v, %v, want nil, nil", missing, err)
	}

	project := &models.Project{
		Name: "hello", NamespaceID: ns.ID, CreatorID: user.ID,
		ImportType: "github", ImportSource: "mona/hello",
	}
	if err := db.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}

	found, err := db.FindProjectByImportSource(ctx, user.ID, "github", "mona/hello")
	if err != nil || found == nil || found.ID != project.ID {
		t.Errorf("FindProjectByImportSource() = %+v, %v", found, err)
	}
}

func TestListImportSources(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	user, _ := db.EnsureUser(ctx, "mona")
	ns, _ := db.PersonalNamespace(ctx, user.ID)

	for _, source := range []string{"mona/a", "mona/b"} {
		p := &models.Project{
			Name: models.Slugify(source), NamespaceID: ns.ID, CreatorID: user.ID,
			ImportType: "github", ImportSource: source,
		}
		if err := db.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject(%s) error: %v", source, err)
		}
	}

	sources, err := db.ListImportSources(ctx, user.ID, "github")
	if err != nil {
		t.Fatalf("ListImportSources() error: %v", err)
	}
	if len(sources) != 2 {
		t.Errorf("got %d sources, want 2", len(sources))
	}

	none, err := db.ListImportSources(ctx, user.ID, "gitea")
	if err != nil || len(none) != 0 {
		t.Errorf("ListImportSources(gitea) = %v, %v", none, err)
	}
}

func TestUpdateImportStatus(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	user, _ := db.EnsureUser(ctx, "mona")
	ns, _ := db.PersonalNamespace(ctx, user.ID)

	project := &models.Project{
		Name: "hello", NamespaceID: ns.ID, CreatorID: user.ID,
		ImportType: "github", ImportSource: "mona/hello",
		ImportStatus: models.ImportStatusScheduled,
	}
	if err := db.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}

	if err := db.UpdateImportStatus(ctx, project.ID, models.ImportStatusStarted, ""); err != nil {
		t.Fatalf("UpdateImportStatus(started) error: %v", err)
	}
	if err := db.UpdateImportStatus(ctx, project.ID, models.ImportStatusScheduled, ""); err == nil {
		t.Error("UpdateImportStatus() accepted started -> scheduled")
	}
	if err := db.UpdateImportStatus(ctx, project.ID, models.ImportStatusFailed, "clone failed"); err != nil {
		t.Fatalf("UpdateImportStatus(failed) error: %v", err)
	}

	got, _ := db.GetProject(ctx, project.ID)
	if got.ImportStatus != models.ImportStatusFailed || got.ImportError != "clone failed" {
		t.Errorf("project after failure: %+v", got)
	}
}
