package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gitporter/gitporter/internal/provider"
)

func repos(names ...string) []provider.RemoteRepository {
	out := make([]provider.RemoteRepository, len(names))
	for i, name := range names {
		out[i] = provider.RemoteRepository{ID: name, FullName: name}
	}
	return out
}

func names(rs []provider.RemoteRepository) []string {
	out := make([]string, len(rs))
	for i := range rs {
		out[i] = rs[i].FullName
	}
	return out
}

func TestComputeImportableSubtractsExisting(t *testing.T) {
	remote := repos("mona/a", "mona/b", "mona/c")

	result := ComputeImportable(remote, []string{"mona/b"})

	assert.Equal(t, []string{"mona/a", "mona/c"}, names(result.Importable))
	assert.Empty(t, result.Incompatible)
}

func TestComputeImportableExactKeyMatch(t *testing.T) {
	remote := repos("mona/repo")

	// Near-misses must not hide the repository.
	result := ComputeImportable(remote, []string{"mona/Repo", "mona/repo2", "repo"})
	assert.Len(t, result.Importable, 1)

	result = ComputeImportable(remote, []string{"mona/repo"})
	assert.Empty(t, result.Importable)
}

func TestComputeImportablePartitions(t *testing.T) {
	remote := []provider.RemoteRepository{
		{ID: "1", FullName: "mona/git-repo"},
		{ID: "2", FullName: "mona/hg-repo", Incompatible: true, IncompatibleReason: "mercurial"},
		{ID: "3", FullName: "mona/imported"},
		{ID: "4", FullName: "mona/imported-hg", Incompatible: true},
	}
	existing := []string{"mona/imported", "mona/imported-hg"}

	result := ComputeImportable(remote, existing)

	assert.Equal(t, []string{"mona/git-repo"}, names(result.Importable))
	assert.Equal(t, []string{"mona/hg-repo"}, names(result.Incompatible))

	// Disjoint, and the partition covers the input.
	seen := map[string]struct{}{}
	for _, r := range result.Importable {
		seen[r.FullName] = struct{}{}
	}
	for _, r := range result.Incompatible {
		_, dup := seen[r.FullName]
		assert.False(t, dup, "%s in both partitions", r.FullName)
		seen[r.FullName] = struct{}{}
	}
	for _, source := range existing {
		seen[source] = struct{}{}
	}
	assert.Len(t, seen, len(remote))
}

func TestComputeImportableDeterministic(t *testing.T) {
	remote := repos("z/z", "a/a", "m/m")
	existing := []string{"m/m"}

	first := ComputeImportable(remote, existing)
	second := ComputeImportable(remote, existing)

	assert.Equal(t, first, second)
	// Provider order is preserved, not sorted.
	assert.Equal(t, []string{"z/z", "a/a"}, names(first.Importable))
}

func TestComputeImportableEmptyInputs(t *testing.T) {
	result := ComputeImportable(nil, nil)
	assert.Empty(t, result.Importable)
	assert.Empty(t, result.Incompatible)

	result = ComputeImportable(repos("a/a"), nil)
	assert.Len(t, result.Importable, 1)

	result = ComputeImportable(nil, []string{"a/a"})
	assert.Empty(t, result.Importable)
}
