// Package reconcile computes which remote repositories remain importable for
// a user.
package reconcile

import "github.com/gitporter/gitporter/internal/provider"

// Result partitions a remote catalog. Importable and Incompatible are
// disjoint; together with the already-imported repositories they cover the
// whole input.
type Result struct {
	Importable   []provider.RemoteRepository
	Incompatible []provider.RemoteRepository
}

// ComputeImportable subtracts the already-imported set from the remote
// catalog and splits out repositories the importer cannot handle. Membership
// is an exact match between the repository's canonical key and the recorded
// import_source strings. Pure: no I/O, deterministic, input order preserved.
func ComputeImportable(remote []provider.RemoteRepository, existingSources []string) Result {
	existing := make(map[string]struct{}, len(existingSources))
	for _, source := range existingSources {
		existing[source] = struct{}{}
	}

	var result Result
	for _, repo := range remote {
		if _, imported := existing[repo.CanonicalKey()]; imported {
			continue
		}
		if repo.Incompatible {
			result.Incompatible = append(result.Incompatible, repo)
			continue
		}
		result.Importable = append(result.Importable, repo)
	}
	return result
}
