// Package vcs versions a watched directory in a local git repository and keeps
// it in sync with a single remote.
//
// The package is built on go-git and never shells out to a git binary. It
// covers three engines that the daemon drives:
//
//   - Commit: stage every change under the root (deletions included, .gitignore
//     respected), write the tree, and advance the branch HEAD points at.
//   - Sync: fetch one branch from the remote, classify the relationship between
//     the local and fetched tips, and fast-forward, merge or stop on conflicts.
//   - Push: publish the local branch to the same-named remote branch.
//
// # Basic Usage
//
//	repo, err := vcs.OpenOrInit("/home/me/notes", "master")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rec, err := repo.Commit("Committed all changes", vcs.Signature{
//		Name:  "backer",
//		Email: "backer@localhost",
//	})
//
// # Merge Analysis
//
// Analyze classifies a fetched tip R against the local tip L:
//
//   - AnalysisUpToDate: R equals L or is already contained in L
//   - AnalysisFastForward: L is an ancestor of R
//   - AnalysisNormal: the histories diverged from a common base
//   - AnalysisUnborn: there is no local commit or no common history
//
// Merge dispatches on the analysis. A normal merge that cannot be resolved
// line by line leaves conflict markers in the working tree. Binary, symlink
// and modify/delete conflicts keep one version at the path and write the other
// to a side file (path~HEAD or path~<remote>). The conflicted paths and
// MERGE_HEAD are recorded and OutcomeConflicts is returned without a commit.
// Commit refuses to run (ErrConflictPending) until every recorded path has no
// markers left and every side file is gone, then records a merge commit.
//
// # Authentication
//
// Credentials are resolved per attempt through a CredentialProvider:
//   - SSHKeyProvider: private key file, loaded fresh for every attempt
//   - NoAuth: local and file remotes
//
// Repository is not safe for concurrent use; callers serialize operations.
package vcs
