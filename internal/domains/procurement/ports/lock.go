package ports

import "context"

// BranchLocker serializes planning batches per branch. The returned unlock
// function must be called exactly once.
type BranchLocker interface {
	Lock(ctx context.Context, branchID int64) (unlock func(), err error)
}
