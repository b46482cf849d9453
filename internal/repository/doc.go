// Package repository ties the walker, the per-repository collections and the
// search aggregation together into the operations the CLI, HTTP and MCP
// surfaces expose.
//
// A Service indexes one repository at a time into a collection named after
// it, answers semantic queries against one or every indexed collection, and
// runs live substring search across repositories without touching the
// vector store:
//
//	svc := repository.NewService(resolver, store, repository.WithLogger(logger))
//	res, err := svc.IndexRepository(ctx, "demo")
//	rows, err := svc.SearchIndexed(ctx, "hello", repository.SearchOptions{})
//
// Errors never escape the current repository: a failing directory is counted
// in the walk stats, a failing repository in SearchBasic is reported on its
// own result, and a failing collection is skipped by SearchIndexed.
package repository
