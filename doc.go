// Package unitwork coordinates typed repositories over a shared storage
// session and controls the session's explicit transaction.
//
//	uow := unitwork.NewUnitOfWork(session)
//	users := unitwork.GetRepository[User](uow)
//	if err := uow.BeginTransaction(ctx); err != nil { ... }
//	users.Insert(&User{Name: "ada"})
//	if err := uow.Commit(ctx); err != nil { ... }
//
// Repositories stage writes on the session; nothing reaches storage until
// SaveChanges or Commit.
package unitwork
