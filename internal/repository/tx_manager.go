package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Products() ProductRepository
	Ledger() LedgerStateRepository
	Events() EventRepository
	Accounts() AccountRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fn に渡す ctx はトランザクションを運ぶので、fn の中ではこちらを使う。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r TxRepos) error) error
}
