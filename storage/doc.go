// Package storage abre o banco usado pelos stores SQL do gateway.
//
// Drivers:
//   - "sqlite": arquivo local (ou ":memory:" em testes), via modernc.org/sqlite
//   - "postgres": via lib/pq
//
// As queries dos stores são escritas com "?" e passam por db.Rebind, então o
// mesmo SQL roda nos dois drivers.
package storage
