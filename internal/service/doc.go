// Package service contains the application's business logic: image
// generation batch orchestration and user authentication. Services
// coordinate stores inside transactions and emit events for work that
// happens after commit.
package service
