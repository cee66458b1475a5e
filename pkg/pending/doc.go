/*
Package pending serializes access to the pending store.

Same-key operations are ordered by an in-process mutex and, when a
distributed locker is configured, by a lock shared across replicas. The
store's own Take is already atomic; the manager keeps adapters that are
not (or middlewares that read before they write) safe as well.
*/
package pending
