/*
Package ports defines the driven ports (interfaces) of the scribe workflow.

These interfaces decouple the Coordinator from external implementations, allowing
the workflow to run with various storage backends, authorization sources and
delivery channels.

# Key Interfaces

  - PendingStore: Persists candidate messages until they are confirmed or discarded.
  - Authorizer: Decides whether an actor may act within a connection's scope.
  - ChecklistEmitter: Delivers a checklist through the host platform.
  - DistributedLocker: Provides distributed locking for concurrent access to one message.
*/
package ports
