/*
Package domain contains the core domain models of the scribe checklist workflow.

It defines the message and reaction events the workflow consumes, the result of
segmenting a message into tasks, and the pending entries that wait for a
confirming reaction. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - MessageKey: Identity of a chat message (chat + message id).
  - Candidate: An inbound text message that may become a checklist.
  - Reaction: An inbound reaction event that may confirm a pending message.
  - ParseResult: Ordered tasks, suggested title and the format that produced them.
  - PendingEntry: A stored candidate awaiting confirmation.
  - ChecklistRequest: What the host channel should render and deliver.
*/
package domain
